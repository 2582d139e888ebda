package memhost

import (
	"errors"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/logicossoftware/go-ora/host"
)

var (
	ErrReleased    = errors.New("memhost: image released")
	ErrForeignItem = errors.New("memhost: item not created by memhost")
	ErrBadSize     = errors.New("memhost: invalid size")
)

// Image is an in-memory layered image.
type Image struct {
	width, height int
	typ           host.ImageType
	precision     host.Precision
	layers        []host.Item
	released      bool
}

// NewImage returns an empty 8-bit image.
func NewImage(width, height int, typ host.ImageType) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadSize, width, height)
	}
	return &Image{width: width, height: height, typ: typ, precision: host.PrecisionU8Gamma}, nil
}

func (m *Image) Width() int                { return m.width }
func (m *Image) Height() int               { return m.height }
func (m *Image) Type() host.ImageType      { return m.typ }
func (m *Image) Precision() host.Precision { return m.precision }

func (m *Image) Layers() []host.Item {
	return append([]host.Item(nil), m.layers...)
}

func (m *Image) NewGroup() (host.Group, error) {
	if m.released {
		return nil, ErrReleased
	}
	return NewGroup(""), nil
}

// Insert places item at position among parent's children, or among the
// top-level items when parent is nil. Positions past the end append.
func (m *Image) Insert(item host.Item, parent host.Group, position int) error {
	if m.released {
		return ErrReleased
	}
	switch item.(type) {
	case *Layer, *Group:
	default:
		return fmt.Errorf("%w: %T", ErrForeignItem, item)
	}
	list := &m.layers
	if parent != nil {
		g, ok := parent.(*Group)
		if !ok {
			return fmt.Errorf("%w: %T", ErrForeignItem, parent)
		}
		if g == item {
			return errors.New("memhost: group inserted into itself")
		}
		list = &g.children
	}
	if position < 0 {
		position = 0
	}
	if position > len(*list) {
		position = len(*list)
	}
	*list = append(*list, nil)
	copy((*list)[position+1:], (*list)[position:])
	(*list)[position] = item
	return nil
}

func (m *Image) Duplicate() (host.Image, error) {
	if m.released {
		return nil, ErrReleased
	}
	d := *m
	d.layers = cloneItems(m.layers)
	return &d, nil
}

func (m *Image) MergeVisible(merge host.MergeType) (host.Layer, error) {
	if m.released {
		return nil, ErrReleased
	}
	r := image.Rect(0, 0, m.width, m.height)
	if merge == host.ExpandAsNecessary {
		if vb := visibleBounds(m.layers); !vb.Empty() {
			r = vb
		}
	}
	c := newCanvas(r)
	c.render(m.layers)
	l := c.toLayer(bottomVisibleName(m.layers), m.precision)
	m.layers = []host.Item{l}
	return l, nil
}

func bottomVisibleName(items []host.Item) string {
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Visible() {
			return items[i].Name()
		}
	}
	return "Background"
}

// Scale resizes the image and every layer by the same factors, moving
// layer offsets proportionally.
func (m *Image) Scale(width, height int) error {
	if m.released {
		return ErrReleased
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadSize, width, height)
	}
	sx := float64(width) / float64(m.width)
	sy := float64(height) / float64(m.height)
	walkLayers(m.layers, func(l *Layer) {
		lw, lh := l.Size()
		nw, nh := max(1, int(float64(lw)*sx+0.5)), max(1, int(float64(lh)*sy+0.5))
		var dst xdraw.Image
		if precisionOf(l.pix) == host.PrecisionU16Gamma {
			dst = image.NewNRGBA64(image.Rect(0, 0, nw, nh))
		} else {
			dst = image.NewNRGBA(image.Rect(0, 0, nw, nh))
		}
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), l.pix, l.pix.Bounds(), xdraw.Src, nil)
		l.pix = dst
		l.x = int(float64(l.x) * sx)
		l.y = int(float64(l.y) * sy)
	})
	m.width, m.height = width, height
	return nil
}

func (m *Image) ConvertPrecision(p host.Precision) error {
	if m.released {
		return ErrReleased
	}
	switch p {
	case host.PrecisionU8Gamma, host.PrecisionU16Gamma:
	default:
		return fmt.Errorf("memhost: unsupported precision %d", p)
	}
	walkLayers(m.layers, func(l *Layer) {
		if precisionOf(l.pix) != p {
			l.pix = convert(l.pix, p)
		}
	})
	m.precision = p
	return nil
}

func walkLayers(items []host.Item, fn func(*Layer)) {
	for _, it := range items {
		switch v := it.(type) {
		case *Layer:
			fn(v)
		case *Group:
			walkLayers(v.children, fn)
		}
	}
}
