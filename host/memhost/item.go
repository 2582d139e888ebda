package memhost

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/logicossoftware/go-ora/host"
)

type attrs struct {
	name    string
	opacity float64
	visible bool
	mode    host.Mode
}

func defaultAttrs(name string) attrs {
	return attrs{name: name, opacity: 100, visible: true, mode: host.ModeNormal}
}

func (a *attrs) Name() string            { return a.name }
func (a *attrs) SetName(name string)     { a.name = name }
func (a *attrs) Opacity() float64        { return a.opacity }
func (a *attrs) Visible() bool           { return a.visible }
func (a *attrs) SetVisible(visible bool) { a.visible = visible }
func (a *attrs) Mode() host.Mode         { return a.mode }
func (a *attrs) SetMode(mode host.Mode)  { a.mode = mode }

// SetOpacity clamps opacity to [0, 100].
func (a *attrs) SetOpacity(opacity float64) {
	switch {
	case opacity < 0:
		opacity = 0
	case opacity > 100:
		opacity = 100
	}
	a.opacity = opacity
}

// Layer is a raster layer. Its pixels are an *image.NRGBA or an
// *image.NRGBA64 anchored at 0,0; the offsets place it on the canvas.
type Layer struct {
	attrs
	x, y int
	pix  draw.Image
}

// NewLayer returns a visible, fully opaque, normal-mode layer holding a copy
// of pix converted to 8-bit non-premultiplied RGBA.
func NewLayer(name string, pix image.Image) *Layer {
	return &Layer{attrs: defaultAttrs(name), pix: convert(pix, host.PrecisionU8Gamma)}
}

func (l *Layer) Offsets() (x, y int)  { return l.x, l.y }
func (l *Layer) SetOffsets(x, y int) { l.x, l.y = x, y }

func (l *Layer) Size() (width, height int) {
	b := l.pix.Bounds()
	return b.Dx(), b.Dy()
}

// Pixels returns the layer's pixel buffer. The caller must not modify it.
func (l *Layer) Pixels() image.Image { return l.pix }

// canvasBounds is the layer rectangle in image coordinates.
func (l *Layer) canvasBounds() image.Rectangle {
	return l.pix.Bounds().Add(image.Pt(l.x, l.y))
}

func (l *Layer) clone() *Layer {
	c := *l
	c.pix = convert(l.pix, precisionOf(l.pix))
	return &c
}

// Group is a layer group.
type Group struct {
	attrs
	children []host.Item
}

// NewGroup returns an empty, visible, normal-mode group.
func NewGroup(name string) *Group {
	return &Group{attrs: defaultAttrs(name)}
}

func (g *Group) Children() []host.Item {
	return append([]host.Item(nil), g.children...)
}

func (g *Group) clone() *Group {
	c := &Group{attrs: g.attrs}
	c.children = cloneItems(g.children)
	return c
}

func cloneItems(items []host.Item) []host.Item {
	out := make([]host.Item, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case *Layer:
			out = append(out, v.clone())
		case *Group:
			out = append(out, v.clone())
		}
	}
	return out
}

func precisionOf(img image.Image) host.Precision {
	switch img.(type) {
	case *image.NRGBA64, *image.RGBA64, *image.Gray16:
		return host.PrecisionU16Gamma
	}
	return host.PrecisionU8Gamma
}

// convert copies img into a fresh buffer of the given precision anchored at
// 0,0. Straight-alpha values are carried over without a premultiplied round
// trip so that 8-bit layers survive unchanged.
func convert(img image.Image, p host.Precision) draw.Image {
	b := img.Bounds()
	r := image.Rect(0, 0, b.Dx(), b.Dy())
	if p == host.PrecisionU16Gamma {
		dst := image.NewNRGBA64(r)
		for y := 0; y < r.Dy(); y++ {
			for x := 0; x < r.Dx(); x++ {
				dst.SetNRGBA64(x, y, nrgba64At(img, b.Min.X+x, b.Min.Y+y))
			}
		}
		return dst
	}
	dst := image.NewNRGBA(r)
	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < r.Dy(); y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+4*r.Dx()], src.Pix[i:i+4*r.Dx()])
		}
		return dst
	}
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			dst.SetNRGBA(x, y, nrgbaAt(img, b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	switch src := img.(type) {
	case *image.NRGBA:
		return src.NRGBAAt(x, y)
	case *image.NRGBA64:
		c := src.NRGBA64At(x, y)
		return color.NRGBA{R: uint8(c.R >> 8), G: uint8(c.G >> 8), B: uint8(c.B >> 8), A: uint8(c.A >> 8)}
	}
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func nrgba64At(img image.Image, x, y int) color.NRGBA64 {
	switch src := img.(type) {
	case *image.NRGBA64:
		return src.NRGBA64At(x, y)
	case *image.NRGBA:
		c := src.NRGBAAt(x, y)
		return color.NRGBA64{R: uint16(c.R) * 0x101, G: uint16(c.G) * 0x101, B: uint16(c.B) * 0x101, A: uint16(c.A) * 0x101}
	}
	return color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
}
