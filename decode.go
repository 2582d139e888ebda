package ora

import (
	"fmt"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/logicossoftware/go-ora/host"
)

// Load reads the OpenRaster archive at path into a new host image.
//
// The decoding process:
//  1. Opens the archive and parses stack.xml
//  2. Creates an RGB image of the declared size
//  3. Creates groups and imports layers in document order, applying name,
//     blend mode, offsets, opacity and visibility
//
// Layers whose src does not end in ".png" are skipped. A layer with an
// empty name is named after its src without directory or extension.
//
// Load returns ErrBadContainer if the file is not a readable ZIP archive,
// ErrBadManifest if stack.xml is malformed, ErrMissingEntry if a layer
// entry cannot be found, ErrRaster if the host cannot import a layer and
// ErrLimitExceeded if any limit is exceeded. No partial image is returned.
func Load(h host.Host, path string, opts ...ReadOption) (host.Image, error) {
	cfg := newReadConfig(opts)
	if h == nil {
		return nil, fmt.Errorf("%w: host is nil", ErrValidation)
	}

	r, err := openContainer(path, cfg)
	if err != nil {
		return nil, err
	}
	defer r.close()

	m, err := r.manifest()
	if err != nil {
		return nil, err
	}

	sc, err := newScratch(cfg.scratchDir)
	if err != nil {
		return nil, err
	}
	defer sc.remove()

	img, err := h.NewImage(m.Width, m.Height, host.ImageTypeRGB)
	if err != nil {
		return nil, rasterError(EntryStack, err)
	}
	d := &decoder{
		img:    img,
		r:      r,
		raster: newRasterBridge(h, sc, 0),
		limits: cfg.limits,
	}
	if err := d.build(m); err != nil {
		if rerr := h.Release(img); rerr != nil {
			Logger().WithError(rerr).Warn("ora: releasing partially loaded image")
		}
		return nil, err
	}
	Logger().WithFields(logrus.Fields{"path": path, "layers": d.layers}).Debug("ora: loaded")
	return img, nil
}

// manifest reads and parses stack.xml.
func (r *reader) manifest() (*Manifest, error) {
	data, err := r.readString(EntryStack, r.limits.MaxManifestSize)
	if err != nil {
		return nil, err
	}
	return parseManifest(data, r.limits)
}

type decoder struct {
	img    host.Image
	r      *reader
	raster *rasterBridge
	limits Limits
	layers int
}

// parent is a group being filled and the position of its next child.
type parent struct {
	group host.Group
	index int
}

func (d *decoder) build(m *Manifest) error {
	parents := []*parent{{}}
	for ev := range m.events() {
		cur := parents[len(parents)-1]
		switch ev.kind {
		case eventStackEnd:
			parents = parents[:len(parents)-1]
		case eventStack:
			g, err := d.img.NewGroup()
			if err != nil {
				return rasterError(EntryStack, err)
			}
			applyAttrs(g, ev.el, ev.el.Name)
			if err := d.img.Insert(g, cur.group, cur.index); err != nil {
				return rasterError(EntryStack, err)
			}
			cur.index++
			parents = append(parents, &parent{group: g})
		case eventLayer:
			inserted, err := d.addLayer(ev.el, cur)
			if err != nil {
				return err
			}
			if inserted {
				cur.index++
			}
		}
	}
	return nil
}

func (d *decoder) addLayer(el *Element, cur *parent) (bool, error) {
	if !strings.EqualFold(path.Ext(el.Src), ".png") {
		Logger().WithField("src", el.Src).Debug("ora: skipping layer without PNG source")
		return false, nil
	}
	if err := validateContainerPath(el.Src); err != nil {
		return false, fmt.Errorf("%w: layer src %q: %v", ErrBadManifest, el.Src, err)
	}
	if d.layers >= d.limits.MaxLayers {
		return false, fmt.Errorf("%w: more than %d layers", ErrLimitExceeded, d.limits.MaxLayers)
	}
	layer, err := d.raster.loadLayer(d.r, d.img, el.Src)
	if err != nil {
		return false, err
	}
	name := el.Name
	if name == "" {
		base := path.Base(el.Src)
		name = strings.TrimSuffix(base, path.Ext(base))
	}
	applyAttrs(layer, el, name)
	if err := d.img.Insert(layer, cur.group, cur.index); err != nil {
		return false, rasterError(el.Src, err)
	}
	d.layers++
	return true, nil
}

// applyAttrs sets the attributes of el on it in the order name, blend
// mode, offsets, opacity, visibility.
func applyAttrs(it host.Item, el *Element, name string) {
	it.SetName(name)
	it.SetMode(ModeFromSVG(el.CompositeOp))
	if l, ok := it.(host.Layer); ok {
		l.SetOffsets(el.X, el.Y)
	}
	it.SetOpacity(el.Opacity * 100)
	it.SetVisible(el.Visible)
}
