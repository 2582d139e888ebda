package ora

import (
	"fmt"
	"iter"
	"path"

	"github.com/sirupsen/logrus"

	"github.com/logicossoftware/go-ora/host"
)

// Save writes img to path as an OpenRaster archive.
//
// The archive is assembled in path+".tmpsave" and renamed over path once
// complete. Entries are written in this order:
//   - mimetype (stored first, so the file can be identified by its prefix)
//   - one PNG per layer under data/, in tree order
//   - mergedimage.png, the visible layers flattened at image size
//   - Thumbnails/thumbnail.png, at most 256 pixels on its long side
//   - stack.xml
//
// img is not modified; the merged preview is built on a duplicate. Pixel
// encoding is delegated to h. On failure path is untouched and the
// .tmpsave file, if any, is left in place.
func Save(h host.Host, img host.Image, path string, opts ...WriteOption) error {
	cfg := newWriteConfig(opts)
	if h == nil {
		return fmt.Errorf("%w: host is nil", ErrValidation)
	}
	if img == nil {
		return fmt.Errorf("%w: image is nil", ErrValidation)
	}
	if cfg.pngLevel < 0 || cfg.pngLevel > 9 {
		return fmt.Errorf("%w: png compression level %d", ErrValidation, cfg.pngLevel)
	}

	sc, err := newScratch(cfg.scratchDir)
	if err != nil {
		return err
	}
	defer sc.remove()

	w, err := createContainer(path, cfg.modTime)
	if err != nil {
		return err
	}
	defer w.abort()

	e := &encoder{
		img:    img,
		w:      w,
		raster: newRasterBridge(h, sc, cfg.pngLevel),
	}
	m := &Manifest{Width: img.Width(), Height: img.Height(), Root: &Element{Kind: ElementStack}}
	if err := e.writeLayers(m.Root); err != nil {
		return err
	}
	if err := e.writePreviews(h, cfg.thumbMax); err != nil {
		return err
	}
	if err := w.writeString(EntryStack, m.Bytes()); err != nil {
		return err
	}
	if err := w.close(); err != nil {
		return err
	}
	Logger().WithFields(logrus.Fields{"path": path, "entries": len(w.names)}).Debug("ora: saved")
	return nil
}

type encoder struct {
	img    host.Image
	w      *writer
	raster *rasterBridge
}

// scope is one level of the stack being written: the group path shared by
// its entries and the counter for the next child.
type scope struct {
	path  string
	next  int
	stack *Element
}

func (s *scope) childPath() string {
	p := fmt.Sprintf("%03d", s.next)
	if s.path != "" {
		p = s.path + "-" + p
	}
	s.next++
	return p
}

func (e *encoder) writeLayers(root *Element) error {
	scopes := []*scope{{stack: root}}
	for ev := range walkItems(e.img.Layers()) {
		cur := scopes[len(scopes)-1]
		switch ev.kind {
		case itemLeaf:
			layer := ev.item.(host.Layer)
			zipPath := path.Join(dataDir, cur.childPath()+".png")
			el := newElement(ElementLayer, layer)
			el.Src = zipPath
			el.X, el.Y = layer.Offsets()
			cur.stack.Children = append(cur.stack.Children, el)
			if err := e.raster.saveLayer(e.w, e.img, layer, zipPath); err != nil {
				return err
			}
		case itemEnter:
			el := newElement(ElementStack, ev.item)
			cur.stack.Children = append(cur.stack.Children, el)
			scopes = append(scopes, &scope{path: cur.childPath(), stack: el})
		case itemLeave:
			scopes = scopes[:len(scopes)-1]
		}
	}
	return nil
}

func newElement(kind ElementKind, it host.Item) *Element {
	return &Element{
		Kind:        kind,
		Name:        it.Name(),
		Opacity:     it.Opacity() / 100,
		Visible:     it.Visible(),
		CompositeOp: SVGFromMode(it.Mode()),
	}
}

// writePreviews writes mergedimage.png and the thumbnail from a flattened
// duplicate of the image.
func (e *encoder) writePreviews(h host.Host, thumbMax int) error {
	dup, err := e.img.Duplicate()
	if err != nil {
		return rasterError(EntryMerged, err)
	}
	defer func() {
		if err := h.Release(dup); err != nil {
			Logger().WithError(err).Warn("ora: releasing merged preview")
		}
	}()

	merged, err := dup.MergeVisible(host.ClipToImage)
	if err != nil {
		return rasterError(EntryMerged, err)
	}
	if err := e.raster.saveLayer(e.w, dup, merged, EntryMerged); err != nil {
		return err
	}

	tw, th := thumbnailSize(dup.Width(), dup.Height(), thumbMax)
	if tw != dup.Width() || th != dup.Height() {
		if err := dup.Scale(tw, th); err != nil {
			return rasterError(EntryThumbnail, err)
		}
	}
	if dup.Precision() != host.PrecisionU8Gamma {
		if err := dup.ConvertPrecision(host.PrecisionU8Gamma); err != nil {
			return rasterError(EntryThumbnail, err)
		}
	}
	layers := dup.Layers()
	if len(layers) == 0 {
		return rasterError(EntryThumbnail, fmt.Errorf("merged image has no layer"))
	}
	thumb, ok := layers[0].(host.Layer)
	if !ok {
		return rasterError(EntryThumbnail, fmt.Errorf("merged item is %T", layers[0]))
	}
	return e.raster.saveLayer(e.w, dup, thumb, EntryThumbnail)
}

// thumbnailSize fits w x h into max x max keeping the aspect ratio. Both
// sides are at least 1.
func thumbnailSize(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		return max, clampMin1(h * max / w)
	}
	return clampMin1(w * max / h), max
}

func clampMin1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

type itemEventKind int

const (
	itemLeaf itemEventKind = iota
	itemEnter
	itemLeave
)

type itemEvent struct {
	kind itemEventKind
	item host.Item
}

// walkItems yields the host tree depth first in host order.
func walkItems(items []host.Item) iter.Seq[itemEvent] {
	return func(yield func(itemEvent) bool) {
		walkItemList(items, yield)
	}
}

func walkItemList(items []host.Item, yield func(itemEvent) bool) bool {
	for _, it := range items {
		g, ok := it.(host.Group)
		if !ok {
			if _, isLayer := it.(host.Layer); !isLayer {
				continue
			}
			if !yield(itemEvent{kind: itemLeaf, item: it}) {
				return false
			}
			continue
		}
		if !yield(itemEvent{kind: itemEnter, item: g}) {
			return false
		}
		if !walkItemList(g.Children(), yield) {
			return false
		}
		if !yield(itemEvent{kind: itemLeave, item: g}) {
			return false
		}
	}
	return true
}
