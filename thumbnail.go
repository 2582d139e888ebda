package ora

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/logicossoftware/go-ora/host"
)

// LoadThumbnail reads only the stored thumbnail of the archive at path.
//
// The returned Width and Height are the declared size of the full image.
// When size is positive and smaller than the long side of the stored
// thumbnail, the thumbnail is scaled down to fit size x size.
func LoadThumbnail(h host.Host, path string, size int, opts ...ReadOption) (*Thumbnail, error) {
	cfg := newReadConfig(opts)
	if h == nil {
		return nil, fmt.Errorf("%w: host is nil", ErrValidation)
	}

	r, err := openContainer(path, cfg)
	if err != nil {
		return nil, err
	}
	defer r.close()

	data, err := r.readString(EntryStack, cfg.limits.MaxManifestSize)
	if err != nil {
		return nil, err
	}
	w, ht, err := imageSize(data)
	if err != nil {
		return nil, err
	}

	sc, err := newScratch(cfg.scratchDir)
	if err != nil {
		return nil, err
	}
	defer sc.remove()

	img, err := newRasterBridge(h, sc, 0).loadImage(r, EntryThumbnail)
	if err != nil {
		return nil, err
	}
	if size > 0 && (img.Width() > size || img.Height() > size) {
		tw, th := thumbnailSize(img.Width(), img.Height(), size)
		if err := img.Scale(tw, th); err != nil {
			_ = h.Release(img)
			return nil, rasterError(EntryThumbnail, err)
		}
	}
	return &Thumbnail{Image: img, Width: w, Height: ht, Type: host.ImageTypeRGB, Layers: 1}, nil
}

// imageSize reads the w and h attributes of the root element without
// parsing the rest of the document.
func imageSize(data []byte) (int, int, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return 0, 0, fmt.Errorf("%w: no root element", ErrBadManifest)
		}
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %v", ErrBadManifest, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "image" {
			return 0, 0, fmt.Errorf("%w: root element is %q, want image", ErrBadManifest, se.Name.Local)
		}
		a := attrMap(se.Attr)
		w, err := requiredInt(a, "w")
		if err != nil {
			return 0, 0, err
		}
		h, err := requiredInt(a, "h")
		if err != nil {
			return 0, 0, err
		}
		return w, h, nil
	}
}
