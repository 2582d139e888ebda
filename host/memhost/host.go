// Package memhost is an in-memory implementation of the host image model.
//
// Layers are held as 8-bit or 16-bit non-premultiplied RGBA buffers. PNG
// files are read and written with image/png; encoder options that image/png
// does not expose are applied by rewriting the chunk stream afterwards.
// A layer's offsets are written to an oFFs chunk and honoured on import.
package memhost

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/logicossoftware/go-ora/host"
	"github.com/logicossoftware/go-ora/internal/pngchunk"
)

var ErrUnsupported = errors.New("memhost: unsupported option")

// Host implements host.Host.
type Host struct{}

// New returns a Host.
func New() *Host { return &Host{} }

func (*Host) NewImage(width, height int, typ host.ImageType) (host.Image, error) {
	return NewImage(width, height, typ)
}

// LoadImage reads a PNG file as a single-layer image named after the file.
// 16-bit files produce a 16-bit image.
func (*Host) LoadImage(path string) (host.Image, error) {
	pix, offX, offY, err := readPNG(path)
	if err != nil {
		return nil, err
	}
	b := pix.Bounds()
	img, err := NewImage(b.Dx(), b.Dy(), host.ImageTypeRGB)
	if err != nil {
		return nil, err
	}
	img.precision = precisionOf(pix)
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	l := &Layer{attrs: defaultAttrs(name), pix: convert(pix, img.precision)}
	l.x, l.y = offX, offY
	img.layers = []host.Item{l}
	return img, nil
}

// ImportLayer reads a PNG file as a layer at the image's precision.
func (*Host) ImportLayer(img host.Image, path string) (host.Layer, error) {
	m, ok := img.(*Image)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrForeignItem, img)
	}
	if m.released {
		return nil, ErrReleased
	}
	pix, offX, offY, err := readPNG(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	l := &Layer{attrs: defaultAttrs(name), pix: convert(pix, m.precision)}
	l.x, l.y = offX, offY
	return l, nil
}

func readPNG(path string) (image.Image, int, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, 0, err
	}
	chunks, err := pngchunk.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	var x, y int32
	if c, ok := pngchunk.Find(chunks, "oFFs"); ok {
		x, y, _ = pngchunk.ParseOffsets(c)
	}
	pix, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	return pix, int(x), int(y), nil
}

// ExportLayer writes layer to path as PNG. Interlaced output is not
// supported.
func (*Host) ExportLayer(img host.Image, layer host.Layer, path string, opts host.PNGOptions) error {
	l, ok := layer.(*Layer)
	if !ok {
		return fmt.Errorf("%w: %T", ErrForeignItem, layer)
	}
	if opts.Interlace {
		return fmt.Errorf("%w: interlace", ErrUnsupported)
	}
	if opts.CompressionLevel < 0 || opts.CompressionLevel > 9 {
		return fmt.Errorf("%w: compression level %d", ErrUnsupported, opts.CompressionLevel)
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&buf, l.pix); err != nil {
		return err
	}
	chunks, err := pngchunk.Decode(&buf)
	if err != nil {
		return err
	}
	if l.x != 0 || l.y != 0 {
		chunks = pngchunk.InsertBeforeData(chunks, pngchunk.Offsets(int32(l.x), int32(l.y)))
	}
	chunks = pngchunk.Strip(chunks, opts.StripChunks...)
	chunks, err = pngchunk.Recompress(chunks, opts.CompressionLevel)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := pngchunk.Encode(f, chunks); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (*Host) Release(img host.Image) error {
	m, ok := img.(*Image)
	if !ok {
		return fmt.Errorf("%w: %T", ErrForeignItem, img)
	}
	m.released = true
	m.layers = nil
	return nil
}
