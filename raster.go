package ora

import (
	"github.com/sirupsen/logrus"

	"github.com/logicossoftware/go-ora/host"
)

// rasterBridge moves pixels between host layers and container entries
// through a scratch PNG file.
type rasterBridge struct {
	host    host.Host
	scratch *scratch
	png     host.PNGOptions
}

func newRasterBridge(h host.Host, s *scratch, level int) *rasterBridge {
	return &rasterBridge{
		host:    h,
		scratch: s,
		// Offsets live in the manifest. An oFFs chunk would displace the
		// layer a second time on import.
		png: host.PNGOptions{Interlace: false, CompressionLevel: level, StripChunks: []string{"oFFs"}},
	}
}

// saveLayer encodes layer into the container at zipPath.
func (b *rasterBridge) saveLayer(w *writer, img host.Image, layer host.Layer, zipPath string) error {
	tmp := b.scratch.path(scratchPNG)
	defer b.scratch.discard(scratchPNG)
	if err := b.host.ExportLayer(img, layer, tmp, b.png); err != nil {
		return rasterError(zipPath, err)
	}
	if err := w.writeFile(zipPath, tmp); err != nil {
		return err
	}
	Logger().WithFields(logrus.Fields{"entry": zipPath, "layer": layer.Name()}).Debug("ora: layer written")
	return nil
}

// loadLayer imports the PNG entry at zipPath as a new layer of img. The
// layer is not inserted.
func (b *rasterBridge) loadLayer(r *reader, img host.Image, zipPath string) (host.Layer, error) {
	tmp := b.scratch.path(scratchPNG)
	defer b.scratch.discard(scratchPNG)
	if err := r.readInto(zipPath, tmp); err != nil {
		return nil, err
	}
	layer, err := b.host.ImportLayer(img, tmp)
	if err != nil {
		return nil, rasterError(zipPath, err)
	}
	return layer, nil
}

// loadImage reads the PNG entry at zipPath as a standalone image.
func (b *rasterBridge) loadImage(r *reader, zipPath string) (host.Image, error) {
	tmp := b.scratch.path(scratchPNG)
	defer b.scratch.discard(scratchPNG)
	if err := r.readInto(zipPath, tmp); err != nil {
		return nil, err
	}
	img, err := b.host.LoadImage(tmp)
	if err != nil {
		return nil, rasterError(zipPath, err)
	}
	return img, nil
}
