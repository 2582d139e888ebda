package ora

import (
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

type readConfig struct {
	limits     Limits
	nameEnc    encoding.Encoding
	scratchDir string
}

func newReadConfig(opts []ReadOption) readConfig {
	cfg := readConfig{limits: defaultLimits(), nameEnc: charmap.Windows1252}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	if cfg.nameEnc == nil {
		cfg.nameEnc = charmap.Windows1252
	}
	return cfg
}

type ReadOption func(*readConfig)

func WithReadLimits(l Limits) ReadOption {
	return func(c *readConfig) { c.limits = l }
}

// WithFilenameEncoding sets the encoding tried when an entry is not found
// under its UTF-8 name. Archives from legacy producers store entry names in
// the writer's filesystem encoding without the UTF-8 flag. The default is
// Windows-1252.
func WithFilenameEncoding(enc encoding.Encoding) ReadOption {
	return func(c *readConfig) { c.nameEnc = enc }
}

// WithReadScratchDir sets the parent of the per-call scratch directory.
// The default is os.TempDir.
func WithReadScratchDir(dir string) ReadOption {
	return func(c *readConfig) { c.scratchDir = dir }
}

type writeConfig struct {
	scratchDir string
	pngLevel   int
	thumbMax   int
	modTime    time.Time
}

func newWriteConfig(opts []WriteOption) writeConfig {
	cfg := writeConfig{pngLevel: 2, thumbMax: ThumbnailMax}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.thumbMax <= 0 || cfg.thumbMax > ThumbnailMax {
		cfg.thumbMax = ThumbnailMax
	}
	if cfg.modTime.IsZero() {
		cfg.modTime = time.Now()
	}
	return cfg
}

type WriteOption func(*writeConfig)

func WithWriteScratchDir(dir string) WriteOption {
	return func(c *writeConfig) { c.scratchDir = dir }
}

// WithPNGCompression sets the zlib level (0-9) used for layer PNGs.
// The default is 2.
func WithPNGCompression(level int) WriteOption {
	return func(c *writeConfig) { c.pngLevel = level }
}

// WithThumbnailMax lowers the longest side of the stored thumbnail.
// Values outside 1..ThumbnailMax are ignored.
func WithThumbnailMax(n int) WriteOption {
	return func(c *writeConfig) { c.thumbMax = n }
}

// WithModTime sets the modification time stored on every entry. Fixing it
// makes Save output reproducible.
func WithModTime(t time.Time) WriteOption {
	return func(c *writeConfig) { c.modTime = t }
}
