package ora

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrBadContainer  = errors.New("ora: bad container")
	ErrMissingEntry  = errors.New("ora: missing entry")
	ErrBadManifest   = errors.New("ora: bad manifest")
	ErrRaster        = errors.New("ora: raster error")
	ErrIO            = errors.New("ora: i/o error")
	ErrPermission    = errors.New("ora: permission denied")
	ErrLimitExceeded = errors.New("ora: limit exceeded")
	ErrValidation    = errors.New("ora: validation failed")
)

// fsError classifies a filesystem failure as ErrPermission or ErrIO and
// keeps the cause in the chain.
func fsError(op, path string, err error) error {
	kind := ErrIO
	if errors.Is(err, fs.ErrPermission) {
		kind = ErrPermission
	}
	return fmt.Errorf("%w: %s %s: %w", kind, op, path, err)
}

func rasterError(zipPath string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRaster, zipPath, err)
}
