package ora

import "github.com/logicossoftware/go-ora/host"

// MimeType is the content of the mimetype entry.
const MimeType = "image/openraster"

// Entry names inside the archive.
const (
	EntryMimetype  = "mimetype"
	EntryStack     = "stack.xml"
	EntryMerged    = "mergedimage.png"
	EntryThumbnail = "Thumbnails/thumbnail.png"
)

// ThumbnailMax is the largest thumbnail side written by Save.
const ThumbnailMax = 256

const (
	dataDir       = "data"
	tmpSaveSuffix = ".tmpsave"
	scratchPNG    = "tmp.png"
)

// Thumbnail is the result of LoadThumbnail. Width and Height are the
// declared size of the full image, not of the thumbnail.
type Thumbnail struct {
	Image  host.Image
	Width  int
	Height int
	Type   host.ImageType
	Layers int
}
