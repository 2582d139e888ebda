// Package host defines the image model the OpenRaster codec talks to.
//
// The codec never touches pixels itself. It walks and builds layer trees,
// reads and writes per-node attributes, and asks the host to move single
// layers to and from PNG files on disk. Everything it needs is expressed by
// the interfaces in this package; package memhost provides an in-memory
// implementation.
package host

// ImageType is the base color model of an image.
type ImageType int

const (
	ImageTypeRGB ImageType = iota
	ImageTypeGray
)

func (t ImageType) String() string {
	switch t {
	case ImageTypeRGB:
		return "RGB"
	case ImageTypeGray:
		return "Gray"
	}
	return "unknown"
}

// Precision is the per-channel storage of an image.
type Precision int

const (
	PrecisionU8Gamma Precision = iota
	PrecisionU16Gamma
)

// MergeType selects the bounds of the layer produced by MergeVisible.
type MergeType int

const (
	// ClipToImage produces a layer exactly the size of the image at 0,0.
	ClipToImage MergeType = iota
	// ExpandAsNecessary produces a layer covering all visible layers.
	ExpandAsNecessary
)

// PNGOptions controls how a host encodes a layer to PNG.
type PNGOptions struct {
	Interlace bool
	// CompressionLevel is a zlib level from 0 (store) to 9.
	CompressionLevel int
	// StripChunks lists ancillary chunk types (e.g. "oFFs") that must not
	// appear in the output.
	StripChunks []string
}

// Item is a node of the layer tree.
type Item interface {
	Name() string
	SetName(name string)
	// Opacity is in the range [0, 100].
	Opacity() float64
	SetOpacity(opacity float64)
	Visible() bool
	SetVisible(visible bool)
	Mode() Mode
	SetMode(mode Mode)
}

// Layer is a leaf of the layer tree holding pixels.
type Layer interface {
	Item
	Offsets() (x, y int)
	SetOffsets(x, y int)
	Size() (width, height int)
}

// Group is an inner node of the layer tree.
type Group interface {
	Item
	// Children returns the direct children, topmost first.
	Children() []Item
}

// Image is a layered document.
type Image interface {
	Width() int
	Height() int
	Type() ImageType
	Precision() Precision
	// Layers returns the top-level items, topmost first.
	Layers() []Item
	// NewGroup creates a group that is not yet part of the tree.
	NewGroup() (Group, error)
	// Insert places item at position among the children of parent, or
	// among the top-level items when parent is nil.
	Insert(item Item, parent Group, position int) error
	Duplicate() (Image, error)
	// MergeVisible flattens the visible layers into a single layer which
	// replaces all layers of the image.
	MergeVisible(merge MergeType) (Layer, error)
	Scale(width, height int) error
	ConvertPrecision(p Precision) error
}

// Host creates images and performs the PNG raster I/O for the codec.
type Host interface {
	NewImage(width, height int, typ ImageType) (Image, error)
	// LoadImage reads a PNG file as a single-layer image.
	LoadImage(path string) (Image, error)
	// ImportLayer reads a PNG file as a new layer of img. The layer is not
	// inserted into the tree.
	ImportLayer(img Image, path string) (Layer, error)
	ExportLayer(img Image, layer Layer, path string, opts PNGOptions) error
	// Release frees an image the codec created and no longer needs.
	Release(img Image) error
}
