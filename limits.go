package ora

// Limits bounds the resources Load, LoadThumbnail and friends will commit
// to an archive. Zero fields take the defaults.
type Limits struct {
	MaxDimension    int    // image width or height declared by stack.xml
	MaxLayers       int    // layer elements loaded
	MaxDepth        int    // nesting of stack elements
	MaxManifestSize uint64 // bytes of stack.xml
	MaxEntrySize    uint64 // uncompressed bytes of any other entry
}

func defaultLimits() Limits {
	return Limits{
		MaxDimension:    1 << 19,
		MaxLayers:       100_000,
		MaxDepth:        256,
		MaxManifestSize: 16 << 20, // 16 MiB
		MaxEntrySize:    2 << 30,  // 2 GiB
	}
}

func (l Limits) withDefaults() Limits {
	d := defaultLimits()
	if l.MaxDimension == 0 {
		l.MaxDimension = d.MaxDimension
	}
	if l.MaxLayers == 0 {
		l.MaxLayers = d.MaxLayers
	}
	if l.MaxDepth == 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxManifestSize == 0 {
		l.MaxManifestSize = d.MaxManifestSize
	}
	if l.MaxEntrySize == 0 {
		l.MaxEntrySize = d.MaxEntrySize
	}
	return l
}
