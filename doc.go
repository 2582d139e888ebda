// Package ora reads and writes OpenRaster (.ora) layered raster documents.
//
// An OpenRaster file is a ZIP archive holding one PNG per layer together
// with an XML manifest, stack.xml, that describes the image size and the
// tree of layers and groups with their names, offsets, opacity, visibility
// and blend modes.
//
// # File Format Overview
//
// An archive written by [Save] contains, in order:
//   - mimetype, stored uncompressed as the first entry, holding exactly
//     "image/openraster"
//   - data/NNN.png for top-level layers and data/P-NNN.png for layers
//     nested in the group whose path is P
//   - mergedimage.png, the visible layers flattened at image size
//   - Thumbnails/thumbnail.png, at most 256 pixels on its long side
//   - stack.xml
//
// Every entry is stored without compression and carries mode 0644.
//
// # Hosts
//
// The package never decodes or composites pixels itself. It drives a
// [host.Host], which owns the image model and the PNG codec. Package
// memhost provides an in-memory host:
//
//	h := memhost.New()
//	img, err := ora.Load(h, "in.ora")
//	if err != nil {
//		return err
//	}
//	err = ora.Save(h, img, "out.ora")
//
// # Legacy archives
//
// Some producers stored entry names in their filesystem encoding without
// setting the ZIP UTF-8 flag. When an entry is not found by its UTF-8 name
// it is looked up again in that encoding (Windows-1252 unless changed with
// [WithFilenameEncoding]) and a warning is logged.
//
// # Security Considerations
//
// Reading enforces configurable [Limits] on image size, layer count,
// nesting depth and entry sizes. [Extract] only writes entries whose names
// are normalized relative paths.
package ora
