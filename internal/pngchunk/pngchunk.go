// Package pngchunk reads and rewrites the chunk stream of a PNG file.
//
// It does not decode pixels. It is used to apply encoder options that
// image/png does not expose: dropping ancillary chunks, adding an oFFs
// chunk, and recompressing the IDAT stream at a given zlib level.
package pngchunk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Signature is the 8-byte PNG file signature.
const Signature = "\x89PNG\r\n\x1a\n"

// maxChunkLen is the largest length a PNG four-byte unsigned integer may hold.
const maxChunkLen = 1<<31 - 1

var ErrFormat = errors.New("pngchunk: invalid PNG")

// Chunk is a single PNG chunk without its length and CRC fields.
type Chunk struct {
	Type string
	Data []byte
}

// Decode reads a complete chunk stream, verifying the signature and every
// chunk CRC. Reading stops after IEND.
func Decode(r io.Reader) ([]Chunk, error) {
	var sig [8]byte
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		return nil, fmt.Errorf("%w: reading signature: %v", ErrFormat, err)
	}
	if string(sig[:]) != Signature {
		return nil, fmt.Errorf("%w: bad signature %x", ErrFormat, sig)
	}

	var chunks []Chunk
	for {
		c, err := readChunk(r)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
		if c.Type == "IEND" {
			return chunks, nil
		}
	}
}

func readChunk(r io.Reader) (Chunk, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Chunk{}, fmt.Errorf("%w: reading chunk header: %v", ErrFormat, err)
	}
	n := binary.BigEndian.Uint32(hdr[0:4])
	if n > maxChunkLen {
		return Chunk{}, fmt.Errorf("%w: chunk length %d", ErrFormat, n)
	}
	typ := string(hdr[4:8])
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return Chunk{}, fmt.Errorf("%w: reading %s data: %v", ErrFormat, typ, err)
	}
	var sum [4]byte
	if _, err := io.ReadFull(r, sum[:]); err != nil {
		return Chunk{}, fmt.Errorf("%w: reading %s crc: %v", ErrFormat, typ, err)
	}
	if binary.BigEndian.Uint32(sum[:]) != checksum(hdr[4:8], data) {
		return Chunk{}, fmt.Errorf("%w: %s crc mismatch", ErrFormat, typ)
	}
	return Chunk{Type: typ, Data: data}, nil
}

// Encode writes the signature followed by chunks.
func Encode(w io.Writer, chunks []Chunk) error {
	if _, err := io.WriteString(w, Signature); err != nil {
		return err
	}
	for _, c := range chunks {
		if len(c.Type) != 4 {
			return fmt.Errorf("%w: chunk type %q", ErrFormat, c.Type)
		}
		var hdr [8]byte
		binary.BigEndian.PutUint32(hdr[0:4], uint32(len(c.Data)))
		copy(hdr[4:8], c.Type)
		var sum [4]byte
		binary.BigEndian.PutUint32(sum[:], checksum(hdr[4:8], c.Data))
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
		if _, err := w.Write(c.Data); err != nil {
			return err
		}
		if _, err := w.Write(sum[:]); err != nil {
			return err
		}
	}
	return nil
}

func checksum(typ, data []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write(typ)
	h.Write(data)
	return h.Sum32()
}

// Strip returns chunks without any chunk whose type is listed.
// Critical chunks are never removed.
func Strip(chunks []Chunk, types ...string) []Chunk {
	out := chunks[:0:0]
	for _, c := range chunks {
		if !IsCritical(c.Type) && contains(types, c.Type) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// IsCritical reports whether typ names a critical chunk (upper-case first letter).
func IsCritical(typ string) bool {
	return len(typ) == 4 && typ[0] >= 'A' && typ[0] <= 'Z'
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Find returns the first chunk of the given type.
func Find(chunks []Chunk, typ string) (Chunk, bool) {
	for _, c := range chunks {
		if c.Type == typ {
			return c, true
		}
	}
	return Chunk{}, false
}

// InsertBeforeData inserts c immediately before the first IDAT chunk.
func InsertBeforeData(chunks []Chunk, c Chunk) []Chunk {
	for i, have := range chunks {
		if have.Type == "IDAT" {
			out := make([]Chunk, 0, len(chunks)+1)
			out = append(out, chunks[:i]...)
			out = append(out, c)
			return append(out, chunks[i:]...)
		}
	}
	return append(chunks, c)
}

// Recompress inflates the concatenated IDAT stream and deflates it again at
// level, emitting a single IDAT chunk where the first one was.
func Recompress(chunks []Chunk, level int) ([]Chunk, error) {
	var raw bytes.Buffer
	first := -1
	for i, c := range chunks {
		if c.Type == "IDAT" {
			if first < 0 {
				first = i
			}
			raw.Write(c.Data)
		}
	}
	if first < 0 {
		return nil, fmt.Errorf("%w: no IDAT chunk", ErrFormat)
	}

	zr, err := zlib.NewReader(&raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	scanlines, err := io.ReadAll(zr)
	zr.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: inflating IDAT: %v", ErrFormat, err)
	}

	var packed bytes.Buffer
	zw, err := zlib.NewWriterLevel(&packed, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(scanlines); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	out := make([]Chunk, 0, len(chunks))
	for i, c := range chunks {
		switch {
		case i == first:
			out = append(out, Chunk{Type: "IDAT", Data: packed.Bytes()})
		case c.Type == "IDAT":
		default:
			out = append(out, c)
		}
	}
	return out, nil
}

// Offsets builds an oFFs chunk with pixel units.
func Offsets(x, y int32) Chunk {
	data := make([]byte, 9)
	binary.BigEndian.PutUint32(data[0:4], uint32(x))
	binary.BigEndian.PutUint32(data[4:8], uint32(y))
	data[8] = 0 // unit: pixel
	return Chunk{Type: "oFFs", Data: data}
}

// ParseOffsets decodes an oFFs chunk. ok is false unless the chunk is a
// well-formed oFFs chunk in pixel units.
func ParseOffsets(c Chunk) (x, y int32, ok bool) {
	if c.Type != "oFFs" || len(c.Data) != 9 || c.Data[8] != 0 {
		return 0, 0, false
	}
	x = int32(binary.BigEndian.Uint32(c.Data[0:4]))
	y = int32(binary.BigEndian.Uint32(c.Data[4:8]))
	return x, y, true
}
