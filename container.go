package ora

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
)

// Function variables for testing injection.
var (
	zipCreateHeader = func(zw *zip.Writer, fh *zip.FileHeader) (io.Writer, error) { return zw.CreateHeader(fh) }
	zipCreateRaw    = func(zw *zip.Writer, fh *zip.FileHeader) (io.Writer, error) { return zw.CreateRaw(fh) }
	zipClose        = func(zw *zip.Writer) error { return zw.Close() }
	zipOpen         = func(zf *zip.File) (io.ReadCloser, error) { return zf.Open() }
	renameFile      = os.Rename
	removeFile      = os.Remove
)

// entryMode is the permission set on every written entry. Entries written
// without explicit external attributes come out with mode 0 and cannot be
// read after extraction on POSIX systems.
const entryMode os.FileMode = 0o644

// reader is an archive opened for reading.
type reader struct {
	path   string
	f      *os.File
	zr     *zip.Reader
	files  map[string]*zip.File
	enc    encoding.Encoding
	limits Limits
}

func openContainer(path string, cfg readConfig) (*reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fsError("open", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fsError("stat", path, err)
	}
	zr, err := zip.NewReader(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrBadContainer, path, err)
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	r := &reader{
		path:   path,
		f:      f,
		zr:     zr,
		files:  make(map[string]*zip.File, len(zr.File)),
		enc:    cfg.nameEnc,
		limits: cfg.limits,
	}
	for _, zf := range zr.File {
		if _, dup := r.files[zf.Name]; !dup {
			r.files[zf.Name] = zf
		}
	}
	return r, nil
}

func (r *reader) close() error {
	return r.f.Close()
}

// lookup finds an entry by its UTF-8 name, falling back to the name encoded
// in the legacy filesystem encoding.
func (r *reader) lookup(name string) (*zip.File, error) {
	if zf, ok := r.files[name]; ok {
		return zf, nil
	}
	legacy, err := r.enc.NewEncoder().String(name)
	if err != nil || legacy == name {
		return nil, fmt.Errorf("%w: %q", ErrMissingEntry, name)
	}
	Logger().WithFields(logrus.Fields{
		"entry": name,
		"bytes": fmt.Sprintf("% x", legacy),
	}).Warn("ora: entry not found by UTF-8 name, retrying with filesystem encoding")
	if zf, ok := r.files[legacy]; ok {
		return zf, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrMissingEntry, name)
}

func (r *reader) open(name string, max uint64) (io.ReadCloser, error) {
	zf, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if zf.UncompressedSize64 > max {
		return nil, fmt.Errorf("%w: entry %q is %d bytes", ErrLimitExceeded, name, zf.UncompressedSize64)
	}
	rc, err := zipOpen(zf)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadContainer, name, err)
	}
	return rc, nil
}

// readString returns the content of an entry of at most max bytes.
func (r *reader) readString(name string, max uint64) ([]byte, error) {
	rc, err := r.open(name, max)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, int64(max)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadContainer, name, err)
	}
	if uint64(len(b)) > max {
		return nil, fmt.Errorf("%w: entry %q exceeds %d bytes", ErrLimitExceeded, name, max)
	}
	return b, nil
}

// readInto extracts an entry to a file at path.
func (r *reader) readInto(name, path string) error {
	max := r.limits.MaxEntrySize
	rc, err := r.open(name, max)
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fsError("create", path, err)
	}
	n, err := io.Copy(out, io.LimitReader(rc, int64(max)+1))
	if cerr := out.Close(); err == nil && cerr != nil {
		return fsError("close", path, cerr)
	}
	if err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			return fsError("write", path, err)
		}
		return fmt.Errorf("%w: %s: %w", ErrBadContainer, name, err)
	}
	if uint64(n) > max {
		return fmt.Errorf("%w: entry %q exceeds %d bytes", ErrLimitExceeded, name, max)
	}
	return nil
}

// writer is an archive being written to <target>.tmpsave.
type writer struct {
	target  string
	tmp     string
	f       *os.File
	zw      *zip.Writer
	modTime time.Time
	names   map[string]struct{}
	done    bool
}

// createContainer opens <target>.tmpsave and writes the mimetype entry.
func createContainer(target string, modTime time.Time) (*writer, error) {
	tmp := target + tmpSaveSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fsError("create", tmp, err)
	}
	w := &writer{
		target:  target,
		tmp:     tmp,
		f:       f,
		zw:      zip.NewWriter(f),
		modTime: modTime,
		names:   make(map[string]struct{}),
	}
	if err := w.writeMimetype(); err != nil {
		w.abort()
		return nil, err
	}
	return w, nil
}

// writeMimetype writes the mimetype entry with sizes in the local header
// and no extra field, so its content starts at byte 38 of the file.
func (w *writer) writeMimetype() error {
	fh := &zip.FileHeader{
		Name:               EntryMimetype,
		Method:             zip.Store,
		CreatorVersion:     20,
		ReaderVersion:      20,
		CRC32:              crc32.ChecksumIEEE([]byte(MimeType)),
		CompressedSize64:   uint64(len(MimeType)),
		UncompressedSize64: uint64(len(MimeType)),
	}
	fh.ModifiedDate, fh.ModifiedTime = msDosTime(w.modTime)
	fh.SetMode(entryMode)
	ew, err := zipCreateRaw(w.zw, fh)
	if err != nil {
		return fsError("write", w.tmp, err)
	}
	if _, err := io.WriteString(ew, MimeType); err != nil {
		return fsError("write", w.tmp, err)
	}
	w.names[EntryMimetype] = struct{}{}
	return nil
}

func (w *writer) create(name string) (io.Writer, error) {
	if _, dup := w.names[name]; dup {
		return nil, fmt.Errorf("%w: duplicate entry %q", ErrBadContainer, name)
	}
	fh := &zip.FileHeader{Name: name, Method: zip.Store, Modified: w.modTime}
	fh.SetMode(entryMode)
	ew, err := zipCreateHeader(w.zw, fh)
	if err != nil {
		return nil, fsError("write", w.tmp, err)
	}
	w.names[name] = struct{}{}
	return ew, nil
}

// writeString adds a stored entry holding data.
func (w *writer) writeString(name string, data []byte) error {
	ew, err := w.create(name)
	if err != nil {
		return err
	}
	if _, err := ew.Write(data); err != nil {
		return fsError("write", w.tmp, err)
	}
	return nil
}

// writeFile adds a stored entry copied from the file at path.
func (w *writer) writeFile(name, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fsError("open", path, err)
	}
	defer src.Close()
	ew, err := w.create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(ew, src); err != nil {
		return fsError("copy", path, err)
	}
	return nil
}

// close finalizes the archive and renames it over the target.
func (w *writer) close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := zipClose(w.zw); err != nil {
		w.f.Close()
		return fsError("finalize", w.tmp, err)
	}
	if err := w.f.Close(); err != nil {
		return fsError("close", w.tmp, err)
	}
	return replaceFile(w.tmp, w.target)
}

// abort releases the file without renaming. The .tmpsave file stays on
// disk.
func (w *writer) abort() {
	if w.done {
		return
	}
	w.done = true
	_ = zipClose(w.zw)
	_ = w.f.Close()
}

// replaceFile renames tmp over target. Where the platform refuses to rename
// over an existing file the target is removed first.
func replaceFile(tmp, target string) error {
	err := renameFile(tmp, target)
	if err == nil {
		return nil
	}
	if _, statErr := os.Lstat(target); statErr != nil {
		return fsError("rename", tmp, err)
	}
	if rmErr := removeFile(target); rmErr != nil {
		return fsError("remove", target, rmErr)
	}
	if err := renameFile(tmp, target); err != nil {
		return fsError("rename", tmp, err)
	}
	return nil
}

// msDosTime converts t to the MS-DOS date and time fields of a zip header.
func msDosTime(t time.Time) (date, clock uint16) {
	if t.IsZero() {
		return 0, 0
	}
	t = t.In(time.Local)
	if t.Year() < 1980 {
		t = time.Date(1980, 1, 1, 0, 0, 0, 0, time.Local)
	}
	date = uint16(t.Day() + int(t.Month())<<5 + (t.Year()-1980)<<9)
	clock = uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)
	return date, clock
}
