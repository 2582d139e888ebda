package ora

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"
)

// mimetypeOffset is where the mimetype content starts when the entry is
// first, stored and has no extra field: a 30-byte local header followed by
// the 8-byte name.
const mimetypeOffset = 30 + len(EntryMimetype)

// ReadManifest returns the parsed stack.xml of the archive at file.
func ReadManifest(file string, opts ...ReadOption) (*Manifest, error) {
	cfg := newReadConfig(opts)
	r, err := openContainer(file, cfg)
	if err != nil {
		return nil, err
	}
	defer r.close()
	return r.manifest()
}

// Validate checks the archive at file against the OpenRaster packaging
// rules. Every problem found is reported; the returned error wraps
// ErrValidation once per problem. Archives that cannot be opened at all
// yield the open error instead.
func Validate(file string, opts ...ReadOption) error {
	cfg := newReadConfig(opts)
	r, err := openContainer(file, cfg)
	if err != nil {
		return err
	}
	defer r.close()

	var problems []error
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...))
	}

	r.checkMimetype(report)

	seen := make(map[string]struct{}, len(r.zr.File))
	for _, zf := range r.zr.File {
		if _, dup := seen[zf.Name]; dup {
			report("duplicate entry %q", zf.Name)
		}
		seen[zf.Name] = struct{}{}
	}

	m, err := r.manifest()
	if err != nil {
		report("%s: %v", EntryStack, err)
	} else {
		srcs := make(map[string]struct{})
		for _, el := range m.Layers() {
			if el.rawOp != "" {
				Logger().WithFields(logrus.Fields{"layer": el.Name, "composite-op": el.rawOp}).
					Warn("ora: unknown composite-op, loads as svg:src-over")
			}
			if !strings.EqualFold(path.Ext(el.Src), ".png") {
				continue
			}
			if err := validateContainerPath(el.Src); err != nil {
				report("layer src %q: %v", el.Src, err)
				continue
			}
			if _, dup := srcs[el.Src]; dup {
				report("layer src %q used more than once", el.Src)
			}
			srcs[el.Src] = struct{}{}
			if _, err := r.lookup(el.Src); err != nil {
				report("layer src: %v", err)
			}
		}
	}

	if _, err := r.lookup(EntryMerged); err != nil {
		report("%v", err)
	}
	r.checkThumbnail(report)

	return errors.Join(problems...)
}

func (r *reader) checkMimetype(report func(string, ...any)) {
	if len(r.zr.File) == 0 {
		report("archive is empty")
		return
	}
	zf := r.zr.File[0]
	if zf.Name != EntryMimetype {
		report("first entry is %q, want %q", zf.Name, EntryMimetype)
		return
	}
	if zf.Method != zip.Store {
		report("mimetype is compressed (method %d)", zf.Method)
	}
	if zf.Mode().Perm()&0o400 == 0 {
		report("mimetype mode %v is not readable by owner", zf.Mode().Perm())
	}
	if off, err := zf.DataOffset(); err == nil && off != int64(mimetypeOffset) {
		report("mimetype content at offset %d, want %d", off, mimetypeOffset)
	}
	data, err := r.readString(EntryMimetype, uint64(len(MimeType)))
	if err != nil {
		report("mimetype: %v", err)
		return
	}
	if string(data) != MimeType {
		report("mimetype is %q, want %q", data, MimeType)
	}
}

func (r *reader) checkThumbnail(report func(string, ...any)) {
	data, err := r.readString(EntryThumbnail, r.limits.MaxEntrySize)
	if err != nil {
		report("%v", err)
		return
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		report("%s: %v", EntryThumbnail, err)
		return
	}
	if cfg.Width > ThumbnailMax || cfg.Height > ThumbnailMax {
		report("thumbnail is %dx%d, larger than %d", cfg.Width, cfg.Height, ThumbnailMax)
	}
}

// Extract writes every entry of the archive at file below dir and returns
// the names written, in archive order. Entry names stored in the legacy
// filesystem encoding are converted to UTF-8. Entries whose names are not
// normalized relative paths are refused with ErrValidation before anything
// is written.
func Extract(file, dir string, opts ...ReadOption) ([]string, error) {
	cfg := newReadConfig(opts)
	r, err := openContainer(file, cfg)
	if err != nil {
		return nil, err
	}
	defer r.close()

	type job struct{ entry, name string }
	var jobs []job
	for _, zf := range r.zr.File {
		if strings.HasSuffix(zf.Name, "/") {
			continue
		}
		name := zf.Name
		if !utf8.ValidString(name) {
			if dec, err := cfg.nameEnc.NewDecoder().String(name); err == nil {
				name = dec
			}
		}
		if err := validateContainerPath(name); err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", ErrValidation, name, err)
		}
		jobs = append(jobs, job{entry: zf.Name, name: name})
	}

	var out []string
	for _, j := range jobs {
		dest := filepath.Join(dir, filepath.FromSlash(j.name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return out, fsError("mkdir", filepath.Dir(dest), err)
		}
		if err := r.readInto(j.entry, dest); err != nil {
			return out, err
		}
		out = append(out, j.name)
	}
	return out, nil
}

func validateContainerPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("path must not be absolute")
	}
	if strings.Contains(p, "\\") {
		return fmt.Errorf("path must use forward slashes")
	}
	clean := path.Clean(p)
	if clean != p {
		return fmt.Errorf("path must be normalized: %q", clean)
	}
	if clean == "." {
		return fmt.Errorf("path must not be current directory")
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("path must not escape")
	}
	return nil
}
