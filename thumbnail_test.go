package ora

import (
	"errors"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/logicossoftware/go-ora/host"
	"github.com/logicossoftware/go-ora/host/memhost"
)

func TestThumbnailSize(t *testing.T) {
	cases := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{100, 50, 256, 100, 50},
		{256, 256, 256, 256, 256},
		{512, 256, 256, 256, 128},
		{256, 1024, 256, 64, 256},
		{1000, 3, 256, 256, 1},
		{3, 5000, 256, 1, 256},
		{600, 300, 64, 64, 32},
		{257, 100, 256, 256, 99},
	}
	for _, tc := range cases {
		w, h := thumbnailSize(tc.w, tc.h, tc.max)
		if w != tc.wantW || h != tc.wantH {
			t.Errorf("thumbnailSize(%d, %d, %d) = %d, %d; want %d, %d", tc.w, tc.h, tc.max, w, h, tc.wantW, tc.wantH)
		}
	}
}

func TestLoadThumbnail(t *testing.T) {
	img := mustImage(t, 1000, 400)
	mustInsert(t, img, memhost.NewLayer("a", solid(10, 10, color.NRGBA{R: 255, A: 255})), nil, 0)
	mustInsert(t, img, memhost.NewLayer("b", solid(10, 10, color.NRGBA{G: 255, A: 255})), nil, 1)
	out := filepath.Join(t.TempDir(), "wide.ora")
	mustSave(t, img, out)

	h := memhost.New()
	th, err := LoadThumbnail(h, out, 0)
	if err != nil {
		t.Fatal(err)
	}
	if th.Width != 1000 || th.Height != 400 || th.Type != host.ImageTypeRGB || th.Layers != 1 {
		t.Fatalf("thumbnail info %+v", th)
	}
	if th.Image.Width() != 256 || th.Image.Height() != 102 {
		t.Fatalf("thumbnail %dx%d", th.Image.Width(), th.Image.Height())
	}
	if n := len(th.Image.Layers()); n != 1 {
		t.Fatalf("thumbnail has %d layers", n)
	}

	small, err := LoadThumbnail(h, out, 64)
	if err != nil {
		t.Fatal(err)
	}
	if small.Image.Width() != 64 || small.Image.Height() != 25 {
		t.Fatalf("scaled thumbnail %dx%d", small.Image.Width(), small.Image.Height())
	}
}

func TestSave_ThumbnailMaxOption(t *testing.T) {
	img := mustImage(t, 100, 100)
	out := filepath.Join(t.TempDir(), "sq.ora")
	mustSave(t, img, out, WithThumbnailMax(32))
	th, err := LoadThumbnail(memhost.New(), out, 0)
	if err != nil {
		t.Fatal(err)
	}
	if th.Image.Width() != 32 || th.Image.Height() != 32 {
		t.Fatalf("thumbnail %dx%d", th.Image.Width(), th.Image.Height())
	}

	mustSave(t, img, out, WithThumbnailMax(1000))
	th, err = LoadThumbnail(memhost.New(), out, 0)
	if err != nil {
		t.Fatal(err)
	}
	if th.Image.Width() != 100 {
		t.Fatalf("thumbnail width %d", th.Image.Width())
	}
}

func TestLoadThumbnail_Errors(t *testing.T) {
	dir := t.TempDir()
	noThumb := filepath.Join(dir, "nothumb.ora")
	writeArchive(t, noThumb,
		archiveEntry{EntryMimetype, []byte(MimeType)},
		archiveEntry{EntryStack, []byte(`<image w="2" h="2"><stack/></image>`)},
	)
	if _, err := LoadThumbnail(memhost.New(), noThumb, 0); !errors.Is(err, ErrMissingEntry) {
		t.Fatalf("got %v", err)
	}

	noSize := filepath.Join(dir, "nosize.ora")
	writeArchive(t, noSize,
		archiveEntry{EntryMimetype, []byte(MimeType)},
		archiveEntry{EntryStack, []byte(`<image w="2"><stack/></image>`)},
	)
	if _, err := LoadThumbnail(memhost.New(), noSize, 0); !errors.Is(err, ErrBadManifest) {
		t.Fatalf("got %v", err)
	}

	badPNG := filepath.Join(dir, "badpng.ora")
	writeArchive(t, badPNG,
		archiveEntry{EntryMimetype, []byte(MimeType)},
		archiveEntry{EntryStack, []byte(`<image w="2" h="2"><stack/></image>`)},
		archiveEntry{EntryThumbnail, []byte("not a png")},
	)
	if _, err := LoadThumbnail(memhost.New(), badPNG, 0); !errors.Is(err, ErrRaster) {
		t.Fatalf("got %v", err)
	}
}
