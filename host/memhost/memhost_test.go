package memhost

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/logicossoftware/go-ora/host"
	"github.com/logicossoftware/go-ora/internal/pngchunk"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 17), G: uint8(y * 29), B: uint8(x + y), A: uint8(1 + 40*x + y)})
		}
	}
	return img
}

func mustImage(t *testing.T, w, h int) *Image {
	t.Helper()
	img, err := NewImage(w, h, host.ImageTypeRGB)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func names(items []host.Item) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Name())
	}
	return out
}

func TestNewImageRejectsEmptySize(t *testing.T) {
	if _, err := NewImage(0, 5, host.ImageTypeRGB); !errors.Is(err, ErrBadSize) {
		t.Fatalf("expected ErrBadSize, got %v", err)
	}
}

func TestInsertPositions(t *testing.T) {
	img := mustImage(t, 4, 4)
	a := NewLayer("a", solid(1, 1, color.NRGBA{A: 255}))
	b := NewLayer("b", solid(1, 1, color.NRGBA{A: 255}))
	c := NewLayer("c", solid(1, 1, color.NRGBA{A: 255}))
	for _, step := range []struct {
		item host.Item
		pos  int
	}{{a, 0}, {b, 0}, {c, 99}} {
		if err := img.Insert(step.item, nil, step.pos); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]string{"b", "a", "c"}, names(img.Layers())); diff != "" {
		t.Fatalf("top-level order (-want +got):\n%s", diff)
	}

	g, _ := img.NewGroup()
	if err := img.Insert(g, nil, 1); err != nil {
		t.Fatal(err)
	}
	inner := NewLayer("inner", solid(1, 1, color.NRGBA{A: 255}))
	if err := img.Insert(inner, g, 0); err != nil {
		t.Fatal(err)
	}
	if len(g.Children()) != 1 || g.Children()[0] != host.Item(inner) {
		t.Fatal("child not inserted into group")
	}
	if err := img.Insert(g, g, 0); err == nil {
		t.Fatal("expected self-insert error")
	}
}

func TestDuplicateIsDeep(t *testing.T) {
	img := mustImage(t, 2, 2)
	l := NewLayer("l", solid(2, 2, color.NRGBA{R: 9, A: 255}))
	_ = img.Insert(l, nil, 0)
	dup, err := img.Duplicate()
	if err != nil {
		t.Fatal(err)
	}
	dl := dup.Layers()[0].(*Layer)
	dl.SetName("changed")
	dl.pix.(*image.NRGBA).Pix[0] = 200
	if l.Name() != "l" || l.pix.(*image.NRGBA).Pix[0] != 9 {
		t.Fatal("duplicate shares state with original")
	}
}

func TestMergeVisibleNormalAndMultiply(t *testing.T) {
	img := mustImage(t, 2, 1)
	bottom := NewLayer("bottom", solid(2, 1, color.NRGBA{R: 200, G: 100, B: 50, A: 255}))
	top := NewLayer("top", solid(1, 1, color.NRGBA{R: 128, G: 255, B: 0, A: 255}))
	top.SetMode(host.ModeMultiply)
	top.SetOffsets(1, 0)
	hidden := NewLayer("hidden", solid(2, 1, color.NRGBA{G: 255, A: 255}))
	hidden.SetVisible(false)
	_ = img.Insert(hidden, nil, 0)
	_ = img.Insert(top, nil, 1)
	_ = img.Insert(bottom, nil, 2)

	merged, err := img.MergeVisible(host.ClipToImage)
	if err != nil {
		t.Fatal(err)
	}
	if w, h := merged.Size(); w != 2 || h != 1 {
		t.Fatalf("merged size %dx%d", w, h)
	}
	pix := merged.(*Layer).pix.(*image.NRGBA)
	if got := pix.NRGBAAt(0, 0); got != (color.NRGBA{R: 200, G: 100, B: 50, A: 255}) {
		t.Fatalf("untouched pixel = %v", got)
	}
	if got := pix.NRGBAAt(1, 0); got != (color.NRGBA{R: 100, G: 100, B: 0, A: 255}) {
		t.Fatalf("multiplied pixel = %v", got)
	}
	if len(img.Layers()) != 1 || merged.Name() != "bottom" {
		t.Fatalf("layers after merge: %v", names(img.Layers()))
	}
}

func TestMergeVisibleKeepsSingleLayerExact(t *testing.T) {
	img := mustImage(t, 5, 4)
	src := gradient(5, 4)
	_ = img.Insert(NewLayer("only", src), nil, 0)
	merged, err := img.MergeVisible(host.ClipToImage)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(src.Pix, merged.(*Layer).pix.(*image.NRGBA).Pix); diff != "" {
		t.Fatalf("pixels changed (-want +got):\n%s", diff)
	}
}

func TestMergeVisibleGroupOpacityAndExpand(t *testing.T) {
	img := mustImage(t, 4, 4)
	g := NewGroup("g")
	g.SetOpacity(50)
	_ = img.Insert(g, nil, 0)
	l := NewLayer("l", solid(2, 2, color.NRGBA{B: 255, A: 255}))
	l.SetOffsets(3, 3)
	_ = img.Insert(l, g, 0)

	merged, err := img.MergeVisible(host.ExpandAsNecessary)
	if err != nil {
		t.Fatal(err)
	}
	if x, y := merged.Offsets(); x != 3 || y != 3 {
		t.Fatalf("expanded offsets = %d,%d", x, y)
	}
	if w, h := merged.Size(); w != 2 || h != 2 {
		t.Fatalf("expanded size = %dx%d", w, h)
	}
	if got := merged.(*Layer).pix.(*image.NRGBA).NRGBAAt(0, 0); got != (color.NRGBA{B: 255, A: 128}) {
		t.Fatalf("group opacity not applied: %v", got)
	}
}

func TestMergeVisibleEmptyImage(t *testing.T) {
	img := mustImage(t, 3, 2)
	merged, err := img.MergeVisible(host.ClipToImage)
	if err != nil {
		t.Fatal(err)
	}
	if w, h := merged.Size(); w != 3 || h != 2 {
		t.Fatalf("merged size %dx%d", w, h)
	}
}

func TestBlendFormulas(t *testing.T) {
	cases := []struct {
		mode host.Mode
		b, s rgb
		want rgb
	}{
		{host.ModeScreen, rgb{0.5, 0, 1}, rgb{0.5, 1, 0}, rgb{0.75, 1, 1}},
		{host.ModeDifference, rgb{0.25, 1, 0}, rgb{0.75, 0, 0}, rgb{0.5, 1, 0}},
		{host.ModeDarkenOnly, rgb{0.25, 1, 0}, rgb{0.75, 0, 0}, rgb{0.25, 0, 0}},
		{host.ModeLightenOnly, rgb{0.25, 1, 0}, rgb{0.75, 0, 0}, rgb{0.75, 1, 0}},
		{host.ModeColor, rgb{0.5, 0.5, 0.5}, rgb{0.5, 0.5, 0.5}, rgb{0.5, 0.5, 0.5}},
	}
	for _, tc := range cases {
		got := blendFuncs[tc.mode](tc.b, tc.s)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%v (-want +got):\n%s", tc.mode, diff)
		}
	}
}

func TestScale(t *testing.T) {
	img := mustImage(t, 100, 50)
	l := NewLayer("l", solid(20, 10, color.NRGBA{R: 255, A: 255}))
	l.SetOffsets(10, 20)
	_ = img.Insert(l, nil, 0)
	if err := img.Scale(50, 25); err != nil {
		t.Fatal(err)
	}
	if img.Width() != 50 || img.Height() != 25 {
		t.Fatalf("image size %dx%d", img.Width(), img.Height())
	}
	if w, h := l.Size(); w != 10 || h != 5 {
		t.Fatalf("layer size %dx%d", w, h)
	}
	if x, y := l.Offsets(); x != 5 || y != 10 {
		t.Fatalf("layer offsets %d,%d", x, y)
	}
	if err := img.Scale(0, 1); !errors.Is(err, ErrBadSize) {
		t.Fatalf("expected ErrBadSize, got %v", err)
	}
}

func TestConvertPrecision(t *testing.T) {
	img := mustImage(t, 2, 2)
	l := NewLayer("l", gradient(2, 2))
	_ = img.Insert(l, nil, 0)
	want := append([]byte(nil), l.pix.(*image.NRGBA).Pix...)
	if err := img.ConvertPrecision(host.PrecisionU16Gamma); err != nil {
		t.Fatal(err)
	}
	if _, ok := l.pix.(*image.NRGBA64); !ok || img.Precision() != host.PrecisionU16Gamma {
		t.Fatal("layer not converted to 16-bit")
	}
	if err := img.ConvertPrecision(host.PrecisionU8Gamma); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, l.pix.(*image.NRGBA).Pix); diff != "" {
		t.Fatalf("8->16->8 changed pixels (-want +got):\n%s", diff)
	}
	if err := img.ConvertPrecision(host.Precision(42)); err == nil {
		t.Fatal("expected error for unknown precision")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	h := New()
	img := mustImage(t, 10, 10)
	src := gradient(6, 3)
	l := NewLayer("layer", src)
	l.SetOffsets(4, -2)
	path := filepath.Join(t.TempDir(), "layer.png")

	if err := h.ExportLayer(img, l, path, host.PNGOptions{CompressionLevel: 2}); err != nil {
		t.Fatal(err)
	}
	got, err := h.ImportLayer(img, path)
	if err != nil {
		t.Fatal(err)
	}
	if x, y := got.Offsets(); x != 4 || y != -2 {
		t.Fatalf("oFFs not honoured: %d,%d", x, y)
	}
	if got.Name() != "layer" {
		t.Fatalf("name = %q", got.Name())
	}
	if diff := cmp.Diff(src.Pix, got.(*Layer).pix.(*image.NRGBA).Pix); diff != "" {
		t.Fatalf("pixels differ (-want +got):\n%s", diff)
	}
}

func TestExportStripsOffsets(t *testing.T) {
	h := New()
	img := mustImage(t, 10, 10)
	l := NewLayer("layer", gradient(3, 3))
	l.SetOffsets(7, 3)
	path := filepath.Join(t.TempDir(), "tmp.png")
	if err := h.ExportLayer(img, l, path, host.PNGOptions{CompressionLevel: 2, StripChunks: []string{"oFFs"}}); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	chunks, err := pngchunk.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := pngchunk.Find(chunks, "oFFs"); ok {
		t.Fatal("oFFs chunk present")
	}
	got, err := h.ImportLayer(img, path)
	if err != nil {
		t.Fatal(err)
	}
	if x, y := got.Offsets(); x != 0 || y != 0 {
		t.Fatalf("offsets = %d,%d", x, y)
	}
}

func TestExportRejectsUnsupportedOptions(t *testing.T) {
	h := New()
	img := mustImage(t, 1, 1)
	l := NewLayer("l", solid(1, 1, color.NRGBA{A: 255}))
	path := filepath.Join(t.TempDir(), "x.png")
	if err := h.ExportLayer(img, l, path, host.PNGOptions{Interlace: true}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if err := h.ExportLayer(img, l, path, host.PNGOptions{CompressionLevel: 12}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestLoadImageAndRelease(t *testing.T) {
	h := New()
	img := mustImage(t, 4, 2)
	l := NewLayer("thumb", gradient(4, 2))
	path := filepath.Join(t.TempDir(), "thumb.png")
	if err := h.ExportLayer(img, l, path, host.PNGOptions{}); err != nil {
		t.Fatal(err)
	}
	loaded, err := h.LoadImage(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Width() != 4 || loaded.Height() != 2 || len(loaded.Layers()) != 1 {
		t.Fatalf("loaded %dx%d with %d layers", loaded.Width(), loaded.Height(), len(loaded.Layers()))
	}
	if err := h.Release(loaded); err != nil {
		t.Fatal(err)
	}
	if _, err := loaded.Duplicate(); !errors.Is(err, ErrReleased) {
		t.Fatalf("expected ErrReleased, got %v", err)
	}
	if _, err := h.LoadImage(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
