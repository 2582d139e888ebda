package pngchunk

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 60), B: 7, A: uint8(100 + x)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeEncodeIdentity(t *testing.T) {
	in := samplePNG(t)
	chunks, err := Decode(bytes.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if chunks[0].Type != "IHDR" || chunks[len(chunks)-1].Type != "IEND" {
		t.Fatalf("unexpected chunk order: %v", types(chunks))
	}
	var out bytes.Buffer
	if err := Encode(&out, chunks); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, out.Bytes()) {
		t.Fatal("re-encoded chunk stream differs")
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("GIF89a.."))); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}

	in := samplePNG(t)
	corrupt := append([]byte(nil), in...)
	corrupt[len(Signature)+10] ^= 0xff // inside IHDR data
	if _, err := Decode(bytes.NewReader(corrupt)); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected crc failure, got %v", err)
	}

	if _, err := Decode(bytes.NewReader(in[:len(in)-6])); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected truncation failure, got %v", err)
	}
}

func TestOffsetsStripAndParse(t *testing.T) {
	chunks, err := Decode(bytes.NewReader(samplePNG(t)))
	if err != nil {
		t.Fatal(err)
	}
	chunks = InsertBeforeData(chunks, Offsets(-7, 3))
	c, ok := Find(chunks, "oFFs")
	if !ok {
		t.Fatal("oFFs not inserted")
	}
	x, y, ok := ParseOffsets(c)
	if !ok || x != -7 || y != 3 {
		t.Fatalf("ParseOffsets = %d,%d,%v", x, y, ok)
	}

	stripped := Strip(chunks, "oFFs", "IDAT")
	if _, ok := Find(stripped, "oFFs"); ok {
		t.Fatal("oFFs survived Strip")
	}
	if _, ok := Find(stripped, "IDAT"); !ok {
		t.Fatal("critical chunk removed by Strip")
	}
	if len(stripped) != len(chunks)-1 {
		t.Fatalf("Strip removed %d chunks", len(chunks)-len(stripped))
	}
}

func TestRecompressKeepsPixels(t *testing.T) {
	in := samplePNG(t)
	want, err := png.Decode(bytes.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := Decode(bytes.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	for _, level := range []int{0, 2, 9} {
		out, err := Recompress(chunks, level)
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}
		var buf bytes.Buffer
		if err := Encode(&buf, out); err != nil {
			t.Fatal(err)
		}
		got, err := png.Decode(&buf)
		if err != nil {
			t.Fatalf("level %d: decode: %v", level, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("level %d: pixels differ (-want +got):\n%s", level, diff)
		}
	}
}

func TestRecompressWithoutData(t *testing.T) {
	_, err := Recompress([]Chunk{{Type: "IHDR"}, {Type: "IEND"}}, 2)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func types(chunks []Chunk) []string {
	var out []string
	for _, c := range chunks {
		out = append(out, c.Type)
	}
	return out
}
