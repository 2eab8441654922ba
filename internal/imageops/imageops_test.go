package imageops

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 180, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestSquareCropsToSize(t *testing.T) {
	out, err := Square(solidPNG(t, 64, 32), 48)
	if err != nil {
		t.Fatalf("Square error: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "png" || cfg.Width != 48 || cfg.Height != 48 {
		t.Fatalf("output = %s %dx%d, want png 48x48", format, cfg.Width, cfg.Height)
	}
}

func TestSquareKeepsExactSize(t *testing.T) {
	in := solidPNG(t, 16, 16)
	out, err := Square(in, 16)
	if err != nil {
		t.Fatalf("Square error: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Fatal("exact-size input was re-encoded")
	}
}

func TestFitReference(t *testing.T) {
	small := solidPNG(t, 20, 10)
	out, mime, err := FitReference(small, "", 40)
	if err != nil {
		t.Fatalf("FitReference error: %v", err)
	}
	if !bytes.Equal(out, small) || mime != "image/png" {
		t.Fatalf("small image changed: mime=%q", mime)
	}

	out, mime, err = FitReference(solidPNG(t, 80, 40), "image/png", 40)
	if err != nil {
		t.Fatalf("FitReference error: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if mime != "image/jpeg" || cfg.Width != 40 || cfg.Height != 20 {
		t.Fatalf("downscaled = %s %dx%d", mime, cfg.Width, cfg.Height)
	}
}

func TestSquareRejectsGarbage(t *testing.T) {
	if _, err := Square([]byte("not an image"), 10); err == nil {
		t.Fatal("expected decode error")
	}
}
