package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
)

func createGradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			v := uint8(x * 255 / width)
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func createSolidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestCaptureRef(t *testing.T) {
	data := encodeJPEG(t, createGradientImage(120, 90))

	ref, err := CaptureRef(data)
	if err != nil {
		t.Fatalf("CaptureRef() error = %v", err)
	}
	if !strings.HasPrefix(ref, "dhash:") || len(ref) != len("dhash:")+16 {
		t.Errorf("unexpected reference format %q", ref)
	}

	again, err := CaptureRef(data)
	if err != nil {
		t.Fatal(err)
	}
	if again != ref {
		t.Errorf("reference not stable: %q vs %q", ref, again)
	}
}

func TestCaptureRef_SolidImageHasNoEdges(t *testing.T) {
	ref, err := CaptureRef(encodeJPEG(t, createSolidImage(64, 64, color.White)))
	if err != nil {
		t.Fatal(err)
	}
	if ref != "dhash:0000000000000000" {
		t.Errorf("solid image should hash to zero, got %q", ref)
	}
}

func TestCaptureRef_InvalidImage(t *testing.T) {
	if _, err := CaptureRef([]byte("not an image")); err == nil {
		t.Error("expected decode error")
	}
}

func TestDownscale(t *testing.T) {
	small := encodeJPEG(t, createGradientImage(200, 100))
	out, err := Downscale(small, 400)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, small) {
		t.Error("small image must be returned unchanged")
	}

	large := encodeJPEG(t, createGradientImage(800, 400))
	out, err = Downscale(large, 400)
	if err != nil {
		t.Fatal(err)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 200 {
		t.Errorf("expected 400x200, got %dx%d", b.Dx(), b.Dy())
	}
}
