package images

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func fill(img *image.NRGBA, c color.NRGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func TestFit(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 400, 200))

	out, changed := Fit(img, 100)
	if !changed {
		t.Fatal("expected downscale")
	}
	if b := out.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("unexpected size %v", b)
	}

	if _, changed := Fit(img, 0); changed {
		t.Error("zero limit must keep image")
	}
	if _, changed := Fit(img, 400); changed {
		t.Error("image within limit must be kept")
	}
}

func TestIsGrayscale(t *testing.T) {
	if !IsGrayscale(image.NewGray(image.Rect(0, 0, 2, 2))) {
		t.Error("gray image")
	}
	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	fill(img, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	if !IsGrayscale(img) {
		t.Error("neutral pixels are grayscale")
	}
	img.SetNRGBA(1, 1, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	if IsGrayscale(img) {
		t.Error("colour pixel")
	}
}

func TestHasAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	fill(img, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	if HasAlpha(img) {
		t.Error("opaque image")
	}
	img.SetNRGBA(0, 0, color.NRGBA{A: 10})
	if !HasAlpha(img) {
		t.Error("transparent pixel")
	}
}

func TestFlatten(t *testing.T) {
	opaque := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	fill(opaque, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	if Flatten(opaque) != image.Image(opaque) {
		t.Error("opaque image must be returned as is")
	}

	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{})
	img.SetNRGBA(1, 0, color.NRGBA{R: 255, A: 255})
	flat := Flatten(img)
	if HasAlpha(flat) {
		t.Error("flattened image is not opaque")
	}
	if got := color.NRGBAModel.Convert(flat.At(0, 0)).(color.NRGBA); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("transparent pixel = %v, want white", got)
	}
	if got := color.NRGBAModel.Convert(flat.At(1, 0)).(color.NRGBA); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("opaque pixel = %v, want red", got)
	}
}

func TestDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 7, 5))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, format, err := Decode(path)
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" || img.Bounds().Dx() != 7 {
		t.Errorf("unexpected %s %v", format, img.Bounds())
	}
	cfg, _, err := DecodeConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 7 || cfg.Height != 5 {
		t.Errorf("unexpected config %+v", cfg)
	}

	if _, _, err := Decode(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error")
	}
}

func TestEncodeJPEGWithDPI(t *testing.T) {
	data, err := EncodeJPEGWithDPI(image.NewGray(image.Rect(0, 0, 4, 4)), 80, DpiPxPerInch, PlacementDPI, PlacementDPI)
	if err != nil {
		t.Fatal(err)
	}
	if data[2] != 0xFF || data[3] != 0xE0 {
		t.Error("JFIF marker expected")
	}
}
