package idmltest

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"golang.org/x/image/bmp"
)

func picture(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	return img
}

// WritePNG writes colour picture of requested size and returns its path.
func WritePNG(t testing.TB, path string, w, h int) string {
	t.Helper()
	writeImage(t, path, func(f *os.File) error { return png.Encode(f, picture(w, h)) })
	return path
}

// WriteBMP writes picture in format which cannot be placed as is.
func WriteBMP(t testing.TB, path string, w, h int) string {
	t.Helper()
	writeImage(t, path, func(f *os.File) error { return bmp.Encode(f, picture(w, h)) })
	return path
}

func writeImage(t testing.TB, path string, enc func(*os.File) error) {
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("idmltest: %v", err)
	}
	defer f.Close()
	if err := enc(f); err != nil {
		t.Fatalf("idmltest: %v", err)
	}
}
