package images

import (
	"image/color"
	"testing"
)

const square = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 100" width="200" height="100">
  <rect x="0" y="0" width="100" height="100" fill="#000000"/>
</svg>`

func TestIsSVG(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"with prolog", square, true},
		{"bare", `<svg xmlns="http://www.w3.org/2000/svg"/>`, true},
		{"bom", "\xef\xbb\xbf<svg/>", true},
		{"html", `<html><body>svg</body></html>`, false},
		{"text", "svg is here", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSVG([]byte(tt.data)); got != tt.want {
				t.Errorf("IsSVG = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRasterizeSVG(t *testing.T) {
	img, err := RasterizeSVG([]byte(square), 0)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("unexpected size %v", b)
	}
	if r, g, b, _ := img.At(150, 50).RGBA(); r != 0xffff || g != 0xffff || b != 0xffff {
		t.Error("background must be white")
	}
	if c := color.GrayModel.Convert(img.At(50, 50)).(color.Gray); c.Y > 10 {
		t.Errorf("rectangle not drawn, got %v", c)
	}

	img, err = RasterizeSVG([]byte(square), 50)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 25 {
		t.Errorf("not fitted: %v", b)
	}
}
