package images

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// size used when SVG viewBox has none
const defaultSVGSize = 1024

// maxRasterDim limits rasterized size so enormous viewBox values do not
// exhaust memory.
var maxRasterDim = 8192

// IsSVG sniffs document head for svg root element. Detection by content is
// needed since SVG is text and has no magic number.
func IsSVG(data []byte) bool {
	head := data[:min(len(data), 4096)]
	head = bytes.TrimLeft(head, "\xef\xbb\xbf \t\r\n")
	if !bytes.HasPrefix(head, []byte("<")) {
		return false
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// RasterizeSVG renders SVG on white background. Intrinsic viewBox size is
// used and then fitted into limit (when positive) keeping aspect ratio.
func RasterizeSVG(data []byte, limit int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	w := int(math.Ceil(icon.ViewBox.W))
	h := int(math.Ceil(icon.ViewBox.H))
	if w <= 0 {
		w = defaultSVGSize
	}
	if h <= 0 {
		h = defaultSVGSize
	}

	bound := maxRasterDim
	if limit > 0 {
		bound = min(bound, limit)
	}
	if w > bound || h > bound {
		s := min(float64(bound)/float64(w), float64(bound)/float64(h))
		w = max(int(math.Round(float64(w)*s)), 1)
		h = max(int(math.Round(float64(h)*s)), 1)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)
	return dst, nil
}
