package idml

import (
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Matrix is affine transformation as used by ItemTransform attribute:
// x' = a*x + c*y + tx, y' = b*x + d*y + ty.
type Matrix [6]float64

var Identity = Matrix{1, 0, 0, 1, 0, 0}

// ParseMatrix parses "a b c d tx ty".
func ParseMatrix(s string) (Matrix, bool) {
	fields := strings.Fields(s)
	if len(fields) != 6 {
		return Identity, false
	}
	var m Matrix
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Identity, false
		}
		m[i] = v
	}
	return m, true
}

func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// Then returns transformation applying m first and n after it.
func (m Matrix) Then(n Matrix) Matrix {
	return Matrix{
		n[0]*m[0] + n[2]*m[1],
		n[1]*m[0] + n[3]*m[1],
		n[0]*m[2] + n[2]*m[3],
		n[1]*m[2] + n[3]*m[3],
		n[0]*m[4] + n[2]*m[5] + n[4],
		n[1]*m[4] + n[3]*m[5] + n[5],
	}
}

// Rect is axis aligned box in spread coordinates.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

func emptyRect() Rect {
	return Rect{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
}

func (r *Rect) add(x, y float64) {
	r.MinX, r.MaxX = math.Min(r.MinX, x), math.Max(r.MaxX, x)
	r.MinY, r.MaxY = math.Min(r.MinY, y), math.Max(r.MaxY, y)
}

func (r Rect) Empty() bool {
	return r.MinX > r.MaxX || r.MinY > r.MaxY
}

func (r Rect) CenterX() float64 {
	return (r.MinX + r.MaxX) / 2
}

// parseBounds parses GeometricBounds: "top left bottom right".
func parseBounds(s string) (top, left, bottom, right float64, ok bool) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return 0, 0, 0, 0, false
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, 0, 0, 0, false
		}
		v[i] = n
	}
	return v[0], v[1], v[2], v[3], true
}

// boundsRect transforms GeometricBounds corners with m.
func boundsRect(bounds string, m Matrix) (Rect, bool) {
	top, left, bottom, right, ok := parseBounds(bounds)
	if !ok {
		return Rect{}, false
	}
	r := emptyRect()
	for _, p := range [][2]float64{{left, top}, {right, top}, {left, bottom}, {right, bottom}} {
		r.add(m.Apply(p[0], p[1]))
	}
	return r, true
}

// anchorsRect collects path anchors of page item own geometry (nested page
// items are not included) and transforms them with m.
func anchorsRect(el *etree.Element, m Matrix) (Rect, bool) {
	r := emptyRect()
	props := el.SelectElement("Properties")
	if props == nil {
		return r, false
	}
	for _, pt := range props.FindElements(".//PathPointType") {
		fields := strings.Fields(pt.SelectAttrValue("Anchor", ""))
		if len(fields) != 2 {
			continue
		}
		x, errx := strconv.ParseFloat(fields[0], 64)
		y, erry := strconv.ParseFloat(fields[1], 64)
		if errx != nil || erry != nil {
			continue
		}
		r.add(m.Apply(x, y))
	}
	return r, !r.Empty()
}
