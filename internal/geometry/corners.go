package geometry

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Corner indices. The order defines polygon winding for hit testing and for
// the rectification mapping and is never re-derived from positions.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// CornerSet is the four-corner document selection, ordered tl, tr, br, bl.
// Convexity is not enforced; a dragged bow-tie is a legal value.
type CornerSet [4]Point

// Sides holds the four edge lengths of a CornerSet.
type Sides struct {
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
}

// FullFrame returns corners on the raster's own boundary.
func FullFrame(w, h float64) CornerSet {
	return CornerSet{Pt(0, 0), Pt(w, 0), Pt(w, h), Pt(0, h)}
}

// Inset returns the rectangle (m,m) (w-m,m) (w-m,h-m) (m,h-m).
func Inset(w, h, m float64) CornerSet {
	return CornerSet{Pt(m, m), Pt(w-m, m), Pt(w-m, h-m), Pt(m, h-m)}
}

// Sides computes the edge lengths.
func (c CornerSet) Sides() Sides {
	return Sides{
		Top:    Dist(c[TopRight], c[TopLeft]),
		Bottom: Dist(c[BottomRight], c[BottomLeft]),
		Left:   Dist(c[BottomLeft], c[TopLeft]),
		Right:  Dist(c[BottomRight], c[TopRight]),
	}
}

// OutputSize is the rectified raster size: the longer of each pair of
// opposing sides, rounded.
func (c CornerSet) OutputSize() (int, int) {
	s := c.Sides()
	return int(math.Round(math.Max(s.Top, s.Bottom))), int(math.Round(math.Max(s.Left, s.Right)))
}

// Points returns the corners as a slice in index order.
func (c CornerSet) Points() []Point {
	return []Point{c[0], c[1], c[2], c[3]}
}

// Translate shifts every corner by (dx, dy).
func (c CornerSet) Translate(dx, dy float64) CornerSet {
	for i := range c {
		c[i].X += dx
		c[i].Y += dy
	}
	return c
}

// BilinearMap blends the four corners with weights from the normalized
// destination coordinate (u, v). It is exact only for parallelograms.
func BilinearMap(c CornerSet, u, v float64) Point {
	w0 := (1 - u) * (1 - v)
	w1 := u * (1 - v)
	w2 := u * v
	w3 := (1 - u) * v
	return Point{
		X: c[TopLeft].X*w0 + c[TopRight].X*w1 + c[BottomRight].X*w2 + c[BottomLeft].X*w3,
		Y: c[TopLeft].Y*w0 + c[TopRight].Y*w1 + c[BottomRight].Y*w2 + c[BottomLeft].Y*w3,
	}
}

// String renders the corners in the "x,y;x,y;x,y;x,y" form ParseCorners reads.
func (c CornerSet) String() string {
	parts := make([]string, len(c))
	for i, p := range c {
		parts[i] = strconv.FormatFloat(p.X, 'f', -1, 64) + "," + strconv.FormatFloat(p.Y, 'f', -1, 64)
	}
	return strings.Join(parts, ";")
}

var errCornerCount = errors.New("expected exactly four corners")

// ErrNonFinite is returned for NaN or infinite coordinates.
var ErrNonFinite = errors.New("coordinate is not finite")

// Finite reports whether every coordinate is a finite number.
func (c CornerSet) Finite() bool {
	for _, p := range c {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return false
		}
	}
	return true
}

// ParseCorners reads "x,y;x,y;x,y;x,y" in tl, tr, br, bl order. Whitespace
// around numbers is ignored. NaN and infinities are rejected.
func ParseCorners(s string) (CornerSet, error) {
	var c CornerSet
	fields := strings.Split(strings.TrimSpace(s), ";")
	if len(fields) != 4 {
		return c, fmt.Errorf("parse corners %q: %w", s, errCornerCount)
	}
	for i, f := range fields {
		xy := strings.Split(f, ",")
		if len(xy) != 2 {
			return c, fmt.Errorf("parse corner %d %q: want x,y", i, f)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xy[0]), 64)
		if err != nil {
			return c, fmt.Errorf("parse corner %d x: %w", i, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(xy[1]), 64)
		if err != nil {
			return c, fmt.Errorf("parse corner %d y: %w", i, err)
		}
		c[i] = Pt(x, y)
	}
	if !c.Finite() {
		return CornerSet{}, fmt.Errorf("parse corners %q: %w", s, ErrNonFinite)
	}
	return c, nil
}
