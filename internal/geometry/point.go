// Package geometry holds the coordinate types shared by the estimator, the
// corner editor and the rectifier.
package geometry

import "math"

// Point is a position in source-raster pixel coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Size is a width/height pair, used for both raster and display dimensions.
type Size struct {
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Dist returns the Euclidean distance between a and b.
func Dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Clamp limits p component-wise to [0,w] x [0,h].
func Clamp(p Point, w, h float64) Point {
	return Point{X: clampFloat(p.X, 0, w), Y: clampFloat(p.Y, 0, h)}
}

// ScaleToRaster converts a point in display coordinates into raster
// coordinates by multiplying each axis by raster/display. An axis whose
// display dimension is not positive is left unscaled.
func ScaleToRaster(p Point, display, raster Size) Point {
	out := p
	if display.W > 0 {
		out.X = p.X * raster.W / display.W
	}
	if display.H > 0 {
		out.Y = p.Y * raster.H / display.H
	}
	return out
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
