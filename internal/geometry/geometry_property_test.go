package geometry

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genPoint generates a point in a generous range around a typical frame.
func genPoint() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(-200, 1200),
		gen.Float64Range(-200, 1200),
	).Map(func(vals []interface{}) Point {
		return Point{X: vals[0].(float64), Y: vals[1].(float64)}
	})
}

// genCorners generates an arbitrary, possibly self-intersecting, corner set.
func genCorners() gopter.Gen {
	return gopter.CombineGens(genPoint(), genPoint(), genPoint(), genPoint()).
		Map(func(vals []interface{}) CornerSet {
			return CornerSet{vals[0].(Point), vals[1].(Point), vals[2].(Point), vals[3].(Point)}
		})
}

func TestOutputSize_MaxOfOpposingSides(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("output size is rounded max of opposing sides", prop.ForAll(
		func(c CornerSet) bool {
			w, h := c.OutputSize()
			s := c.Sides()
			return w == int(math.Round(math.Max(s.Top, s.Bottom))) &&
				h == int(math.Round(math.Max(s.Left, s.Right))) &&
				w >= 0 && h >= 0
		},
		genCorners(),
	))

	properties.TestingRun(t)
}

func TestClamp_Idempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("clamping twice equals clamping once", prop.ForAll(
		func(p Point, w, h float64) bool {
			once := Clamp(p, w, h)
			twice := Clamp(once, w, h)
			return once == twice &&
				once.X >= 0 && once.X <= w &&
				once.Y >= 0 && once.Y <= h
		},
		genPoint(),
		gen.Float64Range(1, 1000),
		gen.Float64Range(1, 1000),
	))

	properties.TestingRun(t)
}

func TestBilinearMap_StaysInHull(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("mapped point lies inside the corner bounding box", prop.ForAll(
		func(c CornerSet, u, v float64) bool {
			p := BilinearMap(c, u, v)
			minX, maxX := c[0].X, c[0].X
			minY, maxY := c[0].Y, c[0].Y
			for _, q := range c[1:] {
				minX, maxX = math.Min(minX, q.X), math.Max(maxX, q.X)
				minY, maxY = math.Min(minY, q.Y), math.Max(maxY, q.Y)
			}
			const eps = 1e-9
			return p.X >= minX-eps && p.X <= maxX+eps && p.Y >= minY-eps && p.Y <= maxY+eps
		},
		genCorners(),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
