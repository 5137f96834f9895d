package rectify

import (
	"log/slog"

	"github.com/MeKo-Tech/docscan/internal/geometry"
)

// Mapper maps a destination pixel of a W x H output back to a point in the
// source raster.
type Mapper interface {
	Map(x, y int) geometry.Point
}

type bilinearMapper struct {
	corners geometry.CornerSet
	w, h    float64
}

func (m bilinearMapper) Map(x, y int) geometry.Point {
	return geometry.BilinearMap(m.corners, float64(x)/m.w, float64(y)/m.h)
}

type homographyMapper struct {
	h [9]float64
}

func (m homographyMapper) Map(x, y int) geometry.Point {
	sx, sy := applyHomography(m.h, float64(x), float64(y))
	return geometry.Pt(sx, sy)
}

// NewMapper builds the mapper for method over a w x h output, which must be
// non-empty. It returns the method actually used: a homography that cannot
// be solved (collinear corners) falls back to bilinear.
func NewMapper(method Method, c geometry.CornerSet, w, h int) (Mapper, Method) {
	bilinear := bilinearMapper{corners: c, w: float64(w), h: float64(h)}
	if method != MethodHomography {
		return bilinear, MethodBilinear
	}

	W, H := float64(w), float64(h)
	rect := [4]geometry.Point{geometry.Pt(0, 0), geometry.Pt(W, 0), geometry.Pt(W, H), geometry.Pt(0, H)}
	hm, ok := computeHomography(rect, c)
	if !ok {
		slog.Warn("homography is singular, falling back to bilinear mapping", "corners", c.String())
		return bilinear, MethodBilinear
	}
	return homographyMapper{h: hm}, MethodHomography
}
