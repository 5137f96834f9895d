package estimate

import (
	"image"

	"github.com/MeKo-Tech/docscan/internal/geometry"
)

// FixedMargin places the corners a constant distance inside the frame.
type FixedMargin struct {
	Margin float64
}

// Name implements Estimator.
func (FixedMargin) Name() string { return StrategyFixed }

// Estimate implements Estimator. Only the raster dimensions are used.
func (f FixedMargin) Estimate(img image.Image) geometry.CornerSet {
	if img == nil {
		return geometry.CornerSet{}
	}
	b := img.Bounds()
	return insetBox(0, 0, float64(b.Dx()), float64(b.Dy()), f.Margin)
}
