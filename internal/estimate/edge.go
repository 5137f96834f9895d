package estimate

import (
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// EdgeBoundingBox insets the bounding box of pixels whose Sobel magnitude
// exceeds Threshold. The result is always axis-aligned; no contour is fitted.
type EdgeBoundingBox struct {
	Margin     float64
	Threshold  uint8
	BlurRadius float64
}

// Name implements Estimator.
func (EdgeBoundingBox) Name() string { return StrategyEdge }

// Estimate implements Estimator.
func (e EdgeBoundingBox) Estimate(img image.Image) geometry.CornerSet {
	if img == nil {
		return geometry.CornerSet{}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return geometry.CornerSet{}
	}

	var src image.Image = Luma(img)
	if e.BlurRadius > 0 {
		src = blur.Gaussian(src, e.BlurRadius)
	}
	edges := effect.Sobel(src)

	minX, minY, maxX, maxY, found := edgeExtent(edges, e.Threshold)
	if !found {
		slog.Debug("edge estimator found no edges, using full frame",
			"width", w, "height", h, "threshold", e.Threshold)
		return insetBox(0, 0, float64(w), float64(h), e.Margin)
	}

	// Pixel (x,y) covers [x,x+1); the box spans the covered area.
	return insetBox(float64(minX), float64(minY), float64(maxX+1), float64(maxY+1), e.Margin)
}

// Luma converts img to an 8-bit grayscale raster with BT.601 weights
// 0.299R + 0.587G + 0.114B. The result is anchored at the origin.
func Luma(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		for x := range b.Dx() {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			l := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			out.SetGray(x, y, color.Gray{Y: uint8(math.Min(255, math.Round(l)))})
		}
	}
	return out
}

// edgeExtent scans the red channel of the Sobel output, which carries the
// gradient magnitude for a grayscale input.
func edgeExtent(edges *image.RGBA, threshold uint8) (minX, minY, maxX, maxY int, found bool) {
	eb := edges.Bounds()
	minX, minY = eb.Dx(), eb.Dy()
	maxX, maxY = -1, -1
	for y := range eb.Dy() {
		row := edges.Pix[y*edges.Stride:]
		for x := range eb.Dx() {
			if row[x*4] <= threshold {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	return minX, minY, maxX, maxY, maxX >= 0
}
