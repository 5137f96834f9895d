// Package estimate derives an initial corner guess for a captured frame.
//
// Two strategies are available. FixedMargin insets the frame by a constant
// margin. EdgeBoundingBox insets the bounding box of strong edges instead.
// Neither can fail: every call returns four corners, falling back to the
// full frame when the image carries no usable signal.
package estimate

import (
	"fmt"
	"image"
	"strings"

	"github.com/MeKo-Tech/docscan/internal/geometry"
)

// Strategy names accepted by New.
const (
	StrategyFixed = "fixed"
	StrategyEdge  = "edge"
)

const (
	// DefaultMargin is the inset used by the fixed strategy.
	DefaultMargin = 40.0
	// DefaultEdgeMargin is the inset used by the edge strategy.
	DefaultEdgeMargin = 10.0
	// DefaultEdgeThreshold is the Sobel magnitude (0-255) a pixel must exceed.
	DefaultEdgeThreshold = 64
	// DefaultBlurRadius smooths sensor noise before the edge pass.
	DefaultBlurRadius = 1.0
)

// Estimator produces the initial CornerSet for a raster.
type Estimator interface {
	Name() string
	Estimate(img image.Image) geometry.CornerSet
}

// Config selects and tunes a strategy.
type Config struct {
	Strategy      string
	Margin        float64
	EdgeMargin    float64
	EdgeThreshold uint8
	BlurRadius    float64
}

// DefaultConfig returns the fixed-margin strategy with its default inset.
func DefaultConfig() Config {
	return Config{
		Strategy:      StrategyFixed,
		Margin:        DefaultMargin,
		EdgeMargin:    DefaultEdgeMargin,
		EdgeThreshold: DefaultEdgeThreshold,
		BlurRadius:    DefaultBlurRadius,
	}
}

// New builds the estimator named by cfg.Strategy.
func New(cfg Config) (Estimator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Strategy)) {
	case "", StrategyFixed:
		return FixedMargin{Margin: cfg.Margin}, nil
	case StrategyEdge:
		return EdgeBoundingBox{
			Margin:     cfg.EdgeMargin,
			Threshold:  cfg.EdgeThreshold,
			BlurRadius: cfg.BlurRadius,
		}, nil
	default:
		return nil, fmt.Errorf("unknown estimator strategy %q (must be one of: %s, %s)",
			cfg.Strategy, StrategyFixed, StrategyEdge)
	}
}

// insetBox insets the box [x0,x1]x[y0,y1] by m on each side. An axis too
// narrow for the inset keeps its original extent so corners never invert.
func insetBox(x0, y0, x1, y1, m float64) geometry.CornerSet {
	if m > 0 && x1-x0 > 2*m {
		x0, x1 = x0+m, x1-m
	}
	if m > 0 && y1-y0 > 2*m {
		y0, y1 = y0+m, y1-m
	}
	return geometry.CornerSet{
		geometry.Pt(x0, y0),
		geometry.Pt(x1, y0),
		geometry.Pt(x1, y1),
		geometry.Pt(x0, y1),
	}
}
