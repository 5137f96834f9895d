// Package rectify flattens a four-corner selection into an upright raster.
//
// The output size is taken from the longest pair of opposing sides. Every
// destination pixel is mapped back into the source by a Mapper, rounded to
// the nearest source pixel and copied with alpha forced opaque. Destination
// pixels that map outside the source stay fully transparent black.
package rectify

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/MeKo-Tech/docscan/internal/common"
	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/utils"
)

var (
	// ErrDegenerateQuad is returned under the reject policy when the quad
	// collapses below the minimum side length.
	ErrDegenerateQuad = errors.New("degenerate quad")
	// ErrNonFiniteCorners is returned for NaN or infinite corner coordinates,
	// under either policy.
	ErrNonFiniteCorners = errors.New("corners are not finite")
	// ErrOutputTooLarge is returned when the output area exceeds MaxPixels.
	ErrOutputTooLarge = errors.New("rectified output too large")
)

// Result describes one rectification.
type Result struct {
	Image    *image.RGBA
	Method   Method // mapper actually used, after any fallback
	Width    int
	Height   int
	Duration time.Duration
}

// Rectifier applies the quad-to-rectangle resampling.
type Rectifier struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a rectifier after validating cfg.
func New(cfg Config) (*Rectifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Rectifier{cfg: cfg, logger: slog.Default()}, nil
}

// WithLogger replaces the logger used for timing and debug messages.
func (r *Rectifier) WithLogger(l *slog.Logger) *Rectifier {
	if l != nil {
		r.logger = l
	}
	return r
}

// Config returns the validated configuration.
func (r *Rectifier) Config() Config { return r.cfg }

// Rectify returns only the rectified raster.
func (r *Rectifier) Rectify(src image.Image, c geometry.CornerSet) (*image.RGBA, error) {
	res, err := r.Apply(src, c)
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

// Apply rectifies the region of src selected by c. Corner coordinates are
// relative to src.Bounds().Min. src is never modified.
func (r *Rectifier) Apply(src image.Image, c geometry.CornerSet) (*Result, error) {
	if src == nil {
		return nil, &utils.ImageProcessingError{Operation: "rectify", Err: errors.New("nil image")}
	}
	timer := common.NewNamedTimer("rectify")

	if !c.Finite() {
		return nil, fmt.Errorf("%w: %s", ErrNonFiniteCorners, c.String())
	}
	// Bound the area in floating point; rounding a huge side to int is undefined.
	s := c.Sides()
	fw, fh := math.Round(math.Max(s.Top, s.Bottom)), math.Round(math.Max(s.Left, s.Right))
	limit := float64(r.cfg.MaxPixels)
	if fw*fh > limit || fw > limit || fh > limit {
		return nil, fmt.Errorf("%w: %.0fx%.0f exceeds %d pixels", ErrOutputTooLarge, fw, fh, r.cfg.MaxPixels)
	}

	w, h := c.OutputSize()
	if r.cfg.Degenerate == DegenerateReject && (w < r.cfg.MinSide || h < r.cfg.MinSide) {
		return nil, fmt.Errorf("%w: output %dx%d below minimum side %d", ErrDegenerateQuad, w, h, r.cfg.MinSide)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	method := r.cfg.Method
	if w > 0 && h > 0 {
		var mapper Mapper
		mapper, method = NewMapper(r.cfg.Method, c, w, h)
		resample(utils.ToRGBA(src), dst, mapper)
	}

	timer.Stop()
	r.logger.Debug("rectified quad",
		"corners", c.String(),
		"width", w,
		"height", h,
		"method", string(method),
		timer.LogAttr())

	if r.cfg.DebugDir != "" {
		quad := c.Translate(float64(src.Bounds().Min.X), float64(src.Bounds().Min.Y))
		if err := dumpOverlayPNG(r.cfg.DebugDir, src, quad); err != nil {
			r.logger.Warn("failed to write rectify overlay", "dir", r.cfg.DebugDir, "error", err)
		}
		if err := dumpComparePNG(r.cfg.DebugDir, src, c, dst); err != nil {
			r.logger.Warn("failed to write rectify comparison", "dir", r.cfg.DebugDir, "error", err)
		}
	}

	return &Result{Image: dst, Method: method, Width: w, Height: h, Duration: timer.Duration()}, nil
}

// resample fills dst by nearest-neighbour lookup through m.
func resample(src, dst *image.RGBA, m Mapper) {
	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	dw, dh := dst.Rect.Dx(), dst.Rect.Dy()
	for y := range dh {
		row := dst.Pix[y*dst.Stride:]
		for x := range dw {
			p := m.Map(x, y)
			sx, sy := math.Round(p.X), math.Round(p.Y)
			if sx < 0 || sy < 0 || sx >= float64(sw) || sy >= float64(sh) || math.IsNaN(sx) || math.IsNaN(sy) {
				continue
			}
			si := int(sy)*src.Stride + int(sx)*4
			di := x * 4
			row[di] = src.Pix[si]
			row[di+1] = src.Pix[si+1]
			row[di+2] = src.Pix[si+2]
			row[di+3] = 255
		}
	}
}

// Rectify runs a one-off rectification with DefaultConfig.
func Rectify(src image.Image, c geometry.CornerSet) (*image.RGBA, error) {
	r, err := New(DefaultConfig())
	if err != nil {
		return nil, err
	}
	return r.Rectify(src, c)
}

// IsEmpty reports whether a rectified raster has no pixels, which the
// preserve policy allows.
func IsEmpty(img image.Image) bool { return utils.IsEmpty(img) }
