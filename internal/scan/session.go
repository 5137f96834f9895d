// Package scan ties the scanner stages together: capture a frame, adjust
// its corners, commit a rectified page, filter it, and read its text.
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/docscan/internal/camera"
	"github.com/MeKo-Tech/docscan/internal/editor"
	"github.com/MeKo-Tech/docscan/internal/estimate"
	"github.com/MeKo-Tech/docscan/internal/filter"
	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/ocr"
	"github.com/MeKo-Tech/docscan/internal/rectify"
	"github.com/MeKo-Tech/docscan/internal/utils"
)

var (
	// ErrNoFrame is returned when there is no frame awaiting corner
	// adjustment, either because nothing was captured or it was committed.
	ErrNoFrame = errors.New("no frame captured")
	// ErrNotCaptured is returned by Recognize before any capture.
	ErrNotCaptured = errors.New("capture an image first")
	// ErrEmptyRaster is returned when the raster to read has no pixels.
	ErrEmptyRaster = errors.New("empty raster")
)

// Options configures a Session. Zero values select the package defaults.
type Options struct {
	Estimator   estimate.Estimator
	Rectifier   *rectify.Rectifier
	Logger      *slog.Logger
	MouseRadius float64
	TouchRadius float64
}

// Session holds the state of one scan. It is not safe for concurrent use.
type Session struct {
	est    estimate.Estimator
	rect   *rectify.Rectifier
	logger *slog.Logger
	radii  []editor.Option

	frame    *image.RGBA
	editor   *editor.Editor
	selector *filter.Selector
	text     *ocr.Result
}

// New creates an empty session.
func New(opts Options) (*Session, error) {
	s := &Session{est: opts.Estimator, rect: opts.Rectifier, logger: opts.Logger}
	if s.est == nil {
		est, err := estimate.New(estimate.DefaultConfig())
		if err != nil {
			return nil, err
		}
		s.est = est
	}
	if s.rect == nil {
		r, err := rectify.New(rectify.DefaultConfig())
		if err != nil {
			return nil, err
		}
		s.rect = r
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.radii = []editor.Option{
		editor.WithMouseRadius(opts.MouseRadius),
		editor.WithTouchRadius(opts.TouchRadius),
	}
	s.selector = filter.NewSelector(nil)
	return s, nil
}

// Capture grabs one frame from cam and starts corner adjustment on it.
// The previous scan is discarded only if the capture succeeds.
func (s *Session) Capture(ctx context.Context, cam camera.Source) error {
	if cam == nil {
		return errors.New("no camera source")
	}
	img, err := cam.CaptureFrame(ctx)
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}
	return s.Load(img)
}

// Load starts corner adjustment on an in-memory image.
func (s *Session) Load(img image.Image) error {
	if utils.IsEmpty(img) {
		return ErrEmptyRaster
	}
	s.Retake()
	s.frame = utils.CloneRGBA(img)
	w, h := s.frame.Bounds().Dx(), s.frame.Bounds().Dy()
	corners := s.est.Estimate(s.frame)
	s.editor = editor.New(corners, w, h, s.radii...)
	s.logger.Debug("frame captured",
		"width", w,
		"height", h,
		"estimator", s.est.Name(),
		"corners", corners.String())
	return nil
}

// Editor returns the corner editor for the captured frame.
func (s *Session) Editor() (*editor.Editor, error) {
	if s.editor == nil {
		return nil, ErrNoFrame
	}
	return s.editor, nil
}

// SetCorners replaces the corners being edited with c, as given. Unlike a
// drag, explicit corners are not clamped to the frame.
func (s *Session) SetCorners(c geometry.CornerSet) error {
	if s.frame == nil || s.editor == nil {
		return ErrNoFrame
	}
	if !c.Finite() {
		return fmt.Errorf("set corners: %w", geometry.ErrNonFinite)
	}
	b := s.frame.Bounds()
	s.editor = editor.New(c, b.Dx(), b.Dy(), s.radii...)
	s.logger.Debug("corners set", "corners", c.String())
	return nil
}

// Corners returns the current corners, or false when none are being edited.
func (s *Session) Corners() (geometry.CornerSet, bool) {
	if s.editor == nil {
		return geometry.CornerSet{}, false
	}
	return s.editor.Corners(), true
}

// Commit rectifies the frame through the current corners and makes the
// result the filter base. On error the editor is kept so the corners can be
// fixed and the commit retried.
func (s *Session) Commit() (*image.RGBA, error) {
	if s.frame == nil || s.editor == nil {
		return nil, ErrNoFrame
	}
	res, err := s.rect.Apply(s.frame, s.editor.Corners())
	if err != nil {
		return nil, err
	}
	s.selector.SetBase(res.Image)
	s.editor = nil
	s.text = nil
	s.logger.Info("page rectified",
		"width", res.Width,
		"height", res.Height,
		"method", string(res.Method),
		"duration_ms", res.Duration.Milliseconds())
	return s.selector.Base(), nil
}

// ApplyFilter switches the displayed filter. It reports false without a
// rectified page or for an unknown kind.
func (s *Session) ApplyFilter(kind filter.Kind) bool {
	_, ok := s.selector.Select(kind)
	return ok
}

// Filter returns the filter in effect, or "" before a commit.
func (s *Session) Filter() filter.Kind { return s.selector.Kind() }

// Frame returns the captured frame, or nil.
func (s *Session) Frame() *image.RGBA { return s.frame }

// Rectified returns the unfiltered rectified page, or nil.
func (s *Session) Rectified() *image.RGBA { return s.selector.Base() }

// Current returns what the user sees: the filtered page, else the frame.
func (s *Session) Current() image.Image {
	if cur := s.selector.Current(); cur != nil {
		return cur
	}
	if s.frame != nil {
		return s.frame
	}
	return nil
}

// Recognize reads text from the current raster. The raster is not changed.
func (s *Session) Recognize(ctx context.Context, rec ocr.Recognizer, lang string) (ocr.Result, error) {
	if s.frame == nil && s.selector.Base() == nil {
		return ocr.Result{}, ErrNotCaptured
	}
	img := s.Current()
	if utils.IsEmpty(img) {
		return ocr.Result{}, ErrEmptyRaster
	}
	if rec == nil {
		return ocr.Result{}, ocr.ErrNotEnabled
	}
	res, err := rec.Recognize(ctx, img, lang)
	if err != nil {
		s.logger.Warn("text recognition failed", "error", err)
		return ocr.Result{}, fmt.Errorf("recognition failed: %w", err)
	}
	s.text = &res
	return res, nil
}

// Text returns the last recognition result, or nil.
func (s *Session) Text() *ocr.Result { return s.text }

// Retake discards the frame, corners, page and text.
func (s *Session) Retake() {
	s.frame = nil
	s.editor = nil
	s.selector.SetBase(nil)
	s.text = nil
}
