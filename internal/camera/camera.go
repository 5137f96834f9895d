// Package camera provides frame sources for the scanner. A Source delivers
// one still frame per capture; live video handling stays outside this module.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/docscan/internal/pdf"
	"github.com/MeKo-Tech/docscan/internal/utils"
	"github.com/disintegration/imaging"
)

// Default capture size requested from a device.
const (
	DefaultWidth  = 320
	DefaultHeight = 240
)

// ErrClosed is returned by captures on a closed source.
var ErrClosed = errors.New("camera source closed")

// Source produces still frames.
type Source interface {
	CaptureFrame(ctx context.Context) (*image.RGBA, error)
	Close() error
}

// FileSource decodes an image file on every capture. It stands in for a
// video device in the CLI and in tests. A .pdf path yields the first image
// embedded on Page.
type FileSource struct {
	Path string
	Page int // 1-based, PDF only; zero means the first page
	// Width and Height resize each frame when positive. A single positive
	// dimension preserves the aspect ratio.
	Width  int
	Height int

	closed bool
}

// NewFileSource returns a source reading path at its native size.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// CaptureFrame implements Source.
func (f *FileSource) CaptureFrame(ctx context.Context) (*image.RGBA, error) {
	if f.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := f.load()
	if err != nil {
		return nil, fmt.Errorf("capture from %s: %w", f.Path, err)
	}
	return resize(img, f.Width, f.Height), nil
}

func (f *FileSource) load() (image.Image, error) {
	if strings.EqualFold(filepath.Ext(f.Path), ".pdf") {
		return pdf.PageImage(f.Path, max(f.Page, 1))
	}
	img, _, err := utils.LoadImage(f.Path)
	return img, err
}

// Close implements Source.
func (f *FileSource) Close() error {
	f.closed = true
	return nil
}

// StaticSource serves a fixed in-memory image, e.g. an HTTP upload.
type StaticSource struct {
	img    image.Image
	closed bool
}

// NewStaticSource wraps img.
func NewStaticSource(img image.Image) *StaticSource {
	return &StaticSource{img: img}
}

// CaptureFrame implements Source. Every capture returns a fresh copy.
func (s *StaticSource) CaptureFrame(ctx context.Context) (*image.RGBA, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.img == nil {
		return nil, errors.New("static source has no image")
	}
	return utils.CloneRGBA(s.img), nil
}

// Close implements Source.
func (s *StaticSource) Close() error {
	s.closed = true
	return nil
}

// FallbackSource tries Primary first and uses Secondary when it fails,
// mirroring "environment-facing camera, else any camera".
type FallbackSource struct {
	Primary   Source
	Secondary Source
	Logger    *slog.Logger
}

// Fallback combines two sources. Either may be nil.
func Fallback(primary, secondary Source) *FallbackSource {
	return &FallbackSource{Primary: primary, Secondary: secondary, Logger: slog.Default()}
}

// CaptureFrame implements Source. If both sources fail the errors are joined.
func (f *FallbackSource) CaptureFrame(ctx context.Context) (*image.RGBA, error) {
	var primaryErr error
	if f.Primary != nil {
		img, err := f.Primary.CaptureFrame(ctx)
		if err == nil {
			return img, nil
		}
		primaryErr = fmt.Errorf("primary camera: %w", err)
		if ctx.Err() != nil {
			return nil, primaryErr
		}
		f.logger().Warn("primary camera unavailable, trying fallback", "error", err)
	}
	if f.Secondary == nil {
		if primaryErr == nil {
			return nil, errors.New("no camera source configured")
		}
		return nil, primaryErr
	}
	img, err := f.Secondary.CaptureFrame(ctx)
	if err != nil {
		return nil, errors.Join(primaryErr, fmt.Errorf("fallback camera: %w", err))
	}
	return img, nil
}

// Close closes both sources.
func (f *FallbackSource) Close() error {
	var errs []error
	for _, s := range []Source{f.Primary, f.Secondary} {
		if s != nil {
			errs = append(errs, s.Close())
		}
	}
	return errors.Join(errs...)
}

func (f *FallbackSource) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

func resize(img image.Image, w, h int) *image.RGBA {
	if w <= 0 && h <= 0 {
		return utils.ToRGBA(img)
	}
	b := img.Bounds()
	if (w <= 0 || w == b.Dx()) && (h <= 0 || h == b.Dy()) {
		return utils.ToRGBA(img)
	}
	return utils.ToRGBA(imaging.Resize(img, max(w, 0), max(h, 0), imaging.Lanczos))
}
