// Package filter implements the mutually exclusive post-filters applied to a
// rectified raster.
package filter

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/MeKo-Tech/docscan/internal/utils"
	"github.com/disintegration/imaging"
)

// Kind names a filter.
type Kind string

// Available filters.
const (
	KindOriginal  Kind = "original"
	KindGrayscale Kind = "grayscale"
	KindBW        Kind = "bw"
	KindEnhance   Kind = "enhance"
	KindOCR       Kind = "ocr"
)

// Thresholds and gain used by the pixel functions.
const (
	BWThreshold     = 128.0
	OCRThreshold    = 180.0
	EnhanceContrast = 1.5
)

// ErrUnknownFilter is returned for a filter name that is not recognized.
var ErrUnknownFilter = errors.New("unknown filter")

// Kinds lists every filter in presentation order.
func Kinds() []Kind {
	return []Kind{KindOriginal, KindGrayscale, KindBW, KindEnhance, KindOCR}
}

var aliases = map[string]Kind{
	"original":       KindOriginal,
	"none":           KindOriginal,
	"grayscale":      KindGrayscale,
	"greyscale":      KindGrayscale,
	"gray":           KindGrayscale,
	"grey":           KindGrayscale,
	"bw":             KindBW,
	"blackwhite":     KindBW,
	"black-white":    KindBW,
	"enhance":        KindEnhance,
	"contrast":       KindEnhance,
	"ocr":            KindOCR,
	"ocr-preprocess": KindOCR,
	"ocrpreprocess":  KindOCR,
}

// ParseKind resolves a filter name or alias, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFilter, s)
	}
	return k, nil
}

// Apply returns a new raster with kind applied to img. img is not modified
// and alpha is preserved.
func Apply(img image.Image, kind Kind) (*image.RGBA, error) {
	if img == nil {
		return nil, &utils.ImageProcessingError{Operation: "filter", Err: errors.New("nil image")}
	}
	switch kind {
	case KindOriginal:
		return utils.CloneRGBA(img), nil
	case KindGrayscale:
		return adjust(img, grayscalePixel), nil
	case KindBW:
		return adjust(img, bwPixel), nil
	case KindEnhance:
		return adjust(img, enhancePixel), nil
	case KindOCR:
		return adjust(img, ocrPixel), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, kind)
	}
}

// adjust runs fn over every pixel and converts the result back to RGBA.
func adjust(img image.Image, fn func(color.NRGBA) color.NRGBA) *image.RGBA {
	n := imaging.AdjustFunc(img, fn)
	out := image.NewRGBA(n.Bounds())
	draw.Draw(out, out.Bounds(), n, n.Bounds().Min, draw.Src)
	return out
}

func luma(c color.NRGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

func grayscalePixel(c color.NRGBA) color.NRGBA {
	v := clampByte(math.Round(luma(c)))
	return color.NRGBA{R: v, G: v, B: v, A: c.A}
}

func bwPixel(c color.NRGBA) color.NRGBA {
	return binary(luma(c) > BWThreshold, c.A)
}

func enhancePixel(c color.NRGBA) color.NRGBA {
	return color.NRGBA{R: stretch(c.R), G: stretch(c.G), B: stretch(c.B), A: c.A}
}

func ocrPixel(c color.NRGBA) color.NRGBA {
	avg := (float64(c.R) + float64(c.G) + float64(c.B)) / 3
	return binary(avg > OCRThreshold, c.A)
}

func stretch(v uint8) uint8 {
	return clampByte(math.Round((float64(v)-128)*EnhanceContrast + 128))
}

func binary(on bool, a uint8) color.NRGBA {
	if on {
		return color.NRGBA{R: 255, G: 255, B: 255, A: a}
	}
	return color.NRGBA{A: a}
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
