// Package ocr hands rectified rasters to a text-recognition engine.
//
// The engine is a collaborator, not part of this module: builds with the
// "tesseract" tag use gosseract, every other build gets a stub that reports
// ErrNotEnabled.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// DefaultLanguage recognizes English and Traditional Chinese.
const DefaultLanguage = "eng+chi_tra"

// ErrNotEnabled is returned when the binary was built without an OCR engine.
var ErrNotEnabled = errors.New("ocr backend not enabled (build with -tags tesseract)")

// Recognizer extracts text from a raster. lang is a language hint in any
// form NormalizeLanguage accepts; empty selects the configured default.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, lang string) (Result, error)
	Close() error
}

// Bounds is a word's bounding box in raster pixels.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Word is one recognized word.
type Word struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0..1
	Bounds     Bounds  `json:"bounds"`
}

// Result is the outcome of one recognition.
type Result struct {
	Text     string        `json:"text"`
	Words    []Word        `json:"words,omitempty"`
	Language string        `json:"language"`
	Duration time.Duration `json:"duration_ns"`
}

// Config configures a Recognizer.
type Config struct {
	Language       string // default hint
	TessdataPrefix string // optional tessdata directory
}

// DefaultConfig returns the default language and the engine's own data path.
func DefaultConfig() Config {
	return Config{Language: DefaultLanguage}
}

// New returns the recognizer compiled into this binary.
func New(cfg Config) (Recognizer, error) {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if _, err := NormalizeLanguage(cfg.Language); err != nil {
		return nil, err
	}
	return newBackend(cfg)
}

// Available reports whether a real engine is compiled in.
func Available() bool { return backendAvailable }

var tesseractCode = regexp.MustCompile(`^[a-z]{3}(_[a-z]+)?$`)

// NormalizeLanguage turns a language hint into a "+"-joined list of
// Tesseract codes. Entries may be Tesseract codes ("eng", "chi_tra") or
// BCP-47 tags ("en", "zh-Hant", "de-CH"), separated by "+", "," or spaces.
// Duplicates are dropped and order is kept. An empty hint yields
// DefaultLanguage.
func NormalizeLanguage(hint string) (string, error) {
	codes, err := Languages(hint)
	if err != nil {
		return "", err
	}
	return strings.Join(codes, "+"), nil
}

// Languages is NormalizeLanguage returning the individual codes.
func Languages(hint string) ([]string, error) {
	fields := strings.FieldsFunc(hint, func(r rune) bool {
		return r == '+' || r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return strings.Split(DefaultLanguage, "+"), nil
	}

	seen := make(map[string]bool, len(fields))
	codes := make([]string, 0, len(fields))
	for _, f := range fields {
		code, err := toTesseract(f)
		if err != nil {
			return nil, err
		}
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes, nil
}

func toTesseract(s string) (string, error) {
	lower := strings.ToLower(s)
	if tesseractCode.MatchString(lower) {
		return lower, nil
	}

	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", s, err)
	}
	base, _ := tag.Base()
	if base.String() == "zh" {
		script, _ := tag.Script()
		if script.String() == "Hant" {
			return "chi_tra", nil
		}
		return "chi_sim", nil
	}
	iso3 := base.ISO3()
	if iso3 == "" || iso3 == "und" {
		return "", fmt.Errorf("invalid language %q: no ISO 639-3 code", s)
	}
	return iso3, nil
}
