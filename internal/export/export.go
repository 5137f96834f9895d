// Package export writes finished scans to disk or to a stream.
package export

import (
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/docscan/internal/pdf"
	"github.com/MeKo-Tech/docscan/internal/utils"
	"github.com/disintegration/imaging"
)

// ErrUnsupportedFormat is returned for unknown output formats.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// JPEGQuality is used for every JPEG written by this package.
const JPEGQuality = 92

// Formats lists the file extensions Save understands, without the dot.
func Formats() []string {
	return []string{"png", "jpg", "jpeg", "gif", "tif", "tiff", "bmp", "pdf"}
}

// FormatFromPath returns the lower-cased extension of path without the dot.
func FormatFromPath(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Save writes img to path, picking the encoder from the extension. A .pdf
// path produces a single-page document.
func Save(img image.Image, path string) error {
	if utils.IsEmpty(img) {
		return &utils.ImageProcessingError{Operation: "export", Err: errors.New("empty image")}
	}
	switch format := FormatFromPath(path); format {
	case "pdf":
		if err := pdf.WriteImages(path, img); err != nil {
			return &utils.ImageProcessingError{Operation: "export pdf", Err: err}
		}
		return nil
	case "png", "jpg", "jpeg", "gif", "tif", "tiff", "bmp":
		if err := imaging.Save(img, path, imaging.JPEGQuality(JPEGQuality)); err != nil {
			return &utils.ImageProcessingError{Operation: "export " + format, Err: err}
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// SavePages writes several pages to path. Only PDF holds more than one
// page; other formats take exactly one image.
func SavePages(path string, pages ...image.Image) error {
	if len(pages) == 1 {
		return Save(pages[0], path)
	}
	if FormatFromPath(path) != "pdf" {
		return fmt.Errorf("%d pages need a .pdf output, got %q", len(pages), filepath.Base(path))
	}
	for i, p := range pages {
		if utils.IsEmpty(p) {
			return &utils.ImageProcessingError{Operation: "export", Err: fmt.Errorf("page %d is empty", i+1)}
		}
	}
	if err := pdf.WriteImages(path, pages...); err != nil {
		return &utils.ImageProcessingError{Operation: "export pdf", Err: err}
	}
	return nil
}

// ContentType returns the MIME type for a streaming format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "image/png"
	}
}

// Encode streams img to w as png or jpeg.
func Encode(w io.Writer, img image.Image, format string) error {
	var f imaging.Format
	switch strings.ToLower(format) {
	case "", "png":
		f = imaging.PNG
	case "jpg", "jpeg":
		f = imaging.JPEG
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if utils.IsEmpty(img) {
		return &utils.ImageProcessingError{Operation: "encode", Err: errors.New("empty image")}
	}
	return imaging.Encode(w, img, f, imaging.JPEGQuality(JPEGQuality))
}
