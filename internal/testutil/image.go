package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// CaptureSize is the frame size the scanner requests from a camera.
	CaptureSize = ImageSize{320, 240}
	MediumSize  = ImageSize{640, 480}
)

// SolidRGBA returns a w x h raster filled with c.
func SolidRGBA(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// PatternRGBA returns an opaque raster whose pixels differ from their
// neighbours, so misplaced samples are visible in comparisons.
func PatternRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			i := img.PixOffset(x, y)
			img.Pix[i] = uint8(x * 7)
			img.Pix[i+1] = uint8(y * 13)
			img.Pix[i+2] = uint8((x + y) * 3)
			img.Pix[i+3] = 255
		}
	}
	return img
}

// DocumentImage draws a fg rectangle (the "document") over a bg frame.
func DocumentImage(w, h int, doc image.Rectangle, bg, fg color.Color) *image.RGBA {
	img := SolidRGBA(w, h, bg)
	draw.Draw(img, doc, &image.Uniform{C: fg}, image.Point{}, draw.Src)
	return img
}

// TextImageConfig holds configuration for generating text images.
type TextImageConfig struct {
	Text       string
	Size       ImageSize
	Background color.Color
	Foreground color.Color
	FontFace   font.Face
}

// DefaultTextImageConfig returns black basicfont text on white.
func DefaultTextImageConfig() TextImageConfig {
	return TextImageConfig{
		Text:       "Sample Text",
		Size:       CaptureSize,
		Background: color.White,
		Foreground: color.Black,
		FontFace:   basicfont.Face7x13,
	}
}

// GenerateTextImage renders config.Text centered on a plain background.
func GenerateTextImage(config TextImageConfig) *image.RGBA {
	img := SolidRGBA(config.Size.Width, config.Size.Height, config.Background)
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: config.Foreground},
		Face: config.FontFace,
	}
	textWidth := font.MeasureString(config.FontFace, config.Text).Ceil()
	textHeight := config.FontFace.Metrics().Height.Ceil()
	drawer.Dot = fixed.P((config.Size.Width-textWidth)/2, (config.Size.Height+textHeight)/2)
	drawer.DrawString(config.Text)
	return img
}

// SaveImage saves an image as PNG, creating parent directories.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	dir := filepath.Dir(path)
	require.NoError(t, EnsureDir(dir), "Failed to create directory %s", dir)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// WriteTempPNG saves img under a fresh temp dir and returns its path.
func WriteTempPNG(t *testing.T, img image.Image, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	SaveImage(t, img, path)
	return path
}

// LoadImage loads an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path) //nolint:gosec // G304: Test file reading with controlled path
	require.NoError(t, err, "Failed to open image file %s", path)
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	require.NoError(t, err, "Failed to decode image")
	return img
}

// CompareImages reports whether two images of equal bounds differ by at most
// tolerance, as a fraction of the maximum per-pixel RGBA distance.
func CompareImages(img1, img2 image.Image, tolerance float64) bool {
	bounds1 := img1.Bounds()
	if bounds1 != img2.Bounds() {
		return false
	}
	if bounds1.Empty() {
		return true
	}

	var totalDiff, pixelCount float64
	for y := bounds1.Min.Y; y < bounds1.Max.Y; y++ {
		for x := bounds1.Min.X; x < bounds1.Max.X; x++ {
			r1, g1, b1, a1 := img1.At(x, y).RGBA()
			r2, g2, b2, a2 := img2.At(x, y).RGBA()
			dr := float64(r1) - float64(r2)
			dg := float64(g1) - float64(g2)
			db := float64(b1) - float64(b2)
			da := float64(a1) - float64(a2)
			totalDiff += math.Sqrt(dr*dr + dg*dg + db*db + da*da)
			pixelCount++
		}
	}

	maxDiff := math.Sqrt(4 * 65535 * 65535)
	return (totalDiff/pixelCount)/maxDiff <= tolerance
}
