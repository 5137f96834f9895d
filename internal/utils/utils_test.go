package utils

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupportedImage(t *testing.T) {
	cases := []struct {
		path string
		ok   bool
	}{
		{"a.jpg", true},
		{"b.JPEG", true},
		{"c.png", true},
		{"d.bmp", true},
		{"e.tiff", true},
		{"f.gif", true},
		{"g.pdf", false},
		{"noext", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, IsSupportedImage(c.path), c.path)
	}
}

func writeTempPNG(t *testing.T, dir string, w, h int, col color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	FillRect(img, img.Bounds(), col)
	path := filepath.Join(dir, "test.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestLoadImageAndMetadata(t *testing.T) {
	p := writeTempPNG(t, t.TempDir(), 10, 20, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	img, meta, err := LoadImage(p)
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, 10, meta.Width)
	assert.Equal(t, 20, meta.Height)
	assert.InDelta(t, 0.5, meta.AspectRatio, 1e-9)
	assert.Positive(t, meta.SizeBytes)
	assert.Equal(t, p, meta.Path)
}

func TestLoadImageErrors(t *testing.T) {
	_, _, err := LoadImage("")
	var ipe *ImageProcessingError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, "load", ipe.Operation)

	_, _, err = LoadImage("scan.pdf")
	require.ErrorAs(t, err, &ipe)
	assert.Contains(t, err.Error(), "unsupported format")

	_, _, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not a png"), 0o600))
	_, _, err = LoadImage(bad)
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, "decode", ipe.Operation)
}

func TestDecodeImageBytes(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, meta, err := DecodeImageBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
	assert.Equal(t, int64(buf.Len()), meta.SizeBytes)

	_, _, err = DecodeImageBytes(nil)
	assert.Error(t, err)
	_, _, err = DecodeImage(nil)
	assert.Error(t, err)
}

func TestToRGBA(t *testing.T) {
	origin := image.NewRGBA(image.Rect(0, 0, 2, 2))
	assert.Same(t, origin, ToRGBA(origin))

	offset := image.NewRGBA(image.Rect(5, 5, 7, 8))
	offset.Set(5, 5, color.RGBA{R: 200, A: 255})
	got := ToRGBA(offset)
	assert.Equal(t, image.Rect(0, 0, 2, 3), got.Bounds())
	assert.Equal(t, color.RGBA{R: 200, A: 255}, got.RGBAAt(0, 0))

	gray := image.NewGray(image.Rect(0, 0, 1, 1))
	gray.Pix[0] = 77
	assert.Equal(t, color.RGBA{R: 77, G: 77, B: 77, A: 255}, ToRGBA(gray).RGBAAt(0, 0))

	assert.True(t, ToRGBA(nil).Bounds().Empty())
}

func TestCloneRGBAIsIndependent(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	clone := CloneRGBA(src)
	clone.Set(0, 0, color.White)
	assert.Equal(t, color.RGBA{}, src.RGBAAt(0, 0))
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(image.NewRGBA(image.Rectangle{})))
	assert.True(t, IsEmpty(image.NewRGBA(image.Rect(0, 0, 0, 10))))
	assert.False(t, IsEmpty(image.NewRGBA(image.Rect(0, 0, 1, 1))))
}

func TestDrawRectAndPolygon(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	green := color.RGBA{G: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	DrawRect(img, image.Rect(2, 2, 10, 8), green, 1)
	assert.Equal(t, green, img.RGBAAt(2, 2))
	assert.Equal(t, green, img.RGBAAt(9, 7))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(5, 5), "outline only")

	poly := []geometry.Point{{X: 12, Y: 2}, {X: 18, Y: 2}, {X: 18, Y: 8}, {X: 12, Y: 8}}
	DrawPolygon(img, poly, blue, 1)
	assert.Equal(t, blue, img.RGBAAt(12, 2))
	assert.Equal(t, blue, img.RGBAAt(15, 8), "closing edge drawn")
	assert.Equal(t, color.RGBA{}, img.RGBAAt(15, 5))
}

func TestDrawPolygonClipsToCanvas(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	red := color.RGBA{R: 255, A: 255}
	assert.NotPanics(t, func() {
		DrawPolygon(img, []geometry.Point{{X: -50, Y: -50}, {X: 60, Y: 5}, {X: 5, Y: 60}}, red, 3)
	})
	DrawPolygon(img, []geometry.Point{{X: 1, Y: 1}}, red, 1)
}

func TestFillRect(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	FillRect(img, image.Rect(-2, -2, 2, 2), color.White)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(2, 2))
}
