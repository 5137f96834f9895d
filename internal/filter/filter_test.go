package filter

import (
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/docscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pixel(r, g, b uint8) *image.RGBA {
	return testutil.SolidRGBA(1, 1, color.RGBA{R: r, G: g, B: b, A: 255})
}

func applyOne(t *testing.T, kind Kind, r, g, b uint8) color.RGBA {
	t.Helper()
	out, err := Apply(pixel(r, g, b), kind)
	require.NoError(t, err)
	return out.RGBAAt(0, 0)
}

func TestGrayscale(t *testing.T) {
	assert.Equal(t, color.RGBA{124, 124, 124, 255}, applyOne(t, KindGrayscale, 10, 200, 30))
	assert.Equal(t, color.RGBA{76, 76, 76, 255}, applyOne(t, KindGrayscale, 255, 0, 0))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, applyOne(t, KindGrayscale, 255, 255, 255))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, applyOne(t, KindGrayscale, 0, 0, 0))
}

func TestBlackWhite(t *testing.T) {
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, applyOne(t, KindBW, 129, 129, 129))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, applyOne(t, KindBW, 127, 127, 127))
	// Pure green has luma 149.7, pure red 76.2.
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, applyOne(t, KindBW, 0, 255, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, applyOne(t, KindBW, 255, 0, 0))
}

func TestEnhance(t *testing.T) {
	assert.Equal(t, color.RGBA{86, 236, 0, 255}, applyOne(t, KindEnhance, 100, 200, 20))
	assert.Equal(t, color.RGBA{255, 128, 130, 255}, applyOne(t, KindEnhance, 250, 128, 129))
}

func TestOCRPreprocess(t *testing.T) {
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, applyOne(t, KindOCR, 181, 181, 181))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, applyOne(t, KindOCR, 180, 180, 180))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, applyOne(t, KindOCR, 255, 255, 30), "average exactly 180")
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, applyOne(t, KindOCR, 255, 255, 33))
}

func TestOriginalIsExactCopy(t *testing.T) {
	src := testutil.PatternRGBA(20, 10)
	out, err := Apply(src, KindOriginal)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, out.Pix)
	assert.NotSame(t, src, out)
}

func TestApplyPreservesAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 100, B: 100, A: 128})
	src.SetNRGBA(1, 0, color.NRGBA{R: 250, G: 250, B: 250, A: 0})

	for _, kind := range Kinds() {
		out, err := Apply(src, kind)
		require.NoError(t, err, kind)
		assert.Equal(t, uint8(128), out.RGBAAt(0, 0).A, kind)
		assert.Equal(t, uint8(0), out.RGBAAt(1, 0).A, kind)
	}
}

func TestApplyDoesNotMutate(t *testing.T) {
	src := testutil.PatternRGBA(16, 16)
	before := append([]uint8(nil), src.Pix...)
	for _, kind := range Kinds() {
		_, err := Apply(src, kind)
		require.NoError(t, err)
	}
	assert.Equal(t, before, src.Pix)
}

func TestApplyErrors(t *testing.T) {
	_, err := Apply(pixel(1, 2, 3), "sepia")
	assert.ErrorIs(t, err, ErrUnknownFilter)

	_, err = Apply(nil, KindGrayscale)
	assert.Error(t, err)
}

func TestApplyKeepsSize(t *testing.T) {
	src := testutil.PatternRGBA(33, 17)
	for _, kind := range Kinds() {
		out, err := Apply(src, kind)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 33, 17), out.Bounds(), kind)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"original", KindOriginal},
		{"none", KindOriginal},
		{"Grayscale", KindGrayscale},
		{"grey", KindGrayscale},
		{"bw", KindBW},
		{"blackwhite", KindBW},
		{" enhance ", KindEnhance},
		{"contrast", KindEnhance},
		{"ocr", KindOCR},
		{"OCR-Preprocess", KindOCR},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseKind("sepia")
	assert.ErrorIs(t, err, ErrUnknownFilter)
}
