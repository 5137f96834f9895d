package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corners = geometry.CornerSet{{X: 20, Y: 20}, {X: 100, Y: 20}, {X: 100, Y: 80}, {X: 20, Y: 80}}

func plainStyle() Style {
	s := DefaultStyle()
	s.Labels = false
	return s
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 128, B: 0, A: 255}, c)

	c, err = ParseColor("00ff00")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, c)

	_, err = ParseColor("#zzzzzz")
	assert.Error(t, err)
	_, err = ParseColor("")
	assert.Error(t, err)
}

func TestStyleFromHex(t *testing.T) {
	s, err := StyleFromHex("#0000ff", "", "#ffffff")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{B: 255, A: 255}, s.LineColor)
	assert.Equal(t, DefaultStyle().HandleColor, s.HandleColor)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, s.ActiveColor)

	_, err = StyleFromHex("nope", "", "")
	assert.Error(t, err)
}

func TestRender_DrawsOutlineAndHandles(t *testing.T) {
	src := testutil.SolidRGBA(120, 100, color.Black)
	style := plainStyle()

	out := Render(src, corners, -1, style)
	require.Equal(t, src.Bounds(), out.Bounds())

	assert.Equal(t, style.LineColor, out.RGBAAt(60, 20), "top edge")
	assert.Equal(t, style.LineColor, out.RGBAAt(20, 50), "left edge")
	for _, p := range corners {
		assert.Equal(t, style.HandleColor, out.RGBAAt(int(p.X), int(p.Y)))
	}
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, out.RGBAAt(60, 50), "interior untouched")
}

func TestRender_HighlightsActiveCorner(t *testing.T) {
	src := testutil.SolidRGBA(120, 100, color.Black)
	style := plainStyle()

	out := Render(src, corners, 2, style)
	assert.Equal(t, style.ActiveColor, out.RGBAAt(100, 80))
	assert.Equal(t, style.HandleColor, out.RGBAAt(20, 20))
}

func TestRender_Labels(t *testing.T) {
	src := testutil.SolidRGBA(120, 100, color.Black)
	style := DefaultStyle()
	style.HandleSize = 16

	labeled := Render(src, corners, -1, style)
	style.Labels = false
	plain := Render(src, corners, -1, style)
	assert.NotEqual(t, plain.Pix, labeled.Pix)
}

func TestRender_DoesNotMutateSource(t *testing.T) {
	src := testutil.PatternRGBA(120, 100)
	before := append([]uint8(nil), src.Pix...)
	_ = Render(src, corners, 0, DefaultStyle())
	assert.Equal(t, before, src.Pix)
}

func TestRender_CornersOutsideAndEmpty(t *testing.T) {
	src := testutil.SolidRGBA(50, 50, color.Black)
	far := geometry.CornerSet{{X: -30, Y: -30}, {X: 90, Y: -5}, {X: 70, Y: 70}, {X: -10, Y: 60}}
	assert.NotPanics(t, func() { Render(src, far, 1, DefaultStyle()) })

	empty := Render(image.NewRGBA(image.Rectangle{}), corners, -1, DefaultStyle())
	assert.True(t, empty.Bounds().Empty())
}
