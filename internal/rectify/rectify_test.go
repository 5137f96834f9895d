package rectify

import (
	"image"
	"image/color"
	"math"
	"os"
	"testing"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRectifier(t *testing.T, mutate func(*Config)) *Rectifier {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	r, err := New(cfg)
	require.NoError(t, err)
	return r
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, MethodBilinear, cfg.Method)
	assert.Equal(t, DegenerateReject, cfg.Degenerate)
	assert.Equal(t, 1, cfg.MinSide)
	assert.Equal(t, DefaultMaxPixels, cfg.MaxPixels)
	assert.Empty(t, cfg.DebugDir)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Method: "Homography", Degenerate: ""}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, MethodHomography, cfg.Method)
	assert.Equal(t, DegenerateReject, cfg.Degenerate)

	_, err := New(Config{Method: "thin-plate"})
	assert.ErrorContains(t, err, "invalid rectify method")

	_, err = New(Config{Degenerate: "explode"})
	assert.ErrorContains(t, err, "invalid degenerate policy")

	_, err = New(Config{MinSide: -1})
	assert.Error(t, err)

	_, err = New(Config{MaxPixels: -1})
	assert.ErrorContains(t, err, "max pixels")

	zero := Config{}
	require.NoError(t, zero.Validate())
	assert.Equal(t, DefaultMaxPixels, zero.MaxPixels)
}

func TestOutputTooLarge(t *testing.T) {
	src := testutil.PatternRGBA(100, 100)
	huge := geometry.CornerSet{{X: 0, Y: 0}, {X: 1e8, Y: 0}, {X: 1e8, Y: 1e8}, {X: 0, Y: 1e8}}

	for _, policy := range []DegeneratePolicy{DegenerateReject, DegeneratePreserve} {
		r := newRectifier(t, func(c *Config) { c.Degenerate = policy })
		_, err := r.Apply(src, huge)
		assert.ErrorIs(t, err, ErrOutputTooLarge, string(policy))
	}

	// Sides past 1e300 would overflow an int conversion.
	_, err := Rectify(src, geometry.CornerSet{{X: 0, Y: 0}, {X: 1e300, Y: 0}, {X: 1e300, Y: 1e300}, {X: 0, Y: 1e300}})
	assert.ErrorIs(t, err, ErrOutputTooLarge)

	// A sliver has no area but a side no int can hold.
	sliver := geometry.CornerSet{{X: 0, Y: 0}, {X: 1e300, Y: 0}, {X: 1e300, Y: 0}, {X: 0, Y: 0}}
	preserve := newRectifier(t, func(c *Config) { c.Degenerate = DegeneratePreserve })
	_, err = preserve.Apply(src, sliver)
	assert.ErrorIs(t, err, ErrOutputTooLarge)

	r := newRectifier(t, func(c *Config) { c.MaxPixels = 200 })
	_, err = r.Apply(src, geometry.FullFrame(20, 10))
	require.NoError(t, err)
	_, err = r.Apply(src, geometry.FullFrame(20, 11))
	assert.ErrorIs(t, err, ErrOutputTooLarge)
}

func TestNonFiniteCorners(t *testing.T) {
	src := testutil.PatternRGBA(20, 20)
	for _, policy := range []DegeneratePolicy{DegenerateReject, DegeneratePreserve} {
		r := newRectifier(t, func(c *Config) { c.Degenerate = policy })
		for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			c := geometry.FullFrame(10, 10)
			c[geometry.TopLeft].X = v
			_, err := r.Apply(src, c)
			assert.ErrorIs(t, err, ErrNonFiniteCorners, "%s %v", policy, v)
		}
	}
}

func TestIdentityQuad(t *testing.T) {
	src := testutil.PatternRGBA(64, 48)
	identity := geometry.FullFrame(64, 48)

	for _, method := range []Method{MethodBilinear, MethodHomography} {
		t.Run(string(method), func(t *testing.T) {
			r := newRectifier(t, func(c *Config) { c.Method = method })
			res, err := r.Apply(src, identity)
			require.NoError(t, err)
			assert.Equal(t, method, res.Method)
			require.Equal(t, src.Bounds(), res.Image.Bounds())
			assert.Equal(t, src.Pix, res.Image.Pix)
		})
	}
}

func TestOutputSize(t *testing.T) {
	src := testutil.SolidRGBA(200, 200, color.White)
	c := geometry.CornerSet{{X: 10, Y: 10}, {X: 110, Y: 20}, {X: 100, Y: 120}, {X: 20, Y: 110}}

	res, err := newRectifier(t, nil).Apply(src, c)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 100, res.Height)
	assert.Equal(t, image.Rect(0, 0, 100, 100), res.Image.Bounds())
}

func TestOffsetBeyondSource(t *testing.T) {
	src := testutil.PatternRGBA(100, 100)
	c := geometry.FullFrame(100, 100).Translate(50, 50)

	for _, method := range []Method{MethodBilinear, MethodHomography} {
		t.Run(string(method), func(t *testing.T) {
			out, err := newRectifier(t, func(c *Config) { c.Method = method }).Rectify(src, c)
			require.NoError(t, err)
			require.Equal(t, image.Rect(0, 0, 100, 100), out.Bounds())

			for y := range 100 {
				for x := range 100 {
					got := out.RGBAAt(x, y)
					if x < 50 && y < 50 {
						want := src.RGBAAt(x+50, y+50)
						want.A = 255
						require.Equal(t, want, got, "(%d,%d) copied", x, y)
					} else {
						require.Equal(t, color.RGBA{}, got, "(%d,%d) left zero", x, y)
					}
				}
			}
		})
	}
}

func TestEndToEndWhiteFrame(t *testing.T) {
	src := testutil.SolidRGBA(200, 100, color.White)
	c := geometry.CornerSet{{X: 10, Y: 10}, {X: 190, Y: 10}, {X: 190, Y: 90}, {X: 10, Y: 90}}

	out, err := Rectify(src, c)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 180, 80), out.Bounds())
	for i := 0; i < len(out.Pix); i += 4 {
		require.Equal(t, []uint8{255, 255, 255, 255}, out.Pix[i:i+4])
	}
}

func TestAlphaForcedOpaque(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 40, 50, 60, 128
	}
	out, err := Rectify(src, geometry.FullFrame(10, 10))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 40, G: 50, B: 60, A: 255}, out.RGBAAt(3, 3))
}

func TestSourceNotMutated(t *testing.T) {
	src := testutil.PatternRGBA(40, 30)
	before := append([]uint8(nil), src.Pix...)
	_, err := Rectify(src, geometry.CornerSet{{X: 5, Y: 2}, {X: 35, Y: 6}, {X: 30, Y: 28}, {X: 2, Y: 25}})
	require.NoError(t, err)
	assert.Equal(t, before, src.Pix)
}

func TestOffsetBoundsAreRelative(t *testing.T) {
	base := testutil.PatternRGBA(30, 30)
	sub := base.SubImage(image.Rect(10, 10, 30, 30)).(*image.RGBA)

	out, err := Rectify(sub, geometry.FullFrame(20, 20))
	require.NoError(t, err)
	assert.Equal(t, base.RGBAAt(10, 10), out.RGBAAt(0, 0))
	assert.Equal(t, base.RGBAAt(25, 17), out.RGBAAt(15, 7))
}

func TestDegenerateQuad(t *testing.T) {
	src := testutil.SolidRGBA(50, 50, color.White)
	point := geometry.CornerSet{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}}
	sliver := geometry.CornerSet{{X: 0, Y: 10}, {X: 40, Y: 10}, {X: 40, Y: 10.2}, {X: 0, Y: 10.2}}

	t.Run("reject", func(t *testing.T) {
		r := newRectifier(t, nil)
		_, err := r.Rectify(src, point)
		require.ErrorIs(t, err, ErrDegenerateQuad)
		_, err = r.Rectify(src, sliver)
		require.ErrorIs(t, err, ErrDegenerateQuad)
	})

	t.Run("reject with larger min side", func(t *testing.T) {
		r := newRectifier(t, func(c *Config) { c.MinSide = 20 })
		_, err := r.Rectify(src, geometry.Inset(50, 50, 20))
		assert.ErrorIs(t, err, ErrDegenerateQuad)
	})

	t.Run("preserve", func(t *testing.T) {
		r := newRectifier(t, func(c *Config) { c.Degenerate = DegeneratePreserve })
		out, err := r.Rectify(src, point)
		require.NoError(t, err)
		assert.True(t, IsEmpty(out))

		out, err = r.Rectify(src, sliver)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 40, 0), out.Bounds())
		assert.True(t, IsEmpty(out))
	})
}

func TestBowTieIsNotRejected(t *testing.T) {
	src := testutil.PatternRGBA(100, 100)
	bowTie := geometry.CornerSet{{X: 10, Y: 10}, {X: 90, Y: 10}, {X: 10, Y: 90}, {X: 90, Y: 90}}

	out, err := Rectify(src, bowTie)
	require.NoError(t, err)
	w, h := bowTie.OutputSize()
	assert.Equal(t, image.Rect(0, 0, w, h), out.Bounds())
}

func TestHomographyFallsBackOnCollinearCorners(t *testing.T) {
	src := testutil.SolidRGBA(120, 20, color.White)
	line := geometry.CornerSet{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 50, Y: 0}, {X: 20, Y: 0}}

	res, err := newRectifier(t, func(c *Config) { c.Method = MethodHomography }).Apply(src, line)
	require.NoError(t, err)
	assert.Equal(t, MethodBilinear, res.Method)
	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 50, res.Height)
}

func TestHomographyStraightensTrapezoid(t *testing.T) {
	// A trapezoid whose top edge is shorter than its bottom edge. Under the
	// projective mapping the output's corners sample the quad's corners.
	src := testutil.PatternRGBA(200, 200)
	c := geometry.CornerSet{{X: 60, Y: 20}, {X: 140, Y: 20}, {X: 180, Y: 180}, {X: 20, Y: 180}}

	r := newRectifier(t, func(c *Config) { c.Method = MethodHomography })
	out, err := r.Rectify(src, c)
	require.NoError(t, err)
	w, h := c.OutputSize()
	require.Equal(t, image.Rect(0, 0, w, h), out.Bounds())

	want := src.RGBAAt(60, 20)
	want.A = 255
	assert.Equal(t, want, out.RGBAAt(0, 0))
}

func TestNilSource(t *testing.T) {
	_, err := Rectify(nil, geometry.FullFrame(1, 1))
	assert.Error(t, err)
}

func TestDebugDumps(t *testing.T) {
	dir := t.TempDir()
	defer func() { _ = os.RemoveAll(dir) }()

	r := newRectifier(t, func(c *Config) { c.DebugDir = dir })
	_, err := r.Rectify(testutil.PatternRGBA(40, 40), geometry.Inset(40, 40, 5))
	require.NoError(t, err)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2, "overlay and comparison")
}

func TestNewMapper(t *testing.T) {
	c := geometry.FullFrame(10, 10)
	m, used := NewMapper(MethodBilinear, c, 10, 10)
	assert.Equal(t, MethodBilinear, used)
	assert.Equal(t, geometry.Pt(5, 5), m.Map(5, 5))

	m, used = NewMapper(MethodHomography, c, 10, 10)
	assert.Equal(t, MethodHomography, used)
	p := m.Map(5, 5)
	assert.InDelta(t, 5, p.X, 1e-9)
	assert.InDelta(t, 5, p.Y, 1e-9)
}
