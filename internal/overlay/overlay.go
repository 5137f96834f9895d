// Package overlay renders the corner selection on top of a frame: the quad
// outline plus a numbered square handle on each corner.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/utils"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Default colours, as hex strings.
const (
	DefaultLineColor   = "#00ff00"
	DefaultHandleColor = "#ff0000"
	DefaultActiveColor = "#ffff00"
	DefaultLabelColor  = "#ffffff"
)

// Style controls how the selection is drawn.
type Style struct {
	LineColor   color.Color
	HandleColor color.Color
	ActiveColor color.Color
	LabelColor  color.Color
	LineWidth   int
	HandleSize  int // side of the square handle in pixels
	Labels      bool
}

// DefaultStyle returns green lines with red numbered handles.
func DefaultStyle() Style {
	return Style{
		LineColor:   mustHex(DefaultLineColor),
		HandleColor: mustHex(DefaultHandleColor),
		ActiveColor: mustHex(DefaultActiveColor),
		LabelColor:  mustHex(DefaultLabelColor),
		LineWidth:   2,
		HandleSize:  10,
		Labels:      true,
	}
}

// StyleFromHex builds a style from hex colour strings. Empty strings keep
// the defaults.
func StyleFromHex(line, handle, active string) (Style, error) {
	s := DefaultStyle()
	for _, c := range []struct {
		hex string
		dst *color.Color
	}{
		{line, &s.LineColor},
		{handle, &s.HandleColor},
		{active, &s.ActiveColor},
	} {
		if c.hex == "" {
			continue
		}
		col, err := ParseColor(c.hex)
		if err != nil {
			return s, err
		}
		*c.dst = col
	}
	return s, nil
}

// ParseColor parses "#rrggbb" or "rrggbb" into an opaque colour.
func ParseColor(hex string) (color.RGBA, error) {
	if len(hex) > 0 && hex[0] != '#' {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

func mustHex(hex string) color.RGBA {
	c, err := ParseColor(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// Render returns a copy of img with the corners drawn on it. active is the
// index of the highlighted corner, or -1. img is not modified.
func Render(img image.Image, corners geometry.CornerSet, active int, style Style) *image.RGBA {
	canvas := utils.CloneRGBA(img)
	if canvas.Bounds().Empty() {
		return canvas
	}

	utils.DrawPolygon(canvas, corners.Points(), style.LineColor, style.LineWidth)

	half := max(style.HandleSize, 1) / 2
	for i, p := range corners {
		col := style.HandleColor
		if i == active {
			col = style.ActiveColor
		}
		cx, cy := int(math.Round(p.X)), int(math.Round(p.Y))
		handle := image.Rect(cx-half, cy-half, cx+half+1, cy+half+1)
		utils.FillRect(canvas, handle, col)
		if style.Labels {
			drawLabel(canvas, strconv.Itoa(i+1), handle, style.LabelColor)
		}
	}
	return canvas
}

// drawLabel centers text in box using the 7x13 bitmap face.
func drawLabel(dst *image.RGBA, text string, box image.Rectangle, col color.Color) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	x := box.Min.X + (box.Dx()-w)/2
	y := box.Min.Y + (box.Dy()+ascent)/2
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
