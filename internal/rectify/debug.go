package rectify

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/utils"
)

var (
	quadColor = color.RGBA{255, 0, 0, 255}
	rectColor = color.RGBA{0, 255, 0, 255}
)

// dumpOverlayPNG writes src with quad outlined. quad is in src's own
// coordinate space, including any bounds offset.
func dumpOverlayPNG(dir string, src image.Image, quad geometry.CornerSet) error {
	b := src.Bounds()
	canvas := image.NewRGBA(b)
	draw.Draw(canvas, b, src, b.Min, draw.Src)
	utils.DrawPolygon(canvas, quad.Points(), quadColor, 2)
	return writeDebugPNG(dir, "rect_overlay", canvas)
}

// dumpComparePNG writes the source with its quad on the left and the
// rectified output on the right, separated by a gap. quad is relative to
// the source origin.
func dumpComparePNG(dir string, src image.Image, quad geometry.CornerSet, dst image.Image) error {
	sb := src.Bounds()
	db := dst.Bounds()
	gap := 10
	outW := sb.Dx() + gap + db.Dx()
	outH := max(sb.Dy(), db.Dy())
	canvas := image.NewRGBA(image.Rect(0, 0, outW, outH))

	draw.Draw(canvas, image.Rect(0, 0, sb.Dx(), sb.Dy()), src, sb.Min, draw.Src)
	xoff := sb.Dx() + gap
	draw.Draw(canvas, image.Rect(xoff, 0, xoff+db.Dx(), db.Dy()), dst, db.Min, draw.Src)

	utils.DrawPolygon(canvas, quad.Points(), quadColor, 2)
	if !db.Empty() {
		utils.DrawRect(canvas, image.Rect(xoff, 0, xoff+db.Dx(), db.Dy()), rectColor, 2)
	}
	return writeDebugPNG(dir, "rect_compare", canvas)
}

func writeDebugPNG(dir, prefix string, img image.Image) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", prefix, time.Now().UnixNano()))
	f, err := os.Create(path) //nolint:gosec // G304: path is constructed from timestamp in debug directory
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return png.Encode(f, img)
}
