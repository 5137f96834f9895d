package support

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"github.com/MeKo-Tech/docscan/internal/overlay"
	"github.com/MeKo-Tech/docscan/internal/pdf"
	"github.com/MeKo-Tech/docscan/internal/testutil"
	"github.com/MeKo-Tech/docscan/internal/utils"
	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
)

// RegisterImageSteps registers the steps that create and inspect images.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a (\d+)x(\d+) photo "([^"]*)" of a "([^"]*)" page from (\d+),(\d+) to (\d+),(\d+) on "([^"]*)"$`, testCtx.aPhotoOfAPage)
	sc.Step(`^a (\d+)x(\d+) image "([^"]*)" filled with "([^"]*)"$`, testCtx.anImageFilledWith)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should not exist$`, testCtx.theFileShouldNotExist)
	sc.Step(`^the image "([^"]*)" should be (\d+)x(\d+)$`, testCtx.theImageShouldBe)
	sc.Step(`^the pixel at (\d+),(\d+) of "([^"]*)" should be "([^"]*)"$`, testCtx.thePixelShouldBe)
	sc.Step(`^the image "([^"]*)" should be grayscale$`, testCtx.theImageShouldBeGrayscale)
	sc.Step(`^the PDF "([^"]*)" should have (\d+) pages?$`, testCtx.thePDFShouldHavePages)
}

func (testCtx *TestContext) aPhotoOfAPage(w, h int, name, fg string, x0, y0, x1, y1 int, bg string) error {
	fgCol, err := overlay.ParseColor(fg)
	if err != nil {
		return err
	}
	bgCol, err := overlay.ParseColor(bg)
	if err != nil {
		return err
	}
	img := testutil.DocumentImage(w, h, image.Rect(x0, y0, x1, y1), bgCol, fgCol)
	return testCtx.save(img, name)
}

func (testCtx *TestContext) anImageFilledWith(w, h int, name, hex string) error {
	col, err := overlay.ParseColor(hex)
	if err != nil {
		return err
	}
	return testCtx.save(testutil.SolidRGBA(w, h, col), name)
}

func (testCtx *TestContext) save(img image.Image, name string) error {
	path := testCtx.Path(name)
	if err := testutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return imaging.Save(img, path)
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if !testutil.FileExists(testCtx.Path(name)) {
		return fmt.Errorf("file %s does not exist", name)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldNotExist(name string) error {
	if testutil.FileExists(testCtx.Path(name)) {
		return fmt.Errorf("file %s exists", name)
	}
	return nil
}

func (testCtx *TestContext) load(name string) (image.Image, error) {
	img, _, err := utils.LoadImage(testCtx.Path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	return img, nil
}

func (testCtx *TestContext) theImageShouldBe(name string, w, h int) error {
	img, err := testCtx.load(name)
	if err != nil {
		return err
	}
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		return fmt.Errorf("image %s is %dx%d, want %dx%d", name, b.Dx(), b.Dy(), w, h)
	}
	return nil
}

func (testCtx *TestContext) thePixelShouldBe(x, y int, name, hex string) error {
	want, err := overlay.ParseColor(hex)
	if err != nil {
		return err
	}
	img, err := testCtx.load(name)
	if err != nil {
		return err
	}
	b := img.Bounds()
	got := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
	if got != want {
		return fmt.Errorf("pixel %d,%d of %s is %v, want %v", x, y, name, got, want)
	}
	return nil
}

func (testCtx *TestContext) theImageShouldBeGrayscale(name string) error {
	img, err := testCtx.load(name)
	if err != nil {
		return err
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			if c.R != c.G || c.G != c.B {
				return fmt.Errorf("pixel %d,%d of %s is %v", x-b.Min.X, y-b.Min.Y, name, c)
			}
		}
	}
	return nil
}

func (testCtx *TestContext) thePDFShouldHavePages(name string, want int) error {
	n, err := pdf.PageCount(testCtx.Path(name))
	if err != nil {
		return err
	}
	if n != want {
		return fmt.Errorf("PDF %s has %d pages, want %d", name, n, want)
	}
	return nil
}
