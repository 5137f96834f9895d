// Package pdf moves rasters in and out of PDF documents with pdfcpu: scanned
// pages are written as one image per page, and embedded page images can be
// pulled back out as scanner input.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/docscan/internal/utils"
	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrNoImages is returned when a document carries no extractable image.
var ErrNoImages = errors.New("no images found in PDF")

// WriteImages writes imgs to outFile, one page per image, replacing any
// existing file. The page count of the result is verified.
func WriteImages(outFile string, imgs ...image.Image) error {
	if len(imgs) == 0 {
		return errors.New("no images to write")
	}

	// Stage next to the target so the final rename stays on one filesystem.
	stage, err := os.MkdirTemp(filepath.Dir(outFile), ".docscan-pdf-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(stage) }()

	files := make([]string, len(imgs))
	for i, img := range imgs {
		if utils.IsEmpty(img) {
			return fmt.Errorf("page %d: empty image", i+1)
		}
		files[i] = filepath.Join(stage, fmt.Sprintf("page_%03d.png", i+1))
		if err := imaging.Save(img, files[i]); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
	}

	staged := filepath.Join(stage, "out.pdf")
	if err := api.ImportImagesFile(files, staged, nil, nil); err != nil {
		return fmt.Errorf("failed to build PDF: %w", err)
	}
	n, err := PageCount(staged)
	if err != nil {
		return err
	}
	if n != len(imgs) {
		return fmt.Errorf("PDF has %d pages, want %d", n, len(imgs))
	}
	return os.Rename(staged, outFile)
}

// PageCount returns the number of pages in a PDF file.
func PageCount(filename string) (int, error) {
	n, err := api.PageCountFile(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to count PDF pages: %w", err)
	}
	return n, nil
}

// ExtractImages extracts the images of the selected pages, grouped by page
// number. An empty pageRange selects every page.
func ExtractImages(filename string, pageRange string) (map[int][]image.Image, error) {
	pageNumbers, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	tempDir, err := os.MkdirTemp("", "pdf-extract-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var pageStrings []string
	if len(pageNumbers) > 0 {
		pageStrings = make([]string, len(pageNumbers))
		for i, pageNum := range pageNumbers {
			pageStrings[i] = strconv.Itoa(pageNum)
		}
	}

	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	result, err := collectExtractedImages(tempDir, stem)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	return result, nil
}

// PageImage returns the first image on the given 1-based page.
func PageImage(filename string, page int) (image.Image, error) {
	if page < 1 {
		return nil, fmt.Errorf("invalid page number: %d", page)
	}
	images, err := ExtractImages(filename, strconv.Itoa(page))
	if err != nil {
		return nil, err
	}
	if len(images[page]) == 0 {
		return nil, fmt.Errorf("page %d: %w", page, ErrNoImages)
	}
	return images[page][0], nil
}

// collectExtractedImages groups the files in dir by page number. pdfcpu
// names them <stem>_<page>[_<id>].<ext>; anything else is skipped.
func collectExtractedImages(dir, stem string) (map[int][]image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	result := make(map[int][]image.Image)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		pageNum, err := parsePageFromFilename(e.Name(), stem)
		if err != nil {
			continue
		}
		img, _, err := utils.LoadImage(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		result[pageNum] = append(result[pageNum], img)
	}
	return result, nil
}

// parsePageFromFilename extracts the page number from an extracted file name.
func parsePageFromFilename(filename, stem string) (int, error) {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	if !strings.HasPrefix(name, stem+"_") {
		return 0, errors.New("not a page file")
	}
	rest := strings.TrimPrefix(name, stem+"_")
	pageToken, _, _ := strings.Cut(rest, "_")
	pageNum, err := strconv.Atoi(pageToken)
	if err != nil || pageNum < 1 {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}
