package pdf

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/docscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []int
		wantErr  bool
	}{
		{"empty", "", nil, false},
		{"blank", "  ", nil, false},
		{"single page", "3", []int{3}, false},
		{"range", "1-4", []int{1, 2, 3, 4}, false},
		{"list", "1,3,5", []int{1, 3, 5}, false},
		{"mixed", "1-2, 5", []int{1, 2, 5}, false},
		{"spaces in range", " 2 - 3 ", []int{2, 3}, false},
		{"reversed range", "5-1", nil, true},
		{"bad token", "a", nil, true},
		{"bad start", "x-3", nil, true},
		{"bad end", "1-y", nil, true},
		{"too many dashes", "1-2-3", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageRange(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParsePageFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		stem     string
		want     int
		wantErr  bool
	}{
		{"scan_1_Im0.png", "scan", 1, false},
		{"scan_12.jpg", "scan", 12, false},
		{"scan_003_Im1.png", "scan", 3, false},
		{"my_scan_2_Im0.png", "my_scan", 2, false},
		{"other_1_Im0.png", "scan", 0, true},
		{"scan_x_Im0.png", "scan", 0, true},
		{"scan_0.png", "scan", 0, true},
		{"scan.png", "scan", 0, true},
	}
	for _, tt := range tests {
		got, err := parsePageFromFilename(tt.filename, tt.stem)
		if tt.wantErr {
			assert.Error(t, err, tt.filename)
			continue
		}
		require.NoError(t, err, tt.filename)
		assert.Equal(t, tt.want, got, tt.filename)
	}
}

func TestWriteImages_Errors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, WriteImages(filepath.Join(dir, "none.pdf")))
	assert.Error(t, WriteImages(filepath.Join(dir, "empty.pdf"), image.NewRGBA(image.Rectangle{})))
	assert.NoFileExists(t, filepath.Join(dir, "empty.pdf"))
}

func TestWriteImages_PageCount(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "scan.pdf")

	pages := []image.Image{testutil.PatternRGBA(64, 48), testutil.PatternRGBA(32, 80)}
	require.NoError(t, WriteImages(out, pages...))

	n, err := PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Writing again replaces rather than appends.
	require.NoError(t, WriteImages(out, pages[0]))
	n, err = PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// No staging directories are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExtractImages_Roundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PDF roundtrip in short mode")
	}
	out := filepath.Join(t.TempDir(), "roundtrip.pdf")
	require.NoError(t, WriteImages(out, testutil.PatternRGBA(64, 48)))

	images, err := ExtractImages(out, "")
	require.NoError(t, err)
	require.NotEmpty(t, images[1])
	assert.Equal(t, 64, images[1][0].Bounds().Dx())
	assert.Equal(t, 48, images[1][0].Bounds().Dy())

	img, err := PageImage(out, 1)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
}

func TestPageImage_Errors(t *testing.T) {
	_, err := PageImage("whatever.pdf", 0)
	assert.Error(t, err)

	_, err = ExtractImages("whatever.pdf", "z")
	assert.Error(t, err)

	_, err = PageCount(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
