//go:build !tesseract

package ocr

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubRecognizer(t *testing.T) {
	assert.False(t, Available())

	rec, err := New(DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = rec.Close() }()

	_, err = rec.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)), "")
	assert.ErrorIs(t, err, ErrNotEnabled)
}
