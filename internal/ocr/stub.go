//go:build !tesseract

package ocr

import (
	"context"
	"image"
)

const backendAvailable = false

type stubRecognizer struct{}

func newBackend(Config) (Recognizer, error) { return stubRecognizer{}, nil }

func (stubRecognizer) Recognize(context.Context, image.Image, string) (Result, error) {
	return Result{}, ErrNotEnabled
}

func (stubRecognizer) Close() error { return nil }
