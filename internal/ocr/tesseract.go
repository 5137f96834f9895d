//go:build tesseract

package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"
)

const backendAvailable = true

// tesseractRecognizer serializes calls on one gosseract client.
type tesseractRecognizer struct {
	mu     sync.Mutex
	client *gosseract.Client
	cfg    Config
}

func newBackend(cfg Config) (Recognizer, error) {
	client := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	return &tesseractRecognizer{client: client, cfg: cfg}, nil
}

func (t *tesseractRecognizer) Recognize(ctx context.Context, img image.Image, lang string) (Result, error) {
	if img == nil {
		return Result{}, errors.New("nil image")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if lang == "" {
		lang = t.cfg.Language
	}
	langs, err := Languages(lang)
	if err != nil {
		return Result{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{}, fmt.Errorf("encode image for OCR: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()
	if err := t.client.SetLanguage(langs...); err != nil {
		return Result{}, fmt.Errorf("set OCR language: %w", err)
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return Result{}, fmt.Errorf("set OCR image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return Result{}, fmt.Errorf("OCR failed: %w", err)
	}

	// Word boxes are best effort; the text alone is a valid result.
	var words []Word
	if boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		words = make([]Word, 0, len(boxes))
		for _, box := range boxes {
			if box.Word == "" {
				continue
			}
			words = append(words, Word{
				Text:       box.Word,
				Confidence: float64(box.Confidence) / 100.0,
				Bounds: Bounds{
					X1: box.Box.Min.X,
					Y1: box.Box.Min.Y,
					X2: box.Box.Max.X,
					Y2: box.Box.Max.Y,
				},
			})
		}
	}

	return Result{
		Text:     text,
		Words:    words,
		Language: strings.Join(langs, "+"),
		Duration: time.Since(start),
	}, nil
}

func (t *tesseractRecognizer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
