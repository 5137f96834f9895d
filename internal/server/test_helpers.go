package server

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/docscan/internal/estimate"
	"github.com/MeKo-Tech/docscan/internal/ocr"
	"github.com/MeKo-Tech/docscan/internal/rectify"
	"github.com/stretchr/testify/require"
)

// mockRecognizer returns a fixed text for every image.
type mockRecognizer struct {
	text string
	err  error
	seen image.Rectangle
}

func (m *mockRecognizer) Recognize(_ context.Context, img image.Image, lang string) (ocr.Result, error) {
	m.seen = img.Bounds()
	if m.err != nil {
		return ocr.Result{}, m.err
	}
	if lang == "" {
		lang = ocr.DefaultLanguage
	}
	return ocr.Result{Text: m.text, Language: lang}, nil
}

func (m *mockRecognizer) Close() error { return nil }

// newTestServer builds a server with a fixed margin of 10 and rec as the
// OCR engine.
func newTestServer(t *testing.T, rec ocr.Recognizer) *Server {
	t.Helper()
	ec := estimate.DefaultConfig()
	ec.Margin = 10
	s, err := NewServer(Config{
		CORSOrigin:  "*",
		MaxUploadMB: 5,
		TimeoutSec:  5,
		Estimator:   ec,
		Rectify:     rectify.DefaultConfig(),
		Recognizer:  rec,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return s
}

// encodeImageToPNG encodes an image to PNG bytes.
func encodeImageToPNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// createMultipartFormRequest creates a POST to path carrying imageData as
// the "image" file plus extra form fields.
func createMultipartFormRequest(t *testing.T, path string, imageData []byte, extraFields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if imageData != nil {
		part, err := writer.CreateFormFile("image", "upload.png")
		require.NoError(t, err)
		_, err = part.Write(imageData)
		require.NoError(t, err)
	}
	for key, value := range extraFields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
