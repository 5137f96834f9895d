package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/docscan/internal/estimate"
	"github.com/MeKo-Tech/docscan/internal/export"
	"github.com/MeKo-Tech/docscan/internal/filter"
	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/ocr"
	"github.com/MeKo-Tech/docscan/internal/rectify"
	"github.com/MeKo-Tech/docscan/internal/scan"
	"github.com/MeKo-Tech/docscan/internal/utils"
	"github.com/MeKo-Tech/docscan/internal/version"
)

const (
	formatJSON = "json"
	formatPDF  = "pdf"
)

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		OCR:     ocr.Available(),
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// estimateHandler returns the initial corners for an uploaded image.
func (s *Server) estimateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	img, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	ec := s.estCfg
	if v := r.FormValue("strategy"); v != "" {
		ec.Strategy = v
	}
	est, err := estimate.New(ec)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	b := img.Bounds()
	s.writeJSON(w, http.StatusOK, CornersResponse{
		Corners:  est.Estimate(img),
		Width:    b.Dx(),
		Height:   b.Dy(),
		Strategy: est.Name(),
	})
}

// rectifyHandler flattens an uploaded image. Corners come from the form or
// the estimator; the page is returned as png, jpeg, pdf or a JSON summary.
func (s *Server) rectifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	img, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	format := strings.ToLower(r.FormValue("format"))
	switch format {
	case "":
		format = "png"
	case "png", "jpg", "jpeg", formatJSON, formatPDF:
	default:
		s.writeErrorResponse(w, fmt.Sprintf("unsupported format %q", format), http.StatusBadRequest)
		return
	}

	kind := filter.KindOriginal
	if v := r.FormValue("filter"); v != "" {
		k, err := filter.ParseKind(v)
		if err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		kind = k
	}

	corners, err := s.cornersFor(img, r.FormValue("corners"), r.FormValue("strategy"))
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	rect, err := s.rectifier(r.FormValue("method"))
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := rect.Apply(img, corners)
	if err != nil {
		code, status := rectifyStatus(err)
		rectificationsTotal.WithLabelValues(string(rect.Config().Method), status).Inc()
		s.writeErrorResponse(w, err.Error(), code)
		return
	}
	rectificationsTotal.WithLabelValues(string(res.Method), "success").Inc()
	rectifyDuration.Observe(res.Duration.Seconds())
	outputPixels.Observe(float64(res.Width * res.Height))

	page := res.Image
	if kind != filter.KindOriginal && !utils.IsEmpty(page) {
		if page, err = filter.Apply(page, kind); err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
			return
		}
		filterApplications.WithLabelValues(string(kind)).Inc()
	}

	switch format {
	case formatJSON:
		s.writeJSON(w, http.StatusOK, RectifyResponse{
			Corners:    corners,
			Width:      res.Width,
			Height:     res.Height,
			Method:     string(res.Method),
			Filter:     string(kind),
			DurationMs: res.Duration.Milliseconds(),
		})
	case formatPDF:
		s.writePDF(w, page)
	default:
		if utils.IsEmpty(page) {
			s.writeErrorResponse(w, "rectified page is empty", http.StatusUnprocessableEntity)
			return
		}
		var buf bytes.Buffer
		if err := export.Encode(&buf, page, format); err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", export.ContentType(format))
		_, _ = w.Write(buf.Bytes())
	}
}

// ocrHandler reads the text of an uploaded image, optionally rectified and
// filtered first.
func (s *Server) ocrHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	img, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	sess, err := s.newSession(r.FormValue("strategy"), r.FormValue("method"))
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := sess.Load(img); err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if isTrue(r.FormValue("rectify")) {
		if v := r.FormValue("corners"); v != "" {
			if err := setCorners(sess, v); err != nil {
				s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		if _, err := sess.Commit(); err != nil {
			code, _ := rectifyStatus(err)
			s.writeErrorResponse(w, err.Error(), code)
			return
		}
		if v := r.FormValue("filter"); v != "" {
			kind, err := filter.ParseKind(v)
			if err != nil || !sess.ApplyFilter(kind) {
				s.writeErrorResponse(w, fmt.Sprintf("cannot apply filter %q", v), http.StatusBadRequest)
				return
			}
			filterApplications.WithLabelValues(string(kind)).Inc()
		}
	}

	ctx := r.Context()
	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	res, err := sess.Recognize(ctx, s.recognizer, r.FormValue("lang"))
	switch {
	case errors.Is(err, ocr.ErrNotEnabled):
		ocrRequestsTotal.WithLabelValues("disabled").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusNotImplemented)
		return
	case errors.Is(err, scan.ErrEmptyRaster):
		ocrRequestsTotal.WithLabelValues("error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		ocrRequestsTotal.WithLabelValues("error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ocrRequestsTotal.WithLabelValues("success").Inc()
	s.writeJSON(w, http.StatusOK, OCRResponse{Success: true, Result: &res})
}

// readUpload parses the multipart form and decodes its "image" file. On
// failure the error response has been written.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (image.Image, bool) {
	limit := s.maxUploadMB * 1024 * 1024
	if limit <= 0 {
		limit = 50 * 1024 * 1024
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return nil, false
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return nil, false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return nil, false
	}
	img, _, err := utils.DecodeImageBytes(data)
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return nil, false
	}
	if utils.IsEmpty(img) {
		s.writeErrorResponse(w, "Empty image", http.StatusBadRequest)
		return nil, false
	}
	return img, true
}

// cornersFor parses explicit corners, or estimates them with strategy.
func (s *Server) cornersFor(img image.Image, corners, strategy string) (geometry.CornerSet, error) {
	if corners != "" {
		return geometry.ParseCorners(corners)
	}
	ec := s.estCfg
	if strategy != "" {
		ec.Strategy = strategy
	}
	est, err := estimate.New(ec)
	if err != nil {
		return geometry.CornerSet{}, err
	}
	return est.Estimate(img), nil
}

// rectifyStatus maps a rectification error to an HTTP code and the status
// label of docscan_rectifications_total.
func rectifyStatus(err error) (int, string) {
	switch {
	case errors.Is(err, rectify.ErrOutputTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, rectify.ErrNonFiniteCorners):
		return http.StatusBadRequest, "invalid"
	case errors.Is(err, rectify.ErrDegenerateQuad):
		return http.StatusUnprocessableEntity, "degenerate"
	default:
		return http.StatusInternalServerError, "error"
	}
}

func setCorners(sess *scan.Session, s string) error {
	c, err := geometry.ParseCorners(s)
	if err != nil {
		return err
	}
	return sess.SetCorners(c)
}

// writePDF streams page as a single-page PDF.
func (s *Server) writePDF(w http.ResponseWriter, page image.Image) {
	dir, err := os.MkdirTemp("", "docscan-export-*")
	if err != nil {
		s.writeErrorResponse(w, "failed to create temp directory", http.StatusInternalServerError)
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	out := filepath.Join(dir, "scan.pdf")
	if err := export.Save(page, out); err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	data, err := os.ReadFile(out) //nolint:gosec // G304: path built from our own temp dir
	if err != nil {
		s.writeErrorResponse(w, "failed to read PDF", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="scan.pdf"`)
	_, _ = w.Write(data)
}

func isTrue(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log().Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message})
}
