// Package server exposes the scanner over HTTP: one-shot endpoints for
// estimation, rectification and text recognition, plus a WebSocket session
// that drives the interactive corner editor.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/docscan/internal/estimate"
	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/ocr"
	"github.com/MeKo-Tech/docscan/internal/overlay"
	"github.com/MeKo-Tech/docscan/internal/rectify"
	"github.com/MeKo-Tech/docscan/internal/scan"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	estCfg      estimate.Config
	rectCfg     rectify.Config
	mouseRadius float64
	touchRadius float64
	recognizer  ocr.Recognizer
	style       overlay.Style

	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	sessionTTL  time.Duration
	limiter     *RateLimiter
	logger      *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	SessionTTL  time.Duration

	Estimator   estimate.Config
	Rectify     rectify.Config
	MouseRadius float64
	TouchRadius float64
	OCR         ocr.Config
	Style       overlay.Style
	RateLimit   Limits

	// Recognizer overrides the engine built from OCR.
	Recognizer ocr.Recognizer
	Logger     *slog.Logger
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	OCR     bool   `json:"ocr"`
	Time    string `json:"time"`
}

// CornersResponse is returned by /estimate.
type CornersResponse struct {
	Corners  geometry.CornerSet `json:"corners"`
	Width    int                `json:"width"`
	Height   int                `json:"height"`
	Strategy string             `json:"strategy"`
}

// RectifyResponse is the JSON form of a /rectify result.
type RectifyResponse struct {
	Corners    geometry.CornerSet `json:"corners"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Method     string             `json:"method"`
	Filter     string             `json:"filter"`
	DurationMs int64              `json:"duration_ms"`
}

// OCRResponse is returned by /ocr.
type OCRResponse struct {
	Success bool        `json:"success"`
	Result  *ocr.Result `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewServer validates cfg and builds the server's collaborators.
func NewServer(cfg Config) (*Server, error) {
	if _, err := estimate.New(cfg.Estimator); err != nil {
		return nil, err
	}
	rc := cfg.Rectify
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	rec := cfg.Recognizer
	if rec == nil {
		var err error
		if rec, err = ocr.New(cfg.OCR); err != nil {
			return nil, fmt.Errorf("failed to create recognizer: %w", err)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	style := cfg.Style
	if style.LineColor == nil {
		style = overlay.DefaultStyle()
	}
	maxUpload := cfg.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 50
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	s := &Server{
		estCfg:      cfg.Estimator,
		rectCfg:     rc,
		mouseRadius: cfg.MouseRadius,
		touchRadius: cfg.TouchRadius,
		recognizer:  rec,
		style:       style,
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: maxUpload,
		timeoutSec:  cfg.TimeoutSec,
		sessionTTL:  ttl,
		logger:      logger,
	}
	if cfg.RateLimit.Enabled() {
		s.limiter = NewRateLimiter(cfg.RateLimit)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.recognizer != nil {
		return s.recognizer.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/estimate", s.corsMiddleware(s.rateLimitMiddleware(s.estimateHandler)))
	mux.HandleFunc("/rectify", s.corsMiddleware(s.rateLimitMiddleware(s.rectifyHandler)))
	mux.HandleFunc("/ocr", s.corsMiddleware(s.rateLimitMiddleware(s.ocrHandler)))
	mux.HandleFunc("/ws/session", s.corsMiddleware(s.sessionWebSocketHandler))
}

// newSession creates a scan session with the server's settings. strategy
// and method override the configured ones when non-empty.
func (s *Server) newSession(strategy, method string) (*scan.Session, error) {
	ec := s.estCfg
	if strategy != "" {
		ec.Strategy = strategy
	}
	est, err := estimate.New(ec)
	if err != nil {
		return nil, err
	}
	rect, err := s.rectifier(method)
	if err != nil {
		return nil, err
	}
	return scan.New(scan.Options{
		Estimator:   est,
		Rectifier:   rect,
		Logger:      s.logger,
		MouseRadius: s.mouseRadius,
		TouchRadius: s.touchRadius,
	})
}

func (s *Server) rectifier(method string) (*rectify.Rectifier, error) {
	rc := s.rectCfg
	if method != "" {
		rc.Method = rectify.Method(method)
	}
	r, err := rectify.New(rc)
	if err != nil {
		return nil, err
	}
	return r.WithLogger(s.logger), nil
}
