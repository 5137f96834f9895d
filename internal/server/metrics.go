package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Rectification metrics
	rectificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docscan_rectifications_total",
			Help: "Total number of rectifications",
		},
		[]string{"method", "status"}, // status: success, degenerate, too_large, invalid, error
	)

	rectifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docscan_rectify_duration_seconds",
			Help:    "Time spent resampling one quad",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	outputPixels = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docscan_output_pixels",
			Help:    "Pixel count of rectified pages",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	filterApplications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docscan_filter_applications_total",
			Help: "Total number of filter applications",
		},
		[]string{"kind"},
	)

	// OCR metrics
	ocrRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docscan_ocr_requests_total",
			Help: "Total number of OCR requests",
		},
		[]string{"status"}, // status: success, error, disabled
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docscan_rate_limit_hits_total",
			Help: "Total number of rejected requests",
		},
		[]string{"window"},
	)

	// WebSocket metrics
	websocketSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docscan_websocket_active_sessions",
			Help: "Number of open editing sessions",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docscan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
