package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(called *int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		*called++
		w.WriteHeader(http.StatusOK)
	}
}

func TestServer_CORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		origin     string
		method     string
		wantStatus int
		wantCalls  int
	}{
		{"GET passes through", "*", http.MethodGet, http.StatusOK, 1},
		{"POST with explicit origin", "https://scan.example.com", http.MethodPost, http.StatusOK, 1},
		{"preflight stops early", "*", http.MethodOptions, http.StatusOK, 0},
		{"empty origin", "", http.MethodGet, http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{corsOrigin: tt.origin}
			calls := 0
			w := httptest.NewRecorder()
			s.corsMiddleware(okHandler(&calls))(w, httptest.NewRequest(tt.method, "/estimate", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
			assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
		})
	}
}

func TestServer_CORSMiddleware_KeepsHandlerStatus(t *testing.T) {
	s := &Server{corsOrigin: "*"}
	w := httptest.NewRecorder()
	s.corsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})(w, httptest.NewRequest(http.MethodPost, "/rectify", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RateLimitMiddleware(t *testing.T) {
	s := &Server{limiter: NewRateLimiter(Limits{PerMinute: 2})}
	base := time.Date(2024, 5, 1, 12, 0, 10, 0, time.UTC)
	s.limiter.now = func() time.Time { return base }

	calls := 0
	h := s.rateLimitMiddleware(okHandler(&calls))
	req := func(ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/rectify", nil)
		r.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		h(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, req("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, req("10.0.0.1").Code)

	w := req("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "minute", w.Header().Get("X-RateLimit-Window"))
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "50", w.Header().Get("Retry-After"))
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "rate limit exceeded for minute")

	// Other clients have their own budget.
	assert.Equal(t, http.StatusOK, req("10.0.0.2").Code)
	assert.Equal(t, 3, calls)
}

func TestServer_RateLimitMiddleware_Disabled(t *testing.T) {
	s := &Server{}
	calls := 0
	h := s.rateLimitMiddleware(okHandler(&calls))
	for range 5 {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/ocr", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 5, calls)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.7:1234", "192.0.2.7"},
		{"remote without port", nil, "192.0.2.7", "192.0.2.7"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.1:80", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.3 "}, "10.0.0.1:80", "198.51.100.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}

func BenchmarkServer_CORSMiddleware(b *testing.B) {
	s := &Server{corsOrigin: "*"}
	calls := 0
	h := s.corsMiddleware(okHandler(&calls))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	b.ResetTimer()
	for range b.N {
		h(httptest.NewRecorder(), req)
	}
}
