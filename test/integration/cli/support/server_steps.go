package support

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/docscan/internal/config"
	"github.com/MeKo-Tech/docscan/internal/server"
	"github.com/cucumber/godog"
)

// RegisterServerSteps registers the steps that drive the HTTP API through
// an in-process test server.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the scanning API is running with a margin of (\d+)$`, testCtx.theScanningAPIIsRunningWithMargin)
	sc.Step(`^the scanning API is running with a limit of (\d+) requests? per minute$`, testCtx.theScanningAPIIsRunningWithLimit)
	sc.Step(`^I request "([^"]*)"$`, testCtx.iRequest)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUpload)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)" with "([^"]*)"$`, testCtx.iUploadWith)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response JSON field "([^"]*)" should be (-?\d+(?:\.\d+)?)$`, testCtx.theResponseJSONFieldShouldBeNumber)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBeString)
	sc.Step(`^I save the response as "([^"]*)"$`, testCtx.iSaveTheResponseAs)
}

func (testCtx *TestContext) startServer(mutate func(*config.Config)) error {
	if testCtx.Server != nil {
		return fmt.Errorf("server already running at %s", testCtx.Server.URL)
	}
	cfg := config.DefaultConfig()
	mutate(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	s, err := server.NewServer(server.Config{
		CORSOrigin:  cfg.Server.CORSOrigin,
		MaxUploadMB: int64(cfg.Server.MaxUploadMB),
		TimeoutSec:  cfg.Server.TimeoutSec,
		Estimator:   cfg.ToEstimatorConfig(),
		Rectify:     cfg.ToRectifyConfig(),
		OCR:         cfg.ToOCRConfig(),
		RateLimit: server.Limits{
			PerMinute:   cfg.Server.RateLimit.PerMinute,
			PerHour:     cfg.Server.RateLimit.PerHour,
			PerDay:      cfg.Server.RateLimit.PerDay,
			BytesPerDay: cfg.Server.RateLimit.BytesPerDay,
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	testCtx.Server = httptest.NewServer(mux)
	return nil
}

func (testCtx *TestContext) theScanningAPIIsRunningWithMargin(margin int) error {
	return testCtx.startServer(func(c *config.Config) {
		c.Estimator.Margin = float64(margin)
	})
}

func (testCtx *TestContext) theScanningAPIIsRunningWithLimit(perMinute int) error {
	return testCtx.startServer(func(c *config.Config) {
		c.Server.RateLimit.PerMinute = perMinute
	})
}

func (testCtx *TestContext) client() (*http.Client, error) {
	if testCtx.Server == nil {
		return nil, fmt.Errorf("scanning API is not running")
	}
	return &http.Client{Timeout: 30 * time.Second}, nil
}

func (testCtx *TestContext) record(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = body
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iRequest(path string) error {
	c, err := testCtx.client()
	if err != nil {
		return err
	}
	resp, err := c.Get(testCtx.Server.URL + path)
	if err != nil {
		return err
	}
	return testCtx.record(resp)
}

func (testCtx *TestContext) iUpload(name, path string) error {
	return testCtx.iUploadWith(name, path, "")
}

// parseFields splits "k=v&k=v". Values are taken literally; corner lists
// contain semicolons, which url.ParseQuery refuses.
func parseFields(fields string) ([][2]string, error) {
	var out [][2]string
	for _, pair := range strings.Split(fields, "&") {
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid form field %q", pair)
		}
		out = append(out, [2]string{k, v})
	}
	return out, nil
}

// iUploadWith posts name as the "image" part of a multipart form. fields
// is "k=v&k=v", e.g. "format=json&method=homography".
func (testCtx *TestContext) iUploadWith(name, path, fields string) error {
	c, err := testCtx.client()
	if err != nil {
		return err
	}
	values, err := parseFields(fields)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	for _, kv := range values {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	resp, err := c.Post(testCtx.Server.URL+path, w.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	return testCtx.record(resp)
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("status is %d, want %d: %s", testCtx.LastHTTPStatusCode, status, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(key, want string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(key)]; got != want {
		return fmt.Errorf("header %s is %q, want %q", key, got, want)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBeNumber(path string, want float64) error {
	v, err := jsonField(testCtx.LastHTTPResponse, path)
	if err != nil {
		return err
	}
	return expectNumber(path, v, want)
}

func (testCtx *TestContext) theResponseJSONFieldShouldBeString(path, want string) error {
	v, err := jsonField(testCtx.LastHTTPResponse, path)
	if err != nil {
		return err
	}
	return expectString(path, v, want)
}

func (testCtx *TestContext) iSaveTheResponseAs(name string) error {
	return os.WriteFile(testCtx.Path(name), testCtx.LastHTTPResponse, 0o600)
}
