package batch

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/MeKo-Tech/docscan/internal/estimate"
	"github.com/MeKo-Tech/docscan/internal/export"
	"github.com/MeKo-Tech/docscan/internal/filter"
	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/rectify"
)

// Config holds all configuration for a batch run.
type Config struct {
	Estimator estimate.Config
	Rectify   rectify.Config
	Filter    filter.Kind

	// OutputDir receives one page per input, named <stem>_scan.<Format>.
	// Empty writes next to each input.
	OutputDir string
	// Format is the page image format: png or jpg.
	Format string
	// PDF, when set, also collects every page in input order into one
	// document.
	PDF string
	// PDFOnly skips the per-page files when PDF is set.
	PDFOnly bool

	Workers int

	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// ContinueOnError keeps going past failed inputs. Otherwise the first
	// failure cancels the remaining work.
	ContinueOnError bool

	Progress Progress
	Logger   *slog.Logger
}

// DefaultConfig returns PNG pages, one worker per CPU and the package
// defaults for estimation and rectification.
func DefaultConfig() Config {
	return Config{
		Estimator: estimate.DefaultConfig(),
		Rectify:   rectify.DefaultConfig(),
		Filter:    filter.KindOriginal,
		Format:    "png",
		Workers:   runtime.NumCPU(),
	}
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Format == "" {
		c.Format = "png"
	}
	if c.Format == "jpeg" {
		c.Format = "jpg"
	}
	if c.Format != "png" && c.Format != "jpg" {
		return fmt.Errorf("unsupported page format %q (want png or jpg)", c.Format)
	}
	if c.Filter == "" {
		c.Filter = filter.KindOriginal
	}
	kind, err := filter.ParseKind(string(c.Filter))
	if err != nil {
		return err
	}
	c.Filter = kind
	if c.PDF != "" && export.FormatFromPath(c.PDF) != "pdf" {
		return errors.New("PDF output must end in .pdf")
	}
	if c.PDFOnly && c.PDF == "" {
		return errors.New("PDF-only output needs a PDF path")
	}
	if err := c.Rectify.Validate(); err != nil {
		return err
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Progress == nil {
		c.Progress = NoOpProgress{}
	}
	return nil
}

// Item is the outcome for one input file.
type Item struct {
	Input    string             `json:"input"`
	Output   string             `json:"output,omitempty"`
	Corners  geometry.CornerSet `json:"corners"`
	Width    int                `json:"width"`
	Height   int                `json:"height"`
	Duration time.Duration      `json:"duration_ns"`
	Err      error              `json:"-"`
}

// Failed reports whether the input could not be scanned.
func (it Item) Failed() bool { return it.Err != nil }

// Result holds the outcome of a batch run.
type Result struct {
	Items       []Item
	PDF         string
	Duration    time.Duration
	WorkerCount int
}

// Stats summarizes a batch run.
type Stats struct {
	Total            int
	Processed        int
	Failed           int
	Workers          int
	Duration         time.Duration
	AveragePerImage  time.Duration
	ThroughputPerSec float64
}
