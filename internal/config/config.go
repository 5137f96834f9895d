package config

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/MeKo-Tech/docscan/internal/batch"
	"github.com/MeKo-Tech/docscan/internal/camera"
	"github.com/MeKo-Tech/docscan/internal/editor"
	"github.com/MeKo-Tech/docscan/internal/estimate"
	"github.com/MeKo-Tech/docscan/internal/filter"
	"github.com/MeKo-Tech/docscan/internal/ocr"
	"github.com/MeKo-Tech/docscan/internal/overlay"
	"github.com/MeKo-Tech/docscan/internal/rectify"
)

// Config represents the complete configuration for docscan. It is loaded
// from a config file, environment variables and command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Estimator EstimatorConfig `mapstructure:"estimator" yaml:"estimator" json:"estimator"`
	Editor    EditorConfig    `mapstructure:"editor" yaml:"editor" json:"editor"`
	Rectify   RectifyConfig   `mapstructure:"rectify" yaml:"rectify" json:"rectify"`
	Filter    FilterConfig    `mapstructure:"filter" yaml:"filter" json:"filter"`
	OCR       OCRConfig       `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Camera    CameraConfig    `mapstructure:"camera" yaml:"camera" json:"camera"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output" json:"output"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server" json:"server"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// EstimatorConfig selects the initial corner guess.
type EstimatorConfig struct {
	Strategy      string  `mapstructure:"strategy" yaml:"strategy" json:"strategy"`
	Margin        float64 `mapstructure:"margin" yaml:"margin" json:"margin"`
	EdgeMargin    float64 `mapstructure:"edge_margin" yaml:"edge_margin" json:"edge_margin"`
	EdgeThreshold int     `mapstructure:"edge_threshold" yaml:"edge_threshold" json:"edge_threshold"`
	BlurRadius    float64 `mapstructure:"blur_radius" yaml:"blur_radius" json:"blur_radius"`
}

// EditorConfig holds the corner hit radii in raster pixels.
type EditorConfig struct {
	MouseRadius float64 `mapstructure:"mouse_radius" yaml:"mouse_radius" json:"mouse_radius"`
	TouchRadius float64 `mapstructure:"touch_radius" yaml:"touch_radius" json:"touch_radius"`
}

// RectifyConfig tunes the rectification engine.
type RectifyConfig struct {
	Method     string `mapstructure:"method" yaml:"method" json:"method"`
	Degenerate string `mapstructure:"degenerate" yaml:"degenerate" json:"degenerate"`
	MinSide    int    `mapstructure:"min_side" yaml:"min_side" json:"min_side"`
	MaxPixels  int64  `mapstructure:"max_pixels" yaml:"max_pixels" json:"max_pixels"`
	DebugDir   string `mapstructure:"debug_dir" yaml:"debug_dir" json:"debug_dir"`
}

// FilterConfig holds the filter applied after rectification.
type FilterConfig struct {
	Default string `mapstructure:"default" yaml:"default" json:"default"`
}

// OCRConfig holds text recognition settings.
type OCRConfig struct {
	Language       string `mapstructure:"language" yaml:"language" json:"language"`
	TessdataPrefix string `mapstructure:"tessdata_prefix" yaml:"tessdata_prefix" json:"tessdata_prefix"`
}

// CameraConfig describes the frame sources. Devices are image or PDF files.
type CameraConfig struct {
	Width          int    `mapstructure:"width" yaml:"width" json:"width"`
	Height         int    `mapstructure:"height" yaml:"height" json:"height"`
	Device         string `mapstructure:"device" yaml:"device" json:"device"`
	FallbackDevice string `mapstructure:"fallback_device" yaml:"fallback_device" json:"fallback_device"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format       string `mapstructure:"format" yaml:"format" json:"format"`
	OverlayColor string `mapstructure:"overlay_color" yaml:"overlay_color" json:"overlay_color"`
	HandleColor  string `mapstructure:"handle_color" yaml:"handle_color" json:"handle_color"`
	ActiveColor  string `mapstructure:"active_color" yaml:"active_color" json:"active_color"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	SessionTTLSec   int    `mapstructure:"session_ttl_sec" yaml:"session_ttl_sec" json:"session_ttl_sec"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig caps requests per client. Zero disables a limit.
type RateLimitConfig struct {
	PerMinute   int   `mapstructure:"per_minute" yaml:"per_minute" json:"per_minute"`
	PerHour     int   `mapstructure:"per_hour" yaml:"per_hour" json:"per_hour"`
	PerDay      int   `mapstructure:"per_day" yaml:"per_day" json:"per_day"`
	BytesPerDay int64 `mapstructure:"bytes_per_day" yaml:"bytes_per_day" json:"bytes_per_day"`
}

// BatchConfig controls multi-file scanning.
type BatchConfig struct {
	Workers         int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	PageFormat      string `mapstructure:"page_format" yaml:"page_format" json:"page_format"`
	Recursive       bool   `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	est := estimate.DefaultConfig()
	rc := rectify.DefaultConfig()
	return Config{
		LogLevel: "info",
		Estimator: EstimatorConfig{
			Strategy:      est.Strategy,
			Margin:        est.Margin,
			EdgeMargin:    est.EdgeMargin,
			EdgeThreshold: int(est.EdgeThreshold),
			BlurRadius:    est.BlurRadius,
		},
		Editor: EditorConfig{
			MouseRadius: editor.DefaultMouseRadius,
			TouchRadius: editor.DefaultTouchRadius,
		},
		Rectify: RectifyConfig{
			Method:     string(rc.Method),
			Degenerate: string(rc.Degenerate),
			MinSide:    rc.MinSide,
			MaxPixels:  rc.MaxPixels,
		},
		Filter: FilterConfig{Default: string(filter.KindOriginal)},
		OCR:    OCRConfig{Language: ocr.DefaultLanguage},
		Camera: CameraConfig{
			Width:  camera.DefaultWidth,
			Height: camera.DefaultHeight,
		},
		Output: OutputConfig{
			Format:       "text",
			OverlayColor: overlay.DefaultLineColor,
			HandleColor:  overlay.DefaultHandleColor,
			ActiveColor:  overlay.DefaultActiveColor,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			SessionTTLSec:   600,
		},
		Batch: BatchConfig{
			Workers:    runtime.NumCPU(),
			PageFormat: "png",
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "yaml"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if _, err := estimate.New(c.ToEstimatorConfig()); err != nil {
		return err
	}
	if c.Estimator.Margin < 0 || c.Estimator.EdgeMargin < 0 {
		return fmt.Errorf("invalid estimator margin: %.1f/%.1f (must not be negative)", c.Estimator.Margin, c.Estimator.EdgeMargin)
	}
	if c.Estimator.EdgeThreshold < 0 || c.Estimator.EdgeThreshold > 255 {
		return fmt.Errorf("invalid estimator.edge_threshold: %d (must be between 0 and 255)", c.Estimator.EdgeThreshold)
	}
	if c.Estimator.BlurRadius < 0 {
		return fmt.Errorf("invalid estimator.blur_radius: %.2f (must not be negative)", c.Estimator.BlurRadius)
	}

	if c.Editor.MouseRadius <= 0 || c.Editor.TouchRadius <= 0 {
		return fmt.Errorf("invalid hit radius: mouse %.1f, touch %.1f (must be positive)", c.Editor.MouseRadius, c.Editor.TouchRadius)
	}

	rc := c.ToRectifyConfig()
	if err := rc.Validate(); err != nil {
		return fmt.Errorf("invalid rectify settings: %w", err)
	}

	if c.Filter.Default != "" {
		if _, err := filter.ParseKind(c.Filter.Default); err != nil {
			return err
		}
	}
	if _, err := ocr.NormalizeLanguage(c.OCR.Language); err != nil {
		return err
	}

	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		return fmt.Errorf("invalid camera size: %dx%d (must not be negative)", c.Camera.Width, c.Camera.Height)
	}

	if _, err := c.ToOverlayStyle(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.SessionTTLSec <= 0 {
		return fmt.Errorf("invalid session ttl: %d (must be positive)", c.Server.SessionTTLSec)
	}
	rl := c.Server.RateLimit
	if rl.PerMinute < 0 || rl.PerHour < 0 || rl.PerDay < 0 || rl.BytesPerDay < 0 {
		return errors.New("invalid rate limit: limits must not be negative")
	}

	if c.Batch.Workers < 0 {
		return fmt.Errorf("invalid batch workers: %d (must not be negative)", c.Batch.Workers)
	}
	validPageFormats := []string{"png", "jpg", "jpeg"}
	if c.Batch.PageFormat != "" && !slices.Contains(validPageFormats, c.Batch.PageFormat) {
		return fmt.Errorf("invalid batch page format: %s (must be one of: %s)", c.Batch.PageFormat, strings.Join(validPageFormats, ", "))
	}
	return nil
}

// ToBatchConfig converts to batch.Config. Output locations are left to the
// caller.
func (c *Config) ToBatchConfig() batch.Config {
	bc := batch.DefaultConfig()
	bc.Estimator = c.ToEstimatorConfig()
	bc.Rectify = c.ToRectifyConfig()
	bc.Filter = filter.Kind(c.Filter.Default)
	bc.Format = c.Batch.PageFormat
	bc.Workers = c.Batch.Workers
	bc.Recursive = c.Batch.Recursive
	bc.ContinueOnError = c.Batch.ContinueOnError
	return bc
}

// ToEstimatorConfig converts to estimate.Config.
func (c *Config) ToEstimatorConfig() estimate.Config {
	return estimate.Config{
		Strategy:      c.Estimator.Strategy,
		Margin:        c.Estimator.Margin,
		EdgeMargin:    c.Estimator.EdgeMargin,
		EdgeThreshold: uint8(min(max(c.Estimator.EdgeThreshold, 0), 255)), //nolint:gosec // clamped
		BlurRadius:    c.Estimator.BlurRadius,
	}
}

// ToRectifyConfig converts to rectify.Config. Unknown enumerations are left
// as given so that rectify.Config.Validate reports them.
func (c *Config) ToRectifyConfig() rectify.Config {
	return rectify.Config{
		Method:     rectify.Method(c.Rectify.Method),
		Degenerate: rectify.DegeneratePolicy(c.Rectify.Degenerate),
		MinSide:    c.Rectify.MinSide,
		MaxPixels:  c.Rectify.MaxPixels,
		DebugDir:   c.Rectify.DebugDir,
	}
}

// ToEditorOptions returns the editor options for the configured radii.
func (c *Config) ToEditorOptions() []editor.Option {
	return []editor.Option{
		editor.WithMouseRadius(c.Editor.MouseRadius),
		editor.WithTouchRadius(c.Editor.TouchRadius),
	}
}

// ToOCRConfig converts to ocr.Config.
func (c *Config) ToOCRConfig() ocr.Config {
	return ocr.Config{Language: c.OCR.Language, TessdataPrefix: c.OCR.TessdataPrefix}
}

// ToOverlayStyle builds the overlay style from the output colours.
func (c *Config) ToOverlayStyle() (overlay.Style, error) {
	return overlay.StyleFromHex(c.Output.OverlayColor, c.Output.HandleColor, c.Output.ActiveColor)
}

// ToCameraSource returns the configured device, with the fallback device
// behind it when one is set. Nil means no device is configured.
func (c *Config) ToCameraSource() camera.Source {
	open := func(path string) camera.Source {
		if path == "" {
			return nil
		}
		return &camera.FileSource{Path: path, Width: c.Camera.Width, Height: c.Camera.Height}
	}
	primary, secondary := open(c.Camera.Device), open(c.Camera.FallbackDevice)
	switch {
	case primary == nil && secondary == nil:
		return nil
	case secondary == nil:
		return primary
	default:
		return camera.Fallback(primary, secondary)
	}
}
