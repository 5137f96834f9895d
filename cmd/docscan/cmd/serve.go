package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/docscan/internal/config"
	"github.com/MeKo-Tech/docscan/internal/ocr"
	"github.com/MeKo-Tech/docscan/internal/server"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP scanning API",
		Long: `Start an HTTP server exposing the scanner.

Endpoints:
  GET  /health      - Health check
  GET  /metrics     - Prometheus metrics
  POST /estimate    - Initial corners for an uploaded image
  POST /rectify     - Rectified page as PNG, JPEG, PDF or JSON
  POST /ocr         - Text of an uploaded image or its rectified page
  GET  /ws/session  - Interactive corner editing over WebSocket

Examples:
  docscan serve
  docscan serve --host 0.0.0.0 --port 3000 --requests-per-minute 30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srvCfg, err := a.serverConfig()
			if err != nil {
				return err
			}
			s, err := server.NewServer(srvCfg)
			if err != nil {
				return fmt.Errorf("failed to initialize server: %w", err)
			}

			mux := http.NewServeMux()
			s.SetupRoutes(mux)
			httpServer := &http.Server{
				Addr:              srvCfg.Addr(),
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("Starting docscan server", "addr", srvCfg.Addr(), "ocr", ocr.Available())
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
				a.logger.Info("Received shutdown signal")
			case err := <-errCh:
				if err != nil {
					_ = s.Close()
					return fmt.Errorf("server error: %w", err)
				}
			}

			shutdown := time.Duration(a.cfg.Server.ShutdownTimeout) * time.Second
			a.logger.Info("Starting graceful shutdown", "timeout", shutdown.String())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdown)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("HTTP server shutdown error", "error", err)
			}
			if err := s.Close(); err != nil {
				a.logger.Error("Server cleanup error", "error", err)
			}
			a.logger.Info("Graceful shutdown completed")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringP("host", "H", "localhost", "server host")
	f.IntP("port", "p", 8080, "server port")
	f.String("cors-origin", "*", "CORS allowed origin")
	f.Int("max-upload-size", 50, "maximum upload size in MB")
	f.Int("timeout", 30, "OCR request timeout in seconds")
	f.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	f.Int("session-ttl", 600, "idle WebSocket session lifetime in seconds")
	f.Int("requests-per-minute", 0, "maximum requests per minute per client (0 disables)")
	f.Int("requests-per-hour", 0, "maximum requests per hour per client (0 disables)")
	f.Int("requests-per-day", 0, "maximum requests per day per client (0 disables)")
	f.Int64("bytes-per-day", 0, "maximum upload bytes per day per client (0 disables)")

	for flag, key := range map[string]string{
		"host":                "server.host",
		"port":                "server.port",
		"cors-origin":         "server.cors_origin",
		"max-upload-size":     "server.max_upload_mb",
		"timeout":             "server.timeout_sec",
		"shutdown-timeout":    "server.shutdown_timeout",
		"session-ttl":         "server.session_ttl_sec",
		"requests-per-minute": "server.rate_limit.per_minute",
		"requests-per-hour":   "server.rate_limit.per_hour",
		"requests-per-day":    "server.rate_limit.per_day",
		"bytes-per-day":       "server.rate_limit.bytes_per_day",
	} {
		bindFlag(cmd, flag, key)
	}
	return cmd
}

// serverConfig assembles the server settings from the resolved config.
func (a *app) serverConfig() (server.Config, error) {
	return toServerConfig(a.cfg, a.logger)
}

func toServerConfig(cfg *config.Config, logger *slog.Logger) (server.Config, error) {
	style, err := cfg.ToOverlayStyle()
	if err != nil {
		return server.Config{}, err
	}
	sc := cfg.Server
	return server.Config{
		Host:        sc.Host,
		Port:        sc.Port,
		CORSOrigin:  sc.CORSOrigin,
		MaxUploadMB: int64(sc.MaxUploadMB),
		TimeoutSec:  sc.TimeoutSec,
		SessionTTL:  time.Duration(sc.SessionTTLSec) * time.Second,
		Estimator:   cfg.ToEstimatorConfig(),
		Rectify:     cfg.ToRectifyConfig(),
		MouseRadius: cfg.Editor.MouseRadius,
		TouchRadius: cfg.Editor.TouchRadius,
		OCR:         cfg.ToOCRConfig(),
		Style:       style,
		RateLimit: server.Limits{
			PerMinute:   sc.RateLimit.PerMinute,
			PerHour:     sc.RateLimit.PerHour,
			PerDay:      sc.RateLimit.PerDay,
			BytesPerDay: sc.RateLimit.BytesPerDay,
		},
		Logger: logger,
	}, nil
}
