package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/docscan/internal/camera"
	"github.com/MeKo-Tech/docscan/internal/estimate"
	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/rectify"
	"github.com/MeKo-Tech/docscan/internal/scan"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputFormatText = "text"
	outputFormatJSON = "json"
	outputFormatYAML = "yaml"
)

// render writes v in the configured format. text renders the plain form.
func (a *app) render(w io.Writer, v any, text func(io.Writer) error) error {
	switch a.cfg.Output.Format {
	case outputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(w)
	}
}

// source returns the frame source for a command: the file in args, or the
// configured camera device when args is empty.
func (a *app) source(args []string, page int) (camera.Source, string, error) {
	if len(args) > 0 {
		return &camera.FileSource{Path: args[0], Page: page}, args[0], nil
	}
	src := a.cfg.ToCameraSource()
	if src == nil {
		return nil, "", errors.New("no input image given and no camera.device configured")
	}
	return src, "camera", nil
}

// newSession creates a scan session from the resolved configuration.
func (a *app) newSession() (*scan.Session, error) {
	est, err := estimate.New(a.cfg.ToEstimatorConfig())
	if err != nil {
		return nil, err
	}
	rect, err := rectify.New(a.cfg.ToRectifyConfig())
	if err != nil {
		return nil, err
	}
	return scan.New(scan.Options{
		Estimator:   est,
		Rectifier:   rect.WithLogger(a.logger),
		Logger:      a.logger,
		MouseRadius: a.cfg.Editor.MouseRadius,
		TouchRadius: a.cfg.Editor.TouchRadius,
	})
}

// capture loads the command input into a new session and applies explicit
// corners when given.
func (a *app) capture(ctx context.Context, args []string, page int, corners string) (*scan.Session, string, error) {
	sess, err := a.newSession()
	if err != nil {
		return nil, "", err
	}
	src, name, err := a.source(args, page)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = src.Close() }()

	if err := sess.Capture(ctx, src); err != nil {
		return nil, "", err
	}
	if corners != "" {
		c, err := geometry.ParseCorners(corners)
		if err != nil {
			return nil, "", err
		}
		if err := sess.SetCorners(c); err != nil {
			return nil, "", err
		}
	}
	return sess, name, nil
}

// defaultOutput derives "<stem>_<suffix>.png" next to input.
func defaultOutput(input, suffix string) string {
	if input == "" || input == "camera" {
		return "scan_" + suffix + ".png"
	}
	stem := strings.TrimSuffix(input, filepath.Ext(input))
	return fmt.Sprintf("%s_%s.png", stem, suffix)
}

func addPageFlag(cmd *cobra.Command) {
	cmd.Flags().Int("page", 1, "page to read when the input is a PDF (1-based)")
}
