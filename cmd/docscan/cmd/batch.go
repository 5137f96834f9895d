package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/MeKo-Tech/docscan/internal/batch"
	"github.com/spf13/cobra"
)

type batchItem struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

type batchSummary struct {
	Items     []batchItem `json:"items" yaml:"items"`
	PDF       string      `json:"pdf,omitempty" yaml:"pdf,omitempty"`
	Processed int         `json:"processed" yaml:"processed"`
	Failed    int         `json:"failed" yaml:"failed"`
	Workers   int         `json:"workers" yaml:"workers"`
}

func newBatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch PATH...",
		Short: "Scan many photos with the estimated corners",
		Long: `Run every image under PATH through corner estimation, rectification and
the configured filter without interactive editing. Directories are scanned
for supported images. Each page is written as <name>_scan.<format>, and
--pdf additionally collects all pages into one document.

Examples:
  docscan batch photos/ -d scans/
  docscan batch photos/ -r --filter bw --pdf scans.pdf --pdf-only
  docscan batch a.jpg b.jpg --report report.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			bc := a.cfg.ToBatchConfig()
			bc.OutputDir, _ = f.GetString("output-dir")
			bc.PDF, _ = f.GetString("pdf")
			bc.PDFOnly, _ = f.GetBool("pdf-only")
			bc.IncludePatterns, _ = f.GetStringSlice("include")
			bc.ExcludePatterns, _ = f.GetStringSlice("exclude")
			bc.Logger = a.logger
			if progress, _ := f.GetBool("progress"); progress {
				bc.Progress = batch.NewConsoleProgress(cmd.ErrOrStderr(), "scanning ")
			} else {
				bc.Progress = batch.NewLogProgress(a.logger, 10)
			}

			res, err := batch.Process(cmd.Context(), args, bc)
			if res == nil {
				return err
			}
			if report, _ := f.GetString("report"); report != "" {
				if werr := writeReport(report, res); werr != nil {
					return werr
				}
			}

			stats := res.Stats()
			summary := batchSummary{
				Items:     make([]batchItem, len(res.Items)),
				PDF:       res.PDF,
				Processed: stats.Processed,
				Failed:    stats.Failed,
				Workers:   stats.Workers,
			}
			for i, it := range res.Items {
				summary.Items[i] = batchItem{Input: it.Input, Output: it.Output, Width: it.Width, Height: it.Height}
				if it.Err != nil {
					summary.Items[i].Error = it.Err.Error()
				}
			}
			if rerr := a.render(cmd.OutOrStdout(), summary, func(w io.Writer) error {
				if werr := res.Write(w, batch.FormatText); werr != nil {
					return werr
				}
				return res.WriteStats(w)
			}); rerr != nil {
				return rerr
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringP("output-dir", "d", "", "directory for the pages (default next to each input)")
	f.String("pdf", "", "also write every page into this PDF")
	f.Bool("pdf-only", false, "write only the PDF, no page files")
	f.IntP("workers", "j", 0, "parallel workers (default one per CPU)")
	f.String("page-format", "png", "page file format (png, jpg)")
	f.BoolP("recursive", "r", false, "descend into subdirectories")
	f.StringSlice("include", nil, "only scan file names matching these globs")
	f.StringSlice("exclude", nil, "skip file names matching these globs")
	f.Bool("continue-on-error", false, "keep going when an input fails")
	f.String("filter", "original", "filter applied to every page")
	f.String("strategy", "fixed", "estimation strategy (fixed, edge)")
	f.String("method", "bilinear", "pixel mapping (bilinear, homography)")
	f.String("report", "", "write a CSV report to this file")
	f.Bool("progress", false, "draw a progress bar on stderr")
	bindFlag(cmd, "workers", "batch.workers")
	bindFlag(cmd, "page-format", "batch.page_format")
	bindFlag(cmd, "recursive", "batch.recursive")
	bindFlag(cmd, "continue-on-error", "batch.continue_on_error")
	bindFlag(cmd, "filter", "filter.default")
	bindFlag(cmd, "strategy", "estimator.strategy")
	bindFlag(cmd, "method", "rectify.method")
	return cmd
}

func writeReport(path string, res *batch.Result) error {
	f, err := os.Create(path) //nolint:gosec // path comes from the --report flag
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := res.Write(f, batch.FormatCSV); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
