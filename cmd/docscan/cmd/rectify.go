package cmd

import (
	"fmt"
	"io"

	"github.com/MeKo-Tech/docscan/internal/export"
	"github.com/MeKo-Tech/docscan/internal/filter"
	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/overlay"
	"github.com/spf13/cobra"
)

type rectifyResult struct {
	Input   string             `json:"input" yaml:"input"`
	Output  string             `json:"output" yaml:"output"`
	Overlay string             `json:"overlay,omitempty" yaml:"overlay,omitempty"`
	Corners geometry.CornerSet `json:"corners" yaml:"corners"`
	Width   int                `json:"width" yaml:"width"`
	Height  int                `json:"height" yaml:"height"`
	Method  string             `json:"method" yaml:"method"`
	Filter  string             `json:"filter" yaml:"filter"`
}

// parseFilter resolves a filter name; empty means original.
func parseFilter(s string) (filter.Kind, error) {
	if s == "" {
		return filter.KindOriginal, nil
	}
	return filter.ParseKind(s)
}

func newRectifyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rectify [IMAGE]",
		Short: "Flatten the page inside four corners into an upright rectangle",
		Long: `Map the quadrilateral given by four corners onto an upright rectangle.

The output is as wide as the longer of the top and bottom sides and as tall
as the longer of the left and right sides. Without --corners the estimator
supplies them. The output format follows the file extension; .pdf writes a
one-page document.

Examples:
  docscan rectify photo.jpg -o page.png
  docscan rectify photo.jpg --corners "10,10;190,10;190,90;10,90" --method homography
  docscan rectify photo.jpg --filter bw --overlay selection.png -o page.pdf`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			corners, _ := cmd.Flags().GetString("corners")
			page, _ := cmd.Flags().GetInt("page")
			out, _ := cmd.Flags().GetString("output")
			overlayOut, _ := cmd.Flags().GetString("overlay")

			kind, err := parseFilter(a.cfg.Filter.Default)
			if err != nil {
				return err
			}
			rc := a.cfg.ToRectifyConfig()
			if err := rc.Validate(); err != nil {
				return err
			}

			sess, name, err := a.capture(cmd.Context(), args, page, corners)
			if err != nil {
				return err
			}
			quad, _ := sess.Corners()

			if overlayOut != "" {
				style, err := a.cfg.ToOverlayStyle()
				if err != nil {
					return err
				}
				if err := export.Save(overlay.Render(sess.Frame(), quad, -1, style), overlayOut); err != nil {
					return fmt.Errorf("failed to write overlay: %w", err)
				}
			}

			result, err := sess.Commit()
			if err != nil {
				return fmt.Errorf("rectify %s: %w", name, err)
			}
			if kind != filter.KindOriginal && !sess.ApplyFilter(kind) {
				return fmt.Errorf("cannot apply filter %q to an empty page", kind)
			}

			if out == "" {
				out = defaultOutput(name, "scan")
			}
			if err := export.Save(sess.Current(), out); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}

			res := rectifyResult{
				Input:   name,
				Output:  out,
				Overlay: overlayOut,
				Corners: quad,
				Width:   result.Bounds().Dx(),
				Height:  result.Bounds().Dy(),
				Method:  string(rc.Method),
				Filter:  string(sess.Filter()),
			}
			return a.render(cmd.OutOrStdout(), res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s -> %s (%dx%d, %s, %s)\n",
					res.Input, res.Output, res.Width, res.Height, res.Method, res.Filter)
				return err
			})
		},
	}

	f := cmd.Flags()
	f.String("corners", "", `corners as "x,y;x,y;x,y;x,y" (top-left, top-right, bottom-right, bottom-left)`)
	f.String("method", "bilinear", "pixel mapping (bilinear, homography)")
	f.String("degenerate", "reject", "collapsed quad policy (reject, preserve)")
	f.String("debug-dir", "", "write overlay and comparison PNGs to this directory")
	f.String("filter", "original", "filter applied to the page (original, grayscale, bw, enhance, ocr)")
	f.String("strategy", "fixed", "estimation strategy used without --corners (fixed, edge)")
	f.StringP("output", "o", "", "output file (default <input>_scan.png)")
	f.String("overlay", "", "also write the frame with the selection drawn on it")
	addPageFlag(cmd)
	bindFlag(cmd, "method", "rectify.method")
	bindFlag(cmd, "degenerate", "rectify.degenerate")
	bindFlag(cmd, "debug-dir", "rectify.debug_dir")
	bindFlag(cmd, "filter", "filter.default")
	bindFlag(cmd, "strategy", "estimator.strategy")
	return cmd
}
