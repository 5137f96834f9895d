package cmd

import (
	"fmt"
	"io"

	"github.com/MeKo-Tech/docscan/internal/export"
	"github.com/MeKo-Tech/docscan/internal/filter"
	"github.com/MeKo-Tech/docscan/internal/utils"
	"github.com/spf13/cobra"
)

type filterResult struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
	Filter string `json:"filter" yaml:"filter"`
}

func newFilterCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter IMAGE",
		Short: "Apply a display filter to an image",
		Long: `Apply one of the page filters to an image.

Filters: original, grayscale, bw (hard threshold), enhance (contrast
stretch), ocr (binarization tuned for text recognition).

Examples:
  docscan filter page.png --kind bw -o page_bw.png
  docscan filter page.png --kind enhance`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseFilter(a.cfg.Filter.Default)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				out = defaultOutput(args[0], string(kind))
			}

			img, _, err := utils.LoadImage(args[0])
			if err != nil {
				return err
			}
			filtered, err := filter.Apply(img, kind)
			if err != nil {
				return err
			}
			if err := export.Save(filtered, out); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			a.logger.Debug("filter applied", "input", args[0], "filter", string(kind), "output", out)

			res := filterResult{Input: args[0], Output: out, Filter: string(kind)}
			return a.render(cmd.OutOrStdout(), res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s -> %s (%s)\n", res.Input, res.Output, res.Filter)
				return err
			})
		},
	}

	cmd.Flags().StringP("kind", "k", "original", "filter to apply (original, grayscale, bw, enhance, ocr)")
	cmd.Flags().StringP("output", "o", "", "output file (default <input>_<kind>.png)")
	bindFlag(cmd, "kind", "filter.default")
	return cmd
}
