package cmd

import (
	"fmt"
	"io"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/spf13/cobra"
)

type estimateResult struct {
	Input    string             `json:"input" yaml:"input"`
	Width    int                `json:"width" yaml:"width"`
	Height   int                `json:"height" yaml:"height"`
	Strategy string             `json:"strategy" yaml:"strategy"`
	Corners  geometry.CornerSet `json:"corners" yaml:"corners"`
}

func newEstimateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate [IMAGE...]",
		Short: "Print the initial corner guess for images",
		Long: `Estimate the four page corners of each image.

The fixed strategy insets the frame by a margin. The edge strategy insets the
bounding box of strong edges instead. Corners are printed in top-left,
top-right, bottom-right, bottom-left order as "x,y;x,y;x,y;x,y", the form
rectify --corners accepts. Without an image the configured camera device is
read.

Examples:
  docscan estimate photo.jpg
  docscan estimate *.png --strategy edge --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _ := cmd.Flags().GetInt("page")
			inputs := make([][]string, 0, len(args))
			for _, arg := range args {
				inputs = append(inputs, []string{arg})
			}
			if len(inputs) == 0 {
				inputs = append(inputs, nil)
			}

			results := make([]estimateResult, 0, len(inputs))
			for _, in := range inputs {
				sess, name, err := a.capture(cmd.Context(), in, page, "")
				if err != nil {
					return err
				}
				corners, _ := sess.Corners()
				b := sess.Frame().Bounds()
				results = append(results, estimateResult{
					Input:    name,
					Width:    b.Dx(),
					Height:   b.Dy(),
					Strategy: a.cfg.Estimator.Strategy,
					Corners:  corners,
				})
			}

			return a.render(cmd.OutOrStdout(), results, func(w io.Writer) error {
				for _, r := range results {
					if _, err := fmt.Fprintf(w, "%s: %dx%d %s\n", r.Input, r.Width, r.Height, r.Corners); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().String("strategy", "fixed", "estimation strategy (fixed, edge)")
	cmd.Flags().Float64("margin", 40, "inset in pixels for the fixed strategy")
	cmd.Flags().Float64("edge-margin", 10, "inset in pixels for the edge strategy")
	addPageFlag(cmd)
	bindFlag(cmd, "strategy", "estimator.strategy")
	bindFlag(cmd, "margin", "estimator.margin")
	bindFlag(cmd, "edge-margin", "estimator.edge_margin")
	return cmd
}
