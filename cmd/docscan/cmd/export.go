package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/MeKo-Tech/docscan/internal/camera"
	"github.com/MeKo-Tech/docscan/internal/export"
	"github.com/spf13/cobra"
)

type exportResult struct {
	Inputs []string `json:"inputs" yaml:"inputs"`
	Output string   `json:"output" yaml:"output"`
	Pages  int      `json:"pages" yaml:"pages"`
}

func newExportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export IMAGE... -o OUTPUT",
		Short: "Convert pages to an image file or a multi-page PDF",
		Long: `Write one or more pages to OUTPUT. The format follows the extension of
OUTPUT: ` + fmt.Sprint(export.Formats()) + `. Several inputs need a .pdf
output, which gets one page per input in argument order.

Examples:
  docscan export page.png -o page.pdf
  docscan export p1.png p2.png p3.png -o document.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				return errors.New("--output is required")
			}
			page, _ := cmd.Flags().GetInt("page")

			pages := make([]image.Image, 0, len(args))
			for _, in := range args {
				img, err := loadPage(cmd.Context(), in, page)
				if err != nil {
					return err
				}
				pages = append(pages, img)
			}
			if err := export.SavePages(out, pages...); err != nil {
				return err
			}
			a.logger.Info("pages exported", "output", out, "pages", len(pages))

			res := exportResult{Inputs: args, Output: out, Pages: len(pages)}
			return a.render(cmd.OutOrStdout(), res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "wrote %d page(s) to %s\n", res.Pages, res.Output)
				return err
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file (.pdf, .png, .jpg, ...)")
	addPageFlag(cmd)
	return cmd
}

// loadPage reads one input, which may itself be a PDF page.
func loadPage(ctx context.Context, path string, page int) (image.Image, error) {
	src := &camera.FileSource{Path: path, Page: page}
	defer func() { _ = src.Close() }()
	return src.CaptureFrame(ctx)
}
