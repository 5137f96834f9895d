package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MeKo-Tech/docscan/internal/filter"
	"github.com/MeKo-Tech/docscan/internal/ocr"
	"github.com/spf13/cobra"
)

func newOCRCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ocr [IMAGE]",
		Short: "Read the text of an image or rectified page",
		Long: `Recognize the text of an image with Tesseract.

With --rectify the page is flattened first, using --corners or the
estimator, and --filter is applied to it. The Tesseract engine is only
available in binaries built with -tags tesseract.

Examples:
  docscan ocr receipt.jpg
  docscan ocr photo.jpg --rectify --filter ocr --lang eng+deu`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doRectify, _ := cmd.Flags().GetBool("rectify")
			corners, _ := cmd.Flags().GetString("corners")
			page, _ := cmd.Flags().GetInt("page")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			sess, name, err := a.capture(cmd.Context(), args, page, corners)
			if err != nil {
				return err
			}
			if doRectify {
				if _, err := sess.Commit(); err != nil {
					return fmt.Errorf("rectify %s: %w", name, err)
				}
				kind, err := parseFilter(a.cfg.Filter.Default)
				if err != nil {
					return err
				}
				if kind != filter.KindOriginal && !sess.ApplyFilter(kind) {
					return fmt.Errorf("cannot apply filter %q to an empty page", kind)
				}
			}

			rec, err := ocr.New(a.cfg.ToOCRConfig())
			if err != nil {
				return err
			}
			defer func() { _ = rec.Close() }()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			res, err := sess.Recognize(ctx, rec, a.cfg.OCR.Language)
			if err != nil {
				if errors.Is(err, ocr.ErrNotEnabled) {
					return fmt.Errorf("%w (rebuild with -tags tesseract)", err)
				}
				return err
			}

			return a.render(cmd.OutOrStdout(), res, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, res.Text)
				return err
			})
		},
	}

	f := cmd.Flags()
	f.String("lang", "eng+chi_tra", "language hint, e.g. eng, deu or eng+chi_tra")
	f.Bool("rectify", false, "rectify the page before recognition")
	f.String("corners", "", `corners as "x,y;x,y;x,y;x,y" for --rectify`)
	f.String("filter", "original", "filter applied to the rectified page")
	f.Duration("timeout", 60*time.Second, "recognition timeout")
	addPageFlag(cmd)
	bindFlag(cmd, "lang", "ocr.language")
	bindFlag(cmd, "filter", "filter.default")
	return cmd
}
