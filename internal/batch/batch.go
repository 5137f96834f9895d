// Package batch scans many photos in one run. Every input goes through
// corner estimation, rectification and the selected filter on a worker
// pool; pages are written one file per input and optionally collected
// into a single PDF.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/docscan/internal/estimate"
	"github.com/MeKo-Tech/docscan/internal/export"
	"github.com/MeKo-Tech/docscan/internal/rectify"
	"github.com/MeKo-Tech/docscan/internal/scan"
	"github.com/MeKo-Tech/docscan/internal/utils"
)

// ErrNoImages is returned when the inputs expand to no image files.
var ErrNoImages = errors.New("no image files found")

type processor struct {
	cfg  Config
	est  estimate.Estimator
	rect *rectify.Rectifier
}

// Process scans every image found in inputs. Results keep the order of
// discovery. Without ContinueOnError the first failure stops the run and
// is returned together with the partial result.
func Process(ctx context.Context, inputs []string, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	files, err := discoverImageFiles(inputs, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	est, err := estimate.New(cfg.Estimator)
	if err != nil {
		return nil, err
	}
	rect, err := rectify.New(cfg.Rectify)
	if err != nil {
		return nil, err
	}
	p := &processor{cfg: cfg, est: est, rect: rect.WithLogger(cfg.Logger)}

	var outputs []string
	if !cfg.PDFOnly {
		if cfg.OutputDir != "" {
			if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		outputs = outputPaths(files, cfg.OutputDir, cfg.Format)
	}

	start := time.Now()
	items := make([]Item, len(files))
	pages := make([]*image.RGBA, len(files))
	for i, f := range files {
		items[i].Input = f
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := min(cfg.Workers, len(files))
	cfg.Progress.OnStart(len(files))

	var (
		wg       sync.WaitGroup
		done     atomic.Int64
		failOnce sync.Once
		firstErr error
	)
	jobs := make(chan int)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out := ""
				if outputs != nil {
					out = outputs[i]
				}
				items[i], pages[i] = p.scanFile(runCtx, files[i], out)
				if err := items[i].Err; err != nil {
					cfg.Progress.OnError(files[i], err)
					if !cfg.ContinueOnError {
						failOnce.Do(func() {
							firstErr = fmt.Errorf("%s: %w", files[i], err)
							cancel()
						})
					}
				}
				cfg.Progress.OnProgress(int(done.Add(1)), len(files))
			}
		}()
	}

feed:
	for i := range files {
		select {
		case jobs <- i:
		case <-runCtx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	cfg.Progress.OnComplete()

	res := &Result{Items: items, Duration: time.Since(start), WorkerCount: workers}
	if firstErr != nil {
		return res, firstErr
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if cfg.PDF != "" {
		var ok []image.Image
		for i, page := range pages {
			if page != nil && items[i].Err == nil {
				ok = append(ok, page)
			}
		}
		if len(ok) == 0 {
			return res, errors.New("no page scanned, PDF not written")
		}
		if err := export.SavePages(cfg.PDF, ok...); err != nil {
			return res, err
		}
		res.PDF = cfg.PDF
	}

	cfg.Logger.Info("batch finished",
		"inputs", len(files),
		"failed", res.Stats().Failed,
		"workers", workers,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// scanFile runs one input through a fresh session. The page is returned
// only when a PDF is being collected.
func (p *processor) scanFile(ctx context.Context, path, out string) (Item, *image.RGBA) {
	start := time.Now()
	it := Item{Input: path}
	fail := func(err error) (Item, *image.RGBA) {
		it.Err = err
		it.Duration = time.Since(start)
		return it, nil
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return fail(err)
	}
	sess, err := scan.New(scan.Options{Estimator: p.est, Rectifier: p.rect, Logger: p.cfg.Logger})
	if err != nil {
		return fail(err)
	}
	if err := sess.Load(img); err != nil {
		return fail(err)
	}
	it.Corners, _ = sess.Corners()
	if _, err := sess.Commit(); err != nil {
		return fail(err)
	}
	if !sess.ApplyFilter(p.cfg.Filter) {
		return fail(fmt.Errorf("filter %q not applied", p.cfg.Filter))
	}

	page := utils.ToRGBA(sess.Current())
	it.Width, it.Height = page.Bounds().Dx(), page.Bounds().Dy()
	if out != "" {
		if err := export.Save(page, out); err != nil {
			return fail(err)
		}
		it.Output = out
	}
	it.Duration = time.Since(start)
	if p.cfg.PDF == "" {
		return it, nil
	}
	return it, page
}

// outputPaths names each page <stem>_scan.<format>, in dir or next to its
// input. Clashing names get a numeric suffix.
func outputPaths(files []string, dir, format string) []string {
	seen := make(map[string]int, len(files))
	out := make([]string, len(files))
	for i, f := range files {
		d := dir
		if d == "" {
			d = filepath.Dir(f)
		}
		stem := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f)) + "_scan"
		key := filepath.Join(d, stem)
		if n := seen[key]; n > 0 {
			stem += "_" + strconv.Itoa(n+1)
		}
		seen[key]++
		out[i] = filepath.Join(d, stem+"."+format)
	}
	return out
}

// Stats summarizes the run.
func (r *Result) Stats() Stats {
	s := Stats{Total: len(r.Items), Workers: r.WorkerCount, Duration: r.Duration}
	for _, it := range r.Items {
		switch {
		case it.Err != nil:
			s.Failed++
		case it.Width > 0:
			s.Processed++
		}
	}
	if s.Processed > 0 {
		s.AveragePerImage = r.Duration / time.Duration(s.Processed)
	}
	if secs := r.Duration.Seconds(); secs > 0 {
		s.ThroughputPerSec = float64(s.Processed) / secs
	}
	return s
}
