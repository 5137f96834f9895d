package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/MeKo-Tech/docscan/internal/geometry"
)

// Output formats understood by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

type itemJSON struct {
	Item
	Error string `json:"error,omitempty"`
}

type resultJSON struct {
	Items      []itemJSON `json:"items"`
	PDF        string     `json:"pdf,omitempty"`
	Processed  int        `json:"processed"`
	Failed     int        `json:"failed"`
	Workers    int        `json:"workers"`
	DurationMs int64      `json:"duration_ms"`
}

// Write renders r in the given format. Unknown formats fall back to text.
func (r *Result) Write(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		return r.writeJSON(w)
	case FormatCSV:
		return r.writeCSV(w)
	default:
		return r.writeText(w)
	}
}

func (r *Result) writeJSON(w io.Writer) error {
	stats := r.Stats()
	out := resultJSON{
		Items:      make([]itemJSON, len(r.Items)),
		PDF:        r.PDF,
		Processed:  stats.Processed,
		Failed:     stats.Failed,
		Workers:    stats.Workers,
		DurationMs: r.Duration.Milliseconds(),
	}
	for i, it := range r.Items {
		out.Items[i] = itemJSON{Item: it}
		if it.Err != nil {
			out.Items[i].Error = it.Err.Error()
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (r *Result) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"input", "output", "width", "height", "corners", "error"}); err != nil {
		return err
	}
	for _, it := range r.Items {
		errText, corners := "", ""
		if it.Err != nil {
			errText = it.Err.Error()
		}
		if it.Corners != (geometry.CornerSet{}) {
			corners = it.Corners.String()
		}
		row := []string{it.Input, it.Output, strconv.Itoa(it.Width), strconv.Itoa(it.Height), corners, errText}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (r *Result) writeText(w io.Writer) error {
	for _, it := range r.Items {
		var err error
		switch {
		case it.Err != nil:
			_, err = fmt.Fprintf(w, "%s: error: %v\n", it.Input, it.Err)
		case it.Output != "":
			_, err = fmt.Fprintf(w, "%s -> %s (%dx%d)\n", it.Input, it.Output, it.Width, it.Height)
		case it.Width > 0:
			_, err = fmt.Fprintf(w, "%s (%dx%d)\n", it.Input, it.Width, it.Height)
		}
		if err != nil {
			return err
		}
	}
	if r.PDF != "" {
		if _, err := fmt.Fprintf(w, "wrote %s\n", r.PDF); err != nil {
			return err
		}
	}
	return nil
}

// WriteStats prints a short summary block.
func (r *Result) WriteStats(w io.Writer) error {
	s := r.Stats()
	_, err := fmt.Fprintf(w,
		"Processed %d of %d (%d failed) with %d workers in %v, %.1f images/sec\n",
		s.Processed, s.Total, s.Failed, s.Workers, s.Duration.Round(time.Millisecond), s.ThroughputPerSec)
	return err
}
