package batch

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Progress receives updates while a batch runs. Calls may come from any
// worker goroutine.
type Progress interface {
	OnStart(total int)
	OnProgress(current, total int)
	OnError(input string, err error)
	OnComplete()
}

// NoOpProgress discards every update.
type NoOpProgress struct{}

func (NoOpProgress) OnStart(int)           {}
func (NoOpProgress) OnProgress(int, int)   {}
func (NoOpProgress) OnError(string, error) {}
func (NoOpProgress) OnComplete()           {}

// ConsoleProgress draws a progress bar, rewriting one terminal line.
type ConsoleProgress struct {
	mu             sync.Mutex
	w              io.Writer
	prefix         string
	width          int
	updateInterval time.Duration
	lastUpdate     time.Time
	start          time.Time
}

// NewConsoleProgress writes a 40 column bar to w.
func NewConsoleProgress(w io.Writer, prefix string) *ConsoleProgress {
	return &ConsoleProgress{w: w, prefix: prefix, width: 40, updateInterval: 100 * time.Millisecond}
}

func (c *ConsoleProgress) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
	c.lastUpdate = time.Time{}
	_, _ = fmt.Fprintf(c.w, "%s0/%d", c.prefix, total)
}

func (c *ConsoleProgress) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastUpdate) < c.updateInterval && current < total {
		return
	}
	c.lastUpdate = now
	if total <= 0 {
		return
	}

	filled := c.width * current / total
	bar := strings.Repeat("#", filled) + strings.Repeat(".", c.width-filled)
	line := fmt.Sprintf("\r%s[%s] %d/%d", c.prefix, bar, current, total)
	if elapsed := now.Sub(c.start); elapsed > 0 && current > 0 {
		line += fmt.Sprintf(" %.1f/s", float64(current)/elapsed.Seconds())
	}
	_, _ = fmt.Fprint(c.w, line)
}

func (c *ConsoleProgress) OnError(input string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%s%s: %v\n", c.prefix, input, err)
}

func (c *ConsoleProgress) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%scompleted in %v\n", c.prefix, time.Since(c.start).Round(time.Millisecond))
}

// LogProgress reports through slog every interval items.
type LogProgress struct {
	mu       sync.Mutex
	logger   *slog.Logger
	interval int
	last     int
	start    time.Time
}

// NewLogProgress logs at info level every interval items (at least 1).
func NewLogProgress(logger *slog.Logger, interval int) *LogProgress {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgress{logger: logger, interval: max(interval, 1)}
}

func (l *LogProgress) OnStart(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.start = time.Now()
	l.last = 0
	l.logger.Info("batch started", "total", total)
}

func (l *LogProgress) OnProgress(current, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if current-l.last < l.interval && current != total {
		return
	}
	l.last = current
	l.logger.Info("batch progress", "current", current, "total", total,
		"elapsed_ms", time.Since(l.start).Milliseconds())
}

func (l *LogProgress) OnError(input string, err error) {
	l.logger.Warn("batch item failed", "input", input, "error", err)
}

func (l *LogProgress) OnComplete() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Info("batch completed", "duration_ms", time.Since(l.start).Milliseconds())
}
