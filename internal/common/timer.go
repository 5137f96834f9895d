// Package common provides small helpers shared by the processing stages.
package common

import (
	"fmt"
	"log/slog"
	"time"
)

// Timer measures one stage of work, optionally under a name.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer creates a new timer with the given name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop records and returns the elapsed duration. Calling Stop again
// re-measures from the original start.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Name returns the timer name (empty string if unnamed).
func (t *Timer) Name() string {
	return t.name
}

// LogAttr renders the recorded duration as a slog attribute keyed by the
// timer name, or "duration" for unnamed timers.
func (t *Timer) LogAttr() slog.Attr {
	key := t.name
	if key == "" {
		key = "duration"
	}
	return slog.Duration(key, t.duration)
}

// String returns a formatted string representation of the timer.
func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return t.duration.String()
}
