package server

import (
	"fmt"
	"sync"
	"time"
)

// Limits caps the requests a single client may make. A zero field disables
// that limit.
type Limits struct {
	PerMinute   int
	PerHour     int
	PerDay      int
	BytesPerDay int64
}

// Enabled reports whether any limit is set.
func (l Limits) Enabled() bool {
	return l.PerMinute > 0 || l.PerHour > 0 || l.PerDay > 0 || l.BytesPerDay > 0
}

// LimitError is returned when a client exceeds one of its limits.
type LimitError struct {
	Window     string // minute, hour, day or bytes
	Limit      int64
	Used       int64
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (used: %d, limit: %d, retry after: %v)",
		e.Window, e.Used, e.Limit, e.RetryAfter.Round(time.Second))
}

// Usage is a snapshot of one client's counters in the current windows.
type Usage struct {
	Minute int
	Hour   int
	Day    int
	Bytes  int64
}

type window struct {
	start time.Time
	count int
}

// roll resets w when now has left the window starting at start.
func (w *window) roll(start time.Time) {
	if !w.start.Equal(start) {
		w.start, w.count = start, 0
	}
}

type clientUsage struct {
	minute, hour, day window
	bytes             int64
	lastSeen          time.Time
}

// RateLimiter enforces Limits per client using calendar-aligned windows.
type RateLimiter struct {
	mu        sync.Mutex
	limits    Limits
	clients   map[string]*clientUsage
	now       func() time.Time
	lastPrune time.Time
}

// NewRateLimiter creates a limiter enforcing limits.
func NewRateLimiter(limits Limits) *RateLimiter {
	return &RateLimiter{
		limits:  limits,
		clients: make(map[string]*clientUsage),
		now:     time.Now,
	}
}

// Allow records a request of size bytes from client, or returns a
// *LimitError without recording it.
func (rl *RateLimiter) Allow(client string, size int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.prune(now)

	u, ok := rl.clients[client]
	if !ok {
		u = &clientUsage{}
		rl.clients[client] = u
	}
	minuteStart, hourStart, dayStart := windowStarts(now)
	u.minute.roll(minuteStart)
	u.hour.roll(hourStart)
	if !u.day.start.Equal(dayStart) {
		u.bytes = 0
	}
	u.day.roll(dayStart)
	u.lastSeen = now

	checks := []struct {
		name  string
		limit int64
		used  int64
		next  int64
		reset time.Time
	}{
		{"minute", int64(rl.limits.PerMinute), int64(u.minute.count), 1, minuteStart.Add(time.Minute)},
		{"hour", int64(rl.limits.PerHour), int64(u.hour.count), 1, hourStart.Add(time.Hour)},
		{"day", int64(rl.limits.PerDay), int64(u.day.count), 1, dayStart.AddDate(0, 0, 1)},
		{"bytes", rl.limits.BytesPerDay, u.bytes, max(size, 0), dayStart.AddDate(0, 0, 1)},
	}
	for _, c := range checks {
		if c.limit > 0 && c.used+c.next > c.limit {
			return &LimitError{Window: c.name, Limit: c.limit, Used: c.used, RetryAfter: c.reset.Sub(now)}
		}
	}

	u.minute.count++
	u.hour.count++
	u.day.count++
	u.bytes += max(size, 0)
	return nil
}

// Usage returns the counters for client in the current windows.
func (rl *RateLimiter) Usage(client string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	u, ok := rl.clients[client]
	if !ok {
		return Usage{}
	}
	minuteStart, hourStart, dayStart := windowStarts(rl.now())
	var out Usage
	if u.minute.start.Equal(minuteStart) {
		out.Minute = u.minute.count
	}
	if u.hour.start.Equal(hourStart) {
		out.Hour = u.hour.count
	}
	if u.day.start.Equal(dayStart) {
		out.Day = u.day.count
		out.Bytes = u.bytes
	}
	return out
}

// prune drops clients idle for more than a day, at most once an hour.
func (rl *RateLimiter) prune(now time.Time) {
	if now.Sub(rl.lastPrune) < time.Hour {
		return
	}
	rl.lastPrune = now
	for id, u := range rl.clients {
		if now.Sub(u.lastSeen) > 24*time.Hour {
			delete(rl.clients, id)
		}
	}
}

func windowStarts(now time.Time) (minute, hour, day time.Time) {
	y, m, d := now.Date()
	day = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	hour = time.Date(y, m, d, now.Hour(), 0, 0, 0, now.Location())
	return hour.Add(time.Duration(now.Minute()) * time.Minute), hour, day
}
