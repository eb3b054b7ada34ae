// Package ratelimit provides fixed-window admission control keyed by caller.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Defaults used by the coaching gateway.
const (
	DefaultMax    = 10
	DefaultWindow = 60 * time.Second
)

type window struct {
	count  int
	expiry time.Time
}

// Limiter admits at most max requests per caller in each window. A caller's
// window opens with its first admitted request and closes window later.
// Rejected requests do not count.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	max     int
	window  time.Duration
	now     func() time.Time
}

// Option configures a [Limiter].
type Option func(*Limiter)

// WithClock sets the time source. Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter. Non-positive arguments fall back to the defaults.
func New(limit int, win time.Duration, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultMax
	}
	if win <= 0 {
		win = DefaultWindow
	}
	l := &Limiter{
		windows: make(map[string]*window),
		max:     limit,
		window:  win,
		now:     time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Admit reports whether a request from caller is allowed and records it.
func (l *Limiter) Admit(caller string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[caller]
	if !ok || now.After(w.expiry) {
		l.windows[caller] = &window{count: 1, expiry: now.Add(l.window)}
		return true
	}
	if w.count < l.max {
		w.count++
		return true
	}
	return false
}

// Count returns the number of admitted requests in caller's current window.
func (l *Limiter) Count(caller string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[caller]
	if !ok || l.now().After(w.expiry) {
		return 0
	}
	return w.count
}

// Len returns the number of callers currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Sweep forgets callers whose window has expired and returns how many were
// removed. Admission results are unchanged by sweeping.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for caller, w := range l.windows {
		if now.After(w.expiry) {
			delete(l.windows, caller)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done. Non-positive intervals use
// the window length.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
