// Package ratelimit implements a fixed-window, per-client request admission
// limiter: a counter that resets every window, keyed by client identity.
package ratelimit

import (
	"sync"
	"time"

	"github.com/edgecomet/render-service/pkg/types"
)

// Decision is the per-request outcome of a fixed-window check, carrying
// everything the HTTP layer needs for the X-RateLimit-* headers.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type windowEntry struct {
	count       int
	windowStart time.Time
}

// Limiter is a fixed-window counter keyed by client identifier. When
// disabled it is a no-op that always allows.
type Limiter struct {
	enabled bool
	window  time.Duration
	max     int

	mu      sync.Mutex
	entries map[string]*windowEntry

	stop chan struct{}
	once sync.Once
}

// New builds a Limiter. window and max configure the fixed-window size and
// per-key request budget; enabled=false makes Allow a no-op.
func New(enabled bool, window time.Duration, max int) *Limiter {
	return &Limiter{
		enabled: enabled,
		window:  window,
		max:     max,
		entries: make(map[string]*windowEntry),
		stop:    make(chan struct{}),
	}
}

// Allow is atomic per key: a new or expired window installs {1, now} and
// allows; an exhausted window denies and reports when it resets; otherwise
// it increments and allows. A budget of zero denies every request.
func (l *Limiter) Allow(key string) Decision {
	if !l.enabled {
		return Decision{Allowed: true, Limit: l.max, Remaining: l.max}
	}

	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || now.Sub(entry.windowStart) >= l.window {
		if l.max <= 0 {
			return Decision{Allowed: false, Limit: l.max, Remaining: 0, ResetAt: now.Add(l.window)}
		}
		l.entries[key] = &windowEntry{count: 1, windowStart: now}
		return Decision{Allowed: true, Limit: l.max, Remaining: l.max - 1, ResetAt: now.Add(l.window)}
	}

	resetAt := entry.windowStart.Add(l.window)
	if entry.count >= l.max {
		return Decision{Allowed: false, Limit: l.max, Remaining: 0, ResetAt: resetAt}
	}

	entry.count++
	return Decision{Allowed: true, Limit: l.max, Remaining: l.max - entry.count, ResetAt: resetAt}
}

// StartSweeper launches a background goroutine that evicts expired entries
// every window, keeping memory bounded to the active-client count. Call
// Stop to terminate it.
func (l *Limiter) StartSweeper() {
	if !l.enabled {
		return
	}
	go func() {
		ticker := time.NewTicker(l.window)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.sweep()
			case <-l.stop:
				return
			}
		}
	}()
}

func (l *Limiter) sweep() {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.entries {
		if now.Sub(entry.windowStart) >= l.window {
			delete(l.entries, key)
		}
	}
}

// Stop terminates the sweeper goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Snapshot reports coarse occupancy for /health.
func (l *Limiter) Snapshot() types.RateLimiterSnapshot {
	l.mu.Lock()
	tracked := len(l.entries)
	l.mu.Unlock()

	return types.RateLimiterSnapshot{
		Enabled:     l.enabled,
		TrackedKeys: tracked,
		WindowMS:    int(l.window / time.Millisecond),
		MaxRequests: l.max,
	}
}
