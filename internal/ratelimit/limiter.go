// internal/ratelimit/limiter.go
//
// Fixed-window rate limiter.
//
// Context
// -------
// Each caller key owns one counter and a reset time.  The first hit opens a
// window of the configured length with count 1.  Further hits increment the
// count until it reaches the maximum; after that the caller is denied until
// the window expires and a fresh one starts.
//
// This is deliberately NOT a sliding log or token bucket.  A caller can land
// up to 2× the nominal rate around a window boundary (end of one window,
// start of the next).  For a contact form that is an accepted approximation.
//
// Storage is pluggable through Store:
//
//   • MemoryStore  – sharded, LRU-capped map; per process, lost on restart.
//   • RedisStore   – Lua script, shared by every replica.
//   • SQLStore     – MySQL row per key, shared by every replica.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by New for a non-positive max or window.
var ErrInvalidConfig = errors.New("ratelimit: max and window must be positive")

// Window is one key's counter state.
type Window struct {
	Count   int
	ResetAt time.Time
}

// Store performs the atomic read-modify-write for one key.  It opens a new
// window when none exists or the current one has expired, increments while
// Count < max, and otherwise leaves the window untouched and reports
// allowed == false.
type Store interface {
	Take(ctx context.Context, key string, max int, window time.Duration, now time.Time) (w Window, allowed bool, err error)
}

// Decision is the limiter's answer for a single request.
type Decision struct {
	Allowed           bool
	RetryAfterSeconds int
	Remaining         int
}

// Limiter applies one max/window policy on top of a Store.
type Limiter struct {
	store  Store
	max    int
	window time.Duration
	now    func() time.Time
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New builds a Limiter allowing max requests per window per key.
func New(store Store, max int, window time.Duration, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("ratelimit: nil store")
	}
	if max < 1 || window <= 0 {
		return nil, ErrInvalidConfig
	}
	l := &Limiter{store: store, max: max, window: window, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// Check records a hit for key and reports whether it is allowed.
func (l *Limiter) Check(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	w, allowed, err := l.store.Take(ctx, key, l.max, l.window, now)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit take %q: %w", key, err)
	}

	if !allowed {
		return Decision{
			Allowed:           false,
			RetryAfterSeconds: secondsUntil(now, w.ResetAt),
			Remaining:         0,
		}, nil
	}

	retry := secondsUntil(now, w.ResetAt)
	if w.Count == 1 {
		retry = ceilSeconds(l.window)
	}
	return Decision{
		Allowed:           true,
		RetryAfterSeconds: retry,
		Remaining:         l.max - w.Count,
	}, nil
}

// secondsUntil rounds up and never returns less than one second.
func secondsUntil(now, reset time.Time) int {
	if s := ceilSeconds(reset.Sub(now)); s > 1 {
		return s
	}
	return 1
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
