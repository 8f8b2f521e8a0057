package core

// rate_limiter.go — a per-author fixed-window admission limiter (spec.md
// §4.6). Purely in-process; the §6 Rate limiter interface lets an operator
// substitute an external, distributed implementation without the admission
// pipeline knowing the difference.

import (
	"sync"
	"time"
)

// RateLimiter is the interface the admission pipeline depends on. The
// in-process limiter below is the default implementation.
type RateLimiter interface {
	TryAdmit(author string, now time.Time) (ok bool, retryAfter time.Duration)
}

type window struct {
	start time.Time
	count int
}

// SlidingWindowLimiter enforces MaxRequests admissions per Window, per
// author (spec.md §4.6 default policy: 20 per 60s). An author's window
// opens at their first admission after the previous window has elapsed and
// counts admissions until it closes; it does not slide with each request,
// so up to 2*MaxRequests admissions can fall inside one window length that
// straddles a reset.
type SlidingWindowLimiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	perAuthor   map[string]*window
}

// NewSlidingWindowLimiter constructs a limiter with the given policy.
func NewSlidingWindowLimiter(maxRequests int, windowSize time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		maxRequests: maxRequests,
		window:      windowSize,
		perAuthor:   make(map[string]*window),
	}
}

// TryAdmit reports whether author may submit now under the configured
// policy. On rejection it also returns how long the caller should wait.
func (l *SlidingWindowLimiter) TryAdmit(author string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.perAuthor[author]
	if !ok || now.Sub(w.start) >= l.window {
		l.perAuthor[author] = &window{start: now, count: 1}
		return true, 0
	}
	if w.count < l.maxRequests {
		w.count++
		return true, 0
	}
	retryAfter := l.window - now.Sub(w.start)
	return false, retryAfter
}

// Reset clears all per-author counters. Used by tests and by operators
// rotating policy at runtime.
func (l *SlidingWindowLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.perAuthor = make(map[string]*window)
}
