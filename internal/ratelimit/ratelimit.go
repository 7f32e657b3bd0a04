package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits at most Limit events within a trailing window. It is shared
// process-wide across in-flight requests, so the prune-then-append sequence
// runs under a single lock.
type Limiter struct {
	limit  int
	window time.Duration

	mu     sync.Mutex
	stamps []time.Time
	now    func() time.Time
}

// New returns a limiter admitting limit events per window. A window of zero
// means 60 seconds.
func New(limit int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{limit: limit, window: window, now: time.Now}
}

// Allow records and admits one event when the trailing-window count is below
// the ceiling; otherwise it admits nothing and records nothing.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.stamps[:0]
	for _, t := range l.stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.stamps = kept

	if len(l.stamps) >= l.limit {
		return false
	}
	l.stamps = append(l.stamps, now)
	return true
}
