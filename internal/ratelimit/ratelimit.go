// Package ratelimit caps calls per rolling time window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter admits at most max calls in any window-long interval.
// Wait blocks until the oldest call in the window ages out.
type Limiter struct {
	max    int
	window time.Duration

	mu    sync.Mutex
	calls []time.Time
	now   func() time.Time
}

// New creates a limiter. max <= 0 disables limiting.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// Wait blocks until a call is admitted or ctx is done
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.max <= 0 || l.window <= 0 {
		return nil
	}

	for {
		delay := l.reserve()
		if delay <= 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve records a call and returns 0 when admitted, otherwise how long to wait before retrying
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.calls) < l.max {
		l.calls = append(l.calls, now)
		return 0
	}

	return l.calls[0].Add(l.window).Sub(now)
}

func (l *Limiter) prune(now time.Time) {
	i := 0
	for i < len(l.calls) && !l.calls[i].Add(l.window).After(now) {
		i++
	}
	l.calls = l.calls[i:]
}

// Remaining reports how many calls the current window still admits
func (l *Limiter) Remaining() int {
	if l == nil || l.max <= 0 {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return l.max - len(l.calls)
}
