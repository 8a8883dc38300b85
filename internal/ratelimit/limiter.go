// Package ratelimit bounds outbound translation calls with sliding-window
// admission control shared by every job in the process.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// maxSleep caps how long a waiter sleeps before re-checking the window, so
// admission never lags the theoretical earliest slot by more than a second.
const maxSleep = time.Second

// Limiter admits at most maxRequests calls per sliding window. Safe for
// concurrent use.
type Limiter struct {
	maxRequests int
	window      time.Duration

	mu     sync.Mutex
	stamps []time.Time
	now    func() time.Time
}

func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Wait blocks until the count of admissions within the trailing window drops
// below the maximum, then records a new admission and returns. Returns early
// with the context error on cancellation.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait, admitted := l.tryAdmit()
		if admitted {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAdmit records an admission if a slot is free, otherwise returns how long
// to sleep before the next check.
func (l *Limiter) tryAdmit() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	if len(l.stamps) < l.maxRequests {
		l.stamps = append(l.stamps, now)
		return 0, true
	}

	wait := l.stamps[0].Add(l.window).Sub(now)
	if wait > maxSleep {
		wait = maxSleep
	}
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, false
}

// pruneLocked drops admissions that have slid out of the window.
func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	keep := 0
	for ; keep < len(l.stamps); keep++ {
		if l.stamps[keep].After(cutoff) {
			break
		}
	}
	if keep > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[keep:]...)
	}
}

// Pending reports how many admissions are currently inside the window.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(l.now())
	return len(l.stamps)
}

// Reset clears all recorded admissions. Intended between independent
// sessions, not mid-session.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stamps = l.stamps[:0]
}
