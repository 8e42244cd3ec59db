package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing requests. After every request the caller pauses for a
// duration drawn uniformly from [min, max]. An optional requests-per-minute
// ceiling additionally gates when the next request may start.
// It is safe for concurrent use by multiple goroutines.
type Limiter struct {
	min     time.Duration
	max     time.Duration
	ceiling *rate.Limiter
}

// NewLimiter creates a limiter with a uniform post-request delay in [min, max].
// If max < min the delay is fixed at min. A perMinute <= 0 disables the ceiling.
func NewLimiter(min, max time.Duration, perMinute float64) *Limiter {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}

	l := &Limiter{min: min, max: max}
	if perMinute > 0 {
		l.ceiling = rate.NewLimiter(rate.Limit(perMinute/60), 1)
	}
	return l
}

// Next draws the next post-request delay.
func (l *Limiter) Next() time.Duration {
	if l.max == l.min {
		return l.min
	}
	return l.min + time.Duration(rand.Int64N(int64(l.max-l.min)+1))
}

// Wait blocks until the requests-per-minute ceiling admits another request,
// or until the context is canceled. Without a ceiling it returns immediately.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.ceiling == nil {
		return nil
	}
	return l.ceiling.Wait(ctx)
}

// Pause sleeps for a freshly drawn delay, returning early with the context
// error if ctx is canceled.
func (l *Limiter) Pause(ctx context.Context) error {
	d := l.Next()
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Bounds returns the configured delay range.
func (l *Limiter) Bounds() (min, max time.Duration) {
	return l.min, l.max
}
