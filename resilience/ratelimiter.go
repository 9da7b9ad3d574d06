package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket: maxPerPeriod tokens refilled uniformly
// over period (spec §4.C), grounded on the teacher's
// http/middleware.SimpleLimiter (same golang.org/x/time/rate primitive,
// generalized from a per-IP HTTP middleware to a standalone resilience
// primitive any node or scheduler call can wrap).
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter refilling maxPerPeriod tokens evenly
// across period, with a burst capacity of maxPerPeriod.
func NewRateLimiter(maxPerPeriod int, period time.Duration) *RateLimiter {
	perSecond := float64(maxPerPeriod) / period.Seconds()
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), maxPerPeriod)}
}

// Acquire blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// TryAcquire returns immediately: true if a token was available and consumed.
func (r *RateLimiter) TryAcquire() bool {
	return r.limiter.Allow()
}
