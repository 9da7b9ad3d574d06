// Package resilience implements the engine's resilience primitives
// (spec §4.C): bulkhead, retry policy, circuit breaker, and rate
// limiter. None of these appear in the teacher's own domain code — its
// only related component is the HTTP-layer rate limiter middleware
// (internal/infrastructure/http/middleware/ratelimit_simple.go) — so
// this package generalizes that middleware's golang.org/x/time/rate
// usage into a reusable primitive and adds the rest of the family in
// the same idiom, built on golang.org/x/sync/semaphore for the
// bulkhead, both already part of the teacher's dependency reach.
package resilience

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Bulkhead is a counted permit: at most maxConcurrent holders at once,
// FIFO-queued beyond that (spec §4.C).
type Bulkhead struct {
	sem *semaphore.Weighted
}

// NewBulkhead creates a bulkhead with maxConcurrent permits.
func NewBulkhead(maxConcurrent int) *Bulkhead {
	return &Bulkhead{sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

// Acquire blocks until a permit is available or ctx is cancelled.
// semaphore.Weighted serves waiters in FIFO order, satisfying the
// spec's "no starvation beyond FIFO queueing" requirement.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	return b.sem.Acquire(ctx, 1)
}

// Release returns the permit.
func (b *Bulkhead) Release() {
	b.sem.Release(1)
}

// TryAcquire attempts to acquire a permit without blocking.
func (b *Bulkhead) TryAcquire() bool {
	return b.sem.TryAcquire(1)
}
