package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/duragraph/graphrt/pkgerrors"
)

// RetryPolicy implements spec §4.C's retry contract: exponential
// backoff with optional jitter, driven by a pluggable error classifier.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64 // in [0,1]
	Classify     Classifier
}

// DefaultRetryPolicy returns the engine's baseline policy (spec §9
// ambient engine tunables). A node runs under a different policy only
// through its own Manager (exec.Executor.SetNodeResilience); node
// metadata is not read.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// DelayForAttempt computes the backoff delay for attempt k (k>=1),
// before jitter: min(max_delay, initial_delay * multiplier^(k-1)).
func (p RetryPolicy) DelayForAttempt(k int) time.Duration {
	if k < 1 {
		k = 1
	}
	raw := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(k-1))
	if raw > float64(p.MaxDelay) {
		raw = float64(p.MaxDelay)
	}
	delay := time.Duration(raw)
	if p.Jitter > 0 {
		jitterRange := float64(delay) * p.Jitter
		delay += time.Duration(rand.Float64() * jitterRange)
	}
	return delay
}

// Do runs fn, retrying on Transient/Recoverable classifications up to
// MaxAttempts, honoring ctx cancellation during both the call and the
// backoff wait (spec §5's cancellation-during-backoff suspension
// point). Returns pkgerrors.RetryExhausted if every attempt fails.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsContextErr(err) {
			return err
		}

		class := classifyWithFallback(p.Classify, err)
		if class != Transient && class != Recoverable {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.DelayForAttempt(attempt)):
		}
	}

	return pkgerrors.RetryExhausted(maxAttempts, lastErr)
}
