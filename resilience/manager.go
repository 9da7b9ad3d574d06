package resilience

import (
	"context"
	"time"
)

// Config bundles one node's (or the engine default's) resilience
// settings. A per-node override is a separate Manager built from its
// own Config and registered with exec.Executor.SetNodeResilience; node
// metadata is not read for these settings.
type Config struct {
	MaxConcurrent int

	RetryPolicy RetryPolicy

	BreakerFailureThreshold int
	BreakerFailureWindow    time.Duration
	BreakerTimeout          time.Duration
	BreakerHalfOpenMax      int
	BreakerSuccessThreshold int

	RateLimitPerPeriod int
	RateLimitPeriod    time.Duration
}

// DefaultConfig mirrors the engine's ambient defaults (see config.EngineConfig).
func DefaultConfig(maxConcurrent int) Config {
	return Config{
		MaxConcurrent:           maxConcurrent,
		RetryPolicy:             DefaultRetryPolicy(),
		BreakerFailureThreshold: 5,
		BreakerFailureWindow:    30 * time.Second,
		BreakerTimeout:          30 * time.Second,
		BreakerHalfOpenMax:      1,
		BreakerSuccessThreshold: 2,
	}
}

// Manager is the single front-end for every resilience primitive a
// named component (a node, a checkpointer driver) wraps its calls in.
// Unifying bulkhead/retry/breaker/limiter behind one entry point avoids
// callers wiring each primitive by hand (Open Question #3).
type Manager struct {
	name     string
	bulkhead *Bulkhead
	breaker  *CircuitBreaker
	limiter  *RateLimiter
	retry    RetryPolicy
}

// NewManager builds a Manager for name from cfg. limiter is nil when
// RateLimitPerPeriod <= 0 (rate limiting is optional per component).
func NewManager(name string, cfg Config) *Manager {
	m := &Manager{
		name:     name,
		bulkhead: NewBulkhead(cfg.MaxConcurrent),
		breaker: NewCircuitBreaker(name, cfg.BreakerFailureThreshold, cfg.BreakerFailureWindow,
			cfg.BreakerTimeout, cfg.BreakerHalfOpenMax, cfg.BreakerSuccessThreshold),
		retry: cfg.RetryPolicy,
	}
	if cfg.RateLimitPerPeriod > 0 {
		m.limiter = NewRateLimiter(cfg.RateLimitPerPeriod, cfg.RateLimitPeriod)
	}
	return m
}

// Breaker exposes the underlying circuit breaker for callers (e.g. the
// checkpointer's resilient wrapper) that need its metrics.
func (m *Manager) Breaker() *CircuitBreaker { return m.breaker }

// ExecuteWithResilience runs fn under, in order: a bulkhead permit, a
// rate-limit token (if configured), a circuit-breaker guard, and the
// retry policy. Every layer observes ctx cancellation.
func (m *Manager) ExecuteWithResilience(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	if err := m.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer m.bulkhead.Release()

	if m.limiter != nil {
		if err := m.limiter.Acquire(ctx); err != nil {
			return err
		}
	}

	if err := m.breaker.Guard(); err != nil {
		return err
	}

	err := m.retry.Do(ctx, fn)
	if err != nil {
		m.breaker.RecordFailure()
		return err
	}
	m.breaker.RecordSuccess()
	return nil
}

// AcquireBulkhead acquires a bare bulkhead permit without the rest of
// the pipeline, for callers (the scheduler) that manage retry/breaker
// themselves around a batch of concurrent node dispatches.
func (m *Manager) AcquireBulkhead(ctx context.Context) error {
	return m.bulkhead.Acquire(ctx)
}

// ReleaseBulkhead releases a permit acquired via AcquireBulkhead.
func (m *Manager) ReleaseBulkhead() {
	m.bulkhead.Release()
}
