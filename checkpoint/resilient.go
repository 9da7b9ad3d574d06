package checkpoint

import (
	"context"
	"sync/atomic"

	"github.com/duragraph/graphrt/resilience"
)

// Metrics counts operations, retries, and breaker trips across the
// lifetime of a ResilientCheckpointer (spec §4.D: "metrics() (counts of
// operations, retries, trips)").
type Metrics struct {
	Operations uint64
	Retries    uint64
	Trips      uint64
}

// ResilientCheckpointer wraps a Checkpointer driver with the §4.C retry
// policy and circuit breaker, using the driver-error pattern
// classification spec §4.D describes (connection/timeout/reset/
// broken-pipe/deadlock → Transient, else Permanent), overridable per
// driver via classify.
type ResilientCheckpointer struct {
	driver    Checkpointer
	manager   *resilience.Manager
	operations uint64
	retries    uint64
	trips      uint64
}

// NewResilientCheckpointer wraps driver with cfg's resilience settings.
// If cfg.RetryPolicy.Classify is nil, the default pattern classifier
// (resilience.DefaultClassifier) is used, matching spec §4.D verbatim.
func NewResilientCheckpointer(name string, driver Checkpointer, cfg resilience.Config) *ResilientCheckpointer {
	if cfg.RetryPolicy.Classify == nil {
		cfg.RetryPolicy.Classify = resilience.DefaultClassifier
	}
	return &ResilientCheckpointer{
		driver:  driver,
		manager: resilience.NewManager(name, cfg),
	}
}

func (r *ResilientCheckpointer) run(ctx context.Context, fn func(ctx context.Context) error) error {
	atomic.AddUint64(&r.operations, 1)

	stateBeforeOpen := r.manager.Breaker().State()
	attempts := 0
	err := r.manager.ExecuteWithResilience(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt
		return fn(ctx)
	})
	if attempts > 1 {
		atomic.AddUint64(&r.retries, uint64(attempts-1))
	}
	if stateBeforeOpen != resilience.Open && r.manager.Breaker().State() == resilience.Open {
		atomic.AddUint64(&r.trips, 1)
	}
	return err
}

func (r *ResilientCheckpointer) Save(ctx context.Context, threadID string, state map[string]any, metadata map[string]any, parentID string) (string, error) {
	var id string
	err := r.run(ctx, func(ctx context.Context) error {
		var innerErr error
		id, innerErr = r.driver.Save(ctx, threadID, state, metadata, parentID)
		return innerErr
	})
	return id, err
}

func (r *ResilientCheckpointer) Load(ctx context.Context, threadID, checkpointID string) (Record, error) {
	var rec Record
	err := r.run(ctx, func(ctx context.Context) error {
		var innerErr error
		rec, innerErr = r.driver.Load(ctx, threadID, checkpointID)
		return innerErr
	})
	return rec, err
}

func (r *ResilientCheckpointer) List(ctx context.Context, threadID string, limit int) ([]Meta, error) {
	var metas []Meta
	err := r.run(ctx, func(ctx context.Context) error {
		var innerErr error
		metas, innerErr = r.driver.List(ctx, threadID, limit)
		return innerErr
	})
	return metas, err
}

func (r *ResilientCheckpointer) Delete(ctx context.Context, threadID, checkpointID string) error {
	return r.run(ctx, func(ctx context.Context) error {
		return r.driver.Delete(ctx, threadID, checkpointID)
	})
}

func (r *ResilientCheckpointer) HealthCheck(ctx context.Context) bool {
	return r.driver.HealthCheck(ctx)
}

// Metrics returns a point-in-time snapshot of operation/retry/trip counts.
func (r *ResilientCheckpointer) Metrics() Metrics {
	return Metrics{
		Operations: atomic.LoadUint64(&r.operations),
		Retries:    atomic.LoadUint64(&r.retries),
		Trips:      atomic.LoadUint64(&r.trips),
	}
}

var _ Checkpointer = (*ResilientCheckpointer)(nil)
