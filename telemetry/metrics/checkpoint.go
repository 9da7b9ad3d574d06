package metrics

import (
	"context"
	"time"

	"github.com/duragraph/graphrt/checkpoint"
)

// InstrumentedCheckpointer wraps a checkpoint.Checkpointer, recording
// each call's outcome and latency into m, the same decorator shape as
// checkpoint.ResilientCheckpointer wraps a driver with retries/breaker.
type InstrumentedCheckpointer struct {
	driver checkpoint.Checkpointer
	m      *Metrics
}

// InstrumentCheckpointer wraps driver so every Save/Load/List/Delete
// call is recorded against m (spec §6: "checkpoint ops" counter and
// latency histogram).
func InstrumentCheckpointer(driver checkpoint.Checkpointer, m *Metrics) *InstrumentedCheckpointer {
	return &InstrumentedCheckpointer{driver: driver, m: m}
}

func (i *InstrumentedCheckpointer) record(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	i.m.RecordCheckpointOp(op, status, time.Since(start))
}

func (i *InstrumentedCheckpointer) Save(ctx context.Context, threadID string, state map[string]any, metadata map[string]any, parentID string) (string, error) {
	start := time.Now()
	id, err := i.driver.Save(ctx, threadID, state, metadata, parentID)
	i.record("save", start, err)
	return id, err
}

func (i *InstrumentedCheckpointer) Load(ctx context.Context, threadID, checkpointID string) (checkpoint.Record, error) {
	start := time.Now()
	rec, err := i.driver.Load(ctx, threadID, checkpointID)
	i.record("load", start, err)
	return rec, err
}

func (i *InstrumentedCheckpointer) List(ctx context.Context, threadID string, limit int) ([]checkpoint.Meta, error) {
	start := time.Now()
	metas, err := i.driver.List(ctx, threadID, limit)
	i.record("list", start, err)
	return metas, err
}

func (i *InstrumentedCheckpointer) Delete(ctx context.Context, threadID, checkpointID string) error {
	start := time.Now()
	err := i.driver.Delete(ctx, threadID, checkpointID)
	i.record("delete", start, err)
	return err
}

func (i *InstrumentedCheckpointer) HealthCheck(ctx context.Context) bool {
	start := time.Now()
	ok := i.driver.HealthCheck(ctx)
	status := "ok"
	if !ok {
		status = "error"
	}
	i.m.RecordCheckpointOp("health_check", status, time.Since(start))
	return ok
}

var _ checkpoint.Checkpointer = (*InstrumentedCheckpointer)(nil)
