// Package memory implements checkpoint.Checkpointer entirely in
// process memory — used by tests and by single-process CLI runs
// (cmd/graphrun --checkpoint with no driver configured).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/duragraph/graphrt/checkpoint"
)

// Driver is a thread-safe, in-memory checkpoint store.
type Driver struct {
	mu     sync.RWMutex
	byID   map[string]checkpoint.Record       // checkpoint id -> record
	byThread map[string][]string              // thread id -> checkpoint ids, insertion order
}

// New creates an empty in-memory driver.
func New() *Driver {
	return &Driver{
		byID:     make(map[string]checkpoint.Record),
		byThread: make(map[string][]string),
	}
}

func (d *Driver) Save(ctx context.Context, threadID string, state map[string]any, metadata map[string]any, parentID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := checkpoint.New(threadID, state, metadata, parentID)
	d.byID[rec.ID] = rec
	d.byThread[threadID] = append(d.byThread[threadID], rec.ID)
	return rec.ID, nil
}

func (d *Driver) Load(ctx context.Context, threadID, checkpointID string) (checkpoint.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := d.byThread[threadID]
	if len(ids) == 0 {
		return checkpoint.Record{}, checkpoint.ErrNotFound(threadID, checkpointID)
	}

	if checkpointID == "" {
		latest := d.byID[ids[len(ids)-1]]
		return latest, nil
	}

	rec, ok := d.byID[checkpointID]
	if !ok || rec.ThreadID != threadID {
		return checkpoint.Record{}, checkpoint.ErrNotFound(threadID, checkpointID)
	}
	return rec, nil
}

func (d *Driver) List(ctx context.Context, threadID string, limit int) ([]checkpoint.Meta, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := d.byThread[threadID]
	metas := make([]checkpoint.Meta, 0, len(ids))
	for _, id := range ids {
		metas = append(metas, checkpoint.MetaOf(d.byID[id]))
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].CreatedAt.After(metas[j].CreatedAt) })
	if limit > 0 && len(metas) > limit {
		metas = metas[:limit]
	}
	return metas, nil
}

func (d *Driver) Delete(ctx context.Context, threadID, checkpointID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if checkpointID == "" {
		for _, id := range d.byThread[threadID] {
			delete(d.byID, id)
		}
		delete(d.byThread, threadID)
		return nil
	}

	delete(d.byID, checkpointID)
	remaining := d.byThread[threadID][:0]
	for _, id := range d.byThread[threadID] {
		if id != checkpointID {
			remaining = append(remaining, id)
		}
	}
	d.byThread[threadID] = remaining
	return nil
}

func (d *Driver) HealthCheck(ctx context.Context) bool { return true }

var _ checkpoint.Checkpointer = (*Driver)(nil)
