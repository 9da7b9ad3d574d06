// Package checkpoint implements the checkpointer contract (spec §4.D):
// save/load/list/delete keyed by (thread, checkpoint id), plus a
// resilient wrapper and pluggable drivers. Grounded on the teacher's
// internal/domain/checkpoint.Checkpoint aggregate, generalized from
// LangGraph's channel_values/channel_versions/versions_seen/
// pending_sends shape to the spec's flatter {state, metadata, parent}
// record, and from google/uuid ids to sortable ULIDs (spec §4.D:
// "sortable by creation order").
package checkpoint

import (
	"time"

	"github.com/duragraph/graphrt/ids"
)

// Record is the persisted unit the §4.D contract operates on. Its JSON
// shape matches spec §6's "Persisted state layout": {v, id, thread,
// parent?, created_at, state, meta}.
type Record struct {
	Version     int            `json:"v"`
	ID          string         `json:"id"`
	ThreadID    string         `json:"thread"`
	ParentID    string         `json:"parent,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	State       map[string]any `json:"state"`
	Metadata    map[string]any `json:"meta,omitempty"`
}

// New builds a Record ready to persist, stamping a fresh sortable id.
func New(threadID string, state map[string]any, metadata map[string]any, parentID string) Record {
	return Record{
		Version:   1,
		ID:        ids.NewULID(),
		ThreadID:  threadID,
		ParentID:  parentID,
		CreatedAt: time.Now(),
		State:     state,
		Metadata:  metadata,
	}
}

// Meta is the lightweight listing projection returned by List (spec
// §4.D: "list(thread_id, limit?) → [checkpoint_meta]").
type Meta struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread"`
	ParentID  string    `json:"parent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MetaOf projects a Record down to its Meta.
func MetaOf(r Record) Meta {
	return Meta{ID: r.ID, ThreadID: r.ThreadID, ParentID: r.ParentID, CreatedAt: r.CreatedAt}
}
