// Package state implements the runtime's versioned, reducer-mergeable
// state store (spec §4.A), grounded on the teacher's
// internal/domain/execution.ExecutionState but generalized: values are
// dynamically typed (null/bool/number/string/array/object, modeled as
// `any`), every mutation is reducer-aware, and snapshots are real
// version checkpoints rather than the teacher's ad hoc Clone.
package state

import (
	"sync"
	"time"

	"github.com/duragraph/graphrt/pkgerrors"
)

// VersionEntry records one state mutation in the history list (spec §3).
type VersionEntry struct {
	Version     int64
	Parent      int64
	Timestamp   time.Time
	Author      string
	Description string
}

// State is an ordered key→value map with per-key reducers, a bounded
// version history, and snapshot/rollback support. Zero value is not
// usable; construct with New.
type State struct {
	mu sync.RWMutex

	threadID    string
	currentNode string
	version     int64

	keys []string // insertion order, for a stable iteration order
	data map[string]any

	reducers map[string]Reducer

	history      []VersionEntry
	historyLimit int

	snapshots map[int64]map[string]any
}

// New creates an empty state for the given thread id. historyLimit <= 0
// selects the default limit of 1000 history entries.
func New(threadID string, historyLimit int) *State {
	if historyLimit <= 0 {
		historyLimit = 1000
	}
	return &State{
		threadID:     threadID,
		data:         make(map[string]any),
		reducers:     make(map[string]Reducer),
		snapshots:    make(map[int64]map[string]any),
		historyLimit: historyLimit,
	}
}

// ThreadID returns the owning thread id.
func (s *State) ThreadID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threadID
}

// CurrentNode returns the id of the node currently associated with this
// state, or "" if none.
func (s *State) CurrentNode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentNode
}

// SetCurrentNode updates the current-node marker without bumping the version.
func (s *State) SetCurrentNode(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentNode = nodeID
}

// Version returns the most recently assigned version id.
func (s *State) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// DeclareReducer registers the merge rule used by Update and the
// scheduler's layer merge for key. Keys without a declared reducer
// default to Replace.
func (s *State) DeclareReducer(key string, r Reducer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reducers[key] = r
}

// ReducerFor returns the declared reducer for key, or Replace if none
// was declared.
func (s *State) ReducerFor(key string) Reducer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.reducers[key]; ok {
		return r
	}
	return Replace()
}

// Get returns the value stored at key.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Keys returns all keys in insertion order.
func (s *State) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Snapshot of the underlying data, used for checkpointing, diffing, and
// passing state across subgraph boundaries. The returned map is a deep
// enough copy that later mutations of s do not alias it (values
// themselves, being JSON-like, are treated as immutable once stored).
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMap(s.data)
}

// Set replaces a single key's value unconditionally (bypassing its
// declared reducer) and records a new version. Used for direct
// assignment by callers (e.g. loading a checkpoint); node patches
// should go through Update/ApplyPatch so reducers apply.
func (s *State) Set(key string, value any, author, description string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, value)
	return s.recordVersionLocked(author, description)
}

// Update applies patch to the state: for each key, the declared reducer
// (default Replace) combines the existing value with the incoming one.
// All keys in the patch are applied as a single new version.
func (s *State) Update(patch map[string]any, author, description string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, incoming := range patch {
		r := s.reducers[key]
		if r.Kind == "" {
			r = Replace()
		}
		existing := s.data[key]
		merged, err := r.apply(key, existing, incoming)
		if err != nil {
			return 0, err
		}
		s.setLocked(key, merged)
	}

	return s.recordVersionLocked(author, description), nil
}

// ApplyReducer applies a single named reducer op to one key directly,
// used by the scheduler when merging a specific node's patch and by
// callers that want §4.A's apply_reducer primitive verbatim.
func (s *State) ApplyReducer(key string, r Reducer, incoming any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[key]
	merged, err := r.apply(key, existing, incoming)
	if err != nil {
		return 0, err
	}
	s.setLocked(key, merged)
	if _, ok := s.reducers[key]; !ok {
		s.reducers[key] = r
	}
	return s.recordVersionLocked("", "apply_reducer:"+key), nil
}

func (s *State) setLocked(key string, value any) {
	if _, exists := s.data[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.data[key] = value
}

func (s *State) recordVersionLocked(author, description string) int64 {
	parent := s.version
	s.version++
	entry := VersionEntry{
		Version:     s.version,
		Parent:      parent,
		Timestamp:   time.Now(),
		Author:      author,
		Description: description,
	}
	s.history = append(s.history, entry)
	if len(s.history) > s.historyLimit {
		s.history = s.history[len(s.history)-s.historyLimit:]
	}
	s.snapshots[s.version] = cloneMap(s.data)
	s.evictSnapshotsLocked()
	return s.version
}

// evictSnapshotsLocked drops any snapshot older than the oldest version
// still retained in s.history, so snapshots stays bounded the same way
// history does instead of growing for the life of the State.
func (s *State) evictSnapshotsLocked() {
	if len(s.history) == 0 {
		return
	}
	oldest := s.history[0].Version
	for v := range s.snapshots {
		if v < oldest {
			delete(s.snapshots, v)
		}
	}
}

// History returns the bounded version history, oldest first.
func (s *State) History() []VersionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]VersionEntry, len(s.history))
	copy(out, s.history)
	return out
}

// Rollback restores the data map to the snapshot taken at versionID. A
// rollback records a new version whose parent is the *target* version
// (an explicit predecessor, per the branch case in spec §3), not the
// version rolled back from.
func (s *State) Rollback(versionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[versionID]
	if !ok {
		return pkgerrors.InvalidState("unknown-version", "rollback")
	}

	s.data = cloneMap(snap)
	s.keys = s.keys[:0]
	for k := range s.data {
		s.keys = append(s.keys, k)
	}

	s.version++
	s.history = append(s.history, VersionEntry{
		Version:     s.version,
		Parent:      versionID,
		Timestamp:   time.Now(),
		Description: "rollback",
	})
	if len(s.history) > s.historyLimit {
		s.history = s.history[len(s.history)-s.historyLimit:]
	}
	s.snapshots[s.version] = cloneMap(s.data)
	s.evictSnapshotsLocked()
	return nil
}

// Clone returns an independent copy of the state, used when a subgraph
// needs its own isolated state (spec §4.I Isolation=Complete, input
// mapper=complete-clear).
func (s *State) Clone() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := New(s.threadID, s.historyLimit)
	clone.currentNode = s.currentNode
	clone.version = s.version
	clone.data = cloneMap(s.data)
	clone.keys = append([]string{}, s.keys...)
	for k, v := range s.reducers {
		clone.reducers[k] = v
	}
	for v, snap := range s.snapshots {
		clone.snapshots[v] = cloneMap(snap)
	}
	clone.history = append([]VersionEntry{}, s.history...)
	return clone
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return cloneMap(vv)
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
