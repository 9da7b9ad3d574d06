package hil

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/duragraph/graphrt/state"
)

// Snapshot is one labeled capture the StateInspector retains (spec
// §4.H: "capture labeled snapshots keyed by node id and optional
// filter").
type Snapshot struct {
	Label     string
	NodeID    string
	Timestamp time.Time
	Data      map[string]any
}

// StateInspector retains a bounded history of labeled snapshots and
// supports JSON-path-like queries, diffing, and JSON/YAML export.
// Grounded on the teacher's humanloop package's plain-struct,
// no-persistence style, generalized from one aggregate's fields to an
// arbitrary captured map; the path-query engine is gjson (already
// present in the retrieved corpus's dependency graph as a transitive
// dependency of the teacher's own go.mod — promoted here to a direct,
// exercised one) rather than a hand-rolled dotted-path walker.
type StateInspector struct {
	mu      sync.Mutex
	maxSize int
	history []Snapshot
}

// NewStateInspector builds an inspector retaining at most maxHistory snapshots.
func NewStateInspector(maxHistory int) *StateInspector {
	if maxHistory <= 0 {
		maxHistory = 100
	}
	return &StateInspector{maxSize: maxHistory}
}

// Capture records a labeled snapshot of st, honoring an optional key
// filter (nil captures every key).
func (si *StateInspector) Capture(nodeID, label string, st *state.State, filter []string) Snapshot {
	full := st.Snapshot()
	data := full
	if filter != nil {
		data = make(map[string]any, len(filter))
		for _, k := range filter {
			if v, ok := full[k]; ok {
				data[k] = v
			}
		}
	}

	snap := Snapshot{Label: label, NodeID: nodeID, Timestamp: time.Now(), Data: data}

	si.mu.Lock()
	defer si.mu.Unlock()
	si.history = append(si.history, snap)
	if len(si.history) > si.maxSize {
		si.history = si.history[len(si.history)-si.maxSize:]
	}
	return snap
}

// History returns every retained snapshot, oldest first.
func (si *StateInspector) History() []Snapshot {
	si.mu.Lock()
	defer si.mu.Unlock()
	out := make([]Snapshot, len(si.history))
	copy(out, si.history)
	return out
}

// Query runs a gjson path expression (e.g. "messages.0.role" or
// "metadata.tags.#") against snap's data, returning the matched value
// and whether the path resolved.
func Query(snap Snapshot, path string) (gjson.Result, bool) {
	raw, err := json.Marshal(snap.Data)
	if err != nil {
		return gjson.Result{}, false
	}
	result := gjson.GetBytes(raw, path)
	return result, result.Exists()
}

// Diff compares two snapshots' data using the state package's
// structural diff, satisfying the same add/modify/remove law §4.A's
// Diff does for live state.
func Diff(a, b Snapshot) state.Diff {
	return state.DiffMaps(a.Data, b.Data)
}

// ExportJSON renders snap.Data as indented JSON.
func ExportJSON(snap Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap.Data, "", "  ")
}

// ExportYAML renders snap.Data as YAML.
func ExportYAML(snap Snapshot) ([]byte, error) {
	return yaml.Marshal(snap.Data)
}
