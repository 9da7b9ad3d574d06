package hil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/ids"
	"github.com/duragraph/graphrt/state"
)

// Breakpoint is one entry in a node's breakpoint list (spec §4.H): a
// named condition evaluated on entry to the node, with a hit counter
// and an optional interrupt trigger.
type Breakpoint struct {
	ID             string
	NodeID         string
	Condition      string // name registered in an exec.ConditionLookup; "" means unconditional
	InterruptOnHit bool

	hits int64
}

// HitCount returns how many times Condition has evaluated true.
func (b *Breakpoint) HitCount() int64 { return atomic.LoadInt64(&b.hits) }

// BreakpointTable is the thread-safe node id → breakpoint list side
// table spec §4.H requires to tolerate concurrent mutation: "may be
// mutated concurrently with execution; a mutation takes effect no
// later than the next node entry." A plain sync.RWMutex-guarded map
// gives exactly that — a writer's Add/Remove is visible to the next
// ForNode/Evaluate call that acquires the lock after it returns.
type BreakpointTable struct {
	mu     sync.RWMutex
	byNode map[string][]*Breakpoint
}

// NewBreakpointTable builds an empty table.
func NewBreakpointTable() *BreakpointTable {
	return &BreakpointTable{byNode: make(map[string][]*Breakpoint)}
}

// Add registers a new breakpoint on nodeID and returns it (with a
// freshly assigned ID) so the caller can later Remove it or read its
// HitCount.
func (t *BreakpointTable) Add(nodeID, condition string, interruptOnHit bool) *Breakpoint {
	bp := &Breakpoint{ID: ids.NewUUID(), NodeID: nodeID, Condition: condition, InterruptOnHit: interruptOnHit}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byNode[nodeID] = append(t.byNode[nodeID], bp)
	return bp
}

// Remove deletes the breakpoint with the given id, if present.
func (t *BreakpointTable) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for nodeID, bps := range t.byNode {
		for i, bp := range bps {
			if bp.ID == id {
				t.byNode[nodeID] = append(bps[:i], bps[i+1:]...)
				return
			}
		}
	}
}

// ForNode returns a snapshot of nodeID's breakpoints.
func (t *BreakpointTable) ForNode(nodeID string) []*Breakpoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	bps := t.byNode[nodeID]
	out := make([]*Breakpoint, len(bps))
	copy(out, bps)
	return out
}

// Evaluate runs every breakpoint registered on nodeID against st,
// incrementing the hit counter for each whose condition evaluates
// true, and returns the subset that hit and additionally requested an
// interrupt (InterruptOnHit).
func (t *BreakpointTable) Evaluate(ctx context.Context, nodeID string, st *state.State, conditions exec.ConditionLookup) ([]*Breakpoint, error) {
	var interrupting []*Breakpoint
	for _, bp := range t.ForNode(nodeID) {
		hit := true
		if bp.Condition != "" {
			cond, err := conditions.GetCondition(bp.Condition)
			if err != nil {
				return nil, err
			}
			hit, err = cond(ctx, st, nil)
			if err != nil {
				return nil, err
			}
		}
		if !hit {
			continue
		}
		atomic.AddInt64(&bp.hits, 1)
		if bp.InterruptOnHit {
			interrupting = append(interrupting, bp)
		}
	}
	return interrupting, nil
}
