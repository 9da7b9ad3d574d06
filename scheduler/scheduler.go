// Package scheduler implements the parallel layered execution plan
// (spec §4.F): the compiled graph's layers are executed one barrier at
// a time, eligible nodes within a layer run concurrently under a
// bulkhead permit, and outcomes are merged back into the state store
// in deterministic node-id order. Grounded on the teacher's
// internal/pkg/eventbus.EventBus for its WaitGroup+buffered-error-
// channel fan-out shape, generalized from "call every handler for one
// event" to "dispatch every eligible node in a layer and await them
// all before merging."
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/pkgerrors"
	"github.com/duragraph/graphrt/resilience"
	"github.com/duragraph/graphrt/state"
)

// Scheduler drives one execution of a CompiledGraph against a State.
type Scheduler struct {
	executor    *exec.Executor
	conditions  exec.ConditionLookup
	concurrency *resilience.Manager
	onEvent     EventHandler
	hooks       Hooks

	deadlockTimeout time.Duration
	workStealing    bool
}

// Config bundles a Scheduler's tunables (spec §4.F, §9 engine defaults).
type Config struct {
	// MaxConcurrency bounds how many node dispatches run at once across
	// the whole execution (enforced via concurrency.AcquireBulkhead).
	MaxConcurrency int
	// DeadlockTimeout is how long the watchdog waits for a node
	// completion while nodes remain in flight before raising
	// DeadlockDetected.
	DeadlockTimeout time.Duration
	// WorkStealing switches from per-layer barriers to admitting any
	// node whose predecessors are complete, retaining a barrier only for
	// nodes carrying the "barrier" metadata flag (spec §4.F work-
	// stealing variant).
	WorkStealing bool
}

// New builds a Scheduler. executor dispatches individual nodes;
// conditions resolves named conditional-edge expressions.
func New(executor *exec.Executor, conditions exec.ConditionLookup, cfg Config) *Scheduler {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.DeadlockTimeout <= 0 {
		cfg.DeadlockTimeout = 30 * time.Second
	}
	return &Scheduler{
		executor:        executor,
		conditions:      conditions,
		concurrency:     resilience.NewManager("scheduler", resilience.Config{MaxConcurrent: cfg.MaxConcurrency}),
		deadlockTimeout: cfg.DeadlockTimeout,
		workStealing:    cfg.WorkStealing,
	}
}

// OnEvent installs the scheduler's lifecycle event sink.
func (s *Scheduler) OnEvent(h EventHandler) { s.onEvent = h }

func (s *Scheduler) emit(e Event) {
	if s.onEvent != nil {
		e.Timestamp = time.Now()
		s.onEvent(e)
	}
}

// nodeResult is one node's dispatch outcome, collected before the
// layer's barrier-synchronized merge.
type nodeResult struct {
	nodeID string
	patch  state.Patch
	outcome exec.Outcome
	err    error
}

// Run executes cg against st starting from cg.Entry(), returning the
// set of node ids that actually completed (for snapshot/resume
// bookkeeping) or an error. Run honors ctx cancellation: an in-flight
// node is allowed to finish its current attempt, no further layer is
// started, and ctx.Err() is returned.
func (s *Scheduler) Run(ctx context.Context, cg *graph.CompiledGraph, st *state.State, rc *exec.RequestContext) ([]string, error) {
	return s.RunFrom(ctx, cg, st, rc, []string{cg.Entry()})
}

// RunFrom is Run generalized to an arbitrary starting frontier, the seam
// resume_from uses to re-enter a graph "as if" the layer containing
// snapshot.NextNode had just become reachable (spec §4.H) without
// replaying anything upstream of it.
func (s *Scheduler) RunFrom(ctx context.Context, cg *graph.CompiledGraph, st *state.State, rc *exec.RequestContext, startNodes []string) ([]string, error) {
	if s.workStealing {
		return s.runWorkStealing(ctx, cg, st, rc, startNodes)
	}
	return s.runLayered(ctx, cg, st, rc, startNodes)
}

func (s *Scheduler) runLayered(ctx context.Context, cg *graph.CompiledGraph, st *state.State, rc *exec.RequestContext, startNodes []string) ([]string, error) {
	reached := map[string]bool{}
	for _, id := range startNodes {
		reached[id] = true
	}
	completed := map[string]bool{}
	skipped := map[string]bool{}
	var completedOrder []string

	for layerIdx, layer := range cg.Layers {
		eligible := make([]string, 0, len(layer))
		for _, id := range layer {
			if reached[id] && !completed[id] && !skipped[id] {
				eligible = append(eligible, id)
			} else if !completed[id] && !skipped[id] {
				skipped[id] = true
			}
		}
		if len(eligible) == 0 {
			continue
		}
		sort.Strings(eligible)

		if err := ctx.Err(); err != nil {
			return completedOrder, err
		}

		results, err := s.dispatchLayer(ctx, cg, eligible, st, rc, layerIdx)
		if err != nil {
			return completedOrder, err
		}

		for _, r := range results {
			if r.err != nil {
				return completedOrder, r.err
			}
		}

		s.mergeLayer(st, results, layerIdx)

		for _, r := range results {
			completed[r.nodeID] = true
			completedOrder = append(completedOrder, r.nodeID)
		}

		nextReached, err := s.resolveRouting(ctx, cg, st, results)
		if err != nil {
			return completedOrder, err
		}
		for id := range nextReached {
			reached[id] = true
		}
	}

	return completedOrder, nil
}

// dispatchLayer spawns a concurrent task per eligible node, gated by
// the scheduler's bulkhead, and awaits them all — the fan-out/fan-in
// shape eventbus.Publish uses for its handler list. If the deadlock
// watchdog fires before every task reports in, dispatchLayer aborts
// immediately (it does not wait on the stalled goroutines) and returns
// pkgerrors.DeadlockDetected, per spec §4.F/E8: "the scheduler raises
// DeadlockDetected and aborts the execution."
func (s *Scheduler) dispatchLayer(ctx context.Context, cg *graph.CompiledGraph, eligible []string, st *state.State, rc *exec.RequestContext, layerIdx int) ([]nodeResult, error) {
	results := make([]nodeResult, len(eligible))
	var wg sync.WaitGroup

	dctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deadlockCh := make(chan []string, 1)
	watchdog := newDeadlockWatchdog(s.deadlockTimeout, eligible, func(inflight []string) {
		s.emit(Event{Kind: EventDeadlockDetected, Layer: layerIdx, InFlight: inflight})
		select {
		case deadlockCh <- inflight:
		default:
		}
		cancel()
	})
	defer watchdog.stop()

	for i, nodeID := range eligible {
		node, ok := cg.Node(nodeID)
		if !ok {
			return nil, pkgerrors.InvalidInput("node_id", "compiled graph missing node "+nodeID)
		}

		wg.Add(1)
		go func(i int, node graph.Node) {
			defer wg.Done()

			if err := s.concurrency.AcquireBulkhead(dctx); err != nil {
				results[i] = nodeResult{nodeID: node.ID, err: err}
				return
			}
			defer s.concurrency.ReleaseBulkhead()

			s.emit(Event{Kind: EventNodeStarted, NodeID: node.ID, Layer: layerIdx})
			watchdog.started(node.ID)

			patch, outcome, err := s.runNode(dctx, node, st, rc)

			watchdog.completed(node.ID)
			s.emit(Event{Kind: EventNodeCompleted, NodeID: node.ID, Layer: layerIdx})

			results[i] = nodeResult{nodeID: node.ID, patch: patch, outcome: outcome, err: err}
		}(i, node)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return results, nil
	case inflight := <-deadlockCh:
		return results, pkgerrors.DeadlockDetected(inflight)
	}
}

// mergeLayer applies every node's patch in node-id ascending order
// (spec §4.F step 4), recording a ConflictResolved event whenever two
// or more nodes in the layer write the same key without a declared
// reducer other than Replace.
func (s *Scheduler) mergeLayer(st *state.State, results []nodeResult, layerIdx int) {
	sorted := make([]nodeResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].nodeID < sorted[j].nodeID })

	writers := map[string][]string{}
	for _, r := range sorted {
		for key := range r.patch {
			writers[key] = append(writers[key], r.nodeID)
		}
	}

	for _, r := range sorted {
		if len(r.patch) == 0 {
			continue
		}
		_, _ = st.Update(r.patch, r.nodeID, fmt.Sprintf("layer %d merge", layerIdx))
	}

	for key, nodeIDs := range writers {
		if len(nodeIDs) < 2 {
			continue
		}
		if st.ReducerFor(key).Kind != state.ReducerReplace {
			continue
		}
		winner := nodeIDs[len(nodeIDs)-1]
		s.emit(Event{Kind: EventConflictResolved, Layer: layerIdx, ConflictKey: key, ConflictNodes: append([]string{}, nodeIDs...), Winner: winner})
	}
}

// resolveRouting computes the set of node ids reached by this layer's
// completions: a node with an explicit RouteTo/RouteParallel outcome
// routes only to its named target(s); otherwise its structural direct
// edges are always followed and its conditional edges are evaluated
// now, against the freshly merged state (spec §4.F step 5).
func (s *Scheduler) resolveRouting(ctx context.Context, cg *graph.CompiledGraph, st *state.State, results []nodeResult) (map[string]bool, error) {
	next := map[string]bool{}

	for _, r := range results {
		switch r.outcome.Kind {
		case exec.RouteTo:
			next[r.outcome.Target] = true
			continue
		case exec.RouteParallel:
			for _, t := range r.outcome.Targets {
				next[t] = true
			}
			continue
		case exec.Suspend:
			continue
		}

		for _, e := range cg.Successors(r.nodeID) {
			if e.Kind == graph.EdgeDirect {
				next[e.To] = true
				continue
			}
			cond, err := s.conditions.GetCondition(e.Condition)
			if err != nil {
				return nil, err
			}
			ok, err := cond(ctx, st, nil)
			if err != nil {
				return nil, err
			}
			if ok {
				next[e.To] = true
			}
		}
	}

	return next, nil
}
