package scheduler

import (
	"context"
	"sort"

	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/pkgerrors"
	"github.com/duragraph/graphrt/state"
)

// runWorkStealing implements the work-stealing variant of spec §4.F: a
// node runs as soon as its own predecessors are done, without waiting
// for the rest of its layer, unless it carries the "barrier" metadata
// flag — a barrier node still waits for every node in an earlier layer
// to resolve (complete or be skipped), the same way the layered
// scheduler's barriers work.
func (s *Scheduler) runWorkStealing(ctx context.Context, cg *graph.CompiledGraph, st *state.State, rc *exec.RequestContext, startNodes []string) ([]string, error) {
	reached := map[string]bool{}
	for _, id := range startNodes {
		reached[id] = true
	}
	completed := map[string]bool{}
	skipped := map[string]bool{}
	inflight := map[string]bool{}
	var completedOrder []string

	dctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultsCh := make(chan nodeResult)
	deadlockCh := make(chan []string, 1)
	watchdog := newDeadlockWatchdog(s.deadlockTimeout, nil, func(ids []string) {
		s.emit(Event{Kind: EventDeadlockDetected, InFlight: ids})
		select {
		case deadlockCh <- ids:
		default:
		}
		cancel()
	})
	defer watchdog.stop()

	active := 0
	for {
		if err := ctx.Err(); err != nil {
			go drainResults(resultsCh, active)
			return completedOrder, err
		}

		s.propagateSkips(cg, reached, completed, skipped)
		ready := s.readyNodes(cg, reached, completed, skipped, inflight)

		for _, id := range ready {
			node, _ := cg.Node(id)
			inflight[id] = true
			active++
			watchdog.started(id)
			s.emit(Event{Kind: EventNodeStarted, NodeID: id, Layer: cg.LayerOf(id)})

			go func(node graph.Node) {
				if err := s.concurrency.AcquireBulkhead(dctx); err != nil {
					resultsCh <- nodeResult{nodeID: node.ID, err: err}
					return
				}
				defer s.concurrency.ReleaseBulkhead()

				patch, outcome, err := s.runNode(dctx, node, st, rc)
				resultsCh <- nodeResult{nodeID: node.ID, patch: patch, outcome: outcome, err: err}
			}(node)
		}

		if active == 0 {
			return completedOrder, nil
		}

		var r nodeResult
		select {
		case deadlockInflight := <-deadlockCh:
			// Nodes still in flight will eventually send on resultsCh;
			// drain exactly that many so their goroutines (and held
			// bulkhead permits) don't block forever with nobody left to
			// receive.
			go drainResults(resultsCh, active)
			return completedOrder, pkgerrors.DeadlockDetected(deadlockInflight)
		case r = <-resultsCh:
		}
		active--
		delete(inflight, r.nodeID)
		watchdog.completed(r.nodeID)
		s.emit(Event{Kind: EventNodeCompleted, NodeID: r.nodeID, Layer: cg.LayerOf(r.nodeID)})

		if r.err != nil {
			go drainResults(resultsCh, active)
			return completedOrder, r.err
		}

		if len(r.patch) > 0 {
			if _, err := st.Update(r.patch, r.nodeID, "work-stealing merge"); err != nil {
				go drainResults(resultsCh, active)
				return completedOrder, err
			}
		}

		completed[r.nodeID] = true
		completedOrder = append(completedOrder, r.nodeID)

		next, err := s.resolveRouting(ctx, cg, st, []nodeResult{r})
		if err != nil {
			go drainResults(resultsCh, active)
			return completedOrder, err
		}
		for id := range next {
			reached[id] = true
		}
	}
}

// drainResults receives exactly n more values from ch, discarding them.
// Used after every early return out of runWorkStealing's loop (deadlock,
// ctx cancellation, a node, merge or routing error) so the node goroutines
// still in flight at that moment can complete their unbuffered send
// instead of blocking forever on a channel nobody else reads.
func drainResults(ch <-chan nodeResult, n int) {
	for i := 0; i < n; i++ {
		<-ch
	}
}

// propagateSkips marks a node skipped once every predecessor has
// resolved (completed or skipped) and the node itself was never
// reached — mirroring the layered scheduler's per-layer skip pass but
// applied continuously since there are no layer boundaries here.
func (s *Scheduler) propagateSkips(cg *graph.CompiledGraph, reached, completed, skipped map[string]bool) {
	changed := true
	for changed {
		changed = false
		for _, layer := range cg.Layers {
			for _, id := range layer {
				if completed[id] || skipped[id] || reached[id] {
					continue
				}
				preds := cg.Predecessors(id)
				if len(preds) == 0 {
					continue
				}
				allResolved := true
				for _, p := range preds {
					if !completed[p] && !skipped[p] {
						allResolved = false
						break
					}
				}
				if allResolved {
					skipped[id] = true
					changed = true
				}
			}
		}
	}
}

// readyNodes returns, in deterministic node-id order, every reached
// node whose predecessors have all completed and whose barrier
// constraint (if any) is satisfied.
func (s *Scheduler) readyNodes(cg *graph.CompiledGraph, reached, completed, skipped, inflight map[string]bool) []string {
	var ready []string
	for id := range reached {
		if completed[id] || skipped[id] || inflight[id] {
			continue
		}
		if !s.predecessorsResolved(cg, id, completed, skipped) {
			continue
		}
		node, ok := cg.Node(id)
		if !ok {
			continue
		}
		if node.IsBarrier() && !s.earlierLayersResolved(cg, cg.LayerOf(id), completed, skipped) {
			continue
		}
		ready = append(ready, id)
	}
	sort.Strings(ready)
	return ready
}

func (s *Scheduler) predecessorsResolved(cg *graph.CompiledGraph, id string, completed, skipped map[string]bool) bool {
	for _, p := range cg.Predecessors(id) {
		if !completed[p] && !skipped[p] {
			return false
		}
	}
	return true
}

func (s *Scheduler) earlierLayersResolved(cg *graph.CompiledGraph, layerIdx int, completed, skipped map[string]bool) bool {
	for j := 0; j < layerIdx; j++ {
		for _, id := range cg.Layers[j] {
			if !completed[id] && !skipped[id] {
				return false
			}
		}
	}
	return true
}
