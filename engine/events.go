package engine

import (
	"context"
	"time"

	"github.com/duragraph/graphrt/eventbus"
	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/scheduler"
	"github.com/duragraph/graphrt/state"
)

// Publisher is satisfied by both *eventbus.Bus and *eventbus.NATSPublisher,
// letting callers wire in-process or NATS-backed delivery interchangeably.
type Publisher interface {
	Publish(ctx context.Context, event eventbus.Event) error
}

// SetEventBus wires pub to receive execution/node/interrupt lifecycle
// events. Unset by default; engine behavior is unchanged without one.
func (e *Engine) SetEventBus(pub Publisher) { e.events = pub }

func (e *Engine) publishExecutionStarted(ctx context.Context, threadID, graphName string) {
	if e.events == nil {
		return
	}
	_ = e.events.Publish(ctx, eventbus.ExecutionStarted{
		ThreadID:  threadID,
		GraphName: graphName,
		At:        time.Now(),
	})
}

func (e *Engine) publishExecutionCompleted(ctx context.Context, threadID, graphName, status string, err error, duration time.Duration) {
	if e.events == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	_ = e.events.Publish(ctx, eventbus.ExecutionCompleted{
		ThreadID:  threadID,
		GraphName: graphName,
		Status:    status,
		Err:       msg,
		Duration:  duration,
		At:        time.Now(),
	})
}

// eventHooks returns a scheduler.Hooks pair that publishes NodeDispatched
// (and, on a Suspend outcome, InterruptRaised) once a node's outcome is
// known. It never blocks dispatch on handler failures: Publish errors
// are swallowed, matching the "observability must not perturb
// execution" stance the metrics/tracing hooks also take.
func eventHooks(pub Publisher, threadID string) scheduler.Hooks {
	starts := map[string]time.Time{}

	return scheduler.Hooks{
		Before: func(ctx context.Context, node graph.Node, st *state.State) (scheduler.HookResult, error) {
			starts[node.ID] = time.Now()
			return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
		},
		After: func(ctx context.Context, node graph.Node, st *state.State, patch state.Patch, outcome exec.Outcome) (scheduler.HookResult, error) {
			started, ok := starts[node.ID]
			if !ok {
				started = time.Now()
			}
			delete(starts, node.ID)

			errMsg := ""
			if outcome.Err != nil {
				errMsg = outcome.Err.Error()
			}
			_ = pub.Publish(ctx, eventbus.NodeDispatched{
				ThreadID: threadID,
				NodeID:   node.ID,
				NodeType: string(node.Type),
				Outcome:  string(outcome.Kind),
				Err:      errMsg,
				Duration: time.Since(started),
				At:       time.Now(),
			})

			if outcome.Kind == exec.Suspend {
				_ = pub.Publish(ctx, eventbus.InterruptRaised{
					ThreadID: threadID,
					NodeID:   node.ID,
					Reason:   outcome.SuspendReq.Reason,
					At:       time.Now(),
				})
			}

			return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
		},
	}
}
