package engine

import (
	"context"

	"github.com/duragraph/graphrt/exec"
	"github.com/duragraph/graphrt/graph"
	"github.com/duragraph/graphrt/scheduler"
	"github.com/duragraph/graphrt/state"
	"go.opentelemetry.io/otel/trace"

	tgmetrics "github.com/duragraph/graphrt/telemetry/metrics"
	"github.com/duragraph/graphrt/telemetry/tracing"
)

// SetMetrics attaches m; every subsequent execution records node-level
// counters and latency histograms against it (spec §6). Passing nil
// disables metrics recording.
func (e *Engine) SetMetrics(m *tgmetrics.Metrics) { e.metrics = m }

// SetTracer attaches tracer; every subsequent execution opens one root
// span plus one child span per node dispatch (spec §6). Passing nil
// disables tracing.
func (e *Engine) SetTracer(tracer trace.Tracer) { e.tracer = tracer }

// baseHooks builds the telemetry and event-publication hook pair active
// for every execution on threadID, independent of whichever domain
// hooks (interrupts, checkpointing, ...) the calling ExecuteWith*
// variant layers on top via combineHooks.
func (e *Engine) baseHooks(threadID string) scheduler.Hooks {
	var hooks []scheduler.Hooks
	if e.metrics != nil {
		hooks = append(hooks, tgmetrics.NodeHooks(e.metrics))
	}
	if e.tracer != nil {
		hooks = append(hooks, tracing.NodeHooks(e.tracer))
	}
	if e.events != nil {
		hooks = append(hooks, eventHooks(e.events, threadID))
	}
	return chainHooks(hooks...)
}

// combineHooks layers domain on top of the engine's base telemetry and
// event-publication hooks, so ExecuteWith* variants never have to know
// whether telemetry or an event bus is configured: chainHooks(base,
// domain) runs base first (so a span or timer always brackets the
// domain logic) and short-circuits domain if base itself redirects or
// aborts.
func (e *Engine) combineHooks(threadID string, domain scheduler.Hooks) scheduler.Hooks {
	return chainHooks(e.baseHooks(threadID), domain)
}

// chainHooks runs each hook's Before in order, stopping at the first
// non-Continue result, and each hook's After in the same order, again
// stopping early on a non-Continue verdict. nil Before/After fields are
// skipped.
func chainHooks(hooks ...scheduler.Hooks) scheduler.Hooks {
	return scheduler.Hooks{
		Before: func(ctx context.Context, node graph.Node, st *state.State) (scheduler.HookResult, error) {
			for _, h := range hooks {
				if h.Before == nil {
					continue
				}
				res, err := h.Before(ctx, node, st)
				if err != nil || res.Kind != scheduler.HookContinue {
					return res, err
				}
			}
			return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
		},
		After: func(ctx context.Context, node graph.Node, st *state.State, patch state.Patch, outcome exec.Outcome) (scheduler.HookResult, error) {
			for _, h := range hooks {
				if h.After == nil {
					continue
				}
				res, err := h.After(ctx, node, st, patch, outcome)
				if err != nil || res.Kind != scheduler.HookContinue {
					return res, err
				}
			}
			return scheduler.HookResult{Kind: scheduler.HookContinue}, nil
		},
	}
}
