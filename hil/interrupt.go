// Package hil implements the human-in-the-loop surfaces of spec §4.H:
// interrupt handles and decisions, a thread-safe breakpoint table,
// workflow snapshots for resumption, and a bounded-history state
// inspector. Grounded on the teacher's internal/domain/humanloop
// package (its Interrupt aggregate and InterruptReason enum), adapted
// from the teacher's async resolve-via-repository flow (an Interrupt
// is persisted, later resolved out-of-band by a separate API call) to
// the spec's synchronous callback flow: the engine calls the
// registered callback with an InterruptHandle and blocks for its
// returned Decision, so there is no repository or event-sourcing layer
// here — just the value types and the timeout/cancellation plumbing
// around invoking that callback.
package hil

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/duragraph/graphrt/graph"
)

// InterruptReason names why a node paused. The teacher's enum
// (tool_call/approval_required/input_needed) is kept as illustrative
// constants; callers may use any string since the spec leaves the
// reason caller-defined.
type InterruptReason string

const (
	ReasonToolCall         InterruptReason = "tool_call"
	ReasonApprovalRequired InterruptReason = "approval_required"
	ReasonInputNeeded      InterruptReason = "input_needed"
	ReasonBreakpointHit    InterruptReason = "breakpoint_hit"
)

var interruptSeq int64

// InterruptHandle is offered to the registered callback when an
// interruptible node is reached (spec §4.H).
type InterruptHandle struct {
	ID        string
	ExecutionID string
	NodeID    string
	Mode      graph.InterruptMode
	Reason    InterruptReason
	State     map[string]any
	CreatedAt time.Time
}

// NewInterruptHandle builds a handle with a fresh monotonic id, cheap
// enough to allocate per interrupt without reaching for ids.NewULID's
// clock-reading Monotonic source on a hot path.
func NewInterruptHandle(executionID, nodeID string, mode graph.InterruptMode, reason InterruptReason, state map[string]any) InterruptHandle {
	seq := atomic.AddInt64(&interruptSeq, 1)
	return InterruptHandle{
		ID:          executionIDSeq(executionID, seq),
		ExecutionID: executionID,
		NodeID:      nodeID,
		Mode:        mode,
		Reason:      reason,
		State:       state,
		CreatedAt:   time.Now(),
	}
}

func executionIDSeq(executionID string, seq int64) string {
	return executionID + "-int-" + strconv.FormatInt(seq, 10)
}

// DecisionKind is the caller's verdict for a pending interrupt (spec §4.H).
type DecisionKind string

const (
	DecisionContinue DecisionKind = "continue"
	DecisionRedirect DecisionKind = "redirect"
	DecisionModify   DecisionKind = "modify"
	DecisionAbort    DecisionKind = "abort"
	DecisionTimedOut DecisionKind = "timed_out"
)

// Decision is what a callback returns for an InterruptHandle.
type Decision struct {
	Kind          DecisionKind
	RedirectTo    string         // Redirect
	ModifiedState map[string]any // Modify
	Reason        string         // Abort
}

// Continue is the zero-friction "resume with current state" decision.
func Continue() Decision { return Decision{Kind: DecisionContinue} }

// Redirect skips the pending dispatch and jumps to nodeID.
func Redirect(nodeID string) Decision { return Decision{Kind: DecisionRedirect, RedirectTo: nodeID} }

// Modify replaces the state with newState (subject to the state
// store's own reducer invariants) and continues.
func Modify(newState map[string]any) Decision {
	return Decision{Kind: DecisionModify, ModifiedState: newState}
}

// Abort terminates the execution with an Aborted(reason) error.
func Abort(reason string) Decision { return Decision{Kind: DecisionAbort, Reason: reason} }

// Callback is the function the engine invokes for every interrupt.
type Callback func(ctx context.Context, handle InterruptHandle) (Decision, error)

// AwaitDecision runs cb on its own goroutine and applies the spec's
// timeout rule: "no response within timeout — treated as
// Abort('timeout')". A decision, once returned from cb, may not be
// revised — AwaitDecision never calls cb a second time for the same
// handle, and it returns the ctx.Err() if ctx is canceled first so the
// caller's own cancellation handling (not a forced abort) applies.
func AwaitDecision(ctx context.Context, cb Callback, handle InterruptHandle, timeout time.Duration) (Decision, error) {
	type result struct {
		decision Decision
		err      error
	}
	done := make(chan result, 1)

	go func() {
		d, err := cb(ctx, handle)
		done <- result{decision: d, err: err}
	}()

	if timeout <= 0 {
		select {
		case r := <-done:
			return r.decision, r.err
		case <-ctx.Done():
			return Decision{}, ctx.Err()
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.decision, r.err
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	case <-timer.C:
		return Decision{Kind: DecisionTimedOut, Reason: "timeout"}, nil
	}
}
