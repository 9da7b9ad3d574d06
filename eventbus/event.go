// Package eventbus publishes engine lifecycle events — execution
// started/completed, node dispatched, checkpoint saved, interrupt
// raised — to in-process subscribers or, when NATS is configured, to
// JetStream for durable fan-out to external consumers. The in-process
// Bus and the Event interface are adapted from the teacher's
// internal/pkg/eventbus.EventBus; the JetStream wiring is adapted from
// internal/infrastructure/messaging/nats.
package eventbus

import "time"

// Event is the interface every published lifecycle event satisfies.
type Event interface {
	EventType() string
	AggregateID() string
	AggregateType() string
}

const aggregateTypeExecution = "execution"

// ExecutionStarted fires once per Invoke/Stream/ResumeFrom call, before
// the scheduler dispatches the first node.
type ExecutionStarted struct {
	ThreadID  string
	GraphName string
	At        time.Time
}

func (e ExecutionStarted) EventType() string     { return "execution.started" }
func (e ExecutionStarted) AggregateID() string    { return e.ThreadID }
func (e ExecutionStarted) AggregateType() string  { return aggregateTypeExecution }

// ExecutionCompleted fires once per execution, whether it finished or
// failed.
type ExecutionCompleted struct {
	ThreadID  string
	GraphName string
	Status    string // "ok", "error"
	Err       string
	Duration  time.Duration
	At        time.Time
}

func (e ExecutionCompleted) EventType() string    { return "execution.completed" }
func (e ExecutionCompleted) AggregateID() string   { return e.ThreadID }
func (e ExecutionCompleted) AggregateType() string { return aggregateTypeExecution }

// NodeDispatched fires once per node dispatch, after the node's
// outcome is known.
type NodeDispatched struct {
	ThreadID string
	NodeID   string
	NodeType string
	Attempt  int
	Outcome  string // "ok", "fail", "suspend", "route_to", "route_parallel"
	Err      string
	Duration time.Duration
	At       time.Time
}

func (e NodeDispatched) EventType() string     { return "node.dispatched" }
func (e NodeDispatched) AggregateID() string   { return e.ThreadID }
func (e NodeDispatched) AggregateType() string { return aggregateTypeExecution }

// CheckpointSaved fires when the engine's checkpointing path
// (Engine.ExecuteWithCheckpointing) persists a checkpoint. A direct
// Checkpointer.Save call, instrumented or not, publishes no event.
type CheckpointSaved struct {
	ThreadID     string
	CheckpointID string
	ParentID     string
	At           time.Time
}

func (e CheckpointSaved) EventType() string     { return "checkpoint.saved" }
func (e CheckpointSaved) AggregateID() string   { return e.ThreadID }
func (e CheckpointSaved) AggregateType() string { return aggregateTypeExecution }

// InterruptRaised fires when a node suspends execution for
// human-in-the-loop feedback.
type InterruptRaised struct {
	ThreadID string
	NodeID   string
	Reason   string
	At       time.Time
}

func (e InterruptRaised) EventType() string     { return "interrupt.raised" }
func (e InterruptRaised) AggregateID() string   { return e.ThreadID }
func (e InterruptRaised) AggregateType() string { return aggregateTypeExecution }
