package scheduler

import "time"

// EventKind names the lifecycle events a Scheduler reports through its
// event handler (spec §4.F: "a monitor records every node_started and
// node_completed"; "a ConflictResolved event is recorded").
type EventKind string

const (
	EventNodeStarted      EventKind = "node_started"
	EventNodeCompleted    EventKind = "node_completed"
	EventConflictResolved EventKind = "conflict_resolved"
	EventDeadlockDetected EventKind = "deadlock_detected"
)

// Event is one scheduler lifecycle notification, grounded on the
// teacher's eventbus.Event shape but generalized to a plain struct
// since the scheduler's events are typed and fixed in number, unlike
// the teacher's open domain-event interface.
type Event struct {
	Kind      EventKind
	NodeID    string
	Layer     int
	Timestamp time.Time

	// ConflictResolved fields: the key two or more nodes in the same
	// layer wrote without a non-Replace reducer, every contending node
	// id (ascending), and the node id whose write ultimately won.
	ConflictKey   string
	ConflictNodes []string
	Winner        string

	// DeadlockDetected field: the node ids still in flight when the
	// watchdog fired.
	InFlight []string
}

// EventHandler receives scheduler lifecycle events. Implementations
// must not block significantly; the scheduler calls it synchronously
// on its own goroutine.
type EventHandler func(Event)
