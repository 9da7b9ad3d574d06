package exec

// Kind enumerates the five shapes execute's result may take (spec §4.E:
// "outcome is one of {Ok, RouteTo(node_id), RouteParallel(ids),
// Suspend(interrupt_handle), Fail(error)}").
type Kind string

const (
	Ok            Kind = "ok"
	RouteTo       Kind = "route_to"
	RouteParallel Kind = "route_parallel"
	Suspend       Kind = "suspend"
	Fail          Kind = "fail"
)

// SuspendRequest is what a node hands the engine when it returns
// Suspend: enough for the HIL package to build a real interrupt handle
// around, without exec importing hil (hil is built on top of exec, not
// the other way around).
type SuspendRequest struct {
	Reason   string
	Mode     string // "before" or "after", mirroring graph.InterruptMode
	Metadata map[string]any
}

// GraphTargetKind names where a Command's navigation should land (spec
// §4.E [ADD]).
type GraphTargetKind string

const (
	GraphCurrent  GraphTargetKind = "current"
	GraphParent   GraphTargetKind = "parent"
	GraphSubgraph GraphTargetKind = "subgraph"
)

// GraphTarget is the parsed form of the Rust original's GraphTarget
// enum (original_source/src/graph/command.rs), consumed by the
// subgraph executor to navigate across graph boundaries.
type GraphTarget struct {
	Kind        GraphTargetKind
	SubgraphRef string
}

// Outcome is execute's second return value. At most one of Target,
// Targets, SuspendReq, or Err is populated, matching Kind (none for
// Ok); GraphTarget
// is orthogonal metadata a Command may attach to any Kind for the
// subgraph executor to act on.
type Outcome struct {
	Kind        Kind
	Target      string
	Targets     []string
	SuspendReq  SuspendRequest
	Err         error
	GraphTarget *GraphTarget
}

func OkOutcome() Outcome { return Outcome{Kind: Ok} }

func RouteToOutcome(nodeID string) Outcome {
	return Outcome{Kind: RouteTo, Target: nodeID}
}

func RouteParallelOutcome(nodeIDs []string) Outcome {
	return Outcome{Kind: RouteParallel, Targets: nodeIDs}
}

func SuspendOutcome(req SuspendRequest) Outcome {
	return Outcome{Kind: Suspend, SuspendReq: req}
}

func FailOutcome(err error) Outcome {
	return Outcome{Kind: Fail, Err: err}
}
