package exec

// MapperKind names an input/output mapper shape for a subgraph node
// (spec §4.I).
type MapperKind string

const (
	MapperPassthrough  MapperKind = "passthrough"
	MapperSelective    MapperKind = "selective"
	MapperCompleteClear MapperKind = "complete_clear"
)

// Mapper renames or filters keys crossing a subgraph boundary. Rename
// maps source key → destination key for Selective; Keys lists the
// keys to keep (identity rename) when Rename is nil.
type Mapper struct {
	Kind   MapperKind
	Keys   []string
	Rename map[string]string
}

// Apply runs the mapper over src, returning the mapped key set.
func (m Mapper) Apply(src map[string]any) map[string]any {
	switch m.Kind {
	case MapperCompleteClear:
		return map[string]any{}
	case MapperSelective:
		out := make(map[string]any)
		if len(m.Rename) > 0 {
			for from, to := range m.Rename {
				if v, ok := src[from]; ok {
					out[to] = v
				}
			}
			return out
		}
		for _, k := range m.Keys {
			if v, ok := src[k]; ok {
				out[k] = v
			}
		}
		return out
	default: // MapperPassthrough
		out := make(map[string]any, len(src))
		for k, v := range src {
			out[k] = v
		}
		return out
	}
}

// IsolationKind names how a subgraph's result merges back into the
// parent state (spec §4.I).
type IsolationKind string

const (
	IsolationShared   IsolationKind = "shared"
	IsolationComplete IsolationKind = "complete"
	IsolationPartial  IsolationKind = "partial"
	IsolationMapped   IsolationKind = "mapped"
)

// Isolation configures how a subgraph's output merges back (spec
// §4.I): Complete stores the whole result under "_subgraph_result",
// Partial keeps only Keys, Mapped renames via Rename.
type Isolation struct {
	Kind   IsolationKind
	Keys   []string
	Rename map[string]string
}

// SubgraphResultKey is where Isolation=Complete stores the subgraph's
// full output in the parent state.
const SubgraphResultKey = "_subgraph_result"

// Merge applies the isolation policy, producing the patch to apply to
// the parent state from a subgraph's raw output.
func (iso Isolation) Merge(output map[string]any) map[string]any {
	switch iso.Kind {
	case IsolationComplete:
		return map[string]any{SubgraphResultKey: output}
	case IsolationPartial:
		out := make(map[string]any)
		for _, k := range iso.Keys {
			if v, ok := output[k]; ok {
				out[k] = v
			}
		}
		return out
	case IsolationMapped:
		out := make(map[string]any)
		for from, to := range iso.Rename {
			if v, ok := output[from]; ok {
				out[to] = v
			}
		}
		return out
	default: // IsolationShared
		out := make(map[string]any, len(output))
		for k, v := range output {
			out[k] = v
		}
		return out
	}
}

// MergeStrategyKind names how parallel subgraph branches combine (spec
// §4.I: "parallel merges use a named MergeStrategy").
type MergeStrategyKind string

const (
	MergeFirstSuccess MergeStrategyKind = "first_success"
	MergeLastWriteWins MergeStrategyKind = "last_write_wins"
	MergeVoting       MergeStrategyKind = "voting"
	MergeCustom       MergeStrategyKind = "custom"
)

// BranchResult is one parallel subgraph branch's outcome, the unit
// MergeStrategy functions combine.
type BranchResult struct {
	Index   int
	Output  map[string]any
	Err     error
}

// CustomMergeFunc implements MergeCustom.
type CustomMergeFunc func(branches []BranchResult) (map[string]any, error)

// MergeStrategy selects how parallel subgraph branch outputs combine
// into one result map.
type MergeStrategy struct {
	Kind   MergeStrategyKind
	Custom CustomMergeFunc
}
