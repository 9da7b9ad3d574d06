package exec

import (
	"fmt"
	"reflect"
	"sort"
)

// Combine runs the configured strategy over branches (ordered by
// Index), returning the merged subgraph output.
func (ms MergeStrategy) Combine(branches []BranchResult) (map[string]any, error) {
	switch ms.Kind {
	case MergeFirstSuccess:
		return firstSuccess(branches)
	case MergeLastWriteWins:
		return lastWriteWins(branches)
	case MergeVoting:
		return voting(branches)
	case MergeCustom:
		if ms.Custom == nil {
			return nil, fmt.Errorf("exec: MergeCustom strategy requires a Custom function")
		}
		return ms.Custom(branches)
	default:
		return nil, fmt.Errorf("exec: unknown merge strategy %q", ms.Kind)
	}
}

func firstSuccess(branches []BranchResult) (map[string]any, error) {
	sorted := sortedByIndex(branches)
	var lastErr error
	for _, b := range sorted {
		if b.Err == nil {
			return b.Output, nil
		}
		lastErr = b.Err
	}
	return nil, fmt.Errorf("exec: all branches failed, last error: %w", lastErr)
}

func lastWriteWins(branches []BranchResult) (map[string]any, error) {
	sorted := sortedByIndex(branches)
	out := make(map[string]any)
	for _, b := range sorted {
		if b.Err != nil {
			continue
		}
		for k, v := range b.Output {
			out[k] = v
		}
	}
	return out, nil
}

// voting picks, for each key observed across successful branches, the
// value with the most occurrences (ties broken by lowest branch index
// among the tied values, for determinism).
func voting(branches []BranchResult) (map[string]any, error) {
	sorted := sortedByIndex(branches)

	type candidate struct {
		value     any
		count     int
		firstSeen int
	}
	votes := make(map[string][]*candidate)

	for _, b := range sorted {
		if b.Err != nil {
			continue
		}
		for k, v := range b.Output {
			found := false
			for _, c := range votes[k] {
				if reflect.DeepEqual(c.value, v) {
					c.count++
					found = true
					break
				}
			}
			if !found {
				votes[k] = append(votes[k], &candidate{value: v, count: 1, firstSeen: b.Index})
			}
		}
	}

	out := make(map[string]any, len(votes))
	for k, candidates := range votes {
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.count > best.count || (c.count == best.count && c.firstSeen < best.firstSeen) {
				best = c
			}
		}
		out[k] = best.value
	}
	return out, nil
}

func sortedByIndex(branches []BranchResult) []BranchResult {
	out := make([]BranchResult, len(branches))
	copy(out, branches)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
