package state

import "github.com/duragraph/graphrt/pkgerrors"

// ReducerKind names one of the four merge rules a channel/key can
// declare (spec §3 Reducer).
type ReducerKind string

const (
	ReducerAppend  ReducerKind = "append"
	ReducerMerge   ReducerKind = "merge"
	ReducerReplace ReducerKind = "replace"
	ReducerCustom  ReducerKind = "custom"
)

// CustomFunc is a user-provided pure merge function: given the existing
// value (may be nil) and the incoming value, it returns the merged
// result. It must be deterministic and idempotent on identical input.
type CustomFunc func(existing, incoming any) (any, error)

// Reducer is a named merge rule over a single state key.
type Reducer struct {
	Kind   ReducerKind
	Custom CustomFunc
}

// Replace is the default reducer: RHS always wins.
func Replace() Reducer { return Reducer{Kind: ReducerReplace} }

// Append requires both sides to be arrays ([]any) and concatenates them.
func Append() Reducer { return Reducer{Kind: ReducerAppend} }

// Merge requires both sides to be objects (map[string]any); keys from
// the incoming value overwrite the existing ones.
func Merge() Reducer { return Reducer{Kind: ReducerMerge} }

// Custom wraps a user function as a reducer.
func Custom(fn CustomFunc) Reducer { return Reducer{Kind: ReducerCustom, Custom: fn} }

// apply runs the reducer over (existing, incoming), returning
// pkgerrors.SchemaMismatch when a type precondition fails.
func (r Reducer) apply(key string, existing, incoming any) (any, error) {
	switch r.Kind {
	case ReducerReplace, "":
		return incoming, nil

	case ReducerAppend:
		existingArr, ok := asArray(existing)
		if existing != nil && !ok {
			return nil, pkgerrors.SchemaMismatch(key, string(ReducerAppend))
		}
		incomingArr, ok := asArray(incoming)
		if !ok {
			return nil, pkgerrors.SchemaMismatch(key, string(ReducerAppend))
		}
		out := make([]any, 0, len(existingArr)+len(incomingArr))
		out = append(out, existingArr...)
		out = append(out, incomingArr...)
		return out, nil

	case ReducerMerge:
		existingObj, ok := asObject(existing)
		if existing != nil && !ok {
			return nil, pkgerrors.SchemaMismatch(key, string(ReducerMerge))
		}
		incomingObj, ok := asObject(incoming)
		if !ok {
			return nil, pkgerrors.SchemaMismatch(key, string(ReducerMerge))
		}
		out := make(map[string]any, len(existingObj)+len(incomingObj))
		for k, v := range existingObj {
			out[k] = v
		}
		for k, v := range incomingObj {
			out[k] = v
		}
		return out, nil

	case ReducerCustom:
		if r.Custom == nil {
			return nil, pkgerrors.SchemaMismatch(key, string(ReducerCustom))
		}
		return r.Custom(existing, incoming)

	default:
		return incoming, nil
	}
}

func asArray(v any) ([]any, bool) {
	if v == nil {
		return []any{}, true
	}
	arr, ok := v.([]any)
	return arr, ok
}

func asObject(v any) (map[string]any, bool) {
	if v == nil {
		return map[string]any{}, true
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}
