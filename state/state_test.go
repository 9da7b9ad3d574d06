package state_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duragraph/graphrt/pkgerrors"
	"github.com/duragraph/graphrt/state"
)

func TestState_SetAndGet(t *testing.T) {
	s := state.New("thread-1", 0)

	v1 := s.Set("count", 1, "node-a", "init")
	assert.Equal(t, int64(1), v1)

	got, ok := s.Get("count")
	require.True(t, ok)
	assert.Equal(t, 1, got)
}

func TestState_UpdateWithReducers(t *testing.T) {
	s := state.New("thread-1", 0)
	s.DeclareReducer("messages", state.Append())
	s.DeclareReducer("meta", state.Merge())

	_, err := s.Update(map[string]any{
		"messages": []any{"hello"},
		"meta":     map[string]any{"a": 1},
	}, "node-a", "first patch")
	require.NoError(t, err)

	_, err = s.Update(map[string]any{
		"messages": []any{"world"},
		"meta":     map[string]any{"b": 2},
	}, "node-b", "second patch")
	require.NoError(t, err)

	messages, _ := s.Get("messages")
	assert.Equal(t, []any{"hello", "world"}, messages)

	meta, _ := s.Get("meta")
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, meta)
}

func TestState_AppendReducerRejectsNonArray(t *testing.T) {
	s := state.New("thread-1", 0)
	s.DeclareReducer("messages", state.Append())

	_, err := s.Update(map[string]any{"messages": "not-an-array"}, "node-a", "bad patch")
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrSchemaMismatch)
}

func TestState_MergeReducerRejectsNonObject(t *testing.T) {
	s := state.New("thread-1", 0)
	s.DeclareReducer("meta", state.Merge())

	_, err := s.Update(map[string]any{"meta": []any{1, 2}}, "node-a", "bad patch")
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrSchemaMismatch)
}

func TestState_CustomReducer(t *testing.T) {
	s := state.New("thread-1", 0)
	s.DeclareReducer("max", state.Custom(func(existing, incoming any) (any, error) {
		if existing == nil {
			return incoming, nil
		}
		e, eok := existing.(float64)
		n, nok := incoming.(float64)
		if eok && nok && e > n {
			return e, nil
		}
		return incoming, nil
	}))

	_, err := s.Update(map[string]any{"max": 5.0}, "a", "")
	require.NoError(t, err)
	_, err = s.Update(map[string]any{"max": 3.0}, "b", "")
	require.NoError(t, err)

	got, _ := s.Get("max")
	assert.Equal(t, 5.0, got)
}

func TestState_SnapshotIsIndependentOfMutation(t *testing.T) {
	s := state.New("thread-1", 0)
	s.Set("obj", map[string]any{"x": 1}, "a", "")

	snap := s.Snapshot()
	s.Set("obj", map[string]any{"x": 2}, "a", "")

	assert.Equal(t, map[string]any{"x": 1}, snap["obj"])
	got, _ := s.Get("obj")
	assert.Equal(t, map[string]any{"x": 2}, got)
}

func TestState_RollbackRestoresDataAndRecordsExplicitParent(t *testing.T) {
	s := state.New("thread-1", 0)
	v1 := s.Set("x", 1, "a", "first")
	s.Set("x", 2, "a", "second")
	s.Set("x", 3, "a", "third")

	err := s.Rollback(v1)
	require.NoError(t, err)

	got, _ := s.Get("x")
	assert.Equal(t, 1, got)

	history := s.History()
	last := history[len(history)-1]
	assert.Equal(t, v1, last.Parent)
}

func TestState_RollbackFailsOnceVersionAgesOutOfBoundedHistory(t *testing.T) {
	s := state.New("thread-1", 2)
	v1 := s.Set("x", 1, "a", "first")
	s.Set("x", 2, "a", "second")
	s.Set("x", 3, "a", "third")

	history := s.History()
	require.Len(t, history, 2)

	err := s.Rollback(v1)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidState)
}

func TestState_RollbackUnknownVersionFails(t *testing.T) {
	s := state.New("thread-1", 0)
	s.Set("x", 1, "a", "")

	err := s.Rollback(999)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidState)
}

func TestState_HistoryIsBounded(t *testing.T) {
	s := state.New("thread-1", 3)
	for i := 0; i < 10; i++ {
		s.Set("x", i, "a", "")
	}
	history := s.History()
	assert.Len(t, history, 3)
	assert.Equal(t, int64(10), history[len(history)-1].Version)
}

func TestState_CloneIsIndependent(t *testing.T) {
	s := state.New("thread-1", 0)
	s.DeclareReducer("messages", state.Append())
	s.Update(map[string]any{"messages": []any{"a"}}, "n", "")

	clone := s.Clone()
	clone.Update(map[string]any{"messages": []any{"b"}}, "n", "")

	orig, _ := s.Get("messages")
	cloned, _ := clone.Get("messages")
	assert.Equal(t, []any{"a"}, orig)
	assert.Equal(t, []any{"a", "b"}, cloned)
}

func TestDiffMaps_AddedModifiedRemoved(t *testing.T) {
	old := map[string]any{"a": 1, "b": 2, "c": 3}
	newState := map[string]any{"a": 1, "b": 20, "d": 4}

	d := state.DiffMaps(old, newState)

	assert.Equal(t, map[string]any{"d": 4}, d.Added)
	assert.Equal(t, map[string]any{"b": 20}, d.Modified)
	assert.ElementsMatch(t, []string{"c"}, d.Removed)
}

func TestDiffMaps_ApplySatisfiesDiffLaw(t *testing.T) {
	old := map[string]any{"a": 1, "b": 2, "c": 3}
	newState := map[string]any{"a": 1, "b": 20, "d": 4}

	d := state.DiffMaps(old, newState)
	reconstructed := state.Apply(d, old)

	assert.Equal(t, newState, reconstructed)
}

func TestChannel_OneshotSatisfiedAtMostOnce(t *testing.T) {
	ch := state.NewChannel("result", state.ChannelOneshot, 1)

	err := ch.Send("first")
	require.NoError(t, err)

	err = ch.Send("second")
	require.Error(t, err)

	var out string
	err = ch.Receive(&out)
	require.NoError(t, err)
	assert.Equal(t, "first", out)
}

func TestChannel_MPSCDeliversInOrder(t *testing.T) {
	ch := state.NewChannel("work", state.ChannelMPSC, 4)

	require.NoError(t, ch.Send("one"))
	require.NoError(t, ch.Send("two"))

	var a, b string
	require.NoError(t, ch.Receive(&a))
	require.NoError(t, ch.Receive(&b))
	assert.Equal(t, "one", a)
	assert.Equal(t, "two", b)
}

func TestChannel_BroadcastDeliversOnlyToPresentSubscribers(t *testing.T) {
	ch := state.NewChannel("events", state.ChannelBroadcast, 4)

	early := ch.Subscribe(4)
	require.NoError(t, ch.Send("before-late-subscriber"))

	late := ch.Subscribe(4)
	require.NoError(t, ch.Send("after-late-subscriber"))

	var first, second string
	assertDecode(t, <-early, &first)
	assertDecode(t, <-early, &second)
	assert.Equal(t, "before-late-subscriber", first)
	assert.Equal(t, "after-late-subscriber", second)

	var onlyLate string
	assertDecode(t, <-late, &onlyLate)
	assert.Equal(t, "after-late-subscriber", onlyLate)
}

func assertDecode(t *testing.T, payload []byte, out *string) {
	t.Helper()
	require.NoError(t, json.Unmarshal(payload, out))
}
