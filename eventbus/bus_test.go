package eventbus_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duragraph/graphrt/eventbus"
)

func TestBus_PublishFansOutToAllHandlers(t *testing.T) {
	b := eventbus.New()

	var mu sync.Mutex
	var seen []string

	b.Subscribe("execution.started", func(ctx context.Context, e eventbus.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, "first")
		return nil
	})
	b.Subscribe("execution.started", func(ctx context.Context, e eventbus.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, "second")
		return nil
	})

	err := b.Publish(context.Background(), eventbus.ExecutionStarted{ThreadID: "t1", GraphName: "g"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"first", "second"}, seen)
}

func TestBus_PublishReturnsHandlerError(t *testing.T) {
	b := eventbus.New()
	boom := errors.New("boom")

	b.Subscribe("execution.completed", func(ctx context.Context, e eventbus.Event) error {
		return boom
	})

	err := b.Publish(context.Background(), eventbus.ExecutionCompleted{ThreadID: "t1", Status: "ok"})
	require.Error(t, err)
}

func TestBus_PublishSyncStopsAtFirstError(t *testing.T) {
	b := eventbus.New()
	boom := errors.New("boom")
	var calledSecond bool

	b.Subscribe("node.dispatched", func(ctx context.Context, e eventbus.Event) error {
		return boom
	})
	b.Subscribe("node.dispatched", func(ctx context.Context, e eventbus.Event) error {
		calledSecond = true
		return nil
	})

	err := b.PublishSync(context.Background(), eventbus.NodeDispatched{ThreadID: "t1", NodeID: "n1"})
	require.ErrorIs(t, err, boom)
	assert.False(t, calledSecond)
}

func TestBus_UnsubscribeRemovesHandlers(t *testing.T) {
	b := eventbus.New()
	called := false

	b.Subscribe("interrupt.raised", func(ctx context.Context, e eventbus.Event) error {
		called = true
		return nil
	})
	b.Unsubscribe("interrupt.raised")

	err := b.Publish(context.Background(), eventbus.InterruptRaised{ThreadID: "t1", NodeID: "n1"})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestBus_ClearRemovesEveryHandler(t *testing.T) {
	b := eventbus.New()
	called := false

	b.Subscribe("checkpoint.saved", func(ctx context.Context, e eventbus.Event) error {
		called = true
		return nil
	})
	b.Clear()

	err := b.Publish(context.Background(), eventbus.CheckpointSaved{ThreadID: "t1", CheckpointID: "c1"})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestEvent_TypesSatisfyEventInterface(t *testing.T) {
	var events = []eventbus.Event{
		eventbus.ExecutionStarted{ThreadID: "t1"},
		eventbus.ExecutionCompleted{ThreadID: "t1"},
		eventbus.NodeDispatched{ThreadID: "t1"},
		eventbus.CheckpointSaved{ThreadID: "t1"},
		eventbus.InterruptRaised{ThreadID: "t1"},
	}
	for _, e := range events {
		assert.Equal(t, "t1", e.AggregateID())
		assert.Equal(t, "execution", e.AggregateType())
		assert.NotEmpty(t, e.EventType())
	}
}
