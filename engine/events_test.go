package engine_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duragraph/graphrt/eventbus"
)

func TestEngine_InvokePublishesExecutionAndNodeEvents(t *testing.T) {
	e, _ := newTestEngine(t)
	cg := linearGraph(t)

	bus := eventbus.New()

	var mu sync.Mutex
	var types []string
	for _, et := range []string{"execution.started", "execution.completed", "node.dispatched"} {
		bus.Subscribe(et, func(ctx context.Context, ev eventbus.Event) error {
			mu.Lock()
			defer mu.Unlock()
			types = append(types, ev.EventType())
			return nil
		})
	}

	e.SetEventBus(bus)

	final, err := e.Invoke(context.Background(), cg, map[string]any{"seed": 1})
	require.NoError(t, err)
	assert.Equal(t, "hi", final["out"])

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, types, "execution.started")
	assert.Contains(t, types, "execution.completed")
	assert.Contains(t, types, "node.dispatched")
}

func TestEngine_WithoutEventBusDoesNotPanic(t *testing.T) {
	e, _ := newTestEngine(t)
	cg := linearGraph(t)

	_, err := e.Invoke(context.Background(), cg, map[string]any{"seed": 1})
	require.NoError(t, err)
}
