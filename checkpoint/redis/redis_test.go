package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duragraph/graphrt/checkpoint"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewWithClient(client, "test:")
}

func TestDriver_SaveAndLoadLatest(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	id1, err := d.Save(ctx, "thread-1", map[string]any{"step": float64(1)}, nil, "")
	require.NoError(t, err)
	id2, err := d.Save(ctx, "thread-1", map[string]any{"step": float64(2)}, nil, id1)
	require.NoError(t, err)

	latest, err := d.Load(ctx, "thread-1", "")
	require.NoError(t, err)
	assert.Equal(t, id2, latest.ID)
	assert.Equal(t, id1, latest.ParentID)
	assert.Equal(t, float64(2), latest.State["step"])
}

func TestDriver_LoadByID(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	id, err := d.Save(ctx, "thread-1", map[string]any{"x": "y"}, nil, "")
	require.NoError(t, err)

	rec, err := d.Load(ctx, "thread-1", id)
	require.NoError(t, err)
	assert.Equal(t, "y", rec.State["x"])
}

func TestDriver_LoadNotFound(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	_, err := d.Load(ctx, "thread-1", "missing")
	require.Error(t, err)

	_, err = d.Load(ctx, "empty-thread", "")
	require.Error(t, err)
}

func TestDriver_LoadWrongThreadIsNotFound(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	id, err := d.Save(ctx, "thread-a", map[string]any{"x": 1}, nil, "")
	require.NoError(t, err)

	_, err = d.Load(ctx, "thread-b", id)
	require.Error(t, err)
}

func TestDriver_ListOrdersNewestFirstAndRespectsLimit(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := d.Save(ctx, "thread-1", map[string]any{"i": i}, nil, "")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := d.List(ctx, "thread-1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	capped, err := d.List(ctx, "thread-1", 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
	assert.Equal(t, ids[2], capped[0].ID)
}

func TestDriver_DeleteSingleCheckpoint(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	id1, err := d.Save(ctx, "thread-1", map[string]any{"i": 1}, nil, "")
	require.NoError(t, err)
	id2, err := d.Save(ctx, "thread-1", map[string]any{"i": 2}, nil, id1)
	require.NoError(t, err)

	require.NoError(t, d.Delete(ctx, "thread-1", id1))

	_, err = d.Load(ctx, "thread-1", id1)
	require.Error(t, err)

	remaining, err := d.List(ctx, "thread-1", 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, id2, remaining[0].ID)
}

func TestDriver_DeleteWholeThread(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	_, err := d.Save(ctx, "thread-1", map[string]any{"i": 1}, nil, "")
	require.NoError(t, err)
	_, err = d.Save(ctx, "thread-1", map[string]any{"i": 2}, nil, "")
	require.NoError(t, err)

	require.NoError(t, d.Delete(ctx, "thread-1", ""))

	remaining, err := d.List(ctx, "thread-1", 0)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestDriver_HealthCheck(t *testing.T) {
	d := newTestDriver(t)
	assert.True(t, d.HealthCheck(context.Background()))
}

var _ checkpoint.Checkpointer = (*Driver)(nil)
