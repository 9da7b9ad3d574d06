// Package redis implements checkpoint.Checkpointer against Redis,
// adapted from the teacher's internal/infrastructure/cache/redis.go
// wrapping pattern and the jemygraw-langgraphgo pack repo's
// store/redis.RedisCheckpointStore key layout (checkpoint records as
// JSON strings, a per-thread index for ordering/listing).
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/duragraph/graphrt/checkpoint"
)

// Driver persists checkpoints as JSON strings keyed by checkpoint id,
// with a per-thread sorted set (score = creation time) for ordering
// and listing, mirroring the teacher's use of go-redis for all cache
// access.
type Driver struct {
	client *redis.Client
	prefix string
}

// Options configures a Driver's connection, matching the teacher's
// RedisCache constructor shape (addr/password/db).
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces keys, default "graphrt:".
	Prefix string
}

// New creates a Driver, pinging the server the way the teacher's
// NewRedisCache does to fail fast on misconfiguration.
func New(ctx context.Context, opts Options) (*Driver, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("checkpoint/redis: ping: %w", err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "graphrt:"
	}
	return &Driver{client: client, prefix: prefix}, nil
}

// NewWithClient wraps an already-constructed client, used by tests to
// point the driver at a miniredis instance.
func NewWithClient(client *redis.Client, prefix string) *Driver {
	if prefix == "" {
		prefix = "graphrt:"
	}
	return &Driver{client: client, prefix: prefix}
}

func (d *Driver) recordKey(checkpointID string) string {
	return d.prefix + "checkpoint:" + checkpointID
}

func (d *Driver) threadKey(threadID string) string {
	return d.prefix + "thread:" + threadID
}

// Save stores the record and indexes it under the thread's sorted set.
func (d *Driver) Save(ctx context.Context, threadID string, state, metadata map[string]any, parentID string) (string, error) {
	rec := checkpoint.New(threadID, state, metadata, parentID)

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("checkpoint/redis: marshal record: %w", err)
	}

	pipe := d.client.Pipeline()
	pipe.Set(ctx, d.recordKey(rec.ID), data, 0)
	pipe.ZAdd(ctx, d.threadKey(threadID), redis.Z{
		Score:  float64(rec.CreatedAt.UnixNano()),
		Member: rec.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("checkpoint/redis: save: %w", err)
	}
	return rec.ID, nil
}

// Load fetches a checkpoint by id, or the thread's latest one when
// checkpointID is empty.
func (d *Driver) Load(ctx context.Context, threadID, checkpointID string) (checkpoint.Record, error) {
	id := checkpointID
	if id == "" {
		latest, err := d.client.ZRevRange(ctx, d.threadKey(threadID), 0, 0).Result()
		if err != nil {
			return checkpoint.Record{}, fmt.Errorf("checkpoint/redis: lookup latest: %w", err)
		}
		if len(latest) == 0 {
			return checkpoint.Record{}, checkpoint.ErrNotFound(threadID, "")
		}
		id = latest[0]
	}

	data, err := d.client.Get(ctx, d.recordKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return checkpoint.Record{}, checkpoint.ErrNotFound(threadID, id)
		}
		return checkpoint.Record{}, fmt.Errorf("checkpoint/redis: load: %w", err)
	}

	var rec checkpoint.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return checkpoint.Record{}, fmt.Errorf("checkpoint/redis: unmarshal record: %w", err)
	}
	if rec.ThreadID != threadID {
		return checkpoint.Record{}, checkpoint.ErrNotFound(threadID, id)
	}
	return rec, nil
}

// List returns the thread's checkpoints newest-first, optionally
// capped at limit.
func (d *Driver) List(ctx context.Context, threadID string, limit int) ([]checkpoint.Meta, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := d.client.ZRevRange(ctx, d.threadKey(threadID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("checkpoint/redis: list: %w", err)
	}
	if len(ids) == 0 {
		return []checkpoint.Meta{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = d.recordKey(id)
	}

	results, err := d.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("checkpoint/redis: fetch records: %w", err)
	}

	metas := make([]checkpoint.Meta, 0, len(results))
	for _, raw := range results {
		if raw == nil {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var rec checkpoint.Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			continue
		}
		metas = append(metas, checkpoint.MetaOf(rec))
	}
	return metas, nil
}

// Delete removes a single checkpoint, or every checkpoint for the
// thread when checkpointID is empty.
func (d *Driver) Delete(ctx context.Context, threadID, checkpointID string) error {
	if checkpointID == "" {
		ids, err := d.client.ZRange(ctx, d.threadKey(threadID), 0, -1).Result()
		if err != nil {
			return fmt.Errorf("checkpoint/redis: list for delete: %w", err)
		}

		pipe := d.client.Pipeline()
		for _, id := range ids {
			pipe.Del(ctx, d.recordKey(id))
		}
		pipe.Del(ctx, d.threadKey(threadID))
		_, err = pipe.Exec(ctx)
		if err != nil {
			return fmt.Errorf("checkpoint/redis: delete thread: %w", err)
		}
		return nil
	}

	pipe := d.client.Pipeline()
	pipe.Del(ctx, d.recordKey(checkpointID))
	pipe.ZRem(ctx, d.threadKey(threadID), checkpointID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("checkpoint/redis: delete: %w", err)
	}
	return nil
}

// HealthCheck pings the server.
func (d *Driver) HealthCheck(ctx context.Context) bool {
	return d.client.Ping(ctx).Err() == nil
}

var _ checkpoint.Checkpointer = (*Driver)(nil)
