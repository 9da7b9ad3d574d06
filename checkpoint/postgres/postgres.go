// Package postgres implements checkpoint.Checkpointer on Postgres,
// adapted from the teacher's
// internal/infrastructure/persistence/postgres.CheckpointRepository:
// same pgxpool + JSONB-column shape, generalized from the teacher's
// LangGraph-style checkpoint/checkpoint_ns/channel_values columns to
// the spec's flatter {id, thread_id, parent_id, state, metadata,
// created_at} schema.
package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/duragraph/graphrt/checkpoint"
)

// Pool is the subset of *pgxpool.Pool this driver needs, matching
// github.com/pashagolub/pgxmock/v3's PgxPoolIface so either a live
// *pgxpool.Pool or a pgxmock mock satisfies it unmodified.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Driver implements checkpoint.Checkpointer against a "checkpoints" table.
type Driver struct {
	pool Pool
}

// New wraps pool as a checkpoint.Checkpointer.
func New(pool Pool) *Driver {
	return &Driver{pool: pool}
}

func (d *Driver) Save(ctx context.Context, threadID string, state map[string]any, metadata map[string]any, parentID string) (string, error) {
	rec := checkpoint.New(threadID, state, metadata, parentID)

	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return "", err
	}
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return "", err
	}

	_, err = d.pool.Exec(ctx, `
		INSERT INTO checkpoints (id, thread_id, parent_id, state, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.ThreadID, nullable(rec.ParentID), stateJSON, metaJSON, rec.CreatedAt)
	if err != nil {
		return "", err
	}

	return rec.ID, nil
}

func (d *Driver) Load(ctx context.Context, threadID, checkpointID string) (checkpoint.Record, error) {
	var row pgx.Row
	if checkpointID == "" {
		row = d.pool.QueryRow(ctx, `
			SELECT id, thread_id, parent_id, state, metadata, created_at
			FROM checkpoints
			WHERE thread_id = $1
			ORDER BY created_at DESC
			LIMIT 1
		`, threadID)
	} else {
		row = d.pool.QueryRow(ctx, `
			SELECT id, thread_id, parent_id, state, metadata, created_at
			FROM checkpoints
			WHERE thread_id = $1 AND id = $2
		`, threadID, checkpointID)
	}

	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return checkpoint.Record{}, checkpoint.ErrNotFound(threadID, checkpointID)
	}
	return rec, err
}

func (d *Driver) List(ctx context.Context, threadID string, limit int) ([]checkpoint.Meta, error) {
	query := `
		SELECT id, thread_id, parent_id, created_at
		FROM checkpoints
		WHERE thread_id = $1
		ORDER BY created_at DESC
	`
	args := []any{threadID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []checkpoint.Meta
	for rows.Next() {
		var m checkpoint.Meta
		var parentID *string
		if err := rows.Scan(&m.ID, &m.ThreadID, &parentID, &m.CreatedAt); err != nil {
			return nil, err
		}
		if parentID != nil {
			m.ParentID = *parentID
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

func (d *Driver) Delete(ctx context.Context, threadID, checkpointID string) error {
	if checkpointID == "" {
		_, err := d.pool.Exec(ctx, `DELETE FROM checkpoints WHERE thread_id = $1`, threadID)
		return err
	}
	_, err := d.pool.Exec(ctx, `DELETE FROM checkpoints WHERE thread_id = $1 AND id = $2`, threadID, checkpointID)
	return err
}

func (d *Driver) HealthCheck(ctx context.Context) bool {
	return d.pool.Ping(ctx) == nil
}

func scanRecord(row pgx.Row) (checkpoint.Record, error) {
	var rec checkpoint.Record
	var parentID *string
	var stateJSON, metaJSON []byte

	if err := row.Scan(&rec.ID, &rec.ThreadID, &parentID, &stateJSON, &metaJSON, &rec.CreatedAt); err != nil {
		return checkpoint.Record{}, err
	}
	if parentID != nil {
		rec.ParentID = *parentID
	}
	if err := json.Unmarshal(stateJSON, &rec.State); err != nil {
		return checkpoint.Record{}, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &rec.Metadata); err != nil {
			return checkpoint.Record{}, err
		}
	}
	rec.Version = 1
	return rec, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ checkpoint.Checkpointer = (*Driver)(nil)
