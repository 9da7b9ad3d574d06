package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriver_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := New(mock)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkpoints")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := d.Save(context.Background(), "thread-1", map[string]any{"x": 1}, nil, "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_LoadLatest(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := New(mock)

	rows := pgxmock.NewRows([]string{"id", "thread_id", "parent_id", "state", "metadata", "created_at"}).
		AddRow("cp-1", "thread-1", nil, []byte(`{"x":1}`), []byte(`{}`), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, thread_id, parent_id, state, metadata, created_at")).
		WithArgs("thread-1").
		WillReturnRows(rows)

	rec, err := d.Load(context.Background(), "thread-1", "")
	require.NoError(t, err)
	assert.Equal(t, "cp-1", rec.ID)
	assert.Equal(t, float64(1), rec.State["x"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_LoadNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := New(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, thread_id, parent_id, state, metadata, created_at")).
		WithArgs("thread-1", "missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = d.Load(context.Background(), "thread-1", "missing")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := New(mock)

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "thread_id", "parent_id", "created_at"}).
		AddRow("cp-2", "thread-1", "cp-1", now).
		AddRow("cp-1", "thread-1", nil, now.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, thread_id, parent_id, created_at")).
		WithArgs("thread-1").
		WillReturnRows(rows)

	metas, err := d.List(context.Background(), "thread-1", 0)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "cp-2", metas[0].ID)
	assert.Equal(t, "cp-1", metas[0].ParentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := New(mock)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM checkpoints WHERE thread_id = $1 AND id = $2")).
		WithArgs("thread-1", "cp-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = d.Delete(context.Background(), "thread-1", "cp-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_DeleteWholeThread(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := New(mock)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM checkpoints WHERE thread_id = $1")).
		WithArgs("thread-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	err = d.Delete(context.Background(), "thread-1", "")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_SaveDatabaseError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d := New(mock)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkpoints")).
		WillReturnError(errors.New("connection reset by peer"))

	_, err = d.Save(context.Background(), "thread-1", map[string]any{"x": 1}, nil, "")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
