package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestRunStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts valid run", func(t *testing.T) {
		db, mock := newMock(t)
		run, err := domain.NewRun("run_loop", "UncSampling", "RandomForest", 1)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO runs")).
			WithArgs(run.ID, "run_loop", "UncSampling", "RandomForest", 1, "running", run.StartedAt, run.FinishedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewRunStore(db).Create(ctx, run))
	})

	t.Run("rejects invalid run", func(t *testing.T) {
		db, _ := newMock(t)
		err := NewRunStore(db).Create(ctx, &domain.Run{})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("duplicate id", func(t *testing.T) {
		db, mock := newMock(t)
		run, err := domain.NewRun("run_loop", "RandomSampling", "KNN", 2)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO runs")).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

		err = NewRunStore(db).Create(ctx, run)
		assert.ErrorIs(t, err, store.ErrDuplicate)
		var storeErr *store.OpError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "run", storeErr.Entity)
	})
}

func TestRunStore_Finish(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("updates status", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE runs SET status")).
			WithArgs("completed", at, id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, NewRunStore(db).Finish(ctx, id, domain.RunStatusCompleted, at))
	})

	t.Run("missing run", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE runs SET status")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		err := NewRunStore(db).Finish(ctx, id, domain.RunStatusFailed, at)
		assert.ErrorIs(t, err, store.ErrRunNotFound)
	})
}

func TestRunStore_GetByID(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{"id", "stage", "strategy", "classifier", "batch", "status", "started_at", "finished_at"}

	t.Run("found", func(t *testing.T) {
		db, mock := newMock(t)
		finished := started.Add(time.Hour)
		mock.ExpectQuery(regexp.QuoteMeta("FROM runs WHERE id = $1")).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(id.String(), "run_time_domain", "UncSampling", "RandomForest", 1, "completed", started, finished))

		run, err := NewRunStore(db).GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, run.ID)
		assert.Equal(t, domain.RunStatusCompleted, run.Status)
		require.NotNil(t, run.FinishedAt)
		assert.True(t, finished.Equal(*run.FinishedAt))
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM runs WHERE id = $1")).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := NewRunStore(db).GetByID(ctx, id)
		assert.ErrorIs(t, err, store.ErrRunNotFound)
	})
}

func TestResultStore_Metrics(t *testing.T) {
	ctx := context.Background()
	runID := uuid.New()

	t.Run("empty is a no-op", func(t *testing.T) {
		db, _ := newMock(t)
		assert.NoError(t, NewResultStore(db).SaveMetrics(ctx, nil))
	})

	t.Run("saves each record", func(t *testing.T) {
		db, mock := newMock(t)
		prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO run_metrics"))
		prep.ExpectExec().WithArgs(runID, 0, 20, "accuracy", 0.5).WillReturnResult(sqlmock.NewResult(0, 1))
		prep.ExpectExec().WithArgs(runID, 0, 20, "fom", 0.25).WillReturnResult(sqlmock.NewResult(0, 1))

		err := NewResultStore(db).SaveMetrics(ctx, []domain.MetricRecord{
			{RunID: runID, Loop: 0, Epoch: 20, Name: "accuracy", Value: 0.5},
			{RunID: runID, Loop: 0, Epoch: 20, Name: "fom", Value: 0.25},
		})
		assert.NoError(t, err)
	})

	t.Run("lists records", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM run_metrics")).
			WithArgs(runID).
			WillReturnRows(sqlmock.NewRows([]string{"run_id", "loop", "epoch", "name", "value"}).
				AddRow(runID.String(), 0, 20, "accuracy", 0.5).
				AddRow(runID.String(), 1, 21, "accuracy", 0.6))

		got, err := NewResultStore(db).ListMetrics(ctx, runID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[1].Loop)
		assert.InDelta(t, 0.6, got[1].Value, 1e-12)
	})
}

func TestResultStore_Queries(t *testing.T) {
	ctx := context.Background()
	runID := uuid.New()

	db, mock := newMock(t)
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO run_queries"))
	prep.ExpectExec().WithArgs(runID, 2, 22, "SN1", "Ia", 0.3).
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "run_queries_run_id_fkey"})

	err := NewResultStore(db).SaveQueries(ctx, []domain.QueryRecord{
		{RunID: runID, Loop: 2, Epoch: 22, ObjectID: "SN1", SNType: "Ia", Redshift: 0.3},
	})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestResultStore_SaveEvent(t *testing.T) {
	ctx := context.Background()
	id, runID := uuid.New(), uuid.New()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"loop":1}`)

	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO run_events")).
		WithArgs(id, runID, "loop.iteration", payload, at).
		WillReturnError(errors.New("connection reset"))

	err := NewResultStore(db).SaveEvent(ctx, id, runID, "loop.iteration", payload, at)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
