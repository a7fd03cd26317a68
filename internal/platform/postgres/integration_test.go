//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/platform/postgres"
	"github.com/cointoolbox/resspect/internal/store"
	"github.com/cointoolbox/resspect/internal/testdb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStore_Integration(t *testing.T) {
	db := testdb.Open(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		runs := postgres.NewRunStore(db).WithTx(tx)

		run, err := domain.NewRun("run_loop", "UncertaintySampling", "RandomForest", 2)
		require.NoError(t, err)
		require.NoError(t, runs.Create(ctx, run))

		finished := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, runs.Finish(ctx, run.ID, domain.RunStatusCompleted, finished))

		got, err := runs.GetByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RunStatusCompleted, got.Status)
		require.NotNil(t, got.FinishedAt)
		assert.True(t, finished.Equal(*got.FinishedAt))

		err = runs.Finish(ctx, uuid.New(), domain.RunStatusFailed, finished)
		assert.ErrorIs(t, err, store.ErrRunNotFound)
	})
}

func TestResultStore_Integration(t *testing.T) {
	db := testdb.Open(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		run, err := domain.NewRun("run_time_domain", "RandomSampling", "KNN", 1)
		require.NoError(t, err)
		require.NoError(t, postgres.NewRunStore(db).WithTx(tx).Create(ctx, run))

		results := postgres.NewResultStore(db).WithTx(tx)
		require.NoError(t, results.SaveMetrics(ctx, []domain.MetricRecord{
			{RunID: run.ID, Loop: 0, Epoch: 20, Name: "accuracy", Value: 0.5},
			{RunID: run.ID, Loop: 0, Epoch: 20, Name: "fom", Value: 0.1},
		}))
		// Saving the same loop again replaces the value.
		require.NoError(t, results.SaveMetrics(ctx, []domain.MetricRecord{
			{RunID: run.ID, Loop: 0, Epoch: 20, Name: "accuracy", Value: 0.75},
		}))
		metrics, err := results.ListMetrics(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, metrics, 2)
		assert.Equal(t, "accuracy", metrics[0].Name)
		assert.Equal(t, 0.75, metrics[0].Value)

		require.NoError(t, results.SaveQueries(ctx, []domain.QueryRecord{
			{RunID: run.ID, Loop: 0, Epoch: 20, ObjectID: "729", SNType: "Ia", Redshift: 0.4},
		}))
		queries, err := results.ListQueries(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, queries, 1)
		assert.Equal(t, "729", queries[0].ObjectID)

		require.NoError(t, results.SaveEvent(ctx, uuid.New(), run.ID, "loop.iteration", []byte(`{"loop":0}`), time.Now()))
	})
}
