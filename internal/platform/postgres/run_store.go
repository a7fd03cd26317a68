package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/platform/logger"
	"github.com/cointoolbox/resspect/internal/store"
	"github.com/google/uuid"
)

// RunStore implements store.RunStore.
type RunStore struct {
	db dbtx
}

var _ store.RunStore = (*RunStore)(nil)

// NewRunStore creates a RunStore over db, which may be a *sql.DB or *sql.Tx.
func NewRunStore(db dbtx) *RunStore {
	return &RunStore{db: db}
}

// WithTx returns a store bound to tx.
func (s *RunStore) WithTx(tx *sql.Tx) store.RunStore {
	return &RunStore{db: tx}
}

// Create implements store.RunStore.
func (s *RunStore) Create(ctx context.Context, run *domain.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, stage, strategy, classifier, batch, status, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.Stage, run.Strategy, run.Classifier, run.Batch,
		string(run.Status), run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to create run", "run_id", run.ID, "error", err)
		return store.Wrap("run", "create: insert", MapError(err))
	}
	return nil
}

// Finish implements store.RunStore.
func (s *RunStore) Finish(ctx context.Context, id uuid.UUID, status domain.RunStatus, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = $1, finished_at = $2 WHERE id = $3`,
		string(status), at.UTC(), id,
	)
	if err != nil {
		return store.Wrap("run", "finish: update", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrRunNotFound)
}

// GetByID implements store.RunStore.
func (s *RunStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	var run domain.Run
	var status string
	var finished sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, stage, strategy, classifier, batch, status, started_at, finished_at
		FROM runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.Stage, &run.Strategy, &run.Classifier, &run.Batch, &status, &run.StartedAt, &finished)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrRunNotFound
		}
		return nil, store.Wrap("run", "get: query", MapError(err))
	}
	run.Status = domain.RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
