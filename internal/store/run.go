package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/google/uuid"
)

// RunStore persists learning runs.
type RunStore interface {
	// Create saves a new run. Returns ErrDuplicate if the ID exists and
	// ErrInvalidEntity if the run fails validation.
	Create(ctx context.Context, run *domain.Run) error

	// Finish sets the final status and finish time of a run.
	// Returns ErrRunNotFound if the run does not exist.
	Finish(ctx context.Context, id uuid.UUID, status domain.RunStatus, at time.Time) error

	// GetByID retrieves a run. Returns ErrRunNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)

	// WithTx returns a store that runs its queries in tx.
	WithTx(tx *sql.Tx) RunStore
}

// MetricStore persists per-iteration metrics.
type MetricStore interface {
	// SaveMetrics stores metric records. Should run within a transaction
	// so that an iteration is stored completely or not at all.
	SaveMetrics(ctx context.Context, records []domain.MetricRecord) error

	// ListMetrics returns the metrics of a run ordered by loop and name.
	ListMetrics(ctx context.Context, runID uuid.UUID) ([]domain.MetricRecord, error)
}

// QueryStore persists queried objects.
type QueryStore interface {
	// SaveQueries stores the objects queried during an iteration.
	SaveQueries(ctx context.Context, records []domain.QueryRecord) error

	// ListQueries returns the queried objects of a run in query order.
	ListQueries(ctx context.Context, runID uuid.UUID) ([]domain.QueryRecord, error)
}

// EventStore keeps the raw loop events for auditing.
type EventStore interface {
	// SaveEvent stores an event payload.
	SaveEvent(ctx context.Context, id, runID uuid.UUID, eventType string, payload []byte, createdAt time.Time) error
}

// ResultStore groups the stores written once per loop iteration so they
// can share a transaction.
type ResultStore interface {
	MetricStore
	QueryStore
	EventStore

	// WithTx returns a store that runs its queries in tx.
	WithTx(tx *sql.Tx) ResultStore
}
