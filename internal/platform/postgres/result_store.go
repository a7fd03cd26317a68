package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/store"
	"github.com/google/uuid"
)

// ResultStore implements store.ResultStore.
type ResultStore struct {
	db dbtx
}

var _ store.ResultStore = (*ResultStore)(nil)

// NewResultStore creates a ResultStore over db.
func NewResultStore(db dbtx) *ResultStore {
	return &ResultStore{db: db}
}

// WithTx returns a store bound to tx.
func (s *ResultStore) WithTx(tx *sql.Tx) store.ResultStore {
	return &ResultStore{db: tx}
}

// SaveMetrics implements store.MetricStore. Re-saving a metric of the same
// loop replaces its value.
func (s *ResultStore) SaveMetrics(ctx context.Context, records []domain.MetricRecord) error {
	if len(records) == 0 {
		return nil
	}
	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO run_metrics (run_id, loop, epoch, name, value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id, loop, name) DO UPDATE SET value = EXCLUDED.value, epoch = EXCLUDED.epoch`)
	if err != nil {
		return store.Wrap("metric", "save: prepare", MapError(err))
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.RunID, r.Loop, r.Epoch, r.Name, r.Value); err != nil {
			return store.Wrap("metric", "save: insert", MapError(err))
		}
	}
	return nil
}

// ListMetrics implements store.MetricStore.
func (s *ResultStore) ListMetrics(ctx context.Context, runID uuid.UUID) ([]domain.MetricRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, loop, epoch, name, value FROM run_metrics
		WHERE run_id = $1 ORDER BY loop, name`, runID)
	if err != nil {
		return nil, store.Wrap("metric", "list: query", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var out []domain.MetricRecord
	for rows.Next() {
		var r domain.MetricRecord
		if err := rows.Scan(&r.RunID, &r.Loop, &r.Epoch, &r.Name, &r.Value); err != nil {
			return nil, store.Wrap("metric", "list: scan", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Wrap("metric", "list: iteration", MapError(err))
	}
	return out, nil
}

// SaveQueries implements store.QueryStore.
func (s *ResultStore) SaveQueries(ctx context.Context, records []domain.QueryRecord) error {
	if len(records) == 0 {
		return nil
	}
	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO run_queries (run_id, loop, epoch, object_id, sn_type, redshift)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return store.Wrap("query", "save: prepare", MapError(err))
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.RunID, r.Loop, r.Epoch, r.ObjectID, r.SNType, r.Redshift); err != nil {
			return store.Wrap("query", "save: insert", MapError(err))
		}
	}
	return nil
}

// ListQueries implements store.QueryStore.
func (s *ResultStore) ListQueries(ctx context.Context, runID uuid.UUID) ([]domain.QueryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, loop, epoch, object_id, sn_type, redshift FROM run_queries
		WHERE run_id = $1 ORDER BY id`, runID)
	if err != nil {
		return nil, store.Wrap("query", "list: query", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var out []domain.QueryRecord
	for rows.Next() {
		var r domain.QueryRecord
		if err := rows.Scan(&r.RunID, &r.Loop, &r.Epoch, &r.ObjectID, &r.SNType, &r.Redshift); err != nil {
			return nil, store.Wrap("query", "list: scan", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Wrap("query", "list: iteration", MapError(err))
	}
	return out, nil
}

// SaveEvent implements store.EventStore.
func (s *ResultStore) SaveEvent(ctx context.Context, id, runID uuid.UUID, eventType string, payload []byte, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_events (id, run_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, runID, eventType, payload, createdAt.UTC())
	if err != nil {
		return store.Wrap("event", "save: insert", MapError(err))
	}
	return nil
}
