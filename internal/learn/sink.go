package learn

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/cointoolbox/resspect/internal/database"
	"github.com/cointoolbox/resspect/internal/events"
	"github.com/cointoolbox/resspect/internal/platform/logger"
	"github.com/cointoolbox/resspect/internal/store"
	"github.com/cointoolbox/resspect/internal/table"
)

// FileSink appends iteration events to the metrics and queried-objects
// files. The queried-objects header is taken from the first iteration.
type FileSink struct {
	metrics     *table.Appender
	queriedPath string

	mu      sync.Mutex
	queried *table.Appender
}

var _ events.EventHandler = (*FileSink)(nil)

// NewFileSink creates a sink writing to metricsPath and queriedPath. Both
// files are replaced on their first write.
func NewFileSink(metricsPath, queriedPath string) *FileSink {
	return &FileSink{
		metrics:     table.NewAppender(metricsPath, database.MetricsHeader()),
		queriedPath: queriedPath,
	}
}

func (s *FileSink) queriedAppender(featureNames []string) *table.Appender {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queried == nil {
		s.queried = table.NewAppender(s.queriedPath, database.QueriedHeader(featureNames))
	}
	return s.queried
}

// HandleEvent implements events.EventHandler.
func (s *FileSink) HandleEvent(ctx context.Context, event *events.LoopEvent) error {
	if event.Type != events.TypeIteration {
		return nil
	}
	var p IterationPayload
	if err := event.UnmarshalPayload(&p); err != nil {
		return fmt.Errorf("decoding iteration payload: %w", err)
	}
	it := p.Iteration()
	if err := s.metrics.Append(it.MetricsRow()); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	queried := s.queriedAppender(p.FeatureNames)
	for _, row := range it.QueriedRows() {
		if err := queried.Append(row); err != nil {
			return fmt.Errorf("writing queried objects: %w", err)
		}
	}
	return nil
}

// StoreSink persists events and their results in a database. Each event
// is stored in a single transaction.
type StoreSink struct {
	db      *sql.DB
	results store.ResultStore
}

var _ events.EventHandler = (*StoreSink)(nil)

// NewStoreSink creates a StoreSink.
func NewStoreSink(db *sql.DB, results store.ResultStore) *StoreSink {
	return &StoreSink{db: db, results: results}
}

// HandleEvent implements events.EventHandler.
func (s *StoreSink) HandleEvent(ctx context.Context, event *events.LoopEvent) error {
	var p IterationPayload
	if event.Type == events.TypeIteration {
		if err := event.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("decoding iteration payload: %w", err)
		}
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		results := s.results.WithTx(tx)
		if event.Type == events.TypeIteration {
			if err := results.SaveMetrics(ctx, p.MetricRecords(event.RunID)); err != nil {
				return err
			}
			if err := results.SaveQueries(ctx, p.QueryRecords(event.RunID)); err != nil {
				return err
			}
		}
		return results.SaveEvent(ctx, event.ID, event.RunID, event.Type, event.Payload, event.CreatedAt)
	})
	if err != nil {
		logger.FromContext(ctx).Error("failed to store loop event",
			"event_id", event.ID, "run_id", event.RunID, "error", err)
		return err
	}
	return nil
}
