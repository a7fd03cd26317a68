package learn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cointoolbox/resspect/internal/classifier"
	"github.com/cointoolbox/resspect/internal/database"
	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/events"
	"github.com/cointoolbox/resspect/internal/platform/logger"
	"github.com/cointoolbox/resspect/internal/store"
	"github.com/google/uuid"
)

// Stage names recorded on runs.
const (
	StageRunLoop       = "run_loop"
	StageRunTimeDomain = "run_time_domain"
)

// Model selects the classifier and query strategy of a loop.
type Model struct {
	Classifier string
	Options    classifier.Options
	Strategy   string
	Batch      int
}

// Summary describes a finished loop.
type Summary struct {
	RunID      uuid.UUID
	Iterations int
	// Exhausted is set when the loop stopped because nothing was left to query.
	Exhausted  bool
	QueriedIDs []string
	// Last holds the outcome of the final iteration.
	Last database.Iteration
}

// Runner executes loops and emits their events.
type Runner struct {
	emitter events.EventEmitter
	runs    store.RunStore
}

// Option configures a Runner.
type Option func(*Runner)

// WithRunStore records every run in runs.
func WithRunStore(runs store.RunStore) Option {
	return func(r *Runner) { r.runs = runs }
}

// NewRunner creates a Runner emitting through emitter.
func NewRunner(emitter events.EventEmitter, opts ...Option) *Runner {
	r := &Runner{emitter: emitter}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// start creates the run record when a run store is configured.
func (r *Runner) start(ctx context.Context, stage string, m Model) (uuid.UUID, error) {
	run, err := domain.NewRun(stage, m.Strategy, m.Classifier, m.Batch)
	if err != nil {
		return uuid.Nil, err
	}
	if r.runs != nil {
		if err := r.runs.Create(ctx, run); err != nil {
			return uuid.Nil, fmt.Errorf("recording run: %w", err)
		}
	}
	return run.ID, nil
}

// finish emits the final event and closes the run record. loopErr is the
// error the loop stopped with, if any; it is returned joined with any
// error raised while finishing.
func (r *Runner) finish(ctx context.Context, stage string, sum *Summary, loopErr error) error {
	log := logger.FromContext(ctx)
	status := domain.RunStatusCompleted
	payload := FinishedPayload{
		Stage:      stage,
		Iterations: sum.Iterations,
		NQueried:   len(sum.QueriedIDs),
		Exhausted:  sum.Exhausted,
		QueriedIDs: sum.QueriedIDs,
	}
	if loopErr != nil {
		status = domain.RunStatusFailed
		payload.Error = loopErr.Error()
	}

	errs := []error{loopErr}
	if event, err := events.NewLoopEvent(sum.RunID, events.TypeFinished, payload); err != nil {
		errs = append(errs, err)
	} else if err := r.emitter.EmitEvent(ctx, event); err != nil {
		errs = append(errs, fmt.Errorf("emitting finished event: %w", err))
	}
	if r.runs != nil {
		if err := r.runs.Finish(ctx, sum.RunID, status, time.Now().UTC()); err != nil {
			errs = append(errs, fmt.Errorf("closing run: %w", err))
		}
	}

	log.Info("learning run finished",
		"stage", stage,
		"status", status,
		"iterations", sum.Iterations,
		"queried", len(sum.QueriedIDs))
	return errors.Join(errs...)
}

// step classifies, evaluates and, when the pool is not empty, queries and
// updates the samples. It returns the iteration summary and whether the
// query pool was empty.
func step(db *database.DataBase, m Model, loop, epoch int) (database.Iteration, bool, error) {
	c, err := classifier.New(m.Classifier, m.Options)
	if err != nil {
		return database.Iteration{}, false, err
	}
	if err := db.Classify(c); err != nil {
		return database.Iteration{}, false, err
	}
	if _, _, err := db.EvaluateClassification(); err != nil {
		return database.Iteration{}, false, err
	}

	indexes, err := db.MakeQuery(m.Strategy, m.Batch)
	if err != nil {
		return database.Iteration{}, false, err
	}
	if err := db.UpdateSamples(indexes); err != nil {
		return database.Iteration{}, false, err
	}
	return db.Iteration(loop, epoch), len(indexes) == 0, nil
}

// emitIteration publishes it and records its queried objects in sum.
func (r *Runner) emitIteration(ctx context.Context, sum *Summary, it database.Iteration, featureNames []string) error {
	event, err := events.NewLoopEvent(sum.RunID, events.TypeIteration, NewIterationPayload(it, featureNames))
	if err != nil {
		return fmt.Errorf("encoding iteration %d: %w", it.Loop, err)
	}
	if err := r.emitter.EmitEvent(ctx, event); err != nil {
		return fmt.Errorf("emitting iteration %d: %w", it.Loop, err)
	}
	sum.Iterations++
	sum.QueriedIDs = append(sum.QueriedIDs, it.QueriedIDs...)
	sum.Last = it
	return nil
}
