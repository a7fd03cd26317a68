package learn

import (
	"context"
	"fmt"

	"github.com/cointoolbox/resspect/internal/database"
	"github.com/cointoolbox/resspect/internal/platform/logger"
)

// LoopConfig configures RunLoop.
type LoopConfig struct {
	Model
	// FeaturesPath is the feature table to learn from.
	FeaturesPath string
	// NLoops is the maximum number of iterations.
	NLoops int
	// Initial is database.InitialOriginal or a random training size.
	Initial   string
	Queryable bool
	Canonical bool
	Seed      int64
}

// RunLoop runs the static active learning loop: each iteration trains on
// the current training sample, evaluates on the test sample and moves
// one query batch from test to train. The loop ends after NLoops
// iterations or once the query pool is empty.
func (r *Runner) RunLoop(ctx context.Context, cfg LoopConfig) (*Summary, error) {
	if cfg.NLoops <= 0 {
		return nil, fmt.Errorf("number of loops must be positive, got %d", cfg.NLoops)
	}
	db := database.New(cfg.Seed)
	if err := db.LoadFeatures(cfg.FeaturesPath); err != nil {
		return nil, fmt.Errorf("loading features: %w", err)
	}
	if err := db.BuildSamples(database.SampleOptions{
		Initial:   cfg.Initial,
		Queryable: cfg.Queryable,
		Canonical: cfg.Canonical,
	}); err != nil {
		return nil, fmt.Errorf("building samples: %w", err)
	}
	return r.Loop(ctx, db, cfg.Model, cfg.NLoops)
}

// Loop runs up to nloops iterations over an already prepared db.
func (r *Runner) Loop(ctx context.Context, db *database.DataBase, m Model, nloops int) (*Summary, error) {
	runID, err := r.start(ctx, StageRunLoop, m)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With("run_id", runID, "strategy", m.Strategy, "classifier", m.Classifier)
	log.Info("starting active learning loop",
		"loops", nloops,
		"n_train", len(db.Train),
		"n_test", len(db.Test))

	sum := &Summary{RunID: runID}
	err = r.loop(ctx, db, m, nloops, sum)
	return sum, r.finish(ctx, StageRunLoop, sum, err)
}

func (r *Runner) loop(ctx context.Context, db *database.DataBase, m Model, nloops int, sum *Summary) error {
	log := logger.FromContext(ctx)
	for loop := 0; loop < nloops; loop++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(db.Pool()) == 0 {
			log.Info("query pool exhausted", "loop", loop)
			sum.Exhausted = true
			return nil
		}

		it, _, err := step(db, m, loop, loop)
		if err != nil {
			return fmt.Errorf("loop %d: %w", loop, err)
		}
		if err := r.emitIteration(ctx, sum, it, db.FeatureNames); err != nil {
			return err
		}
		log.Debug("loop iteration done",
			"loop", loop,
			"n_train", it.NTrain,
			"queried", it.QueriedIDs)
	}
	return nil
}
