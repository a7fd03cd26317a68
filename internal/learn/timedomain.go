package learn

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cointoolbox/resspect/internal/canonical"
	"github.com/cointoolbox/resspect/internal/database"
	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/features"
	"github.com/cointoolbox/resspect/internal/platform/logger"
)

// DayFileName is the feature file name of survey day n.
func DayFileName(day int) string {
	return fmt.Sprintf("day_%d.dat", day)
}

// TimeDomainConfig configures TimeDomainLoop.
type TimeDomainConfig struct {
	Model
	// FeaturesDir holds one feature table per survey day, named by DayFileName.
	FeaturesDir string
	// StartDay and EndDay bound the days processed, EndDay excluded.
	StartDay int
	EndDay   int
	// Initial is database.InitialOriginal or a random training size drawn
	// from the first day. Ignored when InitialTrainingPath is set.
	Initial string
	// InitialTrainingPath is an optional feature table holding the initial
	// training sample.
	InitialTrainingPath string
	// CanonicalIDsPath optionally restricts queries to the listed objects.
	CanonicalIDsPath string
	Queryable        bool
	Seed             int64
}

type dayLoader struct {
	dir       string
	canonical []string
}

func (l dayLoader) load(day int) (*domain.FeatureTable, error) {
	tbl, err := features.ReadFile(filepath.Join(l.dir, DayFileName(day)))
	if err != nil {
		return nil, fmt.Errorf("loading day %d: %w", day, err)
	}
	if l.canonical != nil {
		canonical.Apply(tbl, l.canonical)
	}
	return tbl, nil
}

// TimeDomainLoop runs one query per survey day. The training sample is
// built on the first day and carried over; every later day re-reads the
// features of the training objects from that day's table, keeping the
// previous values of objects the table lacks.
func (r *Runner) TimeDomainLoop(ctx context.Context, cfg TimeDomainConfig) (*Summary, error) {
	if cfg.EndDay <= cfg.StartDay {
		return nil, fmt.Errorf("end day %d must be after start day %d", cfg.EndDay, cfg.StartDay)
	}
	loader := dayLoader{dir: cfg.FeaturesDir}
	if cfg.CanonicalIDsPath != "" {
		ids, err := features.ReadIDs(cfg.CanonicalIDsPath)
		if err != nil {
			return nil, fmt.Errorf("loading canonical sample: %w", err)
		}
		loader.canonical = ids
	}
	opts := database.SampleOptions{
		Initial:   cfg.Initial,
		Queryable: cfg.Queryable,
		Canonical: cfg.CanonicalIDsPath != "",
	}

	first, err := loader.load(cfg.StartDay)
	if err != nil {
		return nil, err
	}
	db := database.New(cfg.Seed)
	if cfg.InitialTrainingPath != "" {
		train, err := features.ReadFile(cfg.InitialTrainingPath)
		if err != nil {
			return nil, fmt.Errorf("loading initial training sample: %w", err)
		}
		err = db.SeedTraining(train.Rows, first, opts)
		if err != nil {
			return nil, fmt.Errorf("building samples: %w", err)
		}
	} else {
		db.SetFeatures(first)
		if err := db.BuildSamples(opts); err != nil {
			return nil, fmt.Errorf("building samples: %w", err)
		}
	}

	runID, err := r.start(ctx, StageRunTimeDomain, cfg.Model)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With("run_id", runID, "strategy", cfg.Strategy, "classifier", cfg.Classifier)
	log.Info("starting time domain loop",
		"start_day", cfg.StartDay,
		"end_day", cfg.EndDay,
		"n_train", len(db.Train))

	sum := &Summary{RunID: runID}
	err = r.days(ctx, db, loader, cfg, sum)
	return sum, r.finish(ctx, StageRunTimeDomain, sum, err)
}

func (r *Runner) days(ctx context.Context, db *database.DataBase, loader dayLoader, cfg TimeDomainConfig, sum *Summary) error {
	log := logger.FromContext(ctx)
	for day := cfg.StartDay; day < cfg.EndDay; day++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if day > cfg.StartDay {
			tbl, err := loader.load(day)
			if err != nil {
				return err
			}
			if err := db.Refresh(tbl); err != nil {
				return fmt.Errorf("day %d: %w", day, err)
			}
		}

		it, empty, err := step(db, cfg.Model, day-cfg.StartDay, day)
		if err != nil {
			return fmt.Errorf("day %d: %w", day, err)
		}
		if empty {
			log.Info("no queryable objects", "day", day)
		}
		if err := r.emitIteration(ctx, sum, it, db.FeatureNames); err != nil {
			return err
		}
	}
	return nil
}
