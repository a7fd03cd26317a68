package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cointoolbox/resspect/internal/classifier"
	"github.com/cointoolbox/resspect/internal/config"
	"github.com/cointoolbox/resspect/internal/database"
	"github.com/cointoolbox/resspect/internal/events"
	"github.com/cointoolbox/resspect/internal/learn"
	"github.com/cointoolbox/resspect/internal/platform/logger"
	"github.com/cointoolbox/resspect/internal/platform/postgres"
)

// ModelOptions selects the classifier and query strategy. Empty fields
// take the loop settings of the configuration.
type ModelOptions struct {
	Classifier  string `yaml:"classifier" validate:"required,oneof=RandomForest KNN GaussianNB"`
	Strategy    string `yaml:"strategy" validate:"required,oneof=RandomSampling UncertaintySampling EntropySampling LeastConfident MarginSampling"`
	Batch       int    `yaml:"batch" validate:"gt=0"`
	NEstimators int    `yaml:"n_estimators" validate:"gte=0"`
	// Bootstrap averages that many fits on resampled training sets.
	Bootstrap int    `yaml:"bootstrap,omitempty" validate:"gte=0"`
	Seed      *int64 `yaml:"seed,omitempty"`
}

// ApplyConfig implements Defaulter.
func (m *ModelOptions) ApplyConfig(cfg *config.Config) {
	if m.Classifier == "" {
		m.Classifier = cfg.Loop.Classifier
	}
	if m.Strategy == "" {
		m.Strategy = cfg.Loop.Strategy
	}
	if m.Batch == 0 {
		m.Batch = cfg.Loop.Batch
	}
	if m.NEstimators == 0 {
		m.NEstimators = cfg.Loop.NEstimators
	}
	if m.Seed == nil {
		seed := cfg.Loop.Seed
		m.Seed = &seed
	}
}

func (m *ModelOptions) seed() int64 {
	if m.Seed == nil {
		return 0
	}
	return *m.Seed
}

func (m *ModelOptions) model() learn.Model {
	return learn.Model{
		Classifier: m.Classifier,
		Options: classifier.Options{
			NEstimators: m.NEstimators,
			Seed:        m.seed(),
			Bootstrap:   m.Bootstrap,
		},
		Strategy: m.Strategy,
		Batch:    m.Batch,
	}
}

// OutputOptions names the files a loop writes.
type OutputOptions struct {
	MetricsOutput string `yaml:"metrics_output" validate:"required"`
	QueriedOutput string `yaml:"queried_output" validate:"required"`
}

// RunLoopOptions configures run_loop.
type RunLoopOptions struct {
	ModelOptions  `yaml:",inline"`
	OutputOptions `yaml:",inline"`
	Features      string `yaml:"features" validate:"required,file"`
	NLoops        int    `yaml:"nloops" validate:"gt=0"`
	// Initial is "original" or the size of a random training sample.
	Initial   string `yaml:"initial_training" validate:"required"`
	Queryable bool   `yaml:"queryable"`
	Canonical bool   `yaml:"canonical"`
}

// DefaultRunLoopOptions returns the run_loop defaults.
func DefaultRunLoopOptions() *RunLoopOptions {
	return &RunLoopOptions{NLoops: 1, Initial: database.InitialOriginal}
}

// RunTimeDomainOptions configures run_time_domain.
type RunTimeDomainOptions struct {
	ModelOptions  `yaml:",inline"`
	OutputOptions `yaml:",inline"`
	// FeaturesDir holds the day_<n>.dat tables.
	FeaturesDir string `yaml:"features_dir" validate:"required,dir"`
	// Days [StartDay, EndDay) are processed.
	StartDay        int    `yaml:"start_day" validate:"gte=0"`
	EndDay          int    `yaml:"end_day" validate:"gtfield=StartDay"`
	Initial         string `yaml:"initial_training" validate:"required"`
	InitialTraining string `yaml:"initial_training_file,omitempty" validate:"omitempty,file"`
	CanonicalIDs    string `yaml:"canonical_ids,omitempty" validate:"omitempty,file"`
	Queryable       bool   `yaml:"queryable"`
}

// DefaultRunTimeDomainOptions returns the run_time_domain defaults.
func DefaultRunTimeDomainOptions() *RunTimeDomainOptions {
	return &RunTimeDomainOptions{Initial: database.InitialOriginal, Queryable: true}
}

// newRunner builds a runner writing to the output files and, when env has
// a database, to Postgres.
func newRunner(ctx context.Context, env Env, out OutputOptions) (*learn.Runner, error) {
	for _, p := range []string{out.MetricsOutput, out.QueriedOutput} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
	}
	emitter := events.NewInMemoryEventEmitter(logger.FromContext(ctx))
	emitter.RegisterHandler(learn.NewFileSink(out.MetricsOutput, out.QueriedOutput))

	var opts []learn.Option
	if env.DB != nil {
		emitter.RegisterHandler(learn.NewStoreSink(env.DB, postgres.NewResultStore(env.DB)))
		opts = append(opts, learn.WithRunStore(postgres.NewRunStore(env.DB)))
	}
	return learn.NewRunner(emitter, opts...), nil
}

func summaryResult(out OutputOptions, sum *learn.Summary) *Result {
	return &Result{
		Outputs: []string{out.MetricsOutput, out.QueriedOutput},
		RunID:   sum.RunID.String(),
		Details: map[string]any{
			"iterations": sum.Iterations,
			"queried":    len(sum.QueriedIDs),
			"exhausted":  sum.Exhausted,
		},
	}
}

func runRunLoop(ctx context.Context, env Env, o *RunLoopOptions) (*Result, error) {
	runner, err := newRunner(ctx, env, o.OutputOptions)
	if err != nil {
		return nil, err
	}
	sum, err := runner.RunLoop(ctx, learn.LoopConfig{
		Model:        o.model(),
		FeaturesPath: o.Features,
		NLoops:       o.NLoops,
		Initial:      o.Initial,
		Queryable:    o.Queryable,
		Canonical:    o.Canonical,
		Seed:         o.seed(),
	})
	if err != nil {
		return nil, err
	}
	return summaryResult(o.OutputOptions, sum), nil
}

func runRunTimeDomain(ctx context.Context, env Env, o *RunTimeDomainOptions) (*Result, error) {
	runner, err := newRunner(ctx, env, o.OutputOptions)
	if err != nil {
		return nil, err
	}
	sum, err := runner.TimeDomainLoop(ctx, learn.TimeDomainConfig{
		Model:               o.model(),
		FeaturesDir:         o.FeaturesDir,
		StartDay:            o.StartDay,
		EndDay:              o.EndDay,
		Initial:             o.Initial,
		InitialTrainingPath: o.InitialTraining,
		CanonicalIDsPath:    o.CanonicalIDs,
		Queryable:           o.Queryable,
		Seed:                o.seed(),
	})
	if err != nil {
		return nil, err
	}
	return summaryResult(o.OutputOptions, sum), nil
}
