package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cointoolbox/resspect/internal/config"
	"github.com/cointoolbox/resspect/internal/platform/logger"
	"gopkg.in/yaml.v3"
)

// Stage names.
const (
	NameBuildCanonical           = "build_canonical"
	NameBuildTimeDomainSNPCC     = "build_time_domain_snpcc"
	NameBuildTimeDomainPLAsTiCC  = "build_time_domain_plasticc"
	NameCalculateCosmologyMetric = "calculate_cosmology_metric"
	NameFitDataset               = "fit_dataset"
	NameMakeMetricsPlots         = "make_metrics_plots"
	NameRunLoop                  = "run_loop"
	NameRunTimeDomain            = "run_time_domain"
)

// Errors returned by stages.
var (
	ErrUnknownStage   = errors.New("unknown stage")
	ErrInvalidOptions = errors.New("invalid stage options")
)

// Env is what stages share besides their options.
type Env struct {
	Config *config.Config
	// DB, when set, also receives the results of learning loops.
	DB *sql.DB
}

// Result describes what a stage produced.
type Result struct {
	Outputs []string       `yaml:"outputs"`
	RunID   string         `yaml:"run_id,omitempty"`
	Details map[string]any `yaml:"details,omitempty"`
}

// Defaulter is implemented by options that take missing values from the
// configuration.
type Defaulter interface {
	ApplyConfig(cfg *config.Config)
}

// Stage is one step of the pipeline.
type Stage struct {
	Name        string
	Description string
	// NewOptions returns a pointer to the stage options with their
	// defaults filled in.
	NewOptions func() any

	run func(ctx context.Context, env Env, opts any) (*Result, error)
}

func newStage[T any](name, description string, defaults func() *T, run func(context.Context, Env, *T) (*Result, error)) Stage {
	return Stage{
		Name:        name,
		Description: description,
		NewOptions:  func() any { return defaults() },
		run: func(ctx context.Context, env Env, opts any) (*Result, error) {
			o, ok := opts.(*T)
			if !ok {
				return nil, fmt.Errorf("%w: %s expects %T, got %T", ErrInvalidOptions, name, (*T)(nil), opts)
			}
			return run(ctx, env, o)
		},
	}
}

var stages = []Stage{
	newStage(NameBuildCanonical,
		"select the photometric objects that best mimic the spectroscopic sample",
		DefaultBuildCanonicalOptions, runBuildCanonical),
	newStage(NameBuildTimeDomainPLAsTiCC,
		"write one PLAsTiCC feature table per survey day",
		func() *TimeDomainOptions { return DefaultTimeDomainOptions("PLAsTiCC") }, timeDomainBuilder("PLAsTiCC")),
	newStage(NameBuildTimeDomainSNPCC,
		"write one SNPCC feature table per survey day",
		func() *TimeDomainOptions { return DefaultTimeDomainOptions("SNPCC") }, timeDomainBuilder("SNPCC")),
	newStage(NameCalculateCosmologyMetric,
		"compute the w0-wa Fisher figure of merit of a SALT fit sample",
		DefaultCosmologyOptions, runCalculateCosmologyMetric),
	newStage(NameFitDataset,
		"fit Bazin functions to every light curve and write the feature table",
		DefaultFitDatasetOptions, runFitDataset),
	newStage(NameMakeMetricsPlots,
		"plot the metrics of one or more learning runs",
		DefaultPlotsOptions, runMakeMetricsPlots),
	newStage(NameRunLoop,
		"run the static active learning loop",
		DefaultRunLoopOptions, runRunLoop),
	newStage(NameRunTimeDomain,
		"run the time domain active learning loop",
		DefaultRunTimeDomainOptions, runRunTimeDomain),
}

// Stages returns every stage in name order.
func Stages() []Stage {
	return append([]Stage(nil), stages...)
}

// Lookup returns the stage called name.
func Lookup(name string) (Stage, error) {
	for _, s := range stages {
		if s.Name == name {
			return s, nil
		}
	}
	return Stage{}, fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

// Run validates opts and runs the stage. On success a run record is
// written next to the first output.
func (s Stage) Run(ctx context.Context, env Env, opts any) (*Result, error) {
	if env.Config == nil {
		return nil, errors.New("stage environment has no configuration")
	}
	if d, ok := opts.(Defaulter); ok {
		d.ApplyConfig(env.Config)
	}
	if err := config.Validator().Struct(opts); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidOptions, s.Name, err)
	}

	log := logger.FromContext(ctx).With("stage", s.Name)
	ctx = logger.WithLogger(ctx, log)
	log.Info("stage started")
	started := time.Now()

	res, err := s.run(ctx, env, opts)
	if err != nil {
		log.Error("stage failed", "error", err, "duration", time.Since(started))
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}

	finished := time.Now()
	log.Info("stage finished", "duration", finished.Sub(started), "outputs", len(res.Outputs))
	if len(res.Outputs) > 0 {
		path := RecordPath(s.Name, res.Outputs[0])
		rec := Record{
			Stage:      s.Name,
			StartedAt:  started.UTC(),
			FinishedAt: finished.UTC(),
			Options:    opts,
			Result:     *res,
		}
		if err := WriteRecord(path, rec); err != nil {
			return res, fmt.Errorf("%s: writing run record: %w", s.Name, err)
		}
	}
	return res, nil
}

// Record is the YAML run record of a stage.
type Record struct {
	Stage      string    `yaml:"stage"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
	Options    any       `yaml:"options"`
	Result     Result    `yaml:"result"`
}

// RecordPath is where the record of stage is written for an output.
func RecordPath(stage, output string) string {
	return filepath.Join(filepath.Dir(output), stage+".run.yaml")
}

// WriteRecord stores rec as YAML at path.
func WriteRecord(path string, rec Record) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadRecord loads a record written by WriteRecord. Options are decoded
// as a generic map.
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}
