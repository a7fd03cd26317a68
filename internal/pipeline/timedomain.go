package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/exposure"
	"github.com/cointoolbox/resspect/internal/timedomain"
)

// ErrSurveyMismatch is returned when a survey specific stage is given
// options for another survey.
var ErrSurveyMismatch = errors.New("stage does not handle this survey")

// TimeDomainOptions configures build_time_domain_snpcc and
// build_time_domain_plasticc.
type TimeDomainOptions struct {
	Source    `yaml:",inline"`
	OutputDir string `yaml:"output_dir" validate:"required"`
	// Days [StartDay, EndDay) are built.
	StartDay int `yaml:"start_day" validate:"gte=0"`
	EndDay   int `yaml:"end_day" validate:"gtfield=StartDay"`
	// Criteria selects how queryable objects are flagged, see timedomain.
	Criteria     int     `yaml:"criteria" validate:"oneof=1 2"`
	DaysSinceObs float64 `yaml:"days_since_obs" validate:"gte=0"`
	MagCut       float64 `yaml:"mag_cut" validate:"gt=0"`
	// Telescopes adds a cost column per listed telescope.
	Telescopes  []string `yaml:"telescopes,omitempty" validate:"omitempty,dive,oneof=4m 8m"`
	SNR         float64  `yaml:"snr" validate:"gte=0"`
	Concurrency int      `yaml:"concurrency" validate:"gte=0"`
}

// DefaultTimeDomainOptions returns the time domain defaults for survey.
func DefaultTimeDomainOptions(survey string) *TimeDomainOptions {
	s := domain.Survey(survey)
	def := timedomain.DefaultConfig(s, "")
	return &TimeDomainOptions{
		Source:       Source{Survey: survey},
		Criteria:     def.Criteria,
		DaysSinceObs: def.DaysSinceObs,
		MagCut:       def.MagCut,
		Telescopes:   exposure.Names(exposure.DefaultTelescopes()),
		SNR:          def.SNR,
		Concurrency:  def.Concurrency,
	}
}

func telescopes(names []string) ([]exposure.Telescope, error) {
	all := exposure.DefaultTelescopes()
	out := make([]exposure.Telescope, 0, len(names))
	for _, name := range names {
		found := false
		for _, tel := range all {
			if tel.Name == name {
				out = append(out, tel)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown telescope %q", name)
		}
	}
	return out, nil
}

func timeDomainBuilder(survey string) func(context.Context, Env, *TimeDomainOptions) (*Result, error) {
	return func(ctx context.Context, env Env, o *TimeDomainOptions) (*Result, error) {
		if o.Survey != survey {
			return nil, fmt.Errorf("%w: expected %s, got %s", ErrSurveyMismatch, survey, o.Survey)
		}
		return runBuildTimeDomain(ctx, env, o)
	}
}

func runBuildTimeDomain(ctx context.Context, env Env, o *TimeDomainOptions) (*Result, error) {
	tels, err := telescopes(o.Telescopes)
	if err != nil {
		return nil, err
	}
	ds, err := o.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(o.OutputDir, 0o755); err != nil {
		return nil, err
	}

	cfg := timedomain.DefaultConfig(ds.Survey, o.OutputDir)
	cfg.Filters = ds.Filters
	cfg.Criteria = o.Criteria
	cfg.DaysSinceObs = o.DaysSinceObs
	cfg.MagCut = o.MagCut
	cfg.Telescopes = tels
	cfg.SNR = o.SNR
	cfg.Concurrency = o.Concurrency
	cfg.Fit = fitOptions(env.Config, ds.Filters)

	b, err := timedomain.NewBuilder(cfg, ds.Curves)
	if err != nil {
		return nil, err
	}
	paths, err := b.Build(ctx, timedomain.DayRange(o.StartDay, o.EndDay))
	if err != nil {
		return nil, err
	}
	return &Result{
		Outputs: paths,
		Details: map[string]any{"days": len(paths), "objects": len(ds.Curves)},
	}, nil
}
