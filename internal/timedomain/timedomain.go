// Package timedomain builds the per-day feature tables used by the time
// domain learning loop. Each survey day sees only the photometry observed
// up to that day.
package timedomain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"slices"

	"github.com/cointoolbox/resspect/internal/config"
	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/exposure"
	"github.com/cointoolbox/resspect/internal/features"
	"github.com/cointoolbox/resspect/internal/fitting"
	"github.com/cointoolbox/resspect/internal/learn"
	"github.com/cointoolbox/resspect/internal/photometry"
	"github.com/cointoolbox/resspect/internal/platform/logger"
	"golang.org/x/sync/errgroup"
)

// Queryability criteria.
const (
	// CriterionLastObservation uses the magnitude of the latest r band
	// observation taken within DaysSinceObs days.
	CriterionLastObservation = 1
	// CriterionExtrapolated uses the fitted r band flux on the day itself.
	CriterionExtrapolated = 2
)

// queryBand is the filter spectroscopic targeting is decided on.
const queryBand = "r"

// ErrNoQueryBand is returned when the fitted filters lack the r band.
var ErrNoQueryBand = errors.New("filters must include the r band")

// Config configures a Builder.
type Config struct {
	Survey domain.Survey `validate:"required,oneof=SNPCC PLAsTiCC"`
	// Filters to fit; defaults to every survey filter.
	Filters  []string `validate:"omitempty,dive,required"`
	Criteria int      `validate:"oneof=1 2"`
	// DaysSinceObs is the criterion 1 look-back window in days.
	DaysSinceObs float64 `validate:"gte=0"`
	// MagCut is the faintest magnitude that can be queried.
	MagCut float64 `validate:"gt=0"`
	// MinPoints is the minimum number of observations per filter.
	MinPoints int `validate:"gte=5"`
	// Telescopes, when set, add one cost column per telescope.
	Telescopes []exposure.Telescope
	// SNR is the spectroscopic signal-to-noise target used for costs.
	SNR float64 `validate:"gte=0"`
	// OutputDir receives one file per day named by learn.DayFileName.
	OutputDir string `validate:"required"`
	// Concurrency bounds the number of days built at once.
	Concurrency int             `validate:"gte=0"`
	Fit         fitting.Options `validate:"-"`
}

// DefaultConfig returns the usual settings for survey.
func DefaultConfig(survey domain.Survey, outputDir string) Config {
	return Config{
		Survey:       survey,
		Filters:      survey.Filters(),
		Criteria:     CriterionLastObservation,
		DaysSinceObs: 2,
		MagCut:       24,
		MinPoints:    5,
		SNR:          exposure.DefaultSNR,
		OutputDir:    outputDir,
		Concurrency:  2,
		Fit:          fitting.Options{Workers: 4, QueueSize: 64},
	}
}

// Builder produces time domain feature tables from full light curves.
type Builder struct {
	cfg    Config
	curves []*domain.LightCurve
}

// NewBuilder validates cfg and returns a Builder over curves.
func NewBuilder(cfg Config, curves []*domain.LightCurve) (*Builder, error) {
	if len(cfg.Filters) == 0 {
		cfg.Filters = cfg.Survey.Filters()
	}
	if cfg.SNR == 0 {
		cfg.SNR = exposure.DefaultSNR
	}
	if err := config.Validator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid time domain configuration: %w", err)
	}
	if !slices.Contains(cfg.Filters, queryBand) {
		return nil, ErrNoQueryBand
	}
	for _, tel := range cfg.Telescopes {
		if err := tel.Calc.Validate(); err != nil {
			return nil, fmt.Errorf("telescope %s: %w", tel.Name, err)
		}
	}
	cfg.Fit.Filters = cfg.Filters
	return &Builder{cfg: cfg, curves: curves}, nil
}

// MJD returns the date of survey day.
func (b *Builder) MJD(day int) float64 {
	return b.cfg.Survey.FirstMJD() + float64(day)
}

// observable returns lc truncated at mjd, or nil when some filter has
// fewer than MinPoints observations.
func (b *Builder) observable(lc *domain.LightCurve, mjd float64) *domain.LightCurve {
	cut := lc.Truncate(mjd)
	for _, f := range b.cfg.Filters {
		if len(cut.ByFilter(f)) < b.cfg.MinPoints {
			return nil
		}
	}
	return cut
}

// Epoch builds the feature table of one survey day.
func (b *Builder) Epoch(ctx context.Context, day int) (*domain.FeatureTable, error) {
	mjd := b.MJD(day)
	var curves []*domain.LightCurve
	for _, lc := range b.curves {
		if cut := b.observable(lc, mjd); cut != nil {
			curves = append(curves, cut)
		}
	}

	fits, _, err := fitting.FitAll(ctx, curves, b.cfg.Fit)
	if err != nil {
		return nil, fmt.Errorf("day %d: %w", day, err)
	}

	tbl := &domain.FeatureTable{
		FeatureNames: domain.FeatureNames(b.cfg.Filters),
		CostNames:    exposure.Names(b.cfg.Telescopes),
		HasLastRMag:  true,
		Rows:         make([]domain.FeatureRow, 0, len(fits)),
	}
	for _, fit := range fits {
		row := fit.Row()
		row.LastRMag = b.queryMag(fit, mjd)
		row.Queryable = !math.IsNaN(row.LastRMag) && row.LastRMag <= b.cfg.MagCut
		if len(b.cfg.Telescopes) > 0 {
			row.Costs, err = exposure.Costs(b.cfg.Telescopes, row.LastRMag, b.cfg.SNR, queryBand)
			if err != nil {
				return nil, fmt.Errorf("day %d object %s: %w", day, row.ID, err)
			}
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}

// queryMag returns the r magnitude the queryability criterion is applied
// to, or NaN when it is unknown.
func (b *Builder) queryMag(fit fitting.ObjectFit, mjd float64) float64 {
	if b.cfg.Criteria == CriterionExtrapolated {
		rf, ok := fit.Fit(queryBand)
		if !ok {
			return math.NaN()
		}
		mag, _ := domain.FluxToMag(rf.At(mjd), photometry.PLAsTiCCZeroPoint)
		return mag
	}

	obs := fit.LightCurve.ByFilter(queryBand)
	for i := len(obs) - 1; i >= 0; i-- {
		if obs[i].MJD < mjd-b.cfg.DaysSinceObs {
			break
		}
		if mag, ok := observedMag(obs[i]); ok {
			return mag
		}
	}
	return math.NaN()
}

// observedMag prefers the catalogue magnitude and falls back to the flux.
func observedMag(o domain.Observation) (float64, bool) {
	if o.Mag > 0 && o.Mag < 99 && !math.IsNaN(o.Mag) {
		return o.Mag, true
	}
	return domain.FluxToMag(o.Flux, photometry.PLAsTiCCZeroPoint)
}

// BuildOneEpoch builds day and writes it to the output directory,
// returning the file path.
func (b *Builder) BuildOneEpoch(ctx context.Context, day int) (string, error) {
	tbl, err := b.Epoch(ctx, day)
	if err != nil {
		return "", err
	}
	path := filepath.Join(b.cfg.OutputDir, learn.DayFileName(day))
	if err := features.WriteFile(path, tbl); err != nil {
		return "", fmt.Errorf("writing day %d: %w", day, err)
	}

	queryable := 0
	for i := range tbl.Rows {
		if tbl.Rows[i].Queryable {
			queryable++
		}
	}
	logger.FromContext(ctx).Info("time domain epoch written",
		"day", day,
		"objects", len(tbl.Rows),
		"queryable", queryable,
		"path", path)
	return path, nil
}

// Build writes the tables of every day in days, several at a time. The
// returned paths follow the order of days.
func (b *Builder) Build(ctx context.Context, days []int) ([]string, error) {
	paths := make([]string, len(days))
	g, ctx := errgroup.WithContext(ctx)
	if b.cfg.Concurrency > 0 {
		g.SetLimit(b.cfg.Concurrency)
	}
	for i, day := range days {
		g.Go(func() error {
			path, err := b.BuildOneEpoch(ctx, day)
			if err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// DayRange lists the days in [start, end).
func DayRange(start, end int) []int {
	if end <= start {
		return nil
	}
	days := make([]int, 0, end-start)
	for d := start; d < end; d++ {
		days = append(days, d)
	}
	return days
}
