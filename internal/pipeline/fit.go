package pipeline

import (
	"context"

	"github.com/cointoolbox/resspect/internal/config"
	"github.com/cointoolbox/resspect/internal/features"
	"github.com/cointoolbox/resspect/internal/fitting"
	"github.com/cointoolbox/resspect/internal/platform/logger"
)

// FitDatasetOptions configures fit_dataset.
type FitDatasetOptions struct {
	Source `yaml:",inline"`
	// Output is the feature table written.
	Output string `yaml:"output" validate:"required"`
	// SkippedOutput optionally lists the objects that could not be fitted.
	SkippedOutput string `yaml:"skipped_output,omitempty"`
}

// DefaultFitDatasetOptions returns the fit_dataset defaults.
func DefaultFitDatasetOptions() *FitDatasetOptions {
	return &FitDatasetOptions{Source: Source{Survey: "SNPCC"}}
}

func fitOptions(cfg *config.Config, filters []string) fitting.Options {
	return fitting.Options{
		Filters:       filters,
		Workers:       cfg.Fit.Workers,
		QueueSize:     cfg.Fit.QueueSize,
		MaxIterations: cfg.Fit.MaxIterations,
	}
}

func runFitDataset(ctx context.Context, env Env, o *FitDatasetOptions) (*Result, error) {
	ds, err := o.Load(ctx)
	if err != nil {
		return nil, err
	}
	tbl, report, err := fitting.FitDataset(ctx, ds.Curves, fitOptions(env.Config, ds.Filters))
	if err != nil {
		return nil, err
	}
	if err := features.WriteFile(o.Output, tbl); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("feature table written",
		"path", o.Output,
		"fitted", report.Fitted,
		"skipped", len(report.Skipped))

	res := &Result{
		Outputs: []string{o.Output},
		Details: map[string]any{"total": report.Total, "fitted": report.Fitted, "skipped": len(report.Skipped)},
	}
	if o.SkippedOutput != "" {
		if err := features.WriteIDs(o.SkippedOutput, report.Skipped); err != nil {
			return nil, err
		}
		res.Outputs = append(res.Outputs, o.SkippedOutput)
	}
	return res, nil
}
