package pipeline

import (
	"context"

	"github.com/cointoolbox/resspect/internal/plotting"
	"gonum.org/v1/plot/vg"
)

// PlotsOptions configures make_metrics_plots.
type PlotsOptions struct {
	// Metrics are metrics files written by the learning loops.
	Metrics []string `yaml:"metrics" validate:"required,min=1,dive,file"`
	// Labels name the lines; defaults to the metrics file names.
	Labels []string `yaml:"labels,omitempty"`
	// Output is the image written; png, svg or pdf by extension.
	Output string `yaml:"output" validate:"required"`
	// Width and Height are in inches.
	Width  float64 `yaml:"width" validate:"gt=0"`
	Height float64 `yaml:"height" validate:"gt=0"`
}

// DefaultPlotsOptions returns the make_metrics_plots defaults.
func DefaultPlotsOptions() *PlotsOptions {
	return &PlotsOptions{Width: 10, Height: 8}
}

func runMakeMetricsPlots(_ context.Context, _ Env, o *PlotsOptions) (*Result, error) {
	c := plotting.NewCanvas()
	c.SetPlotDimensions(vg.Length(o.Width)*vg.Inch, vg.Length(o.Height)*vg.Inch)
	if err := c.Load(o.Metrics, o.Labels); err != nil {
		return nil, err
	}
	if err := c.Plot(o.Output); err != nil {
		return nil, err
	}
	return &Result{
		Outputs: []string{o.Output},
		Details: map[string]any{"series": len(c.Series())},
	}, nil
}
