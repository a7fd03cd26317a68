package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cointoolbox/resspect/internal/platform/logger"
	"gopkg.in/yaml.v3"
)

// ErrEmptyManifest is returned for a manifest without steps.
var ErrEmptyManifest = errors.New("manifest has no steps")

// Step is one stage invocation of a manifest.
type Step struct {
	Stage   string    `yaml:"stage"`
	Options yaml.Node `yaml:"options"`
}

// Manifest lists stages to run in order.
type Manifest struct {
	Steps []Step `yaml:"steps"`
}

// LoadManifest reads a YAML manifest. Stage names are checked; options are
// decoded when the step runs.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	if len(m.Steps) == 0 {
		return nil, ErrEmptyManifest
	}
	for i, step := range m.Steps {
		if _, err := Lookup(step.Stage); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &m, nil
}

// Decode returns the options of the step: the stage defaults overlaid
// with the values given in the manifest.
func (s Step) Decode(stage Stage) (any, error) {
	opts := stage.NewOptions()
	if s.Options.IsZero() {
		return opts, nil
	}
	if err := s.Options.Decode(opts); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidOptions, stage.Name, err)
	}
	return opts, nil
}

// RunManifest runs the steps of m in order and stops at the first failure.
// The results of the steps that ran are returned.
func RunManifest(ctx context.Context, env Env, m *Manifest) ([]*Result, error) {
	log := logger.FromContext(ctx)
	results := make([]*Result, 0, len(m.Steps))
	for i, step := range m.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		stage, err := Lookup(step.Stage)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		opts, err := step.Decode(stage)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		log.Info("running manifest step", "step", i+1, "of", len(m.Steps), "stage", stage.Name)
		res, err := stage.Run(ctx, env, opts)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		results = append(results, res)
	}
	return results, nil
}
