package pipeline

import (
	"context"
	"fmt"

	"github.com/cointoolbox/resspect/internal/canonical"
	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/features"
	"github.com/cointoolbox/resspect/internal/platform/logger"
)

// BuildCanonicalOptions configures build_canonical.
type BuildCanonicalOptions struct {
	Source `yaml:",inline"`
	// Output receives the canonical object IDs, one per line.
	Output string `yaml:"output" validate:"required"`
	// MetadataInput is a PLAsTiCC metadata table from an earlier run; when
	// set no light curves are read.
	MetadataInput string `yaml:"metadata_input,omitempty" validate:"omitempty,file"`
	// MetadataOutput optionally stores the PLAsTiCC metadata table built
	// from the light curves.
	MetadataOutput string `yaml:"metadata_output,omitempty"`
	// Features and FeaturesOutput optionally copy a feature table with the
	// canonical objects marked queryable.
	Features       string `yaml:"features,omitempty" validate:"omitempty,file"`
	FeaturesOutput string `yaml:"features_output,omitempty" validate:"required_with=Features"`
}

// DefaultBuildCanonicalOptions returns the build_canonical defaults.
func DefaultBuildCanonicalOptions() *BuildCanonicalOptions {
	return &BuildCanonicalOptions{Source: Source{Survey: "SNPCC"}}
}

func runBuildCanonical(ctx context.Context, _ Env, o *BuildCanonicalOptions) (*Result, error) {
	log := logger.FromContext(ctx)
	res := &Result{Outputs: []string{o.Output}, Details: map[string]any{}}

	objects, skipped, err := canonicalObjects(ctx, o, res)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		log.Warn("objects without characteristics skipped", "count", len(skipped))
	}

	sample, err := canonical.Build(ctx, objects)
	if err != nil {
		return nil, err
	}
	if err := features.WriteIDs(o.Output, sample.IDs); err != nil {
		return nil, err
	}
	res.Details["canonical"] = len(sample.IDs)
	res.Details["unmatched"] = len(sample.Unmatched)
	res.Details["skipped"] = len(skipped)

	if o.Features != "" {
		tbl, err := features.ReadFile(o.Features)
		if err != nil {
			return nil, err
		}
		n := canonical.Apply(tbl, sample.IDs)
		if err := features.WriteFile(o.FeaturesOutput, tbl); err != nil {
			return nil, err
		}
		log.Info("canonical sample applied to features", "path", o.FeaturesOutput, "marked", n)
		res.Outputs = append(res.Outputs, o.FeaturesOutput)
	}
	return res, nil
}

func canonicalObjects(ctx context.Context, o *BuildCanonicalOptions, res *Result) ([]canonical.Object, []string, error) {
	survey, err := domain.ParseSurvey(o.Survey)
	if err != nil {
		return nil, nil, err
	}

	if survey == domain.SurveyPLAsTiCC && o.MetadataInput != "" {
		records, filters, err := canonical.ReadMetadata(o.MetadataInput)
		if err != nil {
			return nil, nil, fmt.Errorf("reading metadata table: %w", err)
		}
		objects, skipped := canonical.PLAsTiCCObjects(records, filters)
		return objects, skipped, nil
	}

	ds, err := o.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if survey == domain.SurveySNPCC {
		objects, skipped := canonical.SNPCCObjects(ds.Curves, ds.Filters)
		return objects, skipped, nil
	}

	records, err := canonical.BuildMetadata(ds.Curves, ds.Metadata, ds.Filters)
	if err != nil {
		return nil, nil, err
	}
	if o.MetadataOutput != "" {
		if err := canonical.WriteMetadata(o.MetadataOutput, records, ds.Filters); err != nil {
			return nil, nil, err
		}
		res.Outputs = append(res.Outputs, o.MetadataOutput)
	}
	objects, skipped := canonical.PLAsTiCCObjects(records, ds.Filters)
	return objects, skipped, nil
}
