package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/cointoolbox/resspect/internal/cosmology"
	"github.com/cointoolbox/resspect/internal/platform/logger"
	"github.com/cointoolbox/resspect/internal/salt3"
	"gopkg.in/yaml.v3"
)

// CosmologyOptions configures calculate_cosmology_metric.
type CosmologyOptions struct {
	// FITRES is the SALT fit table of the current sample.
	FITRES string `yaml:"fitres" validate:"required,file"`
	// Candidates optionally ranks the objects of a second FITRES table by
	// the figure of merit they would add.
	Candidates  string `yaml:"candidates,omitempty" validate:"omitempty,file"`
	NMostUseful int    `yaml:"n_most_useful" validate:"gte=-1"`
	// Output receives the YAML report.
	Output string `yaml:"output" validate:"required"`

	Alpha    float64 `yaml:"alpha"`
	Beta     float64 `yaml:"beta"`
	M0       float64 `yaml:"m0"`
	SigmaInt float64 `yaml:"sigma_int" validate:"gte=0"`

	H0 float64 `yaml:"h0" validate:"gt=0"`
	Om float64 `yaml:"om" validate:"gt=0,lt=1"`
	W0 float64 `yaml:"w0"`
	Wa float64 `yaml:"wa"`
}

// DefaultCosmologyOptions returns the calculate_cosmology_metric defaults.
func DefaultCosmologyOptions() *CosmologyOptions {
	tripp := salt3.DefaultTripp()
	fid := cosmology.Fiducial()
	return &CosmologyOptions{
		NMostUseful: 10,
		Alpha:       tripp.Alpha,
		Beta:        tripp.Beta,
		M0:          tripp.M0,
		SigmaInt:    tripp.SigmaInt,
		H0:          fid.H0,
		Om:          fid.Om,
		W0:          fid.W0,
		Wa:          fid.Wa,
	}
}

// CosmologyReport is the output of calculate_cosmology_metric.
type CosmologyReport struct {
	N          int                `yaml:"n"`
	Skipped    []string           `yaml:"skipped,omitempty"`
	Fiducial   map[string]float64 `yaml:"fiducial"`
	Sigma      map[string]float64 `yaml:"sigma"`
	FoM        float64            `yaml:"fom"`
	MostUseful []UsefulObject     `yaml:"most_useful,omitempty"`
}

// UsefulObject is a ranked candidate.
type UsefulObject struct {
	ID      string  `yaml:"id"`
	Z       float64 `yaml:"z"`
	SigmaMu float64 `yaml:"sigma_mu"`
	FoM     float64 `yaml:"fom"`
	Gain    float64 `yaml:"gain"`
}

func (o *CosmologyOptions) tripp() salt3.Tripp {
	return salt3.Tripp{Alpha: o.Alpha, Beta: o.Beta, M0: o.M0, SigmaInt: o.SigmaInt}
}

func (o *CosmologyOptions) fiducial() cosmology.Cosmology {
	return cosmology.Cosmology{H0: o.H0, Om: o.Om, W0: o.W0, Wa: o.Wa}
}

// supernovae reads a FITRES table and converts it to Fisher inputs.
func supernovae(path string, tripp salt3.Tripp) ([]cosmology.Supernova, []string, error) {
	records, err := salt3.ReadFITRES(path)
	if err != nil {
		return nil, nil, err
	}
	dists, skipped := tripp.Distances(records)
	out := make([]cosmology.Supernova, len(dists))
	for i, d := range dists {
		out[i] = cosmology.Supernova{ID: d.ID, Z: d.Z, SigmaMu: d.MuErr}
	}
	return out, skipped, nil
}

func runCalculateCosmologyMetric(ctx context.Context, _ Env, o *CosmologyOptions) (*Result, error) {
	log := logger.FromContext(ctx)
	fid := o.fiducial()

	sample, skipped, err := supernovae(o.FITRES, o.tripp())
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		log.Warn("objects without a distance skipped", "count", len(skipped))
	}
	f, err := cosmology.FisherMatrix(fid, sample)
	if err != nil {
		return nil, err
	}
	results, err := cosmology.FisherResults(f)
	if err != nil {
		return nil, err
	}

	report := CosmologyReport{
		N:       results.N,
		Skipped: skipped,
		Fiducial: map[string]float64{
			"h0": fid.H0, "om": fid.Om, "w0": fid.W0, "wa": fid.Wa,
		},
		Sigma: make(map[string]float64, len(cosmology.ParamNames)),
		FoM:   results.FoM,
	}
	for i, name := range cosmology.ParamNames {
		report.Sigma[name] = results.Sigma[i]
	}

	if o.Candidates != "" {
		candidates, _, err := supernovae(o.Candidates, o.tripp())
		if err != nil {
			return nil, fmt.Errorf("reading candidates: %w", err)
		}
		ranked, err := cosmology.FindMostUseful(f, candidates, o.NMostUseful)
		if err != nil {
			return nil, err
		}
		for _, r := range ranked {
			report.MostUseful = append(report.MostUseful, UsefulObject{
				ID: r.ID, Z: r.Z, SigmaMu: r.SigmaMu, FoM: r.FoM, Gain: r.Gain,
			})
		}
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(o.Output, data, 0o644); err != nil {
		return nil, err
	}
	log.Info("cosmology metric computed", "n", results.N, "fom", results.FoM)
	return &Result{
		Outputs: []string{o.Output},
		Details: map[string]any{"n": results.N, "fom": results.FoM},
	}, nil
}

// ReadCosmologyReport loads a report written by calculate_cosmology_metric.
func ReadCosmologyReport(path string) (*CosmologyReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r CosmologyReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
