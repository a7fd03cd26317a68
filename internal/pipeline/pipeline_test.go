package pipeline

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cointoolbox/resspect/internal/config"
	"github.com/cointoolbox/resspect/internal/cosmology"
	"github.com/cointoolbox/resspect/internal/domain"
	"github.com/cointoolbox/resspect/internal/domain/bazin"
	"github.com/cointoolbox/resspect/internal/features"
	"github.com/cointoolbox/resspect/internal/platform/logger"
	"github.com/cointoolbox/resspect/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T) Env {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Fit.Workers = 2
	return Env{Config: cfg}
}

// writeFeatureTable writes n objects; even IDs are Ia and separable on
// the first feature. The first four objects form the training sample.
func writeFeatureTable(t *testing.T, path string, n int) {
	t.Helper()
	tbl := &domain.FeatureTable{FeatureNames: []string{"rA", "rB"}}
	for i := 0; i < n; i++ {
		row := domain.FeatureRow{
			ID:         fmt.Sprint(i),
			Redshift:   0.1 * float64(i%5),
			SNType:     domain.TypeII,
			SNCode:     2,
			OrigSample: domain.SampleTest,
			Queryable:  true,
			Features:   []float64{1, float64(i % 4)},
		}
		if i%2 == 0 {
			row.SNType = domain.TypeIa
			row.SNCode = 0
			row.Features[0] = 10
		}
		if i < 4 {
			row.OrigSample = domain.SampleTrain
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	require.NoError(t, features.WriteFile(path, tbl))
}

// writeSNPCC writes a well sampled SNPCC light curve in every filter.
func writeSNPCC(t *testing.T, dir, id string, sntype, code int) {
	t.Helper()
	writeSNPCCObject(t, dir, id, sntype, code, 0.3, 0)
}

// writeSNPCCObject is writeSNPCC with a redshift and a catalogue peak
// magnitude reached on day 21; peak 0 writes the 99 non-detection value.
func writeSNPCCObject(t *testing.T, dir, id string, sntype, code int, z, peak float64) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "SURVEY: DES\nSNID: %s\nSNTYPE: %d\nFILTERS: griz\nSIM_NON1a: %d\nREDSHIFT_FINAL: %.3f +- 0.001\n\n", id, sntype, code, z)
	b.WriteString("VARLIST:  MJD  FLT FIELD   FLUXCAL   FLUXCALERR    SNR    MAG     MAGERR  SIM_MAG\n")
	p := bazin.Params{A: 500, B: 5, T0: 20, TFall: 25, TRise: -3}
	for d := 0; d < 60; d += 3 {
		mag := 99.0
		if peak > 0 {
			mag = peak + 0.01*math.Abs(float64(d-21))
		}
		for _, f := range domain.SurveySNPCC.Filters() {
			flux := bazin.Eval(float64(d), p)
			fmt.Fprintf(&b, "OBS: %.3f %s NULL %.4e %.4e %.2f %.3f 0.050 99.0\n",
				domain.SNPCCFirstMJD+float64(d), f, flux, 2.0, flux/2, mag)
		}
	}
	b.WriteString("END:\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "DES_SN"+id+".DAT"), []byte(b.String()), 0o644))
}

func TestStages(t *testing.T) {
	var names []string
	for _, s := range Stages() {
		names = append(names, s.Name)
		assert.NotEmpty(t, s.Description)
		assert.NotNil(t, s.NewOptions())
	}
	assert.Equal(t, []string{
		"build_canonical",
		"build_time_domain_plasticc",
		"build_time_domain_snpcc",
		"calculate_cosmology_metric",
		"fit_dataset",
		"make_metrics_plots",
		"run_loop",
		"run_time_domain",
	}, names)

	s, err := Lookup(NameRunLoop)
	require.NoError(t, err)
	assert.Equal(t, NameRunLoop, s.Name)

	_, err = Lookup("train_everything")
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestRun_InvalidOptions(t *testing.T) {
	ctx, _ := logger.NewTestContext(t)
	env := testEnv(t)

	stage, err := Lookup(NameFitDataset)
	require.NoError(t, err)

	t.Run("missing output", func(t *testing.T) {
		_, err := stage.Run(ctx, env, stage.NewOptions())
		assert.ErrorIs(t, err, ErrInvalidOptions)
	})

	t.Run("wrong options type", func(t *testing.T) {
		_, err := stage.Run(ctx, env, DefaultPlotsOptions())
		assert.ErrorIs(t, err, ErrInvalidOptions)
	})

	t.Run("no configuration", func(t *testing.T) {
		_, err := stage.Run(ctx, Env{}, stage.NewOptions())
		assert.Error(t, err)
	})

	t.Run("incomplete source", func(t *testing.T) {
		opts := DefaultFitDatasetOptions()
		opts.Output = filepath.Join(t.TempDir(), "features.dat")
		_, err := stage.Run(ctx, env, opts)
		assert.ErrorIs(t, err, ErrIncompleteSource)
	})
}

func TestFitDataset(t *testing.T) {
	ctx, _ := logger.NewTestContext(t)
	raw := t.TempDir()
	writeSNPCC(t, raw, "1", 0, 0)
	writeSNPCC(t, raw, "2", -9, 21)
	writeSNPCC(t, raw, "3", -9, 0)

	out := t.TempDir()
	opts := DefaultFitDatasetOptions()
	opts.RawDir = raw
	opts.Output = filepath.Join(out, "features.dat")
	opts.SkippedOutput = filepath.Join(out, "skipped.txt")

	stage, err := Lookup(NameFitDataset)
	require.NoError(t, err)
	res, err := stage.Run(ctx, testEnv(t), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{opts.Output, opts.SkippedOutput}, res.Outputs)
	assert.Equal(t, 3, res.Details["total"])

	tbl, err := features.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, domain.FeatureNames(domain.SurveySNPCC.Filters()), tbl.FeatureNames)
	assert.Len(t, tbl.Rows, res.Details["fitted"].(int))

	rec, err := ReadRecord(RecordPath(NameFitDataset, opts.Output))
	require.NoError(t, err)
	assert.Equal(t, NameFitDataset, rec.Stage)
	assert.Equal(t, res.Outputs, rec.Result.Outputs)
	assert.False(t, rec.FinishedAt.Before(rec.StartedAt))
}

func TestRunLoop(t *testing.T) {
	ctx, _ := logger.NewTestContext(t)
	dir := t.TempDir()
	featuresPath := filepath.Join(dir, "features.dat")
	writeFeatureTable(t, featuresPath, 16)

	opts := DefaultRunLoopOptions()
	opts.Features = featuresPath
	opts.NLoops = 3
	opts.Classifier = "KNN"
	opts.Batch = 2
	opts.MetricsOutput = filepath.Join(dir, "out", "metrics.dat")
	opts.QueriedOutput = filepath.Join(dir, "out", "queried.dat")

	stage, err := Lookup(NameRunLoop)
	require.NoError(t, err)
	res, err := stage.Run(ctx, testEnv(t), opts)
	require.NoError(t, err)

	// Unset fields come from the configuration.
	assert.Equal(t, "UncertaintySampling", opts.Strategy)
	require.NotNil(t, opts.Seed)
	assert.Equal(t, int64(42), *opts.Seed)

	assert.Equal(t, 3, res.Details["iterations"])
	assert.Equal(t, 6, res.Details["queried"])
	assert.NotEmpty(t, res.RunID)

	metrics, err := table.ReadFile(opts.MetricsOutput)
	require.NoError(t, err)
	assert.Len(t, metrics.Rows, 3)

	rec, err := ReadRecord(RecordPath(NameRunLoop, opts.MetricsOutput))
	require.NoError(t, err)
	assert.Equal(t, res.RunID, rec.Result.RunID)
}

func TestRunTimeDomain(t *testing.T) {
	ctx, _ := logger.NewTestContext(t)
	dir := t.TempDir()
	for day := 5; day < 8; day++ {
		writeFeatureTable(t, filepath.Join(dir, fmt.Sprintf("day_%d.dat", day)), 12)
	}

	opts := DefaultRunTimeDomainOptions()
	opts.FeaturesDir = dir
	opts.StartDay = 5
	opts.EndDay = 8
	opts.Classifier = "GaussianNB"
	opts.MetricsOutput = filepath.Join(dir, "metrics.dat")
	opts.QueriedOutput = filepath.Join(dir, "queried.dat")

	stage, err := Lookup(NameRunTimeDomain)
	require.NoError(t, err)
	res, err := stage.Run(ctx, testEnv(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Details["iterations"])

	metrics, err := table.ReadFile(opts.MetricsOutput)
	require.NoError(t, err)
	require.Len(t, metrics.Rows, 3)
	assert.Equal(t, "5", metrics.Rows[0][1])
	assert.Equal(t, "7", metrics.Rows[2][1])
}

func TestBuildTimeDomain_SurveyMismatch(t *testing.T) {
	ctx, _ := logger.NewTestContext(t)
	opts := DefaultTimeDomainOptions("PLAsTiCC")
	opts.OutputDir = t.TempDir()
	opts.EndDay = 2

	stage, err := Lookup(NameBuildTimeDomainSNPCC)
	require.NoError(t, err)
	_, err = stage.Run(ctx, testEnv(t), opts)
	assert.ErrorIs(t, err, ErrSurveyMismatch)
}

func TestBuildTimeDomainSNPCC(t *testing.T) {
	ctx, _ := logger.NewTestContext(t)
	raw := t.TempDir()
	writeSNPCC(t, raw, "1", 0, 0)
	writeSNPCC(t, raw, "2", -9, 21)

	opts := DefaultTimeDomainOptions("SNPCC")
	opts.RawDir = raw
	opts.OutputDir = filepath.Join(t.TempDir(), "days")
	opts.StartDay = 40
	opts.EndDay = 42

	stage, err := Lookup(NameBuildTimeDomainSNPCC)
	require.NoError(t, err)
	res, err := stage.Run(ctx, testEnv(t), opts)
	require.NoError(t, err)
	require.Len(t, res.Outputs, 2)
	assert.Equal(t, filepath.Join(opts.OutputDir, "day_40.dat"), res.Outputs[0])

	tbl, err := features.ReadFile(res.Outputs[1])
	require.NoError(t, err)
	assert.True(t, tbl.HasLastRMag)
	assert.Equal(t, []string{"4m", "8m"}, tbl.CostNames)
}

// writeFITRES writes SNe on the fiducial Hubble diagram.
func writeFITRES(t *testing.T, path string, zs []float64, idOffset int) {
	t.Helper()
	fid := cosmology.Fiducial()
	tripp := DefaultCosmologyOptions().tripp()
	var b strings.Builder
	b.WriteString("VARNAMES: CID zHD mB mBERR x1 x1ERR c cERR\n")
	for i, z := range zs {
		mu, err := fid.DistanceModulus(z)
		require.NoError(t, err)
		fmt.Fprintf(&b, "SN: %d %.4f %.5f 0.1 0 0.1 0 0.02\n", idOffset+i, z, mu+tripp.M0)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func appendFITRESRow(t *testing.T, path, row string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = fmt.Fprintln(f, row)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestCalculateCosmologyMetric(t *testing.T) {
	ctx, _ := logger.NewTestContext(t)
	dir := t.TempDir()

	var zs []float64
	for i := 0; i < 40; i++ {
		zs = append(zs, 0.05+0.03*float64(i))
	}
	opts := DefaultCosmologyOptions()
	opts.FITRES = filepath.Join(dir, "sample.FITRES")
	opts.Candidates = filepath.Join(dir, "candidates.FITRES")
	opts.NMostUseful = 2
	opts.Output = filepath.Join(dir, "cosmology.yaml")
	writeFITRES(t, opts.FITRES, zs, 1)
	writeFITRES(t, opts.Candidates, []float64{0.1, 0.9, 1.5}, 100)
	// SNANA writes -9 when no redshift is available.
	appendFITRESRow(t, opts.FITRES, "SN: 999 -9.0000 20.0 0.1 0 0.1 0 0.02")
	appendFITRESRow(t, opts.Candidates, "SN: 998 0.0000 20.0 0.1 0 0.1 0 0.02")

	stage, err := Lookup(NameCalculateCosmologyMetric)
	require.NoError(t, err)
	_, err = stage.Run(ctx, testEnv(t), opts)
	require.NoError(t, err)

	report, err := ReadCosmologyReport(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, 40, report.N)
	assert.Equal(t, []string{"999"}, report.Skipped)
	assert.Greater(t, report.FoM, 0.0)
	assert.False(t, math.IsNaN(report.Sigma["w0"]))
	require.Len(t, report.MostUseful, 2)
	for _, u := range report.MostUseful {
		assert.NotEqual(t, "998", u.ID)
	}
	assert.GreaterOrEqual(t, report.MostUseful[0].Gain, report.MostUseful[1].Gain)
	assert.Equal(t, -1.0, report.Fiducial["w0"])
}

func TestManifest(t *testing.T) {
	ctx, _ := logger.NewTestContext(t)
	dir := t.TempDir()
	featuresPath := filepath.Join(dir, "features.dat")
	writeFeatureTable(t, featuresPath, 12)

	manifest := fmt.Sprintf(`steps:
  - stage: run_loop
    options:
      features: %[1]s/features.dat
      nloops: 2
      classifier: RandomForest
      strategy: RandomSampling
      n_estimators: 5
      seed: 0
      metrics_output: %[1]s/metrics_random.dat
      queried_output: %[1]s/queried_random.dat
  - stage: make_metrics_plots
    options:
      metrics: [%[1]s/metrics_random.dat]
      labels: [random]
      output: %[1]s/metrics.png
`, dir)
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Steps, 2)

	results, err := RunManifest(ctx, testEnv(t), m)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.FileExists(t, filepath.Join(dir, "metrics.png"))
	assert.FileExists(t, RecordPath(NameMakeMetricsPlots, filepath.Join(dir, "metrics.png")))

	rec, err := ReadRecord(RecordPath(NameRunLoop, filepath.Join(dir, "metrics_random.dat")))
	require.NoError(t, err)
	opts, ok := rec.Options.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0, opts["seed"])
}

func TestLoadManifest_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	_, err := LoadManifest(write("empty.yaml", "steps: []\n"))
	assert.ErrorIs(t, err, ErrEmptyManifest)

	_, err = LoadManifest(write("unknown.yaml", "steps:\n  - stage: deploy\n"))
	assert.ErrorIs(t, err, ErrUnknownStage)

	m, err := LoadManifest(write("bad.yaml", "steps:\n  - stage: run_loop\n    options:\n      nloops: many\n"))
	require.NoError(t, err)
	stage, err := Lookup(NameRunLoop)
	require.NoError(t, err)
	_, err = m.Steps[0].Decode(stage)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestBuildCanonical(t *testing.T) {
	ctx, _ := logger.NewTestContext(t)
	raw := t.TempDir()
	// Spectroscopic objects: 1 is Ia, 4 is II.
	writeSNPCCObject(t, raw, "1", 1, 0, 0.30, 21.0)
	writeSNPCCObject(t, raw, "4", 2, 21, 0.50, 22.0)
	// Photometric objects: 2 and 5 sit next to them, 3 and 6 far away.
	writeSNPCCObject(t, raw, "2", -9, 0, 0.31, 21.05)
	writeSNPCCObject(t, raw, "3", -9, 0, 0.80, 24.0)
	writeSNPCCObject(t, raw, "5", -9, 21, 0.52, 22.1)
	writeSNPCCObject(t, raw, "6", -9, 21, 0.10, 19.0)

	dir := t.TempDir()
	featuresPath := filepath.Join(dir, "features.dat")
	writeFeatureTable(t, featuresPath, 8)

	opts := DefaultBuildCanonicalOptions()
	opts.RawDir = raw
	opts.Output = filepath.Join(dir, "canonical_ids.dat")
	opts.Features = featuresPath
	opts.FeaturesOutput = filepath.Join(dir, "features_canonical.dat")

	stage, err := Lookup(NameBuildCanonical)
	require.NoError(t, err)
	res, err := stage.Run(ctx, testEnv(t), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{opts.Output, opts.FeaturesOutput}, res.Outputs)
	assert.Equal(t, 2, res.Details["canonical"])
	assert.Equal(t, 0, res.Details["unmatched"])

	ids, err := features.ReadIDs(opts.Output)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2", "5"}, ids)

	tbl, err := features.ReadFile(opts.FeaturesOutput)
	require.NoError(t, err)
	for _, row := range tbl.Rows {
		switch row.ID {
		case "2", "5":
			assert.Equal(t, domain.SampleQueryable, row.OrigSample, row.ID)
		default:
			assert.NotEqual(t, domain.SampleQueryable, row.OrigSample, row.ID)
		}
	}
}

// writePLAsTiCC writes a metadata table and a photometry CSV with a Bazin
// light curve observed every three days in the six passbands.
func writePLAsTiCC(t *testing.T, dir string) (meta, phot string) {
	t.Helper()
	meta = filepath.Join(dir, "metadata.csv")
	require.NoError(t, os.WriteFile(meta, []byte(
		"object_id,ddf_bool,true_target,true_z\n"+
			"101,0,90,0.2\n"+
			"102,1,42,0.4\n"), 0o644))

	var b strings.Builder
	b.WriteString("object_id,mjd,passband,flux,flux_err,detected_bool\n")
	p := bazin.Params{A: 500, B: 5, T0: 20, TFall: 25, TRise: -3}
	for _, id := range []string{"101", "102"} {
		for d := 0; d < 60; d += 3 {
			for band := 0; band < 6; band++ {
				fmt.Fprintf(&b, "%s,%.4f,%d,%.4f,2.0,1\n",
					id, domain.PLAsTiCCFirstMJD+float64(d), band, bazin.Eval(float64(d), p))
			}
		}
	}
	phot = filepath.Join(dir, "photometry.csv")
	require.NoError(t, os.WriteFile(phot, []byte(b.String()), 0o644))
	return meta, phot
}

func TestBuildTimeDomainPLAsTiCC(t *testing.T) {
	ctx, _ := logger.NewTestContext(t)
	meta, phot := writePLAsTiCC(t, t.TempDir())

	opts := DefaultTimeDomainOptions("PLAsTiCC")
	opts.Metadata = meta
	opts.Photometry = []string{phot}
	opts.OutputDir = filepath.Join(t.TempDir(), "days")
	opts.StartDay = 40
	opts.EndDay = 42

	stage, err := Lookup(NameBuildTimeDomainPLAsTiCC)
	require.NoError(t, err)
	res, err := stage.Run(ctx, testEnv(t), opts)
	require.NoError(t, err)
	require.Len(t, res.Outputs, 2)
	assert.Equal(t, filepath.Join(opts.OutputDir, "day_41.dat"), res.Outputs[1])

	tbl, err := features.ReadFile(res.Outputs[0])
	require.NoError(t, err)
	assert.Equal(t, domain.FeatureNames(domain.SurveyPLAsTiCC.Filters()), tbl.FeatureNames)
	assert.Len(t, tbl.FeatureNames, 30)
	assert.Equal(t, []string{"4m", "8m"}, tbl.CostNames)
	require.Len(t, tbl.Rows, 2)
	for _, row := range tbl.Rows {
		assert.Len(t, row.Features, 30)
		// r on day 39 is brighter than the magnitude cut.
		assert.True(t, row.Queryable, row.ID)
		assert.InDelta(t, 27.5-2.5*math.Log10(bazin.Eval(39, bazin.Params{A: 500, B: 5, T0: 20, TFall: 25, TRise: -3})), row.LastRMag, 1e-3)
		assert.Greater(t, row.Costs["8m"], 0.0)
		assert.Less(t, row.Costs["8m"], row.Costs["4m"])
	}
}
