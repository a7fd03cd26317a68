package main

import (
	"fmt"
	"strings"

	"github.com/cointoolbox/resspect/internal/pipeline"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// commandName turns a stage name into a command name.
func commandName(stage string) string {
	return strings.ReplaceAll(stage, "_", "-")
}

// stageCommand builds the command of stage. bind registers the flags of
// opts, which must be the stage options.
func stageCommand(a *app, name string, opts any, bind func(fs *pflag.FlagSet)) *cobra.Command {
	stage, err := pipeline.Lookup(name)
	if err != nil {
		panic(err)
	}
	cmd := &cobra.Command{
		Use:   commandName(stage.Name),
		Short: stage.Description,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runStage(cmd, stage, opts)
		},
	}
	bind(cmd.Flags())
	return cmd
}

func bindSource(fs *pflag.FlagSet, s *pipeline.Source) {
	fs.StringVar(&s.Survey, "survey", s.Survey, "survey: SNPCC or PLAsTiCC")
	fs.StringVar(&s.Format, "format", s.Format, "photometry format: native or snana")
	fs.StringVar(&s.RawDir, "raw-dir", s.RawDir, "directory of SNPCC .DAT files")
	fs.StringVar(&s.Metadata, "metadata", s.Metadata, "PLAsTiCC metadata CSV")
	fs.StringSliceVar(&s.TrainPhotometry, "train-photometry", s.TrainPhotometry, "PLAsTiCC training photometry CSV files")
	fs.StringSliceVar(&s.Photometry, "photometry", s.Photometry, "PLAsTiCC test photometry CSV files")
	fs.StringSliceVar(&s.TrainHeads, "train-heads", s.TrainHeads, "SNANA HEAD FITS files of the training sample")
	fs.StringSliceVar(&s.Heads, "heads", s.Heads, "SNANA HEAD FITS files of the test sample")
	fs.StringSliceVar(&s.Filters, "filters", s.Filters, "filters to use (default: every survey filter)")
}

// seedFlag sets a pointer seed only when the flag is given.
type seedFlag struct{ p **int64 }

func (f seedFlag) String() string {
	if f.p == nil || *f.p == nil {
		return ""
	}
	return fmt.Sprint(**f.p)
}

func (f seedFlag) Set(s string) error {
	v, err := cast.ToInt64E(s)
	if err != nil {
		return fmt.Errorf("invalid seed %q: %w", s, err)
	}
	*f.p = &v
	return nil
}

func (seedFlag) Type() string { return "int" }

func bindModel(fs *pflag.FlagSet, m *pipeline.ModelOptions) {
	fs.StringVar(&m.Classifier, "classifier", m.Classifier, "RandomForest, KNN or GaussianNB (default from config)")
	fs.StringVar(&m.Strategy, "strategy", m.Strategy, "query strategy (default from config)")
	fs.IntVar(&m.Batch, "batch", m.Batch, "objects queried per iteration (default from config)")
	fs.IntVar(&m.NEstimators, "n-estimators", m.NEstimators, "trees of the random forest (default from config)")
	fs.IntVar(&m.Bootstrap, "bootstrap", m.Bootstrap, "average this many bootstrap fits")
	fs.Var(seedFlag{&m.Seed}, "seed", "random seed (default from config)")
}

func bindOutputs(fs *pflag.FlagSet, o *pipeline.OutputOptions) {
	fs.StringVar(&o.MetricsOutput, "metrics-output", o.MetricsOutput, "metrics file written")
	fs.StringVar(&o.QueriedOutput, "queried-output", o.QueriedOutput, "queried objects file written")
}

func stageCommands(a *app) []*cobra.Command {
	fit := pipeline.DefaultFitDatasetOptions()
	canon := pipeline.DefaultBuildCanonicalOptions()
	tdSNPCC := pipeline.DefaultTimeDomainOptions("SNPCC")
	tdPLAsTiCC := pipeline.DefaultTimeDomainOptions("PLAsTiCC")
	cosmo := pipeline.DefaultCosmologyOptions()
	plots := pipeline.DefaultPlotsOptions()
	loop := pipeline.DefaultRunLoopOptions()
	td := pipeline.DefaultRunTimeDomainOptions()

	bindTimeDomain := func(o *pipeline.TimeDomainOptions) func(fs *pflag.FlagSet) {
		return func(fs *pflag.FlagSet) {
			bindSource(fs, &o.Source)
			fs.StringVar(&o.OutputDir, "output-dir", o.OutputDir, "directory receiving day_<n>.dat files")
			fs.IntVar(&o.StartDay, "start-day", o.StartDay, "first survey day")
			fs.IntVar(&o.EndDay, "end-day", o.EndDay, "survey day after the last one built")
			fs.IntVar(&o.Criteria, "criteria", o.Criteria, "queryable criterion: 1 last observation, 2 extrapolated")
			fs.Float64Var(&o.DaysSinceObs, "days-since-obs", o.DaysSinceObs, "criterion 1 look-back window in days")
			fs.Float64Var(&o.MagCut, "mag-cut", o.MagCut, "faintest queryable r magnitude")
			fs.StringSliceVar(&o.Telescopes, "telescopes", o.Telescopes, "telescopes to compute exposure costs for")
			fs.Float64Var(&o.SNR, "snr", o.SNR, "spectroscopic signal-to-noise target")
			fs.IntVar(&o.Concurrency, "concurrency", o.Concurrency, "days built at once")
		}
	}

	return []*cobra.Command{
		stageCommand(a, pipeline.NameFitDataset, fit, func(fs *pflag.FlagSet) {
			bindSource(fs, &fit.Source)
			fs.StringVar(&fit.Output, "output", fit.Output, "feature table written")
			fs.StringVar(&fit.SkippedOutput, "skipped-output", fit.SkippedOutput, "file listing objects that could not be fitted")
		}),
		stageCommand(a, pipeline.NameBuildCanonical, canon, func(fs *pflag.FlagSet) {
			bindSource(fs, &canon.Source)
			fs.StringVar(&canon.Output, "output", canon.Output, "canonical ID list written")
			fs.StringVar(&canon.MetadataInput, "metadata-input", canon.MetadataInput, "PLAsTiCC metadata table from an earlier run")
			fs.StringVar(&canon.MetadataOutput, "metadata-output", canon.MetadataOutput, "PLAsTiCC metadata table written")
			fs.StringVar(&canon.Features, "features", canon.Features, "feature table to mark the canonical sample in")
			fs.StringVar(&canon.FeaturesOutput, "features-output", canon.FeaturesOutput, "marked feature table written")
		}),
		stageCommand(a, pipeline.NameBuildTimeDomainSNPCC, tdSNPCC, bindTimeDomain(tdSNPCC)),
		stageCommand(a, pipeline.NameBuildTimeDomainPLAsTiCC, tdPLAsTiCC, bindTimeDomain(tdPLAsTiCC)),
		stageCommand(a, pipeline.NameCalculateCosmologyMetric, cosmo, func(fs *pflag.FlagSet) {
			fs.StringVar(&cosmo.FITRES, "fitres", cosmo.FITRES, "SALT fit table of the sample")
			fs.StringVar(&cosmo.Candidates, "candidates", cosmo.Candidates, "SALT fit table of candidates to rank")
			fs.IntVar(&cosmo.NMostUseful, "n-most-useful", cosmo.NMostUseful, "candidates reported, -1 for all")
			fs.StringVar(&cosmo.Output, "output", cosmo.Output, "YAML report written")
			fs.Float64Var(&cosmo.Alpha, "alpha", cosmo.Alpha, "Tripp stretch coefficient")
			fs.Float64Var(&cosmo.Beta, "beta", cosmo.Beta, "Tripp colour coefficient")
			fs.Float64Var(&cosmo.M0, "m0", cosmo.M0, "absolute magnitude")
			fs.Float64Var(&cosmo.SigmaInt, "sigma-int", cosmo.SigmaInt, "intrinsic scatter in magnitudes")
			fs.Float64Var(&cosmo.H0, "h0", cosmo.H0, "fiducial Hubble constant")
			fs.Float64Var(&cosmo.Om, "om", cosmo.Om, "fiducial matter density")
			fs.Float64Var(&cosmo.W0, "w0", cosmo.W0, "fiducial w0")
			fs.Float64Var(&cosmo.Wa, "wa", cosmo.Wa, "fiducial wa")
		}),
		stageCommand(a, pipeline.NameMakeMetricsPlots, plots, func(fs *pflag.FlagSet) {
			fs.StringSliceVar(&plots.Metrics, "metrics", plots.Metrics, "metrics files to plot")
			fs.StringSliceVar(&plots.Labels, "labels", plots.Labels, "line labels, one per metrics file")
			fs.StringVar(&plots.Output, "output", plots.Output, "image written (png, svg or pdf)")
			fs.Float64Var(&plots.Width, "width", plots.Width, "width in inches")
			fs.Float64Var(&plots.Height, "height", plots.Height, "height in inches")
		}),
		stageCommand(a, pipeline.NameRunLoop, loop, func(fs *pflag.FlagSet) {
			bindModel(fs, &loop.ModelOptions)
			bindOutputs(fs, &loop.OutputOptions)
			fs.StringVar(&loop.Features, "features", loop.Features, "feature table to learn from")
			fs.IntVar(&loop.NLoops, "nloops", loop.NLoops, "number of iterations")
			fs.StringVar(&loop.Initial, "initial-training", loop.Initial, `"original" or the size of a random training sample`)
			fs.BoolVar(&loop.Queryable, "queryable", loop.Queryable, "query only objects flagged queryable")
			fs.BoolVar(&loop.Canonical, "canonical", loop.Canonical, "query only the canonical sample")
		}),
		stageCommand(a, pipeline.NameRunTimeDomain, td, func(fs *pflag.FlagSet) {
			bindModel(fs, &td.ModelOptions)
			bindOutputs(fs, &td.OutputOptions)
			fs.StringVar(&td.FeaturesDir, "features-dir", td.FeaturesDir, "directory of day_<n>.dat files")
			fs.IntVar(&td.StartDay, "start-day", td.StartDay, "first survey day")
			fs.IntVar(&td.EndDay, "end-day", td.EndDay, "survey day after the last one processed")
			fs.StringVar(&td.Initial, "initial-training", td.Initial, `"original" or the size of a random training sample`)
			fs.StringVar(&td.InitialTraining, "initial-training-file", td.InitialTraining, "feature table holding the initial training sample")
			fs.StringVar(&td.CanonicalIDs, "canonical-ids", td.CanonicalIDs, "canonical ID list restricting queries")
			fs.BoolVar(&td.Queryable, "queryable", td.Queryable, "query only objects flagged queryable")
		}),
	}
}

func newStagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "list the pipeline stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, s := range pipeline.Stages() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", s.Name, s.Description)
			}
			return nil
		},
	}
}
