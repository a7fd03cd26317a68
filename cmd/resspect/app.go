package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cointoolbox/resspect/internal/config"
	"github.com/cointoolbox/resspect/internal/pipeline"
	"github.com/cointoolbox/resspect/internal/platform/logger"
	"github.com/cointoolbox/resspect/internal/platform/postgres"
	"github.com/spf13/cobra"
)

// app holds what the commands share once the root command has loaded the
// configuration.
type app struct {
	configPath string
	logLevel   string
	noDatabase bool

	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
	db     *sql.DB
}

// setup loads the configuration and the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

	l, closer, err := logger.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	a.cfg, a.logger, a.closer = cfg, l, closer

	l.Debug("configuration loaded",
		"config_file", a.configPath,
		"log_level", cfg.Log.Level,
		"fit_workers", cfg.Fit.Workers,
		"database_configured", cfg.Database.URL != "")
	return nil
}

// openDB connects to the results database when one is configured.
func (a *app) openDB(ctx context.Context) error {
	if a.noDatabase || a.cfg.Database.URL == "" || a.db != nil {
		return nil
	}
	db, err := postgres.Open(ctx, a.cfg.Database.URL)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

// close releases the database and the log file.
func (a *app) close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.closer != nil {
		errs = append(errs, a.closer.Close())
	}
	return errors.Join(errs...)
}

func (a *app) context(ctx context.Context) context.Context {
	return logger.WithLogger(ctx, a.logger)
}

func (a *app) env() pipeline.Env {
	return pipeline.Env{Config: a.cfg, DB: a.db}
}

// runStage runs stage with opts and prints where the outputs went.
func (a *app) runStage(cmd *cobra.Command, stage pipeline.Stage, opts any) error {
	ctx := a.context(cmd.Context())
	if err := a.openDB(ctx); err != nil {
		return err
	}
	res, err := stage.Run(ctx, a.env(), opts)
	if err != nil {
		return err
	}
	for _, out := range res.Outputs {
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	return nil
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "resspect",
		Short: "Recommendation system for spectroscopic follow-up",
		Long: `resspect builds supernova feature tables from survey light curves, selects
canonical training samples and runs active learning loops that decide which
objects to send for spectroscopic follow-up.

Configuration is read from --config (YAML) and RESSPECT_* environment
variables, e.g. RESSPECT_DATABASE_URL to store loop results in Postgres.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.noDatabase, "no-database", false, "do not write loop results to the configured database")

	root.AddCommand(stageCommands(a)...)
	root.AddCommand(newManifestCommand(a), newMigrateCommand(a), newStagesCommand())
	return root
}
