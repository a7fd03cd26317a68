package main

import (
	"errors"

	"github.com/cointoolbox/resspect/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <up|down|status|version|reset|redo> [args]",
		Short: "manage the schema of the results database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Database.URL == "" {
				return errors.New("no database configured, set database.url or RESSPECT_DATABASE_URL")
			}
			ctx := a.context(cmd.Context())
			db, err := postgres.Open(ctx, a.cfg.Database.URL)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			return postgres.Migrate(ctx, db, args[0], args[1:]...)
		},
	}
}
