package main

import (
	"fmt"

	"github.com/cointoolbox/resspect/internal/pipeline"
	"github.com/spf13/cobra"
)

func newManifestCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run-manifest <manifest.yaml>",
		Short: "run the stages listed in a YAML manifest in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := pipeline.LoadManifest(args[0])
			if err != nil {
				return err
			}
			ctx := a.context(cmd.Context())
			if err := a.openDB(ctx); err != nil {
				return err
			}
			results, err := pipeline.RunManifest(ctx, a.env(), m)
			for i, res := range results {
				for _, out := range res.Outputs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.Steps[i].Stage, out)
				}
			}
			return err
		},
	}
}
