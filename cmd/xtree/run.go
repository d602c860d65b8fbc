package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/benz9527/xtree/internal/scenario"
)

func runCommand(ctx *rootContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario.yaml...>",
		Short: "replay the scenario documents and print their output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs error
			for _, path := range args {
				doc, err := scenario.Load(path)
				if err != nil {
					errs = multierr.Append(errs, err)
					continue
				}
				res, err := scenario.NewRunner(cmd.OutOrStdout(), ctx.logger).Run(cmd.Context(), doc)
				res.Release()
				if err != nil {
					errs = multierr.Append(errs, err)
				}
			}
			return errs
		},
	}
}
