package main

import (
	"github.com/spf13/cobra"

	"novelhub/internal/batch"
)

func newRunsCmd(withApp appRunner) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent scrape runs",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			runs, err := batch.NewRunRepo(a.db).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}
