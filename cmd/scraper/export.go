package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"novelhub/internal/export"
)

func newExportCmd(withApp appRunner) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write novels and chapters to CSV files",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			novels, chapters, err := export.ToDir(cmd.Context(), a.db, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d novels and %d chapters to %s\n", novels, chapters, dir)
			return nil
		}),
	}
	cmd.Flags().StringVar(&dir, "dir", "data", "output directory")
	return cmd
}
