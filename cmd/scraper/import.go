package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"novelhub/internal/export"
)

func newImportCmd(withApp appRunner) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store stubs for the novel urls listed in a CSV file",
		Long: `Reads the source_url column of a CSV file, for example a novels.csv
written by "scraper export", and stores a stub for every url not yet known.`,
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			urls, err := export.ReadNovelURLs(f)
			if err != nil {
				return err
			}

			src, err := a.source()
			if err != nil {
				return err
			}
			w, err := a.resolver.ResolveWebsite(cmd.Context(), src.Name(), src.BaseURL())
			if err != nil {
				return err
			}

			created, err := a.resolver.StubAll(cmd.Context(), urls, w)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "novel urls read: %d, created: %d, already known: %d\n",
				len(urls), created, len(urls)-created)
			return nil
		}),
	}
	cmd.Flags().StringVar(&file, "file", "data/novels.csv", "CSV file with a source_url column")
	return cmd
}
