package main

import (
	"errors"

	"github.com/spf13/cobra"

	"novelhub/internal/batch"
	"novelhub/internal/events"
)

func newScrapeDetailsCmd(withApp appRunner) *cobra.Command {
	var (
		novelURL   string
		all        bool
		start, end int64
		resume     string
	)

	cmd := &cobra.Command{
		Use:   "scrape-details",
		Short: "Scrape details and chapters for one novel, all novels or an id range",
		Example: `  scraper scrape-details --novel-url https://novlove.com/novel/some-novel
  scraper scrape-details --all
  scraper scrape-details --start 100 --end 200
  scraper scrape-details --resume 6f1c...`,
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			runner := batch.NewRunner(a.db, a.registry, a.resolver, events.Nop{}, a.log.Named("batch"), batch.Options{
				FetchContent: a.cfg.Scrape.FetchContent,
				Workers:      a.cfg.Scrape.Workers,
			})

			if resume != "" {
				job, err := runner.Resume(cmd.Context(), resume)
				if err != nil {
					return err
				}
				printReport(cmd.OutOrStdout(), job.Wait())
				return nil
			}

			sel, err := selectionFromFlags(novelURL, all, start, end)
			if err != nil {
				return err
			}
			rep, err := runner.Run(cmd.Context(), sel)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		}),
	}

	cmd.Flags().StringVar(&novelURL, "novel-url", "", "scrape a single novel by its source url")
	cmd.Flags().BoolVar(&all, "all", false, "scrape every stored novel")
	cmd.Flags().Int64Var(&start, "start", 0, "first novel id of a range")
	cmd.Flags().Int64Var(&end, "end", 0, "last novel id of a range")
	cmd.Flags().StringVar(&resume, "resume", "", "continue an interrupted run by id")
	cmd.MarkFlagsMutuallyExclusive("novel-url", "all", "start", "resume")
	cmd.MarkFlagsMutuallyExclusive("novel-url", "all", "end", "resume")
	cmd.MarkFlagsRequiredTogether("start", "end")
	return cmd
}

func selectionFromFlags(novelURL string, all bool, start, end int64) (batch.Selection, error) {
	switch {
	case novelURL != "":
		return batch.Selection{Mode: batch.ModeSingle, NovelURL: novelURL}, nil
	case all:
		return batch.Selection{Mode: batch.ModeAll}, nil
	case start != 0 || end != 0:
		sel := batch.Selection{Mode: batch.ModeRange, StartID: start, EndID: end}
		return sel, sel.Validate()
	default:
		return batch.Selection{}, errors.New("provide --novel-url, --all, --start/--end or --resume")
	}
}
