package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"novelhub/internal/discovery"
	"novelhub/internal/genre"
	"novelhub/internal/scraper"
)

func newGenresCmd(withApp appRunner) *cobra.Command {
	var sitemapURL string

	cmd := &cobra.Command{
		Use:   "genres",
		Short: "Create genres listed in the sitemap's genre pages",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			src, err := a.source()
			if err != nil {
				return err
			}
			if sitemapURL == "" {
				sitemapURL = a.cfg.Site.SitemapURL
			}

			res := discovery.New(a.fetch, a.log.Named("discovery")).
				Discover(cmd.Context(), sitemapURL, src.GenreURLs())
			if res.Err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "sitemap discovery failed, nothing changed: %v\n", res.Err)
				return nil
			}

			names := discovery.GenreNames(res.URLs)
			created, err := genre.NewReconciler(a.log.Named("genre")).EnsureAll(cmd.Context(), a.db, names)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "genres found: %d, created: %d, already known: %d\n",
				len(names), created, len(names)-created)
			return nil
		}),
	}
	cmd.Flags().StringVar(&sitemapURL, "sitemap-url", "", "sitemap to read (default site.sitemap_url)")
	return cmd
}

func newNovelURLsCmd(withApp appRunner) *cobra.Command {
	var sitemapURL, sourceName string

	cmd := &cobra.Command{
		Use:   "novel-urls",
		Short: "Store stubs for every novel page a site lists",
		Long: "Store stubs for every novel page a site lists. Sources with a catalogue\n" +
			"listing are walked page by page; the rest are read from the sitemap.",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			src, err := a.named(sourceName)
			if err != nil {
				return err
			}

			var urls []string
			if lister, ok := src.(scraper.Lister); ok {
				urls, err = lister.ListNovelURLs(cmd.Context())
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "novel listing failed, nothing changed: %v\n", err)
					return nil
				}
			} else {
				if sitemapURL == "" {
					sitemapURL = a.cfg.Site.SitemapURL
				}
				res := discovery.New(a.fetch, a.log.Named("discovery")).
					Discover(cmd.Context(), sitemapURL, src.NovelURLs())
				if res.Err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "sitemap discovery failed, nothing changed: %v\n", res.Err)
					return nil
				}
				urls = res.URLs
			}
			if len(urls) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no novel urls found for %s\n", src.Name())
				return nil
			}

			w, err := a.resolver.ResolveWebsite(cmd.Context(), src.Name(), src.BaseURL())
			if err != nil {
				return err
			}
			created, err := a.resolver.StubAll(cmd.Context(), urls, w)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "novel urls found: %d, created: %d, already known: %d\n",
				len(urls), created, len(urls)-created)
			return nil
		}),
	}
	cmd.Flags().StringVar(&sitemapURL, "sitemap-url", "", "sitemap to read (default site.sitemap_url)")
	cmd.Flags().StringVar(&sourceName, "source", "", "website to list, e.g. Wuxiaworld (default the first source)")
	return cmd
}
