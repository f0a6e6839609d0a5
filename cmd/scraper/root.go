package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"novelhub/internal/fetcher"
	"novelhub/internal/resolver"
	"novelhub/internal/scraper"
	"novelhub/pkg/database"
	"novelhub/pkg/utils"
)

// app is what every command needs, built once per invocation.
type app struct {
	cfg      utils.Config
	log      *zap.Logger
	db       *sqlx.DB
	fetch    fetcher.Fetcher
	registry *scraper.Registry
	resolver *resolver.Resolver
}

func newApp(cfgFile string) (*app, error) {
	cfg, err := utils.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	log, err := utils.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	db := database.MustOpen(cfg.Database(), log)

	f, err := fetcher.New(cfg.Fetcher, log.Named("fetcher"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		fetch:    f,
		registry: scraper.NewRegistry(
			scraper.NewNovLove(f, log.Named("novlove")),
			scraper.NewWuxiaworld(f, log.Named("wuxiaworld")),
		),
		resolver: resolver.New(db, log.Named("resolver")),
	}, nil
}

func (a *app) Close() {
	if err := a.fetch.Close(); err != nil {
		a.log.Warn("close fetcher", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("close database", zap.Error(err))
	}
	_ = a.log.Sync()
}

// named returns the source called name, or the default one for "".
func (a *app) named(name string) (scraper.Source, error) {
	if name == "" {
		return a.source()
	}
	return a.registry.ByName(name)
}

// source returns the site a command works on.
func (a *app) source() (scraper.Source, error) {
	src := a.registry.Default()
	if src == nil {
		return nil, fmt.Errorf("no sources registered")
	}
	return src, nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "scraper",
		Short:         "Discover, scrape and reconcile novels into the local store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./config.yaml or ~/.novelhub/config.yaml)")

	withApp := func(run func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cfgFile)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd, a)
		}
	}

	root.AddCommand(
		newGenresCmd(withApp),
		newNovelURLsCmd(withApp),
		newScrapeDetailsCmd(withApp),
		newRunsCmd(withApp),
		newExportCmd(withApp),
		newImportCmd(withApp),
		newTokenCmd(&cfgFile),
		newWatchCmd(),
	)
	return root
}

type appRunner func(run func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error
