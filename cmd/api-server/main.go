package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"novelhub/internal/auth"
	"novelhub/internal/batch"
	"novelhub/internal/chapter"
	"novelhub/internal/events"
	"novelhub/internal/fetcher"
	"novelhub/internal/genre"
	"novelhub/internal/grpcserver"
	"novelhub/internal/instance"
	"novelhub/internal/novel"
	"novelhub/internal/resolver"
	"novelhub/internal/scraper"
	"novelhub/internal/website"
	"novelhub/pkg/database"
	"novelhub/pkg/utils"
)

func main() {
	cfgFile := flag.String("config", "", "config file")
	flag.Parse()

	cfg, err := utils.LoadConfig(*cfgFile)
	if err != nil {
		panic(err)
	}
	log, err := utils.NewLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	dbCfg := cfg.Database()
	db := database.MustOpen(dbCfg, log)
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runs := batch.NewRunRepo(db)
	if n, err := runs.InterruptStale(ctx); err != nil {
		log.Warn("mark stale runs", zap.Error(err))
	} else if n > 0 {
		log.Info("marked stale runs interrupted", zap.Int("count", n))
	}

	f, err := fetcher.New(cfg.Fetcher, log.Named("fetcher"))
	if err != nil {
		log.Fatal("fetcher", zap.Error(err))
	}
	defer f.Close()

	hub := events.NewHub(log.Named("events"))
	tcpSrv := events.NewServer(cfg.Events.TCPAddr, hub)

	registry := scraper.NewRegistry(
		scraper.NewNovLove(f, log.Named("novlove")),
		scraper.NewWuxiaworld(f, log.Named("wuxiaworld")),
	)
	runner := batch.NewRunner(db, registry, resolver.New(db, log.Named("resolver")), hub, log.Named("batch"), batch.Options{
		FetchContent: cfg.Scrape.FetchContent,
		Workers:      cfg.Scrape.Workers,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log.Named("http")))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/ws", events.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	tokens := auth.TokenService{
		Secret:   []byte(cfg.Auth.Secret),
		Issuer:   cfg.Auth.Issuer,
		Duration: cfg.Auth.TTL,
	}
	admin := router.Group("/admin")
	admin.Use(auth.RequireAdmin(tokens))

	novelRepo := novel.NewRepo(db)
	genreRepo := genre.NewRepo(db)

	novels := router.Group("/novels")
	novel.NewHandler(novelRepo, genreRepo, website.NewRepo(db)).RegisterRoutes(novels)
	chapter.NewHandler(chapter.NewRepo(db), novelRepo).RegisterRoutes(novels, router.Group("/chapters"))
	instance.NewHandler(instance.NewRepo(db), novelRepo).RegisterRoutes(novels, admin.Group("/novels"))
	genre.NewHandler(genreRepo).RegisterRoutes(router.Group("/genres"))
	batch.NewHandler(ctx, runner, runs).RegisterRoutes(router.Group("/runs"), admin.Group("/runs"))

	var sched *batch.Scheduler
	if cfg.Schedule.Refresh != "" {
		sched, err = batch.NewScheduler(ctx, runner, cfg.Schedule.Refresh, log.Named("schedule"))
		if err != nil {
			log.Fatal("schedule", zap.String("spec", cfg.Schedule.Refresh), zap.Error(err))
		}
		sched.Start()
	}

	health := grpcserver.NewHealth(db, log.Named("grpc"))
	grpcSrv := grpcserver.NewServer(health)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		health.Watch(ctx, 15*time.Second)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ln, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			errCh <- err
			return
		}
		log.Info("gRPC health server listening", zap.String("addr", cfg.GRPC.Addr))
		if err := grpcSrv.Serve(ln); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("HTTP API server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
		stop()
	}

	log.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	grpcSrv.GracefulStop()

	wg.Wait()
	log.Info("servers stopped")
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}
