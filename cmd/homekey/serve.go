package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/homekey/stage-tracker/internal/api"
	"github.com/homekey/stage-tracker/internal/cache"
	"github.com/homekey/stage-tracker/internal/config"
	"github.com/homekey/stage-tracker/internal/repository"
	"github.com/homekey/stage-tracker/pkg/observability"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the stage and task API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg, "homekey")
	if zl, ok := logger.(*observability.ZapLogger); ok {
		defer func() { _ = zl.Sync() }()
	}

	var metrics *observability.Metrics
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Observability.Metrics.Namespace)
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Tracing shutdown failed", map[string]interface{}{"error": err})
		}
	}()

	client, err := newStoreClient(cfg.Store, logger, metrics)
	if err != nil {
		return err
	}
	if err := client.Authenticate(ctx); err != nil {
		return err
	}

	featureCache, err := cache.NewCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer featureCache.Close()

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(cfg.API, api.Dependencies{
		Stages:   repository.NewStageRepository(client),
		Tasks:    repository.NewTaskRepository(client),
		Features: repository.NewFeatureRepository(client, featureCache, cfg.Cache.TTL, logger.WithPrefix("features"), metrics),
		Store:    client,
		Logger:   logger,
		Metrics:  metrics,
	})

	if err := server.Run(ctx); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully", nil)
	return nil
}
