package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tooldepot/tooldepot-backend/api/routes"
	"github.com/tooldepot/tooldepot-backend/internal/editing"
	"github.com/tooldepot/tooldepot-backend/pkg/catalog"
	"github.com/tooldepot/tooldepot-backend/pkg/config"
	"github.com/tooldepot/tooldepot-backend/pkg/logger"
	"github.com/tooldepot/tooldepot-backend/pkg/mediastore"
	"github.com/tooldepot/tooldepot-backend/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	catalogClient, err := catalog.NewClient(cfg.Catalog.BaseURL,
		catalog.WithAPIToken(cfg.Catalog.APIToken),
		catalog.WithTimeout(cfg.Catalog.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog client", err)
		os.Exit(1)
	}

	mediaClient, err := mediastore.NewClient(cfg.MediaStore.BaseURL,
		mediastore.WithAPIToken(cfg.MediaStore.APIToken),
		mediastore.WithTimeout(cfg.MediaStore.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create mediastore client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	saveMetrics := metrics.NewSaveMetrics(registry)

	orchestrator, err := editing.NewOrchestrator(
		mediaClient,
		mediaClient,
		catalogClient,
		logg,
		saveMetrics,
		cfg.MediaStore.UploadConcurrency,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create save orchestrator", err)
		os.Exit(1)
	}

	store := editing.NewStore(cfg.Session.TTL)
	stop := make(chan struct{})
	defer close(stop)
	store.StartSweeper(cfg.Session.TTL/4, stop)

	editingService, err := editing.NewService(store, catalogClient, orchestrator, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create editing service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, catalogClient, mediaClient, editingService, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
