// Command hydrolinkd consumes point observations from Kafka, hydrolinks them
// and produces the records to a sink topic. It also serves on-demand
// hydrolinking over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/hydrolink/internal/adapter/arcgis"
	httpadapter "github.com/couchcryptid/hydrolink/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hydrolink/internal/adapter/kafka"
	"github.com/couchcryptid/hydrolink/internal/adapter/sqlite"
	"github.com/couchcryptid/hydrolink/internal/config"
	"github.com/couchcryptid/hydrolink/internal/domain"
	"github.com/couchcryptid/hydrolink/internal/observability"
	"github.com/couchcryptid/hydrolink/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := arcgis.NewClient(cfg, logger, metrics)
	service := arcgis.NewCachedService(client, cfg.NHDCacheSize, metrics)
	linker := domain.NewLinker(service, cfg.Hydrolink, logger)
	logger.Info("linker configured",
		"nhd_version", cfg.Hydrolink.Version,
		"method", cfg.Hydrolink.Method,
		"hydro_type", cfg.Hydrolink.HydroType,
		"cache_size", cfg.NHDCacheSize,
		"rate_limit", cfg.NHDRateLimit,
	)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(linker, cfg.BufferMeters, logger, metrics)

	loaders := pipeline.Loaders{writer}
	var store *sqlite.Store
	var results httpadapter.ResultStore
	if cfg.ResultsDB != "" {
		store, err = sqlite.Open(cfg.ResultsDB, metrics)
		if err != nil {
			logger.Error("failed to open results database", "path", cfg.ResultsDB, "error", err)
			os.Exit(1)
		}
		loaders = append(loaders, store)
		results = store
		logger.Info("results database enabled", "path", cfg.ResultsDB)
	}

	p := pipeline.New(reader, transformer, loaders, logger, metrics, cfg.BatchSize, cfg.Workers)

	api := httpadapter.NewAPI(linker, results, cfg.Hydrolink, cfg.BufferMeters, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, api, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("results database close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
