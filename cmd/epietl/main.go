package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/epi-series-etl/internal/adapter/fetch"
	httpadapter "github.com/couchcryptid/epi-series-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/epi-series-etl/internal/adapter/kafka"
	"github.com/couchcryptid/epi-series-etl/internal/config"
	"github.com/couchcryptid/epi-series-etl/internal/geo"
	"github.com/couchcryptid/epi-series-etl/internal/observability"
	"github.com/couchcryptid/epi-series-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	registry, err := geo.Load()
	if err != nil {
		logger.Error("failed to load country registry", "error", err)
		os.Exit(1)
	}
	logger.Info("country registry loaded", "version", registry.Version(), "countries", registry.Len())

	clock := clockwork.NewRealClock()
	fetcher := fetch.NewClient(cfg.DownloadDir, cfg.DownloadTimeout, clock, logger)

	extractor := pipeline.NewExtractor(cfg.Sources, fetcher, registry, logger, metrics)
	transformer := pipeline.NewTransformer(cfg.GeoIDs, cfg.Window, cfg.LowpassWidth, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(extractor, transformer, writer, logger, metrics, clock, cfg.BatchSize, cfg.RefreshInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline. In single-cycle mode the process exits when it finishes.
	exitCode := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
			exitCode = 1
		}
		if cfg.RefreshInterval <= 0 {
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
	if exitCode != 0 {
		cancel()
		os.Exit(exitCode)
	}
}
