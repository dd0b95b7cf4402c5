// Command geohierd classifies calendar events by venue location. It consumes
// venue events from Kafka, publishes located events, serves the display
// endpoint and optionally refreshes iCalendar feeds on a cron schedule.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	httpadapter "github.com/couchcryptid/event-geo-hierarchy/internal/adapter/http"
	"github.com/couchcryptid/event-geo-hierarchy/internal/adapter/ics"
	kafkaadapter "github.com/couchcryptid/event-geo-hierarchy/internal/adapter/kafka"
	"github.com/couchcryptid/event-geo-hierarchy/internal/adapter/nominatim"
	"github.com/couchcryptid/event-geo-hierarchy/internal/config"
	"github.com/couchcryptid/event-geo-hierarchy/internal/observability"
	"github.com/couchcryptid/event-geo-hierarchy/internal/pipeline"
	"github.com/couchcryptid/event-geo-hierarchy/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	termStore, err := store.Open(ctx, cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	logger.Info("store opened", "driver", cfg.DBDriver)

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		logger.Error("failed to build locator options", "error", err)
		os.Exit(1)
	}

	client := nominatim.NewClient(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout, metrics, logger)
	geocoder := nominatim.NewCachedGeocoder(client, cfg.GeocoderCacheTTL, metrics)
	logger.Info("geocoder configured", "url", cfg.GeocoderURL, "cache_ttl", cfg.GeocoderCacheTTL)

	locator := pipeline.NewLocator(geocoder, termStore, opts, metrics, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	p := pipeline.New(reader, pipeline.NewTransformer(locator), writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Readiness{termStore, p}, locator, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	var stopCron func() context.Context
	if len(cfg.ICSFeeds) > 0 {
		importer := pipeline.NewFeedImporter(ics.NewFetcher(cfg.GeocoderTimeout, logger), locator, writer, metrics, logger)
		sched, err := pipeline.ScheduleRefresh(ctx, cfg.ICSRefreshCron, importer, cfg.ICSFeeds)
		if err != nil {
			logger.Error("failed to schedule feed refresh", "error", err)
			os.Exit(1)
		}
		sched.Start()
		stopCron = sched.Stop
		logger.Info("feed refresh scheduled", "feeds", len(cfg.ICSFeeds), "cron", cfg.ICSRefreshCron)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if stopCron != nil {
		select {
		case <-stopCron().Done():
		case <-shutdownCtx.Done():
			logger.Warn("feed refresh still running at shutdown")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := termStore.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
