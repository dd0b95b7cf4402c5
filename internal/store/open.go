// Package store selects the hierarchy store backend from configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/event-geo-hierarchy/internal/config"
	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
	"github.com/couchcryptid/event-geo-hierarchy/internal/observability"
	"github.com/couchcryptid/event-geo-hierarchy/internal/store/memory"
	"github.com/couchcryptid/event-geo-hierarchy/internal/store/sqlstore"
)

// Store is a hierarchy backend with a readiness probe.
type Store interface {
	domain.TermStore
	domain.EventTermStore
	CheckReadiness(ctx context.Context) error
	Close() error
}

// Open returns the backend named by cfg.DBDriver. "memory" keeps everything
// in process and loses it on exit.
func Open(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (Store, error) {
	if cfg.DBDriver == "memory" {
		logger.Warn("using in-memory store, hierarchy is not persisted")
		return memory.New(nil), nil
	}

	s, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.DBDSN, sqlstore.Options{
		SlowQuery: cfg.DBSlowQuery,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
	}
	return s, nil
}
