package sqlstore

import (
	"context"
	"database/sql/driver"
	"log/slog"
	"time"

	"github.com/couchcryptid/event-geo-hierarchy/internal/observability"
)

type beginKey struct{}

// slowQueryHooks implements sqlhooks.Hooks and logs statements that take
// longer than threshold.
type slowQueryHooks struct {
	threshold time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func (h *slowQueryHooks) Before(ctx context.Context, _ string, _ ...interface{}) (context.Context, error) {
	return context.WithValue(ctx, beginKey{}, h.now()), nil
}

func (h *slowQueryHooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	begin, ok := ctx.Value(beginKey{}).(time.Time)
	if !ok || h.threshold <= 0 {
		return ctx, nil
	}
	if d := h.now().Sub(begin); d > h.threshold {
		h.logger.Warn("slow sql query", "query", query, "args", len(args), "duration", d)
		if h.metrics != nil {
			h.metrics.SlowQueries.Inc()
		}
	}
	return ctx, nil
}

// dsnConnector opens connections on a wrapped driver without registering it
// globally, so each Store carries its own hooks.
type dsnConnector struct {
	dsn string
	drv driver.Driver
}

func (c dsnConnector) Connect(context.Context) (driver.Conn, error) { return c.drv.Open(c.dsn) }

func (c dsnConnector) Driver() driver.Driver { return c.drv }
