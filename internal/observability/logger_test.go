package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/event-geo-hierarchy/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger_RespectsLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "warn", LogFormat: "text"})

	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.MessagesConsumed.Inc()
	assert.NotSame(t, a.MessagesConsumed, b.MessagesConsumed)
	assert.Len(t, a.collectors(), 13)
}
