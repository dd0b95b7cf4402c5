package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/event-geo-hierarchy/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLookupDialect(t *testing.T) {
	for name, want := range map[string]string{
		"sqlite":     "sqlite",
		"SQLite3":    "sqlite",
		"postgres":   "postgres",
		"postgresql": "postgres",
		"pgx":        "postgres",
		"mysql":      "mysql",
	} {
		d, err := lookupDialect(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, d.name)
	}

	_, err := lookupDialect("memory")
	assert.Error(t, err)
}

func TestDialect_Rebind(t *testing.T) {
	q := "UPDATE geo_terms SET parent_id = ?, updated_at = ? WHERE id = ?"

	assert.Equal(t, q, sqliteDialect.rebind(q))
	assert.Equal(t, q, mysqlDialect.rebind(q))
	assert.Equal(t,
		"UPDATE geo_terms SET parent_id = $1, updated_at = $2 WHERE id = $3",
		postgresDialect.rebind(q))
}

func TestDialect_UniqueViolation(t *testing.T) {
	assert.True(t, postgresDialect.uniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, postgresDialect.uniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, mysqlDialect.uniqueViolation(&mysql.MySQLError{Number: 1062}))
	assert.False(t, mysqlDialect.uniqueViolation(&mysql.MySQLError{Number: 1213}))
	assert.False(t, sqliteDialect.uniqueViolation(errors.New("boom")))
}

func TestDialect_PrepareDSN(t *testing.T) {
	dsn, err := sqliteDialect.prepareDSN("geo.db")
	require.NoError(t, err)
	assert.Equal(t, "geo.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dsn)

	dsn, err = sqliteDialect.prepareDSN("file:geo.db?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	assert.Equal(t, "file:geo.db?_pragma=foreign_keys(1)", dsn)

	dsn, err = mysqlDialect.prepareDSN("user:pw@tcp(localhost:3306)/geo")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")

	_, err = mysqlDialect.prepareDSN("not a dsn")
	assert.Error(t, err)
}

func TestSlowQueryHooks(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := &slowQueryHooks{
		threshold: 100 * time.Millisecond,
		logger:    discardLogger(),
		metrics:   metrics,
		now:       func() time.Time { return now },
	}

	ctx, err := h.Before(context.Background(), "SELECT 1")
	require.NoError(t, err)
	now = now.Add(50 * time.Millisecond)
	_, err = h.After(ctx, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.SlowQueries))

	ctx, _ = h.Before(context.Background(), "SELECT 2")
	now = now.Add(time.Second)
	_, _ = h.After(ctx, "SELECT 2")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SlowQueries))

	// After without Before is ignored.
	_, err = h.After(context.Background(), "SELECT 3")
	assert.NoError(t, err)
}
