package sqlstore

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dialect captures what differs between the supported databases.
type dialect struct {
	name string
	// base is the unwrapped driver handed to sqlhooks.
	base func() driver.Driver
	// prepareDSN normalizes the user DSN before opening.
	prepareDSN func(dsn string) (string, error)
	// dollarParams rewrites "?" placeholders to $1..$n.
	dollarParams bool
	// returningID inserts with RETURNING id instead of LastInsertId.
	returningID bool
	// singleConn limits the pool to one connection.
	singleConn bool
	schema     []string
	// uniqueViolation reports whether err is a unique-constraint failure.
	uniqueViolation func(err error) bool
}

func lookupDialect(name string) (dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return sqliteDialect, nil
	case "postgres", "postgresql", "pgx":
		return postgresDialect, nil
	case "mysql":
		return mysqlDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
}

var sqliteDialect = dialect{
	name: "sqlite",
	base: func() driver.Driver { return &sqlite.Driver{} },
	prepareDSN: func(dsn string) (string, error) {
		if strings.Contains(dsn, "_pragma=") {
			return dsn, nil
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
	},
	singleConn: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS geo_terms (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT      NOT NULL,
			slug       TEXT      NOT NULL UNIQUE,
			parent_id  INTEGER   NOT NULL DEFAULT 0,
			level      INTEGER   NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS geo_terms_parent_idx ON geo_terms (parent_id)`,
		`CREATE TABLE IF NOT EXISTS geo_event_terms (
			event_id TEXT    NOT NULL,
			term_id  INTEGER NOT NULL,
			seq      INTEGER NOT NULL,
			PRIMARY KEY (event_id, term_id)
		)`,
	},
	uniqueViolation: func(err error) bool {
		var se *sqlite.Error
		return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	},
}

var postgresDialect = dialect{
	name:         "postgres",
	base:         func() driver.Driver { return stdlib.GetDefaultDriver() },
	prepareDSN:   func(dsn string) (string, error) { return dsn, nil },
	dollarParams: true,
	returningID:  true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS geo_terms (
			id         BIGSERIAL PRIMARY KEY,
			name       TEXT        NOT NULL,
			slug       TEXT        NOT NULL UNIQUE,
			parent_id  BIGINT      NOT NULL DEFAULT 0,
			level      SMALLINT    NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS geo_terms_parent_idx ON geo_terms (parent_id)`,
		`CREATE TABLE IF NOT EXISTS geo_event_terms (
			event_id TEXT   NOT NULL,
			term_id  BIGINT NOT NULL,
			seq      INTEGER NOT NULL,
			PRIMARY KEY (event_id, term_id)
		)`,
	},
	uniqueViolation: func(err error) bool {
		var pe *pgconn.PgError
		return errors.As(err, &pe) && pe.Code == "23505"
	},
}

var mysqlDialect = dialect{
	name: "mysql",
	base: func() driver.Driver { return &mysql.MySQLDriver{} },
	prepareDSN: func(dsn string) (string, error) {
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	},
	schema: []string{
		`CREATE TABLE IF NOT EXISTS geo_terms (
			id         BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name       VARCHAR(255) NOT NULL,
			slug       VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
			parent_id  BIGINT       NOT NULL DEFAULT 0,
			level      TINYINT      NOT NULL,
			created_at DATETIME(6)  NOT NULL,
			updated_at DATETIME(6)  NOT NULL,
			UNIQUE KEY geo_terms_slug_key (slug),
			KEY geo_terms_parent_idx (parent_id)
		) DEFAULT CHARSET = utf8mb4`,
		`CREATE TABLE IF NOT EXISTS geo_event_terms (
			event_id VARCHAR(255) NOT NULL,
			term_id  BIGINT       NOT NULL,
			seq      INT          NOT NULL,
			PRIMARY KEY (event_id, term_id)
		) DEFAULT CHARSET = utf8mb4`,
	},
	uniqueViolation: func(err error) bool {
		var me *mysql.MySQLError
		return errors.As(err, &me) && me.Number == 1062
	},
}

// rebind rewrites "?" placeholders for dialects that use numbered params.
func (d dialect) rebind(query string) string {
	if !d.dollarParams {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
