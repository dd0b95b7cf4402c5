// Package sqlstore persists the geographic hierarchy and event associations
// through database/sql. SQLite, PostgreSQL and MySQL are supported; every
// statement runs through sqlhooks so slow queries are logged.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
	"github.com/couchcryptid/event-geo-hierarchy/internal/observability"
)

// Options tunes a Store.
type Options struct {
	// SlowQuery is the duration above which statements are logged. Zero disables it.
	SlowQuery time.Duration
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	Clock     clockwork.Clock
}

// Store implements domain.TermStore and domain.EventTermStore.
type Store struct {
	db      *sql.DB
	dialect dialect
	clock   clockwork.Clock
	logger  *slog.Logger
}

// Open connects to the database named by driverName ("sqlite", "postgres"
// or "mysql") and creates the schema if it is missing.
func Open(ctx context.Context, driverName, dsn string, opts Options) (*Store, error) {
	d, err := lookupDialect(driverName)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	dsn, err = d.prepareDSN(dsn)
	if err != nil {
		return nil, err
	}

	hooks := &slowQueryHooks{
		threshold: opts.SlowQuery,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		now:       time.Now,
	}
	db := sql.OpenDB(dsnConnector{dsn: dsn, drv: sqlhooks.Wrap(d.base(), hooks)})
	if d.singleConn {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxIdleConns(10)
		db.SetMaxOpenConns(100)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	s := &Store{db: db, dialect: d, clock: opts.Clock, logger: opts.Logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s schema: %w", s.dialect.name, err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s ping: %w", s.dialect.name, err)
	}
	return nil
}

const nodeColumns = "id, name, slug, parent_id, level, created_at, updated_at"

func (s *Store) FindBySlug(ctx context.Context, slug string) (domain.Node, bool, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT "+nodeColumns+" FROM geo_terms WHERE slug = ?"), slug)
	return scanNode(row)
}

func (s *Store) GetByID(ctx context.Context, id domain.NodeID) (domain.Node, bool, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT "+nodeColumns+" FROM geo_terms WHERE id = ?"), int64(id))
	return scanNode(row)
}

func (s *Store) Create(ctx context.Context, name, slug string, parent domain.NodeID, level domain.Level) (domain.NodeID, error) {
	now := s.clock.Now().UTC()
	query := "INSERT INTO geo_terms (name, slug, parent_id, level, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
	args := []any{name, slug, int64(parent), int(level), now, now}

	var id int64
	if s.dialect.returningID {
		err := s.db.QueryRowContext(ctx, s.dialect.rebind(query+" RETURNING id"), args...).Scan(&id)
		if err != nil {
			return 0, s.createErr(slug, err)
		}
		return domain.NodeID(id), nil
	}

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return 0, s.createErr(slug, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create %q: last insert id: %w", slug, err)
	}
	return domain.NodeID(id), nil
}

func (s *Store) createErr(slug string, err error) error {
	if s.dialect.uniqueViolation(err) {
		return fmt.Errorf("create %q: %w", slug, domain.ErrSlugExists)
	}
	return fmt.Errorf("create %q: %w", slug, err)
}

func (s *Store) UpdateParent(ctx context.Context, id, parent domain.NodeID) error {
	res, err := s.db.ExecContext(ctx,
		s.dialect.rebind("UPDATE geo_terms SET parent_id = ?, updated_at = ? WHERE id = ?"),
		int64(parent), s.clock.Now().UTC(), int64(id))
	if err != nil {
		return fmt.Errorf("update parent of %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update parent of %d: rows affected: %w", id, err)
	}
	if n == 0 {
		// MySQL reports 0 for unchanged rows; confirm the node exists.
		if _, found, gerr := s.GetByID(ctx, id); gerr != nil || !found {
			return fmt.Errorf("update parent of %d: %w", id, domain.ErrNotFound)
		}
	}
	return nil
}

// ReplaceEventTerms swaps the association of eventID in one transaction.
// An unknown node id rolls the whole swap back with domain.ErrNotFound.
func (s *Store) ReplaceEventTerms(ctx context.Context, eventID string, ids []domain.NodeID) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace terms of %s: begin: %w", eventID, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, s.dialect.rebind("DELETE FROM geo_event_terms WHERE event_id = ?"), eventID); err != nil {
		return fmt.Errorf("replace terms of %s: delete: %w", eventID, err)
	}

	exists := s.dialect.rebind("SELECT 1 FROM geo_terms WHERE id = ?")
	insert := s.dialect.rebind("INSERT INTO geo_event_terms (event_id, term_id, seq) VALUES (?, ?, ?)")
	seen := make(map[domain.NodeID]bool, len(ids))
	for i, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		var one int
		if err = tx.QueryRowContext(ctx, exists, int64(id)).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("associate event %s with node %d: %w", eventID, id, domain.ErrNotFound)
			}
			return fmt.Errorf("replace terms of %s: check %d: %w", eventID, id, err)
		}
		if _, err = tx.ExecContext(ctx, insert, eventID, int64(id), i); err != nil {
			return fmt.Errorf("replace terms of %s: insert %d: %w", eventID, id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("replace terms of %s: commit: %w", eventID, err)
	}
	return nil
}

func (s *Store) EventTerms(ctx context.Context, eventID string) ([]domain.Node, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT t.id, t.name, t.slug, t.parent_id, t.level, t.created_at, t.updated_at
		FROM geo_event_terms e
		JOIN geo_terms t ON t.id = e.term_id
		WHERE e.event_id = ?
		ORDER BY e.seq`), eventID)
	if err != nil {
		return nil, fmt.Errorf("event terms of %s: %w", eventID, err)
	}
	defer rows.Close()

	var nodes []domain.Node
	for rows.Next() {
		n, err := scanNodeFields(rows)
		if err != nil {
			return nil, fmt.Errorf("event terms of %s: scan: %w", eventID, err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("event terms of %s: %w", eventID, err)
	}
	return nodes, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row *sql.Row) (domain.Node, bool, error) {
	n, err := scanNodeFields(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Node{}, false, nil
	}
	if err != nil {
		return domain.Node{}, false, fmt.Errorf("scan node: %w", err)
	}
	return n, true, nil
}

func scanNodeFields(sc scanner) (domain.Node, error) {
	var (
		n                domain.Node
		id, parent       int64
		level            int
		created, updated time.Time
	)
	if err := sc.Scan(&id, &n.Name, &n.Slug, &parent, &level, &created, &updated); err != nil {
		return domain.Node{}, err
	}
	n.ID = domain.NodeID(id)
	n.ParentID = domain.NodeID(parent)
	n.Level = domain.Level(level)
	n.CreatedAt = created.UTC()
	n.UpdatedAt = updated.UTC()
	return n, nil
}
