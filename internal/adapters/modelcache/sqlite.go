package modelcache

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/bvsim/internal/adapters/modelcache/migrations"
	"github.com/okian/bvsim/internal/domain/errs"
	"github.com/okian/bvsim/pkg/logger"
	"github.com/okian/bvsim/pkg/metrics"
)

// sqliteCache persists cache entries across process restarts, grounded on
// louisbranch-fracturing.space's internal/services/*/storage/sqlite
// stores: a single *sql.DB opened against the pure-Go modernc.org/sqlite
// driver, WAL journaling for concurrent readers, and embedded migrations
// applied once at Open.
type sqliteCache struct {
	db     *sql.DB
	logger logger.Logger
}

// Open opens (creating if necessary) a SQLite-backed Cache at path.
func Open(path string) (Cache, error) {
	const op = "modelcache.Open"

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errs.Wrap(op, errs.InternalError, err)
	}

	if err := applyMigrations(db, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(op, errs.InternalError, err)
	}

	return &sqliteCache{db: db, logger: logger.Get().Named("modelcache")}, nil
}

func (c *sqliteCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	const op = "modelcache.sqliteCache.Get"

	row := c.db.QueryRowContext(ctx,
		`SELECT p_win_a, ci_low, ci_high, ci_method FROM model_cache WHERE key = ?`, key)

	var e Entry
	switch err := row.Scan(&e.PWinA, &e.CILow, &e.CIHigh, &e.CIMethod); err {
	case nil:
		metrics.RecordModelCacheHit()
		return e, true, nil
	case sql.ErrNoRows:
		metrics.RecordModelCacheMiss()
		return Entry{}, false, nil
	default:
		return Entry{}, false, errs.Wrap(op, errs.InternalError, err)
	}
}

func (c *sqliteCache) Put(ctx context.Context, key string, entry Entry) error {
	const op = "modelcache.sqliteCache.Put"

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO model_cache (key, p_win_a, ci_low, ci_high, ci_method, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			p_win_a = excluded.p_win_a,
			ci_low = excluded.ci_low,
			ci_high = excluded.ci_high,
			ci_method = excluded.ci_method
	`, key, entry.PWinA, entry.CILow, entry.CIHigh, entry.CIMethod, time.Now().UTC().UnixMilli())
	if err != nil {
		return errs.Wrap(op, errs.InternalError, err)
	}
	return nil
}

func (c *sqliteCache) Close() error { return c.db.Close() }

// applyMigrations runs every embedded *.sql file's "-- +migrate Up" section
// against db, tracking applied files in a schema_migrations table so a
// restart never reapplies one. Adapted from the migration-runner shape of
// louisbranch-fracturing.space's internal/platform/storage/sqlitemigrate,
// trimmed to the single migration this cache needs.
func applyMigrations(db *sql.DB, migrationFS fs.FS, root string) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var applied int
		err := db.QueryRow(`SELECT 1 FROM schema_migrations WHERE name = ?`, name).Scan(&applied)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %s: %w", name, err)
		}

		content, err := fs.ReadFile(migrationFS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		up := extractUpSection(string(content))
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`,
			name, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

func extractUpSection(content string) string {
	upIdx := strings.Index(content, "-- +migrate Up")
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, "-- +migrate Down")
	if downIdx == -1 {
		return content[upIdx+len("-- +migrate Up"):]
	}
	return content[upIdx+len("-- +migrate Up") : downIdx]
}
