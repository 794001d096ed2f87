// Package postgres mirrors archived entries into a Postgres table so the archive can be
// queried with SQL. The JSON metadata store stays the source of truth.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/article-archiver/internal/archive"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "archive_entries"

// CatalogConfig controls the Postgres connection pool used for catalog rows.
type CatalogConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Catalog writes entry rows into Postgres.
type Catalog struct {
	pool  execCloser
	table string
}

// NewCatalog connects a pool using cfg.
func NewCatalog(ctx context.Context, cfg CatalogConfig) (*Catalog, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("catalog.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	catalog, err := NewCatalogWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return catalog, nil
}

// NewCatalogWithPool constructs a catalog from an existing pool (primarily for testing).
func NewCatalogWithPool(pool execCloser, table string) (*Catalog, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Catalog{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (c *Catalog) Close() {
	if c == nil || c.pool == nil {
		return
	}
	c.pool.Close()
}

// EnsureSchema creates the catalog table when it does not exist yet.
func (c *Catalog) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	source_url TEXT NOT NULL,
	url_fingerprint TEXT NOT NULL,
	captured_at TIMESTAMPTZ,
	authors TEXT[] NOT NULL DEFAULT '{}',
	summary TEXT,
	content_ref TEXT NOT NULL,
	image_count INTEGER NOT NULL DEFAULT 0,
	archived_at TIMESTAMPTZ
)`, c.table)
	if _, err := c.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create catalog table: %w", err)
	}
	return nil
}

// UpsertEntry inserts the entry. Ids are immutable, so an existing row is left alone.
func (c *Catalog) UpsertEntry(ctx context.Context, entry archive.Entry) error {
	if c == nil || c.pool == nil {
		return fmt.Errorf("catalog is not configured")
	}
	if entry.ID == "" {
		return fmt.Errorf("entry id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	title,
	source_url,
	url_fingerprint,
	captured_at,
	authors,
	summary,
	content_ref,
	image_count,
	archived_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO NOTHING`, c.table)

	authors := entry.Authors
	if authors == nil {
		authors = []string{}
	}
	args := []any{
		entry.ID,
		entry.Title,
		entry.SourceURL,
		entry.URLFingerprint,
		nullableTime(entry.CapturedAt),
		authors,
		entry.Summary,
		entry.ContentRef,
		len(entry.LocalImagePaths),
		nullableTime(entry.ArchivedAt),
	}
	if _, err := c.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert catalog entry: %w", err)
	}
	return nil
}

func nullableTime(ts archive.Timestamp) *time.Time {
	if ts.IsZero() {
		return nil
	}
	t := ts.UTC()
	return &t
}
