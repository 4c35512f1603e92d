// Package catalog is the SQLite-backed home of orders, products, coupons,
// knowledge documents and approval requests.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

// Config selects the database file and whether to load the bundled seed.
type Config struct {
	Path string `envconfig:"CATALOG_PATH" default:"data/catalog.db"`
	Seed bool   `envconfig:"CATALOG_SEED" default:"true"`
}

// Store is the catalog repository.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and creates when missing) the catalog database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	logx.Debug().Str("path", path).Msg("catalog database ready")
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS orders (
		order_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		tracking_number TEXT,
		order_date INTEGER NOT NULL,
		estimated_delivery INTEGER,
		delivered_at INTEGER,
		total REAL NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'USD'
	);

	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL,
		currency TEXT NOT NULL DEFAULT 'USD',
		stock_quantity INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_products_name ON products(lower(name));

	CREATE TABLE IF NOT EXISTS coupons (
		code TEXT PRIMARY KEY,
		discount REAL NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		expires_at INTEGER,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS kb_documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT 'en',
		embedding TEXT
	);

	CREATE TABLE IF NOT EXISTS approval_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		request_type TEXT NOT NULL,
		reason TEXT NOT NULL,
		order_id TEXT,
		product_name TEXT,
		urgency TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_approvals_session ON approval_requests(session_id, created_at);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func unixOrNull(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.Unix()
}

func timeFromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
