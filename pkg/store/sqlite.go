package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

type sqliteConfig struct {
	table    string
	maxConns int
}

type Option func(*sqliteConfig)

func WithTable(name string) Option {
	return func(c *sqliteConfig) {
		if name != "" {
			c.table = name
		}
	}
}

// WithMaxConns caps open connections; set it to the worker count.
func WithMaxConns(n int) Option { return func(c *sqliteConfig) { c.maxConns = n } }

func buildConfig(opts []Option) (sqliteConfig, error) {
	cfg := sqliteConfig{table: DefaultTable}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg, validTable(cfg.table)
}

// SQLite is a read-only Handle over a single sqlite table.
type SQLite struct {
	db    *sql.DB
	get   *sql.Stmt
	path  string
	table string
}

// OpenSQLite opens path read-only and prepares the lookup statement, which
// fails fast when the file or table is missing.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLite, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if cfg.maxConns > 0 {
		db.SetMaxOpenConns(cfg.maxConns)
		db.SetMaxIdleConns(cfg.maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}
	get, err := db.PrepareContext(ctx, fmt.Sprintf(`SELECT value FROM "%s" WHERE key = ?`, cfg.table))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: table %q in %s: %w", cfg.table, path, err)
	}
	return &SQLite{db: db, get: get, path: path, table: cfg.table}, nil
}

func (s *SQLite) Lookup(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := s.get.QueryRowContext(ctx, key).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("store: lookup %q: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Close() error {
	_ = s.get.Close()
	return s.db.Close()
}
