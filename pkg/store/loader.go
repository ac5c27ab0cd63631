package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Loader writes rows into a sqlite store inside a single transaction.
// It is only used offline; serving handles are always read-only.
type Loader struct {
	db    *sql.DB
	tx    *sql.Tx
	put   *sql.Stmt
	table string
	n     int
}

// CreateSQLite creates (or opens) path for writing and ensures the table exists.
func CreateSQLite(ctx context.Context, path string, opts ...Option) (*Loader, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: create %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (key TEXT PRIMARY KEY, value BLOB NOT NULL)`, cfg.table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create table %q: %w", cfg.table, err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	put, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT OR REPLACE INTO "%s" (key, value) VALUES (?, ?)`, cfg.table))
	if err != nil {
		_ = tx.Rollback()
		_ = db.Close()
		return nil, fmt.Errorf("store: prepare insert: %w", err)
	}
	return &Loader{db: db, tx: tx, put: put, table: cfg.table}, nil
}

func (l *Loader) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("store: empty key")
	}
	if _, err := l.put.ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("store: put %q: %w", key, err)
	}
	l.n++
	return nil
}

// Written reports how many rows were put so far.
func (l *Loader) Written() int { return l.n }

// Commit makes the rows visible and closes the database.
func (l *Loader) Commit() error {
	_ = l.put.Close()
	if err := l.tx.Commit(); err != nil {
		_ = l.db.Close()
		return fmt.Errorf("store: commit: %w", err)
	}
	return l.db.Close()
}

// Abort discards everything written since CreateSQLite.
func (l *Loader) Abort() error {
	_ = l.put.Close()
	_ = l.tx.Rollback()
	return l.db.Close()
}
