// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Querier is the subset of database/sql used by code that must run the same
// way inside and outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is what the migration engine needs from a database: plain statement
// execution plus a scoped atomic unit that commits when the function returns
// nil and rolls back otherwise.
type Store interface {
	Querier
	Atomic(ctx context.Context, fn func(q Querier) error) error
}

type DB struct {
	*sql.DB

	// Open transaction state for Atomic. One DB is owned by one migration
	// run at a time, so no locking here.
	tx    *sql.Tx
	depth int
}

func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{DB: db}, nil
}

// Atomic runs fn inside a transaction. A nested call does not open a second
// physical transaction: the function runs directly against the open one and
// the outer commit or rollback covers it. Depth is tracked explicitly rather
// than inferred from the call stack.
func (d *DB) Atomic(ctx context.Context, fn func(q Querier) error) error {
	if d.depth > 0 {
		d.depth++
		defer func() { d.depth-- }()
		return fn(d.tx)
	}

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	d.tx = tx
	d.depth = 1
	defer func() {
		d.tx = nil
		d.depth = 0
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Depth reports how many Atomic scopes are currently open.
func (d *DB) Depth() int { return d.depth }
