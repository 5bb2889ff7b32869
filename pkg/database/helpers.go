package database

import (
	"context"
	"database/sql"
	"fmt"
)

type TxFunc func(tx *sql.Tx) error

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error. The migrator uses it so a half-applied migration never
// leaves the schema in between versions.
func (db *DB) WithTx(ctx context.Context, fn TxFunc) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SchemaReady reports whether the collection schema has been applied.
// Readiness probes use it so the hub is not marked ready before -migrate
// has run against this database.
func (db *DB) SchemaReady(ctx context.Context) (bool, error) {
	return db.tableExists(ctx, "collection_metrics")
}

func (db *DB) tableExists(ctx context.Context, tableName string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)`
	err := db.QueryRowContext(ctx, query, tableName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check if table exists: %w", err)
	}
	return exists, nil
}

// ServerVersion returns the Postgres server version string.
func (db *DB) ServerVersion(ctx context.Context) (string, error) {
	var version string
	err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version)
	if err != nil {
		return "", fmt.Errorf("failed to get database version: %w", err)
	}
	return version, nil
}

// PoolStats is the subset of sql.DBStats surfaced on the readiness
// endpoint.
type PoolStats struct {
	Open      int   `json:"open"`
	InUse     int   `json:"in_use"`
	Idle      int   `json:"idle"`
	WaitCount int64 `json:"wait_count"`
}

func (db *DB) PoolStats() PoolStats {
	s := db.Stats()
	return PoolStats{
		Open:      s.OpenConnections,
		InUse:     s.InUse,
		Idle:      s.Idle,
		WaitCount: s.WaitCount,
	}
}
