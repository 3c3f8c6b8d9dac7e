package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"tipnet/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in order. Every statement is
// idempotent, so Run is safe on an already migrated database.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createNetworkRunsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create network_runs table", err)
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError("failed to create indexes", err)
	}

	return nil
}

func (r *MigrationRunner) createNetworkRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS network_runs (
			id UUID PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			variables TEXT[] NOT NULL DEFAULT '{}',
			params JSONB NOT NULL,
			oracle JSONB,
			fingerprint VARCHAR(64) NOT NULL,
			result JSONB,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_network_runs_fingerprint ON network_runs(fingerprint)",
		"CREATE INDEX IF NOT EXISTS idx_network_runs_created_at ON network_runs(created_at DESC)",
	}

	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

var _ Migrator = (*MigrationRunner)(nil)
