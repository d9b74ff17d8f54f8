// Package store persists comparisons and cached company snapshots.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fin_dashboard/pkg/core/logging"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNoPool is returned by Postgres-backed stores used before InitDB.
	ErrNoPool = errors.New("store: database pool not initialized")
	// ErrNotFound is returned when a record or snapshot does not exist.
	ErrNotFound = errors.New("store: not found")
)

var (
	pool    *pgxpool.Pool
	once    sync.Once
	initErr error
)

// InitDB opens the shared connection pool. Only the first call connects;
// later calls return the first call's outcome.
func InitDB(ctx context.Context, dbURL string) error {
	once.Do(func() {
		if dbURL == "" {
			initErr = fmt.Errorf("database url not set")
			return
		}
		config, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			initErr = fmt.Errorf("failed to parse database config: %w", err)
			return
		}
		pool, initErr = pgxpool.NewWithConfig(ctx, config)
		if initErr == nil {
			logging.Component("store").Info().Str("host", config.ConnConfig.Host).Msg("database pool ready")
		}
	})
	return initErr
}

// GetPool returns the shared pool, or nil before a successful InitDB.
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the shared pool.
func Close() {
	if pool != nil {
		pool.Close()
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS comparisons (
	id             UUID PRIMARY KEY,
	company1_label TEXT NOT NULL,
	company2_label TEXT NOT NULL,
	verdict        TEXT NOT NULL,
	currency       TEXT NOT NULL DEFAULT '',
	result_json    JSONB NOT NULL,
	narrative_json JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS comparisons_created_at_idx ON comparisons (created_at DESC);

CREATE TABLE IF NOT EXISTS company_snapshots (
	ticker        TEXT PRIMARY KEY,
	snapshot_json JSONB NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the tables used by this package if they are missing.
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	if p == nil {
		return ErrNoPool
	}
	if _, err := p.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
