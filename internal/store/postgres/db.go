// Package postgres provides the PostgreSQL-backed alert repository.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"alertcache/internal/config"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, cfg *config.PostgresConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxOpenConns
	poolConfig.MinConns = cfg.MaxIdleConns
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// schema is applied on startup; every statement is idempotent.
const schema = `
	CREATE TABLE IF NOT EXISTS alerts (
		id VARCHAR(64) PRIMARY KEY,
		type VARCHAR(64) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		data_entity_id VARCHAR(255),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		status_updated_at TIMESTAMP WITH TIME ZONE,
		status_updated_by VARCHAR(255) NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_data_entity ON alerts(data_entity_id);
	CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
	CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at DESC, id);
`

// RunMigrations creates the required database tables.
func (db *DB) RunMigrations(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
