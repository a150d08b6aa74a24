package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/rafaelcosta/cryptofolio-backend/internal/config"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection from the configured DSN and pool
// settings and verifies it with a ping
func NewDB(cfg config.DBConfig) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Bootstrap creates the schema if it does not exist yet. Statements are
// idempotent so repeated startups are safe.
func (db *DB) Bootstrap(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS assets (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			symbol TEXT NOT NULL UNIQUE,
			price_lookup_key TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			seq BIGSERIAL NOT NULL,
			asset_id UUID NOT NULL REFERENCES assets (id),
			kind TEXT NOT NULL,
			quantity NUMERIC NOT NULL,
			unit_price NUMERIC NOT NULL,
			fees NUMERIC NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_asset_order
			ON transactions (asset_id, occurred_at, seq)`,
		`CREATE TABLE IF NOT EXISTS portfolio_snapshots (
			id UUID PRIMARY KEY,
			captured_at TIMESTAMPTZ NOT NULL,
			total_value NUMERIC NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_portfolio_snapshots_captured_at
			ON portfolio_snapshots (captured_at)`,
		`CREATE TABLE IF NOT EXISTS snapshot_logs (
			id UUID PRIMARY KEY,
			logged_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			message TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to bootstrap schema: %w", err)
		}
	}
	return nil
}
