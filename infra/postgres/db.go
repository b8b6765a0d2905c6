// Package postgres provides the PostgreSQL-backed order store, audit store
// and telemetry reader used in production deployments.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// Migrate creates the dispatchd tables when they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		status TEXT NOT NULL,
		status_version INTEGER NOT NULL DEFAULT 0,
		driver_id TEXT,
		vehicle_id TEXT,
		pickup_site_id TEXT NOT NULL,
		delivery_site_id TEXT NOT NULL,
		eta_pickup_at TIMESTAMPTZ,
		eta_delivery_at TIMESTAMPTZ,
		arrived_at_pickup_at TIMESTAMPTZ,
		arrived_at_delivery_at TIMESTAMPTZ,
		actual_delivery_at TIMESTAMPTZ,
		reject_reason TEXT,
		manual_dispatch BOOLEAN NOT NULL DEFAULT FALSE,
		claim_token TEXT,
		claim_until TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_tenant_status ON orders (tenant_id, status)`,
	`CREATE TABLE IF NOT EXISTS dispatch_log (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		order_id TEXT,
		driver_id TEXT,
		vehicle_id TEXT,
		automated BOOLEAN NOT NULL,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dispatch_log_tenant ON dispatch_log (tenant_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS pending_decisions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		order_id TEXT NOT NULL,
		proposed_driver_id TEXT,
		proposed_vehicle_id TEXT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS delay_alerts (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		order_id TEXT NOT NULL,
		driver_id TEXT,
		vehicle_id TEXT,
		title TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		automated BOOLEAN NOT NULL,
		delay_minutes DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vehicle_positions (
		vehicle_id TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS customer_settings (
		tenant_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		delay_threshold_minutes INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (tenant_id, customer_id)
	)`,
}
