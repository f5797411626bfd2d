package postgres

import (
	"context"
	"fmt"

	"jobsync/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_key          TEXT PRIMARY KEY,
	source           TEXT NOT NULL,
	source_id        TEXT NOT NULL,
	title            TEXT NOT NULL,
	organization     TEXT NOT NULL DEFAULT '',
	location         TEXT NOT NULL DEFAULT '',
	country          TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	experience_level TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	skills           TEXT[] NOT NULL DEFAULT '{}',
	salary           TEXT,
	apply_url        TEXT NOT NULL,
	posted_at        BIGINT NOT NULL DEFAULT 0,
	closing_at       BIGINT,
	created_at       BIGINT NOT NULL,
	updated_at       BIGINT NOT NULL,
	UNIQUE (source, source_id)
);
CREATE INDEX IF NOT EXISTS jobs_source_created_idx ON jobs (source, created_at DESC);
CREATE INDEX IF NOT EXISTS jobs_closing_idx ON jobs (closing_at) WHERE closing_at IS NOT NULL;

CREATE TABLE IF NOT EXISTS alert_subscriptions (
	id                 TEXT PRIMARY KEY,
	device_token       TEXT NOT NULL,
	frequency          TEXT NOT NULL DEFAULT 'instant',
	categories         TEXT[] NOT NULL DEFAULT '{}',
	locations          TEXT[] NOT NULL DEFAULT '{}',
	keywords           TEXT[] NOT NULL DEFAULT '{}',
	organizations      TEXT[] NOT NULL DEFAULT '{}',
	experience_levels  TEXT[] NOT NULL DEFAULT '{}',
	expression         TEXT NOT NULL DEFAULT '',
	active             BOOLEAN NOT NULL DEFAULT TRUE,
	last_notified_at   BIGINT,
	notification_count INTEGER NOT NULL DEFAULT 0,
	created_at         BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS alert_subscriptions_device_idx ON alert_subscriptions (device_token);
`

// NewPool creates and verifies a pgxpool connection pool
func NewPool(ctx context.Context, databaseURL string, log logger.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	log.Info("connected to PostgreSQL successfully")

	return pool, nil
}

// EnsureSchema creates the tables and indexes if they do not exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
