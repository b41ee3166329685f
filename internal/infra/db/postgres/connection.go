package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// NewPgxPool connects to Postgres with a bounded pool size.
func NewPgxPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool connect: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables this service owns. Idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS spotlight_requests (
  id             TEXT PRIMARY KEY,
  project_id     TEXT NOT NULL,
  requester_id   TEXT NOT NULL,
  status         TEXT NOT NULL,
  start_date     DATE NOT NULL,
  end_date       DATE NOT NULL,
  duration_days  INT  NOT NULL,
  price_minor    BIGINT NOT NULL DEFAULT 0,
  is_free_promo  BOOLEAN NOT NULL DEFAULT FALSE,
  hero_image_url TEXT NOT NULL DEFAULT '',
  message        TEXT NOT NULL DEFAULT '',
  admin_notes    TEXT NOT NULL DEFAULT '',
  approved_at    TIMESTAMPTZ,
  created_at     TIMESTAMPTZ NOT NULL,
  updated_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_spotlight_requests_status ON spotlight_requests (status);
CREATE INDEX IF NOT EXISTS idx_spotlight_requests_project ON spotlight_requests (project_id);

CREATE TABLE IF NOT EXISTS payment_sessions (
  id              TEXT PRIMARY KEY,
  request_id      TEXT NOT NULL REFERENCES spotlight_requests(id),
  address         TEXT NOT NULL,
  expected_minor  BIGINT NOT NULL,
  status          TEXT NOT NULL,
  tx_hash         TEXT,
  created_at      TIMESTAMPTZ NOT NULL,
  updated_at      TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_payment_sessions_live
  ON payment_sessions (request_id) WHERE status <> 'expired';
`
	_, err := pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
