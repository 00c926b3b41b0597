package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool

	schemaMu       sync.Mutex
	schemaPrepared bool
}

func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS violin_models (
  model_id TEXT PRIMARY KEY,
  source_path TEXT NOT NULL,
  element_count INT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS violin_model_elements (
  model_id TEXT NOT NULL REFERENCES violin_models(model_id) ON DELETE CASCADE,
  row_idx INT NOT NULL,
  variable TEXT NOT NULL,
  payload JSONB NOT NULL,
  PRIMARY KEY (model_id, row_idx)
);

CREATE TABLE IF NOT EXISTS violin_readings (
  reading_id TEXT PRIMARY KEY,
  source_path TEXT NOT NULL,
  row_count INT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS violin_reading_rows (
  reading_id TEXT NOT NULL REFERENCES violin_readings(reading_id) ON DELETE CASCADE,
  row_idx INT NOT NULL,
  payload JSONB NOT NULL,
  PRIMARY KEY (reading_id, row_idx)
);

CREATE TABLE IF NOT EXISTS violin_runs (
  run_id UUID PRIMARY KEY,
  status TEXT NOT NULL CHECK (status IN ('queued','running','completed','failed')),
  model_id TEXT REFERENCES violin_models(model_id),
  reading_id TEXT REFERENCES violin_readings(reading_id),
  model_path TEXT NOT NULL,
  reading_path TEXT NOT NULL,
  out_prefix TEXT,
  preset TEXT,
  scheme TEXT NOT NULL,
  profile JSONB NOT NULL DEFAULT '{}'::jsonb,
  row_count INT NOT NULL DEFAULT 0,
  fail_reason TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS violin_scored_rows (
  run_id UUID NOT NULL REFERENCES violin_runs(run_id) ON DELETE CASCADE,
  row_idx INT NOT NULL,
  kind TEXT NOT NULL,
  category TEXT NOT NULL,
  match_category TEXT NOT NULL,
  evidence_count INT NOT NULL,
  match_score DOUBLE PRECISION NOT NULL,
  kind_score DOUBLE PRECISION NOT NULL,
  epistemic_value DOUBLE PRECISION NOT NULL,
  total_score DOUBLE PRECISION NOT NULL,
  payload JSONB NOT NULL,
  PRIMARY KEY (run_id, row_idx)
);

CREATE TABLE IF NOT EXISTS violin_run_diagnostics (
  diagnostic_id BIGSERIAL PRIMARY KEY,
  run_id UUID NOT NULL REFERENCES violin_runs(run_id) ON DELETE CASCADE,
  stage TEXT NOT NULL,
  row_idx INT NOT NULL,
  variable TEXT,
  message TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS violin_symbol_calls (
  call_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  run_id UUID,
  hgnc_id TEXT NOT NULL,
  provider_name TEXT NOT NULL,
  status TEXT NOT NULL,
  error_type TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_violin_runs_updated ON violin_runs(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_violin_scored_category ON violin_scored_rows(run_id, category, total_score DESC);
CREATE INDEX IF NOT EXISTS idx_violin_diagnostics_run ON violin_run_diagnostics(run_id, stage, row_idx);
`

// EnsureSchema creates the tables once per process.
func (d *DB) EnsureSchema(ctx context.Context) error {
	d.schemaMu.Lock()
	defer d.schemaMu.Unlock()

	if d.schemaPrepared {
		return nil
	}
	if _, err := d.Pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	d.schemaPrepared = true
	return nil
}
