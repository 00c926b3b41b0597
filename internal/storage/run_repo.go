package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"violin/internal/models"
	"violin/internal/util"
)

type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// CreateRun inserts a queued run. profile is stored as JSON alongside it.
func (r *RunRepo) CreateRun(ctx context.Context, run models.Run, profile any) error {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return err
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode run profile: %w", err)
	}
	status := run.Status
	if status == "" {
		status = models.RunStatusQueued
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO violin_runs (run_id, status, model_path, reading_path, out_prefix, preset, scheme, profile)
VALUES ($1::uuid, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7, $8::jsonb)`,
		run.RunID, status, run.ModelPath, run.ReadingPath, run.OutPrefix, run.Preset, run.Scheme, string(profileJSON))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// AttachInputs records the stored model and reading a run scores.
func (r *RunRepo) AttachInputs(ctx context.Context, runID, modelID, readingID string, rowCount int) error {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE violin_runs SET model_id=$2, reading_id=$3, row_count=$4, status='running', updated_at=NOW()
WHERE run_id=$1::uuid`, runID, modelID, readingID, rowCount)
	if err != nil {
		return fmt.Errorf("attach run inputs: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attach run inputs %s: %w", runID, util.ErrRunNotFound)
	}
	return nil
}

func (r *RunRepo) UpdateRunStatus(ctx context.Context, runID, status, failReason string) error {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return err
	}
	_, err := r.db.Pool.Exec(ctx, `UPDATE violin_runs SET status=$2, fail_reason=NULLIF($3,''), updated_at=NOW() WHERE run_id=$1::uuid`, runID, status, failReason)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

const runColumns = `
SELECT r.run_id::text, r.status, COALESCE(r.model_id,''), COALESCE(r.reading_id,''), r.model_path, r.reading_path,
       COALESCE(r.out_prefix,''), COALESCE(r.preset,''), r.scheme, r.row_count,
       (SELECT COUNT(*) FROM violin_scored_rows s WHERE s.run_id = r.run_id),
       COALESCE(r.fail_reason,''), r.created_at, r.updated_at
FROM violin_runs r`

func scanRun(row pgx.Row) (models.Run, error) {
	var run models.Run
	err := row.Scan(&run.RunID, &run.Status, &run.ModelID, &run.ReadingID, &run.ModelPath, &run.ReadingPath,
		&run.OutPrefix, &run.Preset, &run.Scheme, &run.RowCount, &run.ScoredCount,
		&run.FailReason, &run.CreatedAt, &run.UpdatedAt)
	return run, err
}

func (r *RunRepo) GetRun(ctx context.Context, runID string) (models.Run, error) {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return models.Run{}, err
	}
	run, err := scanRun(r.db.Pool.QueryRow(ctx, runColumns+` WHERE r.run_id=$1::uuid`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Run{}, fmt.Errorf("get run %s: %w", runID, util.ErrRunNotFound)
	}
	if err != nil {
		return models.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// GetRunProfile decodes the stored profile of a run into out.
func (r *RunRepo) GetRunProfile(ctx context.Context, runID string, out any) error {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return err
	}
	var raw []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT profile FROM violin_runs WHERE run_id=$1::uuid`, runID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("get run profile %s: %w", runID, util.ErrRunNotFound)
	}
	if err != nil {
		return fmt.Errorf("get run profile: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode run profile: %w", err)
	}
	return nil
}

func (r *RunRepo) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx, runColumns+` ORDER BY r.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	out := make([]models.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}
