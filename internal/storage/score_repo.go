package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"violin/internal/models"
	"violin/internal/scoring"
)

type ScoreRepo struct {
	db *DB
}

func NewScoreRepo(db *DB) *ScoreRepo {
	return &ScoreRepo{db: db}
}

// SaveScoredRows upserts one batch of scored rows; retries of the same batch
// overwrite their earlier attempt.
func (r *ScoreRepo) SaveScoredRows(ctx context.Context, runID string, rows []scoring.ScoredInteraction) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.EnsureSchema(ctx); err != nil {
		return err
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin scored rows tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	batch := &pgx.Batch{}
	for _, s := range rows {
		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode scored row %d: %w", s.Row, err)
		}
		batch.Queue(`
INSERT INTO violin_scored_rows(run_id, row_idx, kind, category, match_category, evidence_count,
                               match_score, kind_score, epistemic_value, total_score, payload)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb)
ON CONFLICT (run_id, row_idx) DO UPDATE SET
  kind = EXCLUDED.kind,
  category = EXCLUDED.category,
  match_category = EXCLUDED.match_category,
  evidence_count = EXCLUDED.evidence_count,
  match_score = EXCLUDED.match_score,
  kind_score = EXCLUDED.kind_score,
  epistemic_value = EXCLUDED.epistemic_value,
  total_score = EXCLUDED.total_score,
  payload = EXCLUDED.payload`,
			runID, s.Row, string(s.Kind), string(s.Category), string(s.Match), s.EvidenceCount,
			s.MatchScore, s.KindScore, s.EpistemicValue, s.TotalScore, string(payload))
	}
	if err := sendBatch(ctx, tx, batch); err != nil {
		return fmt.Errorf("insert scored rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit scored rows: %w", err)
	}
	return nil
}

// ListScoredRows returns a run's rows by Total Score, highest first. An empty
// category lists every bucket; limit <= 0 lists everything.
func (r *ScoreRepo) ListScoredRows(ctx context.Context, runID string, category scoring.Category, limit, offset int) ([]scoring.ScoredInteraction, error) {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT payload FROM violin_scored_rows
WHERE run_id=$1::uuid AND ($2 = '' OR category = $2)
ORDER BY total_score DESC, row_idx
LIMIT CASE WHEN $3 > 0 THEN $3 END OFFSET $4`, runID, string(category), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query scored rows: %w", err)
	}
	defer rows.Close()
	out := make([]scoring.ScoredInteraction, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan scored row: %w", err)
		}
		var s scoring.ScoredInteraction
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode scored row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scored rows: %w", err)
	}
	return out, nil
}

// KindHistogram counts a run's scored rows per kind.
func (r *ScoreRepo) KindHistogram(ctx context.Context, runID string) (map[string]int, error) {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, `SELECT kind, COUNT(*) FROM violin_scored_rows WHERE run_id=$1::uuid GROUP BY kind`, runID)
	if err != nil {
		return nil, fmt.Errorf("query kind histogram: %w", err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan kind count: %w", err)
		}
		out[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kind histogram: %w", err)
	}
	return out, nil
}

// SaveDiagnostics appends diagnostics raised at stage (ingest, score, ...).
func (r *ScoreRepo) SaveDiagnostics(ctx context.Context, runID, stage string, diags []models.Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	if err := r.db.EnsureSchema(ctx); err != nil {
		return err
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin diagnostics tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	batch := &pgx.Batch{}
	for _, d := range diags {
		batch.Queue(`INSERT INTO violin_run_diagnostics(run_id, stage, row_idx, variable, message) VALUES ($1::uuid, $2, $3, NULLIF($4,''), $5)`,
			runID, stage, d.Row, d.Variable, d.Message)
	}
	if err := sendBatch(ctx, tx, batch); err != nil {
		return fmt.Errorf("insert diagnostics: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit diagnostics: %w", err)
	}
	return nil
}

// ClearDiagnostics drops diagnostics of one stage and row range so a retried
// batch does not record them twice.
func (r *ScoreRepo) ClearDiagnostics(ctx context.Context, runID, stage string, fromRow, toRow int) error {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return err
	}
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM violin_run_diagnostics WHERE run_id=$1::uuid AND stage=$2 AND row_idx >= $3 AND row_idx < $4`,
		runID, stage, fromRow, toRow)
	if err != nil {
		return fmt.Errorf("clear diagnostics: %w", err)
	}
	return nil
}

func (r *ScoreRepo) ListDiagnostics(ctx context.Context, runID string) ([]models.Diagnostic, error) {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT row_idx, COALESCE(variable,''), message FROM violin_run_diagnostics
WHERE run_id=$1::uuid ORDER BY stage, row_idx, diagnostic_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()
	out := make([]models.Diagnostic, 0)
	for rows.Next() {
		var d models.Diagnostic
		if err := rows.Scan(&d.Row, &d.Variable, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return out, nil
}
