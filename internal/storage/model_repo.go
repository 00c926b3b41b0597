package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"violin/internal/models"
	"violin/internal/util"
)

type ModelRepo struct {
	db *DB
}

func NewModelRepo(db *DB) *ModelRepo {
	return &ModelRepo{db: db}
}

// SaveModel stores the normalized entity table under modelID, replacing any
// earlier copy.
func (r *ModelRepo) SaveModel(ctx context.Context, modelID, sourcePath string, entities []models.Entity) error {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return err
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin model tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
INSERT INTO violin_models(model_id, source_path, element_count)
VALUES ($1, $2, $3)
ON CONFLICT (model_id) DO UPDATE SET source_path = EXCLUDED.source_path, element_count = EXCLUDED.element_count`,
		modelID, sourcePath, len(entities))
	if err != nil {
		return fmt.Errorf("upsert model: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM violin_model_elements WHERE model_id=$1`, modelID); err != nil {
		return fmt.Errorf("clear model elements: %w", err)
	}

	batch := &pgx.Batch{}
	for i, e := range entities {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode element %s: %w", e.Variable, err)
		}
		batch.Queue(`INSERT INTO violin_model_elements(model_id, row_idx, variable, payload) VALUES ($1, $2, $3, $4::jsonb)`,
			modelID, i, e.Variable, string(payload))
	}
	if err := sendBatch(ctx, tx, batch); err != nil {
		return fmt.Errorf("insert model elements: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit model: %w", err)
	}
	return nil
}

// LoadEntities returns the stored rows of a model in their original order.
func (r *ModelRepo) LoadEntities(ctx context.Context, modelID string) ([]models.Entity, error) {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, `SELECT payload FROM violin_model_elements WHERE model_id=$1 ORDER BY row_idx`, modelID)
	if err != nil {
		return nil, fmt.Errorf("query model elements: %w", err)
	}
	defer rows.Close()
	out := make([]models.Entity, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan model element: %w", err)
		}
		var e models.Entity
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode model element: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model elements: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("load model %s: %w", modelID, util.ErrEmptyModel)
	}
	return out, nil
}

func sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}
