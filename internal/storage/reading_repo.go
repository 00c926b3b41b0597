package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"violin/internal/models"
)

type ReadingRepo struct {
	db *DB
}

func NewReadingRepo(db *DB) *ReadingRepo {
	return &ReadingRepo{db: db}
}

func (r *ReadingRepo) SaveReading(ctx context.Context, readingID, sourcePath string, rows []models.Interaction) error {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return err
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reading tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
INSERT INTO violin_readings(reading_id, source_path, row_count)
VALUES ($1, $2, $3)
ON CONFLICT (reading_id) DO UPDATE SET source_path = EXCLUDED.source_path, row_count = EXCLUDED.row_count`,
		readingID, sourcePath, len(rows))
	if err != nil {
		return fmt.Errorf("upsert reading: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM violin_reading_rows WHERE reading_id=$1`, readingID); err != nil {
		return fmt.Errorf("clear reading rows: %w", err)
	}
	batch := &pgx.Batch{}
	for i, in := range rows {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode reading row %d: %w", i, err)
		}
		batch.Queue(`INSERT INTO violin_reading_rows(reading_id, row_idx, payload) VALUES ($1, $2, $3::jsonb)`, readingID, i, string(payload))
	}
	if err := sendBatch(ctx, tx, batch); err != nil {
		return fmt.Errorf("insert reading rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reading: %w", err)
	}
	return nil
}

// LoadRows returns up to limit rows starting at offset, in row order.
func (r *ReadingRepo) LoadRows(ctx context.Context, readingID string, offset, limit int) ([]models.Interaction, error) {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT payload FROM violin_reading_rows
WHERE reading_id=$1 AND row_idx >= $2 AND row_idx < $3
ORDER BY row_idx`, readingID, offset, offset+limit)
	if err != nil {
		return nil, fmt.Errorf("query reading rows: %w", err)
	}
	defer rows.Close()
	out := make([]models.Interaction, 0, limit)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan reading row: %w", err)
		}
		var in models.Interaction
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("decode reading row: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reading rows: %w", err)
	}
	return out, nil
}
