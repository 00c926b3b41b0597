package storage

import (
	"context"
	"fmt"
)

type SymbolCallRecord struct {
	RunID        string
	HGNCID       string
	ProviderName string
	Status       string
	ErrorType    string
}

// SymbolCallRepo keeps an audit trail of external symbol lookups.
type SymbolCallRepo struct {
	db *DB
}

func NewSymbolCallRepo(db *DB) *SymbolCallRepo {
	return &SymbolCallRepo{db: db}
}

func (r *SymbolCallRepo) Insert(ctx context.Context, rec SymbolCallRecord) error {
	if err := r.db.EnsureSchema(ctx); err != nil {
		return err
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO violin_symbol_calls(run_id, hgnc_id, provider_name, status, error_type)
VALUES (NULLIF($1,'')::uuid, $2, $3, $4, NULLIF($5,''))`,
		rec.RunID, rec.HGNCID, rec.ProviderName, rec.Status, rec.ErrorType)
	if err != nil {
		return fmt.Errorf("insert symbol call: %w", err)
	}
	return nil
}
