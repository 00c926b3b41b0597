package providers

import (
	"context"
	"fmt"

	"violin/internal/util"
)

var mockSymbols = map[string]string{
	"1097":  "BRAF",
	"3236":  "EGFR",
	"6407":  "KRAS",
	"6840":  "MAP2K1",
	"6871":  "MAPK1",
	"6877":  "MAPK3",
	"7989":  "NRAS",
	"9588":  "PTEN",
	"11998": "TP53",
}

// MockResolver answers from a fixed table of well-known HGNC identifiers.
type MockResolver struct {
	symbols map[string]string
}

func NewMockResolver() *MockResolver {
	return &MockResolver{symbols: mockSymbols}
}

func (m *MockResolver) ResolveSymbol(ctx context.Context, hgncID string) (string, ProviderInfo, error) {
	info := ProviderInfo{Name: "mock", Key: "mock"}
	if err := ctx.Err(); err != nil {
		return "", info, err
	}
	s, ok := m.symbols[hgncID]
	if !ok {
		return "", info, fmt.Errorf("mock lookup %s: %w", hgncID, util.ErrSymbolNotFound)
	}
	return s, info, nil
}
