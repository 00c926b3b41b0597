package providers

import "context"

type ProviderInfo struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// SymbolResolver maps an HGNC identifier (digits only) to its approved
// symbol. A missing identifier is reported with util.ErrSymbolNotFound.
type SymbolResolver interface {
	ResolveSymbol(ctx context.Context, hgncID string) (string, ProviderInfo, error)
}
