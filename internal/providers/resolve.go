package providers

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"violin/internal/biorecipe"
	"violin/internal/models"
)

var hgncIDPattern = regexp.MustCompile(`^[0-9.]+$`)

// HGNCID reports whether a reading symbol is really an HGNC identifier and
// returns it in integer form ("3236.0" becomes "3236").
func HGNCID(symbol string) (string, bool) {
	s := strings.TrimSpace(symbol)
	if !hgncIDPattern.MatchString(s) {
		return "", false
	}
	if !strings.Contains(s, ".") {
		return s, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}

// ResolveSymbols replaces HGNC identifiers in the regulator and regulated
// symbol columns with their symbols. Failed lookups keep the original value
// and are logged. Each identifier is looked up once per call.
func ResolveSymbols(ctx context.Context, r SymbolResolver, rows []models.Interaction, logger *slog.Logger) ([]models.Interaction, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out := append([]models.Interaction(nil), rows...)
	known := map[string]string{}
	failed := map[string]bool{}
	resolved := 0
	for i := range out {
		for _, ref := range []*models.Reference{&out[i].Regulator, &out[i].Regulated} {
			id, ok := HGNCID(ref.Symbol)
			if !ok || failed[id] {
				continue
			}
			sym, seen := known[id]
			if !seen {
				s, info, err := r.ResolveSymbol(ctx, id)
				if err != nil {
					if ctx.Err() != nil {
						return nil, resolved, ctx.Err()
					}
					failed[id] = true
					logger.Warn("symbol resolution failed; keeping identifier", "row", i, "hgnc_id", id, "error", err)
					continue
				}
				sym = biorecipe.Clean(s)
				known[id] = sym
				logger.Debug("symbol resolved", "hgnc_id", id, "symbol", sym, "provider", info.Name)
			}
			ref.Symbol = sym
			resolved++
		}
	}
	return out, resolved, nil
}
