package providers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"violin/internal/models"
	"violin/internal/util"
)

type stubResolver struct {
	name    string
	symbols map[string]string
	err     error
	calls   int
}

func (s *stubResolver) ResolveSymbol(_ context.Context, id string) (string, ProviderInfo, error) {
	s.calls++
	info := ProviderInfo{Name: s.name}
	if s.err != nil {
		return "", info, s.err
	}
	if sym, ok := s.symbols[id]; ok {
		return sym, info, nil
	}
	return "", info, fmt.Errorf("stub %s: %w", id, util.ErrSymbolNotFound)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManagerFailoverAndCooldown(t *testing.T) {
	limited := &stubResolver{name: "hgnc", err: fmt.Errorf("hgnc fetch: %w", util.ErrRateLimited)}
	backup := &stubResolver{name: "mock", symbols: map[string]string{"3236": "EGFR", "6407": "KRAS"}}
	m := NewManagerWith([]NamedResolver{
		{Ref: ProviderRef{Name: "mock"}, Resolver: backup},
		{Ref: ProviderRef{Name: "hgnc"}, Resolver: limited},
	}, nil, time.Minute)

	if order := m.PreferredOrder(); order[0] != 1 || order[1] != 0 {
		t.Fatalf("mock should be tried last, got %v", order)
	}
	sym, info, err := m.ResolveSymbol(context.Background(), "3236")
	if err != nil || sym != "EGFR" || info.Name != "mock" {
		t.Fatalf("unexpected failover result %q %+v %v", sym, info, err)
	}
	if _, _, err := m.ResolveSymbol(context.Background(), "6407"); err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if limited.calls != 1 {
		t.Fatalf("rate limited provider should cool down, got %d calls", limited.calls)
	}

	sym, info, err = m.ResolveSymbol(context.Background(), "3236")
	if err != nil || sym != "EGFR" || info.Name != "cache" {
		t.Fatalf("expected cache hit, got %q %+v %v", sym, info, err)
	}
	if backup.calls != 2 {
		t.Fatalf("cache should spare the provider, got %d calls", backup.calls)
	}
}

func TestManagerReportsLastError(t *testing.T) {
	m := NewManagerWith([]NamedResolver{{Ref: ProviderRef{Name: "mock"}, Resolver: &stubResolver{name: "mock"}}}, nil, 0)
	_, _, err := m.ResolveSymbol(context.Background(), "999")
	if ClassifyError(err) != ErrorNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSymbolCachePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "symbols.json")
	c, err := LoadSymbolCache(path)
	if err != nil {
		t.Fatalf("load empty cache: %v", err)
	}
	c.Put("3236", "EGFR")
	if err := c.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	again, err := LoadSymbolCache(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if s, ok := again.Get("3236"); !ok || s != "EGFR" || again.Len() != 1 {
		t.Fatalf("cache not persisted: %q %v", s, ok)
	}
}

func TestHGNCID(t *testing.T) {
	cases := map[string]string{"3236": "3236", " 3236.0 ": "3236", "egfr": "", "1.5": "", "": ""}
	for in, want := range cases {
		got, ok := HGNCID(in)
		if got != want || ok != (want != "") {
			t.Fatalf("HGNCID(%q) = %q,%v want %q", in, got, ok, want)
		}
	}
}

func TestResolveSymbols(t *testing.T) {
	stub := &stubResolver{name: "stub", symbols: map[string]string{"3236": "EGFR", "6407": "KRAS"}}
	rows := []models.Interaction{
		{Regulator: models.Reference{Name: "egfr", Symbol: "3236"}, Regulated: models.Reference{Name: "kras", Symbol: "6407.0"}},
		{Regulator: models.Reference{Name: "x", Symbol: "42"}, Regulated: models.Reference{Name: "egfr", Symbol: "3236"}},
		{Regulator: models.Reference{Name: "braf", Symbol: "braf"}, Regulated: models.Reference{Name: "y", Symbol: "42"}},
	}
	out, n, err := ResolveSymbols(context.Background(), stub, rows, quietLogger())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 resolved symbols, got %d", n)
	}
	if out[0].Regulator.Symbol != "egfr" || out[0].Regulated.Symbol != "kras" || out[1].Regulated.Symbol != "egfr" {
		t.Fatalf("unexpected symbols %+v", out)
	}
	if out[1].Regulator.Symbol != "42" || out[2].Regulated.Symbol != "42" || out[2].Regulator.Symbol != "braf" {
		t.Fatalf("unresolved values should stay: %+v", out)
	}
	if stub.calls != 3 {
		t.Fatalf("each identifier should be looked up once, got %d calls", stub.calls)
	}
	if rows[0].Regulator.Symbol != "3236" {
		t.Fatalf("input rows must not change")
	}
}

func TestResolveSymbolsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rows := []models.Interaction{{Regulator: models.Reference{Symbol: "3236"}}}
	if _, _, err := ResolveSymbols(ctx, NewMockResolver(), rows, quietLogger()); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
