package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"violin/internal/config"
	"violin/internal/util"
)

type NamedResolver struct {
	Ref      ProviderRef
	Resolver SymbolResolver
}

// Manager tries resolvers in preferred order, answering from the cache first.
// A resolver that reports a rate limit is skipped until its cooldown ends.
type Manager struct {
	resolvers []NamedResolver
	cache     *SymbolCache
	cooldown  time.Duration
	now       func() time.Time

	mu        sync.Mutex
	coolUntil map[int]time.Time
}

func NewManager(cfg config.Config) (*Manager, error) {
	var resolvers []NamedResolver
	for _, ref := range ParseProviderList(cfg.SymbolProviders) {
		r, err := buildResolver(ref)
		if err != nil {
			return nil, err
		}
		resolvers = append(resolvers, NamedResolver{Ref: ref, Resolver: r})
	}
	cache, err := LoadSymbolCache(cfg.SymbolCache)
	if err != nil {
		return nil, err
	}
	return NewManagerWith(resolvers, cache, time.Duration(cfg.ProviderCooldownSecs)*time.Second), nil
}

func NewManagerWith(resolvers []NamedResolver, cache *SymbolCache, cooldown time.Duration) *Manager {
	if len(resolvers) == 0 {
		resolvers = []NamedResolver{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Resolver: NewMockResolver()}}
	}
	if cache == nil {
		cache, _ = LoadSymbolCache("")
	}
	return &Manager{
		resolvers: resolvers,
		cache:     cache,
		cooldown:  cooldown,
		now:       time.Now,
		coolUntil: map[int]time.Time{},
	}
}

func (m *Manager) Count() int {
	return len(m.resolvers)
}

func (m *Manager) Refs() []ProviderRef {
	out := make([]ProviderRef, 0, len(m.resolvers))
	for i := range m.resolvers {
		out = append(out, m.resolvers[i].Ref)
	}
	return out
}

func (m *Manager) PreferredOrder() []int {
	return preferredOrder(len(m.resolvers), func(i int) string { return m.resolvers[i].Ref.Name })
}

func preferredOrder(n int, nameAt func(i int) string) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if nameAt(i) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if nameAt(i) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

// ResolveSymbol implements SymbolResolver over the whole chain.
func (m *Manager) ResolveSymbol(ctx context.Context, hgncID string) (string, ProviderInfo, error) {
	if s, ok := m.cache.Get(hgncID); ok {
		return s, ProviderInfo{Name: "cache"}, nil
	}
	lastErr := fmt.Errorf("resolve %s: no provider available: %w", hgncID, util.ErrSymbolNotFound)
	for _, i := range m.PreferredOrder() {
		if m.coolingDown(i) {
			continue
		}
		s, info, err := m.resolvers[i].Resolver.ResolveSymbol(ctx, hgncID)
		if err == nil {
			m.cache.Put(hgncID, s)
			return s, info, nil
		}
		if ctx.Err() != nil {
			return "", info, ctx.Err()
		}
		if ClassifyError(err) == ErrorRate {
			m.startCooldown(i)
		}
		lastErr = err
	}
	return "", ProviderInfo{}, lastErr
}

func (m *Manager) coolingDown(i int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.coolUntil[i]
	return ok && m.now().Before(until)
}

func (m *Manager) startCooldown(i int) {
	if m.cooldown <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coolUntil[i] = m.now().Add(m.cooldown)
}

// Flush persists newly resolved symbols.
func (m *Manager) Flush() error {
	return m.cache.Save()
}

func buildResolver(ref ProviderRef) (SymbolResolver, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockResolver(), nil
	case "hgnc":
		return NewHGNCProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported symbol provider: %s", ref.Name)
	}
}
