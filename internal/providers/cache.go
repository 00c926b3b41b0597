package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"violin/internal/util"
)

// SymbolCache remembers resolved HGNC symbols across runs in a JSON file.
// An empty path keeps the cache in memory only.
type SymbolCache struct {
	path    string
	mu      sync.RWMutex
	entries map[string]string
	dirty   bool
}

func LoadSymbolCache(path string) (*SymbolCache, error) {
	c := &SymbolCache{path: path, entries: map[string]string{}}
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read symbol cache: %w", err)
	}
	if len(b) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(b, &c.entries); err != nil {
		return nil, fmt.Errorf("decode symbol cache: %w", err)
	}
	return c, nil
}

func (c *SymbolCache) Get(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[id]
	return s, ok
}

func (c *SymbolCache) Put(id, symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[id] == symbol {
		return
	}
	c.entries[id] = symbol
	c.dirty = true
}

func (c *SymbolCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Save writes the cache when it changed since it was loaded.
func (c *SymbolCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path == "" || !c.dirty {
		return nil
	}
	if err := util.WriteJSONAtomic(c.path, c.entries); err != nil {
		return fmt.Errorf("save symbol cache: %w", err)
	}
	c.dirty = false
	return nil
}
