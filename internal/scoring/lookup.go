package scoring

import (
	"strings"

	"violin/internal/models"
)

type SearchKind int

const (
	SearchName SearchKind = iota
	SearchSymbol
	SearchID
)

func (k SearchKind) String() string {
	switch k {
	case SearchName:
		return "name"
	case SearchSymbol:
		return "symbol"
	case SearchID:
		return "id"
	default:
		return "unknown"
	}
}

// Lookup resolves reading references against the model's entity table.
type Lookup struct {
	model *models.Model
}

func NewLookup(m *models.Model) *Lookup {
	return &Lookup{model: m}
}

// Find returns the rows, in table order, whose searched field contains key
// and whose type contains or is contained by expectedType. ID searches also
// require the entity database to equal idDatabase. ok is false when no row
// survives, including for an absent key.
func (l *Lookup) Find(kind SearchKind, key string, expectedType models.EntityType, idDatabase string) ([]int, bool) {
	if absent(key) {
		return nil, false
	}
	var rows []int
	for i := 0; i < l.model.Len(); i++ {
		e := l.model.At(i)
		if !fieldContains(kind, e, key, idDatabase) {
			continue
		}
		if !typeMatches(string(e.Type), string(expectedType)) {
			continue
		}
		rows = append(rows, i)
	}
	return rows, len(rows) > 0
}

// Resolve tries name, then symbol, then id; the first search with results wins.
func (l *Lookup) Resolve(ref models.Reference) ([]int, SearchKind, bool) {
	if rows, ok := l.Find(SearchName, ref.Name, ref.Type, ""); ok {
		return rows, SearchName, true
	}
	if rows, ok := l.Find(SearchSymbol, ref.Symbol, ref.Type, ""); ok {
		return rows, SearchSymbol, true
	}
	if rows, ok := l.Find(SearchID, ref.ID, ref.Type, ref.Database); ok {
		return rows, SearchID, true
	}
	return nil, SearchName, false
}

func fieldContains(kind SearchKind, e *models.Entity, key, idDatabase string) bool {
	switch kind {
	case SearchName:
		return strings.Contains(e.Name, key)
	case SearchSymbol:
		return strings.Contains(e.Symbol, key)
	case SearchID:
		if e.Database != idDatabase {
			return false
		}
		for _, id := range e.IDs {
			if strings.Contains(id, key) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func typeMatches(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
