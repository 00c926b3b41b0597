package scoring

import (
	"reflect"
	"testing"

	"violin/internal/models"
)

func lookupModel(t *testing.T) *models.Model {
	t.Helper()
	m, diags := models.NewModel([]models.Entity{
		{Variable: "egfr", Name: "egfr", Type: "proteinfamily", Symbol: "egfr", Database: "uniprot", IDs: []string{"p00533"}},
		{Variable: "egfr_nuc", Name: "egfr", Type: models.TypeProtein, Compartment: "nucleus"},
		{Variable: "egf", Name: "egf", Type: models.TypeChemical, Database: "chebi", IDs: []string{"chebi:12345"}},
		{Variable: "mir21", Name: "microrna 21", Type: models.TypeRNA, Symbol: "mir21"},
	})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	return m
}

func TestLookupFind(t *testing.T) {
	l := NewLookup(lookupModel(t))
	cases := []struct {
		name     string
		kind     SearchKind
		key      string
		typ      models.EntityType
		database string
		want     []int
		found    bool
	}{
		{name: "type containment", kind: SearchName, key: "egfr", typ: models.TypeProtein, want: []int{0, 1}, found: true},
		{name: "name substring", kind: SearchName, key: "egf", typ: models.TypeChemical, want: []int{2}, found: true},
		{name: "type filters rows", kind: SearchName, key: "egf", typ: models.TypeRNA, found: false},
		{name: "empty key", kind: SearchName, key: "", typ: models.TypeProtein, found: false},
		{name: "nan key", kind: SearchName, key: "nan", typ: models.TypeProtein, found: false},
		{name: "id requires database", kind: SearchID, key: "p00533", typ: models.TypeProtein, database: "hgnc", found: false},
		{name: "id with database", kind: SearchID, key: "p00533", typ: models.TypeProtein, database: "uniprot", want: []int{0}, found: true},
		{name: "symbol", kind: SearchSymbol, key: "mir21", typ: models.TypeRNA, want: []int{3}, found: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := l.Find(tc.kind, tc.key, tc.typ, tc.database)
			if ok != tc.found {
				t.Fatalf("found = %v, want %v (rows %v)", ok, tc.found, got)
			}
			if tc.found && !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("rows = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLookupResolveOrder(t *testing.T) {
	l := NewLookup(lookupModel(t))

	rows, by, ok := l.Resolve(models.Reference{Name: "mir-21", Symbol: "mir21", Type: models.TypeRNA})
	if !ok || by != SearchSymbol || !reflect.DeepEqual(rows, []int{3}) {
		t.Fatalf("expected symbol fallback, got rows=%v by=%s ok=%v", rows, by, ok)
	}

	rows, by, ok = l.Resolve(models.Reference{Name: "epidermal growth factor", ID: "12345", Database: "chebi", Type: models.TypeChemical})
	if !ok || by != SearchID || !reflect.DeepEqual(rows, []int{2}) {
		t.Fatalf("expected id fallback, got rows=%v by=%s ok=%v", rows, by, ok)
	}

	if _, _, ok := l.Resolve(models.Reference{Name: "tp53", Type: models.TypeProtein}); ok {
		t.Fatalf("expected tp53 to be absent")
	}
}
