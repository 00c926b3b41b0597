package biorecipe

import (
	"testing"

	"violin/internal/models"
)

func TestSanitizeVariable(t *testing.T) {
	cases := map[string]string{
		"EGFR":          "egfr",
		"  -Ras GTPase": "ras_gtpase",
		"14-3-3":        "ele_14_3_3",
		"a..b":          "a_b",
		"nan":           "",
		"mek_1":         "mek_1",
	}
	for in, want := range cases {
		if got := SanitizeVariable(in); got != want {
			t.Fatalf("SanitizeVariable(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalType(t *testing.T) {
	cases := map[string]models.EntityType{
		"Protein":            models.TypeProtein,
		"protein family":     models.TypeProtein,
		"Chemical":           models.TypeChemical,
		"mRNA":               models.TypeRNA,
		"Biological Process": models.TypeBioprocess,
		"bioprocess":         models.TypeBioprocess,
		"gene":               models.TypeOther,
		"":                   models.TypeOther,
	}
	for in, want := range cases {
		if got := CanonicalType(in); got != want {
			t.Fatalf("CanonicalType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanPlaceholders(t *testing.T) {
	for _, s := range []string{"NaN", " none ", "NULL", ""} {
		if got := Clean(s); got != "" {
			t.Fatalf("Clean(%q) = %q, want empty", s, got)
		}
	}
	if got := Clean("  Cell   Membrane "); got != "cell membrane" {
		t.Fatalf("unexpected clean value %q", got)
	}
	if got := CanonicalName("MAP_kinase  1"); got != "map kinase 1" {
		t.Fatalf("unexpected canonical name %q", got)
	}
}

func TestParseConnection(t *testing.T) {
	tests := []struct {
		in        string
		want      models.ConnectionType
		defaulted bool
	}{
		{"", models.ConnectionIndirect, true},
		{"nan", models.ConnectionIndirect, true},
		{"i", models.ConnectionIndirect, false},
		{"Indirect", models.ConnectionIndirect, false},
		{"FALSE", models.ConnectionIndirect, false},
		{"d", models.ConnectionDirect, false},
		{"true", models.ConnectionDirect, false},
	}
	for _, tc := range tests {
		got, defaulted := ParseConnection(tc.in)
		if got != tc.want || defaulted != tc.defaulted {
			t.Fatalf("ParseConnection(%q) = %q,%v want %q,%v", tc.in, got, defaulted, tc.want, tc.defaulted)
		}
	}
	if got := ParseModelConnection(" "); got != "" {
		t.Fatalf("empty model slot should stay unspecified, got %q", got)
	}
}

func TestNormalizeInteraction(t *testing.T) {
	in := models.Interaction{
		Regulator:     models.Reference{Name: " EGFR ", Type: "Protein"},
		Regulated:     models.Reference{Name: "KRAS", Type: "protein", Compartment: "NaN"},
		Sign:          "Increases",
		Organism:      "Homo Sapiens",
		EvidenceCount: 0,
	}
	out, defaulted, ok := NormalizeInteraction(in)
	if !ok {
		t.Fatalf("expected row to normalize")
	}
	if !defaulted || out.Connection != models.ConnectionIndirect {
		t.Fatalf("expected defaulted indirect connection, got %q defaulted=%v", out.Connection, defaulted)
	}
	if out.Regulator.Name != "egfr" || out.Regulated.Compartment != "" || out.Organism != "homo sapiens" {
		t.Fatalf("unexpected normalized row %+v", out)
	}
	if out.Sign != models.SignPositive || out.EvidenceCount != 1 {
		t.Fatalf("unexpected sign or evidence: %q %d", out.Sign, out.EvidenceCount)
	}

	in.Sign = "binds"
	if _, _, ok := NormalizeInteraction(in); ok {
		t.Fatalf("unknown sign should be rejected")
	}
	in.Sign = "negative"
	in.Regulated = models.Reference{Type: "protein"}
	if _, _, ok := NormalizeInteraction(in); ok {
		t.Fatalf("missing endpoint should be rejected")
	}
	in.Regulated = models.Reference{ID: "P01116"}
	if _, _, ok := NormalizeInteraction(in); !ok {
		t.Fatalf("an id alone identifies an endpoint")
	}
}

func TestNormalizeEntityDerivesVariable(t *testing.T) {
	e := NormalizeEntity(models.Entity{
		Name: "Ras GTPase",
		Type: "protein",
		IDs:  []string{"P01116", "nan"},
		Regulators: []models.RegulatorEdge{
			{Variable: "EGFR", Sign: models.SignPositive, Mechanism: " Phosphorylation"},
			{Variable: "  ", Sign: models.SignNegative},
		},
	})
	if e.Variable != "ras_gtpase" {
		t.Fatalf("variable = %q", e.Variable)
	}
	if len(e.IDs) != 1 || e.IDs[0] != "p01116" {
		t.Fatalf("ids = %v", e.IDs)
	}
	if len(e.Regulators) != 1 || e.Regulators[0].Variable != "egfr" || e.Regulators[0].Mechanism != "phosphorylation" {
		t.Fatalf("regulators = %+v", e.Regulators)
	}
}
