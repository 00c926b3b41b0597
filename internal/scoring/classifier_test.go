package scoring

import (
	"reflect"
	"testing"

	"violin/internal/graph"
	"violin/internal/models"
)

// egfr -> kras (direct) -> braf -> mek (indirect); jun has no edges.
func cascadeModel(t *testing.T) *models.Model {
	t.Helper()
	m, diags := models.NewModel([]models.Entity{
		{Variable: "egfr", Name: "egfr", Type: models.TypeProtein, Compartment: "membrane"},
		{Variable: "kras", Name: "kras", Type: models.TypeProtein, Compartment: "cytoplasm", Regulators: []models.RegulatorEdge{
			{Variable: "egfr", Sign: models.SignPositive, Connection: models.ConnectionDirect},
		}},
		{Variable: "braf", Name: "braf", Type: models.TypeProtein, Regulators: []models.RegulatorEdge{
			{Variable: "kras", Sign: models.SignPositive},
		}},
		{Variable: "mek", Name: "mek", Type: models.TypeProtein, Regulators: []models.RegulatorEdge{
			{Variable: "braf", Sign: models.SignPositive, Connection: models.ConnectionIndirect},
		}},
		{Variable: "jun", Name: "jun", Type: models.TypeProtein},
	})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	return m
}

func reading(from, to string, sign models.Sign, conn models.ConnectionType) models.Interaction {
	return models.Interaction{
		Regulator:     models.Reference{Name: from, Type: models.TypeProtein},
		Regulated:     models.Reference{Name: to, Type: models.TypeProtein},
		Sign:          sign,
		Connection:    conn,
		EvidenceCount: 1,
	}
}

func newTestClassifier(m *models.Model, scheme Scheme, attrs ...Attribute) *Classifier {
	opts := DefaultOptions()
	opts.Scheme = scheme
	opts.Attributes = attrs
	return NewClassifier(m, graph.Build(m), opts)
}

const (
	pos = models.SignPositive
	neg = models.SignNegative
	dir = models.ConnectionDirect
	ind = models.ConnectionIndirect
)

func TestClassifyKinds(t *testing.T) {
	m := cascadeModel(t)
	cases := []struct {
		name   string
		scheme Scheme
		in     models.Interaction
		want   Kind
		reason Reason
	}{
		{name: "strong corroboration", scheme: Scheme1, in: reading("egfr", "kras", pos, dir), want: KindStrongCorroboration, reason: ReasonListed},
		{name: "indirect reading of direct edge", scheme: Scheme1, in: reading("egfr", "kras", pos, ind), want: KindIndirectInteraction, reason: ReasonListed},
		{name: "direct reading of indirect edge", scheme: Scheme1, in: reading("braf", "mek", pos, dir), want: KindSpecification, reason: ReasonListed},
		{name: "indirect reading of indirect edge", scheme: Scheme1, in: reading("braf", "mek", pos, ind), want: KindStrongCorroboration, reason: ReasonListed},
		{name: "sign contradiction", scheme: Scheme1, in: reading("egfr", "kras", neg, dir), want: KindSignContradiction, reason: ReasonListedOppositeSign},
		{name: "sign contradiction scheme 3 direct", scheme: Scheme3, in: reading("egfr", "kras", neg, dir), want: KindSignContradiction, reason: ReasonListedOppositeSign},
		{name: "flagged5 indirect sign conflict", scheme: Scheme3, in: reading("egfr", "kras", neg, ind), want: KindFlagged5, reason: ReasonListedOppositeSign},
		{name: "direction mismatch", scheme: Scheme1, in: reading("kras", "egfr", pos, dir), want: KindDirMismatch, reason: ReasonReversed},
		{name: "direction mismatch scheme 2", scheme: Scheme2, in: reading("kras", "egfr", pos, dir), want: KindDirMismatch, reason: ReasonReversed},
		{name: "direction contradiction scheme 3", scheme: Scheme3, in: reading("kras", "egfr", pos, dir), want: KindDirContradiction, reason: ReasonReversed},
		{name: "reversed opposite sign", scheme: Scheme1, in: reading("kras", "egfr", neg, dir), want: KindDirMismatch, reason: ReasonReversedOppositeSign},
		{name: "reversed with differing connection", scheme: Scheme1, in: reading("kras", "egfr", pos, ind), want: KindDirContradiction, reason: ReasonReversed},
		{name: "flagged4 indirect reversal", scheme: Scheme3, in: reading("kras", "egfr", pos, ind), want: KindFlagged4, reason: ReasonReversed},
		{name: "reversed direct reading of indirect edge scheme 3", scheme: Scheme3, in: reading("mek", "braf", pos, dir), want: KindDirContradiction, reason: ReasonReversed},
		{name: "hanging extension", scheme: Scheme1, in: reading("egfr", "tp53", pos, dir), want: KindHangingExtension},
		{name: "full extension", scheme: Scheme1, in: reading("foxo", "tp53", pos, dir), want: KindFullExtension},
		{name: "internal extension over path", scheme: Scheme1, in: reading("egfr", "braf", pos, dir), want: KindInternalExtension, reason: ReasonRequiresIntermediates},
		{name: "path mismatch for direct claim scheme 2", scheme: Scheme2, in: reading("egfr", "braf", pos, dir), want: KindPathMismatch, reason: ReasonRequiresIntermediates},
		{name: "path corroboration", scheme: Scheme1, in: reading("egfr", "mek", pos, ind), want: KindPathCorroboration, reason: ReasonPathConfirms},
		{name: "path sign conflict", scheme: Scheme1, in: reading("egfr", "braf", neg, ind), want: KindPathMismatch, reason: ReasonPathSignConflict},
		{name: "path sign conflict scheme 2", scheme: Scheme2, in: reading("egfr", "braf", neg, ind), want: KindSignContradiction, reason: ReasonPathSignConflict},
		{name: "reverse path", scheme: Scheme1, in: reading("braf", "egfr", pos, dir), want: KindPathMismatch, reason: ReasonReversePath},
		{name: "reverse path scheme 2", scheme: Scheme2, in: reading("braf", "egfr", pos, ind), want: KindDirContradiction, reason: ReasonReversePath},
		{name: "not in graph", scheme: Scheme1, in: reading("jun", "kras", pos, dir), want: KindInternalExtension, reason: ReasonNotInGraph},
		{name: "self pairing", scheme: Scheme1, in: reading("kras", "kras", pos, dir), want: KindSelfRegulation, reason: ReasonSelfPairing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := newTestClassifier(m, tc.scheme).Classify(tc.in)
			if got.Kind != tc.want {
				t.Fatalf("kind = %q, want %q (pairings %+v)", got.Kind, tc.want, got.Pairings)
			}
			if tc.reason == "" {
				if len(got.Pairings) != 0 {
					t.Fatalf("expected no pairings, got %+v", got.Pairings)
				}
				return
			}
			if len(got.Pairings) != 1 || got.Pairings[0].Reason != tc.reason {
				t.Fatalf("unexpected pairings: %+v", got.Pairings)
			}
		})
	}
}

func TestClassifyMatchCategory(t *testing.T) {
	c := newTestClassifier(cascadeModel(t), Scheme1)
	cases := []struct {
		in   models.Interaction
		want MatchCategory
	}{
		{in: reading("egfr", "kras", pos, dir), want: MatchBoth},
		{in: reading("egfr", "tp53", pos, dir), want: MatchSourceOnly},
		{in: reading("tp53", "kras", pos, dir), want: MatchTargetOnly},
		{in: reading("foxo", "tp53", pos, dir), want: MatchNeither},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.in).Match; got != tc.want {
			t.Fatalf("%s -> %s: match = %q, want %q", tc.in.Regulator.Name, tc.in.Regulated.Name, got, tc.want)
		}
	}
}

func TestClassifyAttributes(t *testing.T) {
	m := cascadeModel(t)
	withCompartments := func(in models.Interaction, regulator, regulated string) models.Interaction {
		in.Regulator.Compartment = regulator
		in.Regulated.Compartment = regulated
		return in
	}
	cases := []struct {
		name   string
		scheme Scheme
		attrs  []Attribute
		in     models.Interaction
		want   Kind
	}{
		{
			name:  "matching compartment",
			attrs: []Attribute{AttrRegulatedCompartment},
			in:    withCompartments(reading("egfr", "kras", pos, dir), "", "cytoplasm"),
			want:  KindStrongCorroboration,
		},
		{
			name:  "reading lacks compartment",
			attrs: []Attribute{AttrRegulatedCompartment},
			in:    reading("egfr", "kras", pos, dir),
			want:  KindEmptyAttribute,
		},
		{
			name:  "model lacks cell line",
			attrs: []Attribute{AttrRegulatedCompartment, AttrCellLine},
			in: func() models.Interaction {
				in := withCompartments(reading("egfr", "kras", pos, dir), "", "cytoplasm")
				in.CellLine = "hela"
				return in
			}(),
			want: KindSpecification,
		},
		{
			name:  "conflicting compartment",
			attrs: []Attribute{AttrRegulatedCompartment},
			in:    withCompartments(reading("egfr", "kras", pos, dir), "", "nucleus"),
			want:  KindAttContradiction,
		},
		{
			name:  "conflict beats indirect interaction",
			attrs: []Attribute{AttrRegulatedCompartment},
			in:    withCompartments(reading("egfr", "kras", pos, ind), "", "nucleus"),
			want:  KindAttContradiction,
		},
		{
			name:  "mechanism comes from the regulator slot",
			attrs: []Attribute{AttrMechanism},
			in: func() models.Interaction {
				in := reading("egfr", "kras", pos, dir)
				in.Mechanism = "phosphorylation"
				return in
			}(),
			want: KindSpecification,
		},
		{
			name:  "path endpoints agree",
			attrs: []Attribute{AttrRegulatorCompartment},
			in:    withCompartments(reading("egfr", "braf", pos, ind), "membrane", ""),
			want:  KindPathCorroboration,
		},
		{
			name:  "path endpoints conflict",
			attrs: []Attribute{AttrRegulatorCompartment},
			in:    withCompartments(reading("egfr", "braf", pos, ind), "nucleus", ""),
			want:  KindPathMismatch,
		},
		{
			name:   "path endpoints conflict scheme 2",
			scheme: Scheme2,
			attrs:  []Attribute{AttrRegulatorCompartment},
			in:     withCompartments(reading("egfr", "braf", pos, ind), "nucleus", ""),
			want:   KindAttContradiction,
		},
		{
			name:  "reversed with conflicting attributes",
			attrs: []Attribute{AttrRegulatedCompartment},
			in:    withCompartments(reading("kras", "egfr", pos, dir), "", "nucleus"),
			want:  KindDirContradiction,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scheme := tc.scheme
			if scheme == 0 {
				scheme = Scheme1
			}
			got := newTestClassifier(m, scheme, tc.attrs...).Classify(tc.in)
			if got.Kind != tc.want {
				t.Fatalf("kind = %q, want %q (pairings %+v)", got.Kind, tc.want, got.Pairings)
			}
		})
	}
}

func TestClassifyConnectionDefault(t *testing.T) {
	m := cascadeModel(t)
	opts := DefaultOptions()
	if got := NewClassifier(m, graph.Build(m), opts).Classify(reading("kras", "braf", pos, dir)).Kind; got != KindStrongCorroboration {
		t.Fatalf("default direct: got %q", got)
	}
	opts.ConnectionDefault = models.ConnectionIndirect
	if got := NewClassifier(m, graph.Build(m), opts).Classify(reading("kras", "braf", pos, dir)).Kind; got != KindSpecification {
		t.Fatalf("default indirect: got %q", got)
	}
}

func TestClassifyReducesPairingsByPrecedence(t *testing.T) {
	m, diags := models.NewModel([]models.Entity{
		{Variable: "egfr", Name: "egfr", Type: models.TypeProtein, Compartment: "membrane"},
		{Variable: "egfr_nuc", Name: "egfr", Type: models.TypeProtein, Compartment: "nucleus"},
		{Variable: "kras", Name: "kras", Type: models.TypeProtein, Regulators: []models.RegulatorEdge{
			{Variable: "egfr", Sign: models.SignPositive},
		}},
	})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	got := newTestClassifier(m, Scheme1).Classify(reading("egfr", "kras", pos, dir))
	if got.Kind != KindStrongCorroboration {
		t.Fatalf("kind = %q", got.Kind)
	}
	want := []Pairing{
		{TargetRow: 2, SourceRow: 0, TargetVariable: "kras", SourceVariable: "egfr", Kind: KindStrongCorroboration, Reason: ReasonListed},
		{TargetRow: 2, SourceRow: 1, TargetVariable: "kras", SourceVariable: "egfr_nuc", Kind: KindInternalExtension, Reason: ReasonNotInGraph},
	}
	if !reflect.DeepEqual(got.Pairings, want) {
		t.Fatalf("pairings = %+v", got.Pairings)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	m := cascadeModel(t)
	c := newTestClassifier(m, Scheme2, AttrRegulatedCompartment, AttrRegulatorCompartment)
	in := reading("egfr", "braf", neg, ind)
	first := c.Classify(in)
	for i := 0; i < 50; i++ {
		if got := c.Classify(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}
