package biorecipe

import (
	"strings"
	"testing"

	"violin/internal/models"
)

func interaction(regulator, regulated string, sign models.Sign, count int, papers ...string) models.Interaction {
	return models.Interaction{
		Regulator:     models.Reference{Name: regulator, Type: models.TypeProtein},
		Regulated:     models.Reference{Name: regulated, Type: models.TypeProtein},
		Sign:          sign,
		Connection:    models.ConnectionDirect,
		EvidenceCount: count,
		PaperIDs:      papers,
	}
}

func TestMergeEvidence(t *testing.T) {
	ev := 0.5
	second := interaction("egfr", "kras", models.SignPositive, 0, "p2")
	second.EpistemicValue = &ev
	rows := []models.Interaction{
		interaction("egfr", "kras", models.SignPositive, 2, "p1"),
		interaction("kras", "braf", models.SignPositive, 1),
		second,
		interaction("egfr", "kras", models.SignNegative, 1),
	}
	merged := MergeEvidence(rows)
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged rows, got %d", len(merged))
	}
	first := merged[0]
	if first.EvidenceCount != 3 {
		t.Fatalf("evidence count = %d, want 3", first.EvidenceCount)
	}
	if strings.Join(first.PaperIDs, ",") != "p1,p2" {
		t.Fatalf("paper ids = %v", first.PaperIDs)
	}
	if first.EpistemicValue == nil || *first.EpistemicValue != 0.5 {
		t.Fatalf("expected epistemic value from the later duplicate")
	}
	if merged[1].Regulator.Name != "kras" || merged[2].Sign != models.SignNegative {
		t.Fatalf("first-seen order not kept: %+v", merged)
	}
	if len(rows[0].PaperIDs) != 1 {
		t.Fatalf("input rows must not be modified")
	}
}
