package biorecipe

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"violin/internal/models"
	"violin/internal/scoring"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return recs
}

func TestWriteOutputs(t *testing.T) {
	rows := []scoring.ScoredInteraction{
		{
			Interaction: models.Interaction{
				Regulator:     models.Reference{Name: "egfr", Type: models.TypeProtein},
				Regulated:     models.Reference{Name: "kras", Type: models.TypeProtein},
				Sign:          models.SignPositive,
				Connection:    models.ConnectionDirect,
				EvidenceCount: 1,
				Extra:         map[string]string{"Source": "pmc"},
			},
			Kind: scoring.KindSignContradiction, Category: scoring.CategoryContradiction,
			MatchScore: 1, KindScore: 10, EpistemicValue: 1, TotalScore: 11,
		},
		{
			Interaction: models.Interaction{
				Regulator:     models.Reference{Name: "kras", Type: models.TypeProtein},
				Regulated:     models.Reference{Name: "braf", Type: models.TypeProtein},
				Sign:          models.SignPositive,
				Connection:    models.ConnectionDirect,
				EvidenceCount: 2,
				PaperIDs:      []string{"p1", "p2"},
			},
			Kind: scoring.KindStrongCorroboration, Category: scoring.CategoryCorroboration,
			MatchScore: 100, KindScore: 1, EpistemicValue: 1, TotalScore: 201,
		},
	}
	prefix := filepath.Join(t.TempDir(), "out", "run")
	paths, err := WriteOutputs(prefix, rows)
	if err != nil {
		t.Fatalf("write outputs: %v", err)
	}
	if len(paths) != 2+2*len(scoring.Categories) {
		t.Fatalf("unexpected artifact count %d", len(paths))
	}

	full := readCSV(t, prefix+"_outputDF.csv")
	if len(full) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(full))
	}
	header := full[0]
	if header[0] != "Regulator Name" || header[len(header)-1] != "Category" {
		t.Fatalf("unexpected header %v", header)
	}
	if full[1][0] != "kras" {
		t.Fatalf("rows should be sorted by total score, first is %v", full[1])
	}
	col := map[string]int{}
	for i, h := range header {
		col[h] = i
	}
	if full[1][col["Paper IDs"]] != "p1,p2" || full[2][col["Source"]] != "pmc" {
		t.Fatalf("unexpected cells %v", full)
	}
	if full[1][col["Total Score"]] != "201" || full[1][col["Kind"]] != string(scoring.KindStrongCorroboration) {
		t.Fatalf("unexpected score cells %v", full[1])
	}

	score := readCSV(t, prefix+"_scoreDF.csv")
	if len(score[0]) != len(ScoreColumns) || score[1][0] != "2" {
		t.Fatalf("unexpected score table %v", score)
	}

	contra := readCSV(t, prefix+"_contradictions.csv")
	if len(contra) != 2 || contra[1][0] != "egfr" {
		t.Fatalf("unexpected contradictions %v", contra)
	}
	flagged := readCSV(t, prefix+"_flagged_score.csv")
	if len(flagged) != 1 {
		t.Fatalf("flagged bucket should hold only the header, got %v", flagged)
	}
}
