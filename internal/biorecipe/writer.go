package biorecipe

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"violin/internal/models"
	"violin/internal/scoring"
	"violin/internal/util"
)

// ReadingColumns is the BioRECIPE reading header written ahead of any extra
// and score columns.
var ReadingColumns = []string{
	"Regulator Name", "Regulator Type", "Regulator Subtype", "Regulator HGNC Symbol",
	"Regulator Database", "Regulator ID", "Regulator Compartment", "Regulator Compartment ID",
	"Regulated Name", "Regulated Type", "Regulated Subtype", "Regulated HGNC Symbol",
	"Regulated Database", "Regulated ID", "Regulated Compartment", "Regulated Compartment ID",
	"Sign", "Connection Type", "Mechanism", "Site",
	"Cell Line", "Cell Type", "Tissue Type", "Organism",
	"Statements", "Paper IDs",
}

var ScoreColumns = []string{"Evidence Score", "Match Score", "Kind Score", "Epistemic Value", "Total Score"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func referenceCells(r models.Reference) []string {
	return []string{r.Name, string(r.Type), r.Subtype, r.Symbol, r.Database, r.ID, r.Compartment, r.CompartmentID}
}

func scoreCells(r scoring.ScoredInteraction) []string {
	return []string{
		strconv.Itoa(r.EvidenceCount),
		formatFloat(r.MatchScore),
		formatFloat(r.KindScore),
		formatFloat(r.EpistemicValue),
		formatFloat(r.TotalScore),
	}
}

func extraColumns(rows []scoring.ScoredInteraction) []string {
	seen := map[string]struct{}{}
	for _, r := range rows {
		for k := range r.Extra {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FullTable renders scored rows with reading, extra, score, kind and
// category columns.
func FullTable(rows []scoring.ScoredInteraction) ([]string, [][]string) {
	extras := extraColumns(rows)
	header := append(append(append([]string{}, ReadingColumns...), extras...), ScoreColumns...)
	header = append(header, "Kind", "Category")
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, referenceCells(r.Regulator)...)
		rec = append(rec, referenceCells(r.Regulated)...)
		rec = append(rec,
			string(r.Sign), string(r.Connection), r.Mechanism, r.Site,
			r.CellLine, r.CellType, r.TissueType, r.Organism,
			strings.Join(r.Statements, " | "), strings.Join(r.PaperIDs, ","),
		)
		for _, k := range extras {
			rec = append(rec, r.Extra[k])
		}
		rec = append(rec, scoreCells(r)...)
		rec = append(rec, string(r.Kind), string(r.Category))
		out = append(out, rec)
	}
	return header, out
}

// ScoreTable renders the score columns only.
func ScoreTable(rows []scoring.ScoredInteraction) ([]string, [][]string) {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, scoreCells(r))
	}
	return append([]string(nil), ScoreColumns...), out
}

// WriteOutputs writes <prefix>_outputDF.csv and <prefix>_scoreDF.csv with
// every row sorted by Total Score, then a full and a score-only file per
// category. It returns the written paths.
func WriteOutputs(prefix string, rows []scoring.ScoredInteraction) ([]string, error) {
	sorted := scoring.SortByTotal(rows)
	var paths []string
	write := func(name string, table func([]scoring.ScoredInteraction) ([]string, [][]string), subset []scoring.ScoredInteraction) error {
		path := prefix + name
		header, recs := table(subset)
		if err := util.WriteCSVAtomic(path, header, recs); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
		paths = append(paths, path)
		return nil
	}
	if err := write("_outputDF.csv", FullTable, sorted); err != nil {
		return paths, err
	}
	if err := write("_scoreDF.csv", ScoreTable, sorted); err != nil {
		return paths, err
	}
	for _, cat := range scoring.Categories {
		bucket := scoring.Bucket(sorted, cat)
		if err := write("_"+string(cat)+".csv", FullTable, bucket); err != nil {
			return paths, err
		}
		if err := write("_"+string(cat)+"_score.csv", ScoreTable, bucket); err != nil {
			return paths, err
		}
	}
	return paths, nil
}
