package biorecipe

import (
	"strings"

	"violin/internal/models"
)

// EvidenceKey identifies identical interactions across source mentions.
func EvidenceKey(in models.Interaction) string {
	return strings.Join([]string{
		in.Regulator.Name, string(in.Regulator.Type), in.Regulator.Subtype, in.Regulator.Symbol,
		in.Regulator.Database, in.Regulator.ID, in.Regulator.Compartment, in.Regulator.CompartmentID,
		in.Regulated.Name, string(in.Regulated.Type), in.Regulated.Subtype, in.Regulated.Symbol,
		in.Regulated.Database, in.Regulated.ID, in.Regulated.Compartment, in.Regulated.CompartmentID,
		string(in.Sign), string(in.Connection), in.Mechanism, in.Site,
		in.CellLine, in.CellType, in.TissueType, in.Organism,
	}, "|")
}

// MergeEvidence collapses rows with the same EvidenceKey into the first one
// seen. Evidence counts add up; paper ids and statements are concatenated in
// input order, and the first epistemic value present is kept.
func MergeEvidence(rows []models.Interaction) []models.Interaction {
	out := make([]models.Interaction, 0, len(rows))
	pos := map[string]int{}
	for _, in := range rows {
		count := in.EvidenceCount
		if count < 1 {
			count = 1
		}
		k := EvidenceKey(in)
		i, seen := pos[k]
		if !seen {
			in.EvidenceCount = count
			in.PaperIDs = append([]string(nil), in.PaperIDs...)
			in.Statements = append([]string(nil), in.Statements...)
			pos[k] = len(out)
			out = append(out, in)
			continue
		}
		merged := &out[i]
		merged.EvidenceCount += count
		merged.PaperIDs = append(merged.PaperIDs, in.PaperIDs...)
		merged.Statements = append(merged.Statements, in.Statements...)
		if merged.EpistemicValue == nil && in.EpistemicValue != nil {
			v := *in.EpistemicValue
			merged.EpistemicValue = &v
		}
	}
	return out
}
