package scoring

import "sort"

// AuditEntry records that a model interaction took part in classifying a
// reading row as a corroboration or contradiction.
type AuditEntry struct {
	Row            int    `json:"row"`
	TargetVariable string `json:"target_variable"`
	SourceVariable string `json:"source_variable"`
	Kind           Kind   `json:"kind"`
}

// Audit collects corroborating and contradicting pairings. Each scoring
// goroutine fills its own partial audit; merge preserves row order.
type Audit struct {
	Corroborations []AuditEntry `json:"corroborations"`
	Contradictions []AuditEntry `json:"contradictions"`
}

// ModelInteraction names a model edge by its variables.
type ModelInteraction struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// InteractionCount is the number of reading rows supporting one model edge.
type InteractionCount struct {
	ModelInteraction
	Rows int `json:"rows"`
}

func auditRow(row int, c Classification) Audit {
	var a Audit
	for _, p := range c.Pairings {
		entry := AuditEntry{Row: row, TargetVariable: p.TargetVariable, SourceVariable: p.SourceVariable, Kind: p.Kind}
		switch p.Kind.Category() {
		case CategoryCorroboration:
			a.Corroborations = append(a.Corroborations, entry)
		case CategoryContradiction:
			a.Contradictions = append(a.Contradictions, entry)
		}
	}
	return a
}

// AuditRows rebuilds the audit of already scored rows in row order.
func AuditRows(rows []ScoredInteraction) Audit {
	sorted := append([]ScoredInteraction(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Row < sorted[j].Row })
	var a Audit
	for _, r := range sorted {
		a.merge(auditRow(r.Row, Classification{Kind: r.Kind, Pairings: r.Pairings}))
	}
	return a
}

func (a *Audit) merge(o Audit) {
	a.Corroborations = append(a.Corroborations, o.Corroborations...)
	a.Contradictions = append(a.Contradictions, o.Contradictions...)
}

// Tally counts distinct reading rows per model interaction, sorted by count
// descending and then by variables.
func Tally(entries []AuditEntry) []InteractionCount {
	rows := map[ModelInteraction]map[int]struct{}{}
	for _, e := range entries {
		key := ModelInteraction{Source: e.SourceVariable, Target: e.TargetVariable}
		if rows[key] == nil {
			rows[key] = map[int]struct{}{}
		}
		rows[key][e.Row] = struct{}{}
	}
	out := make([]InteractionCount, 0, len(rows))
	for k, set := range rows {
		out = append(out, InteractionCount{ModelInteraction: k, Rows: len(set)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rows != out[j].Rows {
			return out[i].Rows > out[j].Rows
		}
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}
