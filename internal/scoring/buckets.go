package scoring

import "sort"

// Bucket returns the rows whose kind falls under cat, in input order.
func Bucket(rows []ScoredInteraction, cat Category) []ScoredInteraction {
	out := make([]ScoredInteraction, 0)
	for _, r := range rows {
		if r.Category == cat {
			out = append(out, r)
		}
	}
	return out
}

// SortByTotal returns a copy of rows ordered by Total Score, highest first.
// Equal scores keep their input order.
func SortByTotal(rows []ScoredInteraction) []ScoredInteraction {
	out := append([]ScoredInteraction(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalScore > out[j].TotalScore
	})
	return out
}
