package biorecipe

import (
	"fmt"
	"strconv"
	"strings"

	"violin/internal/scoring"
	"violin/internal/util"
)

type FilterMode string

const (
	FilterPercent  FilterMode = "percent"
	FilterTotal    FilterMode = "total"
	FilterEvidence FilterMode = "evidence"
)

// Filter trims a scored table before it is reported.
type Filter struct {
	Mode  FilterMode
	Value float64
}

// ParseFilter reads "X%" (top X percent by Total Score), "St>Z" (Total Score
// at least Z) or "Se>Y" (Evidence Count at least Y). An empty string keeps
// everything.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	var (
		mode FilterMode
		num  string
	)
	switch {
	case s == "":
		return Filter{Mode: FilterPercent, Value: 100}, nil
	case strings.HasSuffix(s, "%"):
		mode, num = FilterPercent, strings.TrimSuffix(s, "%")
	case strings.HasPrefix(strings.ToLower(s), "st>"):
		mode, num = FilterTotal, s[3:]
	case strings.HasPrefix(strings.ToLower(s), "se>"):
		mode, num = FilterEvidence, s[3:]
	default:
		return Filter{}, fmt.Errorf("parse filter %q: %w", s, util.ErrInvalidFilter)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return Filter{}, fmt.Errorf("parse filter %q: %w", s, util.ErrInvalidFilter)
	}
	if mode == FilterPercent && (v < 0 || v > 100) {
		return Filter{}, fmt.Errorf("parse filter %q: percent out of range: %w", s, util.ErrInvalidFilter)
	}
	return Filter{Mode: mode, Value: v}, nil
}

func (f Filter) String() string {
	v := strconv.FormatFloat(f.Value, 'f', -1, 64)
	switch f.Mode {
	case FilterTotal:
		return "St>" + v
	case FilterEvidence:
		return "Se>" + v
	default:
		return v + "%"
	}
}

// Apply sorts rows by Total Score and keeps those passing the filter.
func (f Filter) Apply(rows []scoring.ScoredInteraction) []scoring.ScoredInteraction {
	sorted := scoring.SortByTotal(rows)
	switch f.Mode {
	case FilterTotal:
		return keep(sorted, func(r scoring.ScoredInteraction) bool { return r.TotalScore >= f.Value })
	case FilterEvidence:
		return keep(sorted, func(r scoring.ScoredInteraction) bool { return float64(r.EvidenceCount) >= f.Value })
	default:
		n := int(float64(len(sorted)) * f.Value / 100)
		return sorted[:n]
	}
}

func keep(rows []scoring.ScoredInteraction, pred func(scoring.ScoredInteraction) bool) []scoring.ScoredInteraction {
	out := make([]scoring.ScoredInteraction, 0, len(rows))
	for _, r := range rows {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}
