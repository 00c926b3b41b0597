package biorecipe

import (
	"encoding/json"
	"fmt"
	"strings"

	"violin/internal/models"
)

// ParseRegulatorList splits a transport-form list such as "['a', 'b']" or
// "a,b" into its trimmed, non-empty items.
func ParseRegulatorList(raw string) []string {
	raw = strings.NewReplacer("[", "", "]", "", "'", "", `"`, "").Replace(raw)
	if Clean(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitParallel splits an annotation list keeping empty slots, so positions
// stay aligned with the regulator list.
func splitParallel(raw string) []string {
	raw = strings.NewReplacer("[", "", "]", "", "'", "", `"`, "").Replace(raw)
	if Clean(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// RegulatorColumns holds the raw cells describing one sign's regulators.
type RegulatorColumns struct {
	Regulators  string
	Connections string
	Mechanisms  string
	Sites       string
}

// BuildRegulators zips a regulator list with its parallel annotation lists.
// A parallel list whose length differs from the regulator list is ignored for
// the row and reported.
func BuildRegulators(row int, variable string, sign models.Sign, cols RegulatorColumns) ([]models.RegulatorEdge, []models.Diagnostic) {
	vars := ParseRegulatorList(cols.Regulators)
	if len(vars) == 0 {
		return nil, nil
	}
	var diags []models.Diagnostic
	aligned := func(label, raw string) []string {
		items := splitParallel(raw)
		if items == nil {
			return nil
		}
		if len(items) != len(vars) {
			diags = append(diags, models.Diagnostic{
				Row:      row,
				Variable: variable,
				Message:  fmt.Sprintf("%s %s list has %d entries for %d regulators; ignored", sign, label, len(items), len(vars)),
			})
			return nil
		}
		return items
	}
	conns := aligned("connection type", cols.Connections)
	mechs := aligned("mechanism", cols.Mechanisms)
	sites := aligned("site", cols.Sites)

	out := make([]models.RegulatorEdge, len(vars))
	for i, v := range vars {
		out[i] = models.RegulatorEdge{Variable: v, Sign: sign}
		if conns != nil {
			out[i].Connection = ParseModelConnection(conns[i])
		}
		if mechs != nil {
			out[i].Mechanism = mechs[i]
		}
		if sites != nil {
			out[i].Site = sites[i]
		}
	}
	return out, diags
}

// ParseInteractionsJSON decodes a reading payload of the form
// {"interactions": [...]}, normalizes each row and drops unusable ones.
// Identical rows are kept; MergeEvidence counts them.
func ParseInteractionsJSON(raw string) ([]models.Interaction, []models.Diagnostic, error) {
	raw = stripCodeFence(strings.TrimSpace(raw))
	if raw == "" {
		return nil, nil, nil
	}
	var payload struct {
		Interactions []models.Interaction `json:"interactions"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, nil, fmt.Errorf("decode interactions: %w", err)
	}
	out := make([]models.Interaction, 0, len(payload.Interactions))
	var diags []models.Diagnostic
	for i, in := range payload.Interactions {
		n, defaulted, ok := NormalizeInteraction(in)
		if !ok {
			diags = append(diags, models.Diagnostic{Row: i, Message: "interaction lacks a sign or an endpoint; skipped"})
			continue
		}
		if defaulted {
			diags = append(diags, models.Diagnostic{Row: i, Message: "connection type missing; defaulting to indirect"})
		}
		out = append(out, n)
	}
	return out, diags, nil
}

func stripCodeFence(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
