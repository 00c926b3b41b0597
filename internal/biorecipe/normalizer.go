package biorecipe

import (
	"regexp"
	"strings"

	"violin/internal/models"
)

var (
	ws             = regexp.MustCompile(`\s+`)
	invalidVarRun  = regexp.MustCompile(`[^a-z0-9_]+`)
	leadingInvalid = regexp.MustCompile(`^[^a-z0-9_]+`)
)

// Clean trims and lower-cases s, collapses inner whitespace, and maps the
// spreadsheet placeholders "nan" and "none" to the empty string.
func Clean(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = ws.ReplaceAllString(s, " ")
	switch s {
	case "nan", "none", "null":
		return ""
	}
	return s
}

// CanonicalName is the comparison form of an element name.
func CanonicalName(s string) string {
	s = Clean(s)
	s = strings.ReplaceAll(s, "_", " ")
	return ws.ReplaceAllString(s, " ")
}

// CanonicalType folds free-text element types onto the closed type set.
func CanonicalType(s string) models.EntityType {
	t := strings.ReplaceAll(Clean(s), " ", "")
	switch {
	case t == "":
		return models.TypeOther
	case strings.HasPrefix(t, "protein"):
		return models.TypeProtein
	case strings.HasPrefix(t, "chemical"):
		return models.TypeChemical
	case strings.Contains(t, "rna"):
		return models.TypeRNA
	case strings.HasPrefix(t, "biological"), t == "bioprocess":
		return models.TypeBioprocess
	default:
		return models.TypeOther
	}
}

// SanitizeVariable rewrites a variable name into [a-z0-9_]: leading invalid
// characters are dropped, other invalid runs become "_" and names starting
// with a digit get an "ele_" prefix.
func SanitizeVariable(s string) string {
	v := Clean(s)
	v = leadingInvalid.ReplaceAllString(v, "")
	v = invalidVarRun.ReplaceAllString(v, "_")
	if v != "" && v[0] >= '0' && v[0] <= '9' {
		v = "ele_" + v
	}
	return v
}

// ParseSign reads sign words. ok is false for anything unrecognised.
func ParseSign(s string) (models.Sign, bool) {
	switch Clean(s) {
	case "positive", "pos", "+", "increase", "increases", "activate", "activates", "activation", "upregulate", "upregulates":
		return models.SignPositive, true
	case "negative", "neg", "-", "decrease", "decreases", "inhibit", "inhibits", "inhibition", "downregulate", "downregulates":
		return models.SignNegative, true
	default:
		return "", false
	}
}

// ParseConnection maps reading connection markers onto direct/indirect. An
// absent value reads as indirect with defaulted set.
func ParseConnection(s string) (ct models.ConnectionType, defaulted bool) {
	switch Clean(s) {
	case "":
		return models.ConnectionIndirect, true
	case "i", "indirect", "false":
		return models.ConnectionIndirect, false
	default:
		return models.ConnectionDirect, false
	}
}

// ParseModelConnection reads one slot of a model connection type list. An
// empty slot stays unspecified so the scoring default applies.
func ParseModelConnection(s string) models.ConnectionType {
	switch Clean(s) {
	case "":
		return ""
	case "i", "indirect", "false":
		return models.ConnectionIndirect
	default:
		return models.ConnectionDirect
	}
}

func normalizeReference(r models.Reference) models.Reference {
	return models.Reference{
		Name:          CanonicalName(r.Name),
		Type:          CanonicalType(string(r.Type)),
		Subtype:       Clean(r.Subtype),
		Symbol:        Clean(r.Symbol),
		Database:      Clean(r.Database),
		ID:            Clean(r.ID),
		Compartment:   Clean(r.Compartment),
		CompartmentID: Clean(r.CompartmentID),
	}
}

// NormalizeEntity cleans every field of a model row and sanitizes its
// variable and regulator references.
func NormalizeEntity(e models.Entity) models.Entity {
	out := models.Entity{
		Variable:      SanitizeVariable(e.Variable),
		Name:          CanonicalName(e.Name),
		Type:          CanonicalType(string(e.Type)),
		Subtype:       Clean(e.Subtype),
		Symbol:        Clean(e.Symbol),
		Database:      Clean(e.Database),
		Compartment:   Clean(e.Compartment),
		CompartmentID: Clean(e.CompartmentID),
		CellLine:      Clean(e.CellLine),
		CellType:      Clean(e.CellType),
		TissueType:    Clean(e.TissueType),
		Organism:      Clean(e.Organism),
	}
	if out.Variable == "" {
		out.Variable = SanitizeVariable(e.Name)
	}
	for _, id := range e.IDs {
		if id = Clean(id); id != "" {
			out.IDs = append(out.IDs, id)
		}
	}
	for _, r := range e.Regulators {
		v := SanitizeVariable(r.Variable)
		if v == "" {
			continue
		}
		out.Regulators = append(out.Regulators, models.RegulatorEdge{
			Variable:   v,
			Sign:       r.Sign,
			Connection: r.Connection,
			Mechanism:  Clean(r.Mechanism),
			Site:       Clean(r.Site),
		})
	}
	return out
}

// NormalizeInteraction cleans a reading row. ok is false when the row has no
// usable sign or lacks an endpoint name; defaulted reports an absent
// connection type that was read as indirect.
func NormalizeInteraction(in models.Interaction) (out models.Interaction, defaulted, ok bool) {
	out = in
	out.Regulator = normalizeReference(in.Regulator)
	out.Regulated = normalizeReference(in.Regulated)
	sign, signOK := ParseSign(string(in.Sign))
	if !signOK {
		return models.Interaction{}, false, false
	}
	out.Sign = sign
	out.Connection, defaulted = ParseConnection(string(in.Connection))
	out.Mechanism = Clean(in.Mechanism)
	out.Site = Clean(in.Site)
	out.CellLine = Clean(in.CellLine)
	out.CellType = Clean(in.CellType)
	out.TissueType = Clean(in.TissueType)
	out.Organism = Clean(in.Organism)
	if out.EvidenceCount < 1 {
		out.EvidenceCount = 1
	}
	if (out.Regulator.Name == "" && out.Regulator.Symbol == "" && out.Regulator.ID == "") ||
		(out.Regulated.Name == "" && out.Regulated.Symbol == "" && out.Regulated.ID == "") {
		return models.Interaction{}, false, false
	}
	return out, defaulted, true
}
