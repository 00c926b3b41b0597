package scoring

import (
	"fmt"
	"strings"

	"violin/internal/models"
	"violin/internal/util"
)

// Attribute names one comparable property of an interaction.
type Attribute string

const (
	AttrRegulatorCompartment   Attribute = "Regulator Compartment"
	AttrRegulatorCompartmentID Attribute = "Regulator Compartment ID"
	AttrRegulatedCompartment   Attribute = "Regulated Compartment"
	AttrRegulatedCompartmentID Attribute = "Regulated Compartment ID"
	AttrMechanism              Attribute = "Mechanism"
	AttrSite                   Attribute = "Site"
	AttrCellLine               Attribute = "Cell Line"
	AttrCellType               Attribute = "Cell Type"
	AttrTissueType             Attribute = "Tissue Type"
	AttrOrganism               Attribute = "Organism"
)

var allAttributes = []Attribute{
	AttrRegulatorCompartment, AttrRegulatorCompartmentID,
	AttrRegulatedCompartment, AttrRegulatedCompartmentID,
	AttrMechanism, AttrSite,
	AttrCellLine, AttrCellType, AttrTissueType, AttrOrganism,
}

func AllAttributes() []Attribute {
	return append([]Attribute(nil), allAttributes...)
}

// ParseAttributes maps names onto the closed attribute set, case-insensitively.
// Duplicates collapse onto their first occurrence.
func ParseAttributes(names []string) ([]Attribute, error) {
	out := make([]Attribute, 0, len(names))
	seen := map[Attribute]struct{}{}
	for _, raw := range names {
		name := strings.Join(strings.Fields(raw), " ")
		if name == "" {
			continue
		}
		attr, ok := lookupAttribute(name)
		if !ok {
			return nil, fmt.Errorf("parse attribute %q: %w", raw, util.ErrInvalidAttribute)
		}
		if _, dup := seen[attr]; dup {
			continue
		}
		seen[attr] = struct{}{}
		out = append(out, attr)
	}
	return out, nil
}

func lookupAttribute(name string) (Attribute, bool) {
	for _, a := range allAttributes {
		if strings.EqualFold(string(a), name) {
			return a, true
		}
	}
	return "", false
}

// Outcome is the ordinal result of comparing model and reading attributes.
type Outcome int

const (
	OutcomeMatch Outcome = iota
	OutcomeReadingMissing
	OutcomeModelMissing
	OutcomeConflict
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatch:
		return "match"
	case OutcomeReadingMissing:
		return "reading missing"
	case OutcomeModelMissing:
		return "model missing"
	case OutcomeConflict:
		return "conflict"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// AttributeSet holds normalized attribute values; "" is the absent value.
type AttributeSet map[Attribute]string

func absent(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "none":
		return true
	default:
		return false
	}
}

func compareValue(model, reading string) Outcome {
	mAbsent, rAbsent := absent(model), absent(reading)
	switch {
	case mAbsent && rAbsent:
		return OutcomeMatch
	case rAbsent:
		return OutcomeReadingMissing
	case mAbsent:
		return OutcomeModelMissing
	case model == reading:
		return OutcomeMatch
	default:
		return OutcomeConflict
	}
}

var compartmentSides = [][2]Attribute{
	{AttrRegulatorCompartment, AttrRegulatorCompartmentID},
	{AttrRegulatedCompartment, AttrRegulatedCompartmentID},
}

// Compare classifies every attribute present in both sets and reduces the
// results to one outcome. On each side a compartment match by name or by id
// counts as a match for both compartment fields of that side.
func Compare(model, reading AttributeSet) Outcome {
	per := map[Attribute]Outcome{}
	for attr, mv := range model {
		rv, ok := reading[attr]
		if !ok {
			continue
		}
		per[attr] = compareValue(mv, rv)
	}
	for _, side := range compartmentSides {
		matched := false
		for _, attr := range side {
			if o, ok := per[attr]; ok && o == OutcomeMatch {
				matched = true
			}
		}
		if !matched {
			continue
		}
		for _, attr := range side {
			if _, ok := per[attr]; ok {
				per[attr] = OutcomeMatch
			}
		}
	}
	var seen [4]bool
	for _, o := range per {
		seen[o] = true
	}
	switch {
	case seen[OutcomeConflict]:
		return OutcomeConflict
	case seen[OutcomeModelMissing]:
		return OutcomeModelMissing
	case seen[OutcomeReadingMissing]:
		return OutcomeReadingMissing
	default:
		return OutcomeMatch
	}
}

// modelAttributes collects the model side of one pairing. regulated is the row
// whose regulator list holds slot; slot is nil for path pairings, which carry
// no mechanism or site.
func modelAttributes(attrs []Attribute, regulated, regulator *models.Entity, slot *models.RegulatorEdge) AttributeSet {
	out := make(AttributeSet, len(attrs))
	for _, a := range attrs {
		var v string
		switch a {
		case AttrRegulatorCompartment:
			v = regulator.Compartment
		case AttrRegulatorCompartmentID:
			v = regulator.CompartmentID
		case AttrRegulatedCompartment:
			v = regulated.Compartment
		case AttrRegulatedCompartmentID:
			v = regulated.CompartmentID
		case AttrMechanism:
			if slot != nil {
				v = slot.Mechanism
			}
		case AttrSite:
			if slot != nil {
				v = slot.Site
			}
		case AttrCellLine:
			v = regulated.CellLine
		case AttrCellType:
			v = regulated.CellType
		case AttrTissueType:
			v = regulated.TissueType
		case AttrOrganism:
			v = regulated.Organism
		}
		out[a] = v
	}
	return out
}

func readingAttributes(attrs []Attribute, in models.Interaction) AttributeSet {
	out := make(AttributeSet, len(attrs))
	for _, a := range attrs {
		var v string
		switch a {
		case AttrRegulatorCompartment:
			v = in.Regulator.Compartment
		case AttrRegulatorCompartmentID:
			v = in.Regulator.CompartmentID
		case AttrRegulatedCompartment:
			v = in.Regulated.Compartment
		case AttrRegulatedCompartmentID:
			v = in.Regulated.CompartmentID
		case AttrMechanism:
			v = in.Mechanism
		case AttrSite:
			v = in.Site
		case AttrCellLine:
			v = in.CellLine
		case AttrCellType:
			v = in.CellType
		case AttrTissueType:
			v = in.TissueType
		case AttrOrganism:
			v = in.Organism
		}
		out[a] = v
	}
	return out
}
