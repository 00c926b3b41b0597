package scoring

import (
	"violin/internal/graph"
	"violin/internal/models"
)

// Pairing is the outcome for one (model regulated row, model regulator row)
// combination of a reading interaction.
type Pairing struct {
	TargetRow      int    `json:"target_row"`
	SourceRow      int    `json:"source_row"`
	TargetVariable string `json:"target_variable"`
	SourceVariable string `json:"source_variable"`
	Kind           Kind   `json:"kind"`
	Reason         Reason `json:"reason"`
}

// Classification is the reduced outcome for one reading interaction.
type Classification struct {
	Kind     Kind          `json:"kind"`
	Match    MatchCategory `json:"match"`
	Pairings []Pairing     `json:"pairings,omitempty"`
}

// Classifier decides the kind of reading interactions against one model. It
// holds no mutable state and may be shared between goroutines.
type Classifier struct {
	model       *models.Model
	lookup      *Lookup
	paths       pathClassifier
	policy      ClassificationPolicy
	attrs       []Attribute
	connDefault models.ConnectionType
}

func NewClassifier(m *models.Model, g *graph.RegulatoryGraph, opts Options) *Classifier {
	policy := opts.Scheme.Policy()
	connDefault := opts.ConnectionDefault
	if connDefault == "" {
		connDefault = models.ConnectionDirect
	}
	return &Classifier{
		model:       m,
		lookup:      NewLookup(m),
		paths:       pathClassifier{graph: g, policy: policy},
		policy:      policy,
		attrs:       append([]Attribute(nil), opts.Attributes...),
		connDefault: connDefault,
	}
}

func (c *Classifier) Classify(in models.Interaction) Classification {
	targets, _, targetFound := c.lookup.Resolve(in.Regulated)
	sources, _, sourceFound := c.lookup.Resolve(in.Regulator)
	out := Classification{Match: matchCategory(sourceFound, targetFound)}
	switch {
	case !targetFound && !sourceFound:
		out.Kind = KindFullExtension
		return out
	case !targetFound || !sourceFound:
		out.Kind = KindHangingExtension
		return out
	}

	reading := readingAttributes(c.attrs, in)
	conn := readingConnection(in.Connection)
	out.Pairings = make([]Pairing, 0, len(targets)*len(sources))
	for _, ti := range targets {
		for _, si := range sources {
			kind, reason := c.classifyPair(ti, si, in.Sign, conn, reading)
			out.Pairings = append(out.Pairings, Pairing{
				TargetRow:      ti,
				SourceRow:      si,
				TargetVariable: c.model.At(ti).Variable,
				SourceVariable: c.model.At(si).Variable,
				Kind:           kind,
				Reason:         reason,
			})
		}
	}
	out.Kind = reduce(out.Pairings)
	return out
}

func reduce(pairings []Pairing) Kind {
	best := pairings[0].Kind
	for _, p := range pairings[1:] {
		if p.Kind.Rank() < best.Rank() {
			best = p.Kind
		}
	}
	return best
}

func readingConnection(ct models.ConnectionType) models.ConnectionType {
	if ct == models.ConnectionDirect {
		return models.ConnectionDirect
	}
	return models.ConnectionIndirect
}

func (c *Classifier) slotConnection(slot models.RegulatorEdge) models.ConnectionType {
	if slot.Connection == "" {
		return c.connDefault
	}
	return slot.Connection
}

func (c *Classifier) classifyPair(ti, si int, sign models.Sign, conn models.ConnectionType, reading AttributeSet) (Kind, Reason) {
	target := c.model.At(ti)
	source := c.model.At(si)

	if slot, ok := target.FindRegulator(source.Variable, sign); ok {
		cmp := Compare(modelAttributes(c.attrs, target, source, &slot), reading)
		return listedKind(conn, c.slotConnection(slot), cmp), ReasonListed
	}
	if slot, ok := target.FindRegulator(source.Variable, sign.Opposite()); ok {
		if c.policy.FlagIndirectSignConflict && conn == models.ConnectionIndirect && c.slotConnection(slot) != models.ConnectionIndirect {
			return KindFlagged5, ReasonListedOppositeSign
		}
		return KindSignContradiction, ReasonListedOppositeSign
	}
	// The model records the relationship the other way round: source is
	// the regulated element and target its regulator.
	if slot, ok := source.FindRegulator(target.Variable, sign); ok {
		return c.reversedKind(conn, slot, source, target, reading), ReasonReversed
	}
	if slot, ok := source.FindRegulator(target.Variable, sign.Opposite()); ok {
		return c.reversedKind(conn, slot, source, target, reading), ReasonReversedOppositeSign
	}
	if source.Variable == target.Variable {
		return KindSelfRegulation, ReasonSelfPairing
	}
	g := c.paths.graph
	if !g.HasNode(source.Variable) || !g.HasNode(target.Variable) {
		return KindInternalExtension, ReasonNotInGraph
	}
	return c.paths.classify(source.Variable, target.Variable, sign, conn, func() Outcome {
		return Compare(modelAttributes(c.attrs, target, source, nil), reading)
	})
}

func listedKind(conn, modelConn models.ConnectionType, cmp Outcome) Kind {
	if cmp == OutcomeConflict {
		return KindAttContradiction
	}
	switch {
	case conn == models.ConnectionDirect && modelConn == models.ConnectionIndirect:
		return KindSpecification
	case conn == models.ConnectionIndirect && modelConn != models.ConnectionIndirect:
		return KindIndirectInteraction
	}
	switch cmp {
	case OutcomeMatch:
		return KindStrongCorroboration
	case OutcomeReadingMissing:
		return KindEmptyAttribute
	default:
		return KindSpecification
	}
}

func (c *Classifier) reversedKind(conn models.ConnectionType, slot models.RegulatorEdge, regulated, regulator *models.Entity, reading AttributeSet) Kind {
	modelConn := c.slotConnection(slot)
	sameConn := (conn == models.ConnectionIndirect) == (modelConn == models.ConnectionIndirect)
	if !sameConn {
		if c.policy.FlagIndirectReversal && conn == models.ConnectionIndirect {
			return KindFlagged4
		}
		return KindDirContradiction
	}
	if Compare(modelAttributes(c.attrs, regulated, regulator, &slot), reading) == OutcomeConflict {
		return KindDirContradiction
	}
	if c.policy.DirMismatchIsContradiction {
		return KindDirContradiction
	}
	return KindDirMismatch
}
