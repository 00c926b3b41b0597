package scoring

import (
	"violin/internal/graph"
	"violin/internal/models"
)

// Reason explains which branch produced a pairing's kind. Several reasons
// can share a kind, such as the two ways to reach internal extension.
type Reason string

const (
	ReasonListed                Reason = "listed"
	ReasonListedOppositeSign    Reason = "listed with opposite sign"
	ReasonReversed              Reason = "listed reversed"
	ReasonReversedOppositeSign  Reason = "listed reversed with opposite sign"
	ReasonSelfPairing           Reason = "self pairing"
	ReasonNotInGraph            Reason = "not in graph"
	ReasonRequiresIntermediates Reason = "path requires intermediates"
	ReasonPathConfirms          Reason = "path confirms"
	ReasonPathSignConflict      Reason = "path sign conflict"
	ReasonPathAttConflict       Reason = "path attribute conflict"
	ReasonReversePath           Reason = "reverse path"
	ReasonTrivialPath           Reason = "trivial path"
	ReasonNoPath                Reason = "no path"
)

// pathClassifier handles pairings with no direct listing between the two
// variables. Both variables must be graph nodes.
type pathClassifier struct {
	graph  *graph.RegulatoryGraph
	policy ClassificationPolicy
}

// classify walks regulator -> regulated. compare is only evaluated for
// indirect claims over a forward path.
func (p pathClassifier) classify(regulator, regulated string, sign models.Sign, conn models.ConnectionType, compare func() Outcome) (Kind, Reason) {
	forward, hasForward := p.graph.ShortestPath(regulator, regulated)
	switch {
	case hasForward && len(forward) > 1 && conn != models.ConnectionIndirect:
		if p.policy.ResolvePathAmbiguity {
			return KindPathMismatch, ReasonRequiresIntermediates
		}
		return KindInternalExtension, ReasonRequiresIntermediates
	case hasForward && len(forward) > 1:
		lightest, _ := p.graph.LightestPath(regulator, regulated)
		pathSign, _ := p.graph.PathSign(lightest)
		if pathSign != sign.Bit() {
			if p.policy.ResolvePathAmbiguity {
				return KindSignContradiction, ReasonPathSignConflict
			}
			return KindPathMismatch, ReasonPathSignConflict
		}
		if compare() == OutcomeConflict {
			if p.policy.ResolvePathAmbiguity {
				return KindAttContradiction, ReasonPathAttConflict
			}
			return KindPathMismatch, ReasonPathAttConflict
		}
		return KindPathCorroboration, ReasonPathConfirms
	}
	if reverse, ok := p.graph.ShortestPath(regulated, regulator); ok && len(reverse) > 1 {
		if p.policy.ResolvePathAmbiguity {
			return KindDirContradiction, ReasonReversePath
		}
		return KindPathMismatch, ReasonReversePath
	}
	if hasForward && len(forward) == 1 {
		return KindSelfRegulation, ReasonTrivialPath
	}
	return KindInternalExtension, ReasonNoPath
}
