package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"violin/internal/util"
)

// Scheme selects a taxonomy variant.
type Scheme int

const (
	Scheme1 Scheme = 1
	Scheme2 Scheme = 2
	Scheme3 Scheme = 3
)

func ParseScheme(s string) (Scheme, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse scheme %q: %w", s, util.ErrInvalidScheme)
	}
	sc := Scheme(n)
	if !sc.Valid() {
		return 0, fmt.Errorf("parse scheme %q: %w", s, util.ErrInvalidScheme)
	}
	return sc, nil
}

func (s Scheme) Valid() bool {
	return s == Scheme1 || s == Scheme2 || s == Scheme3
}

func (s Scheme) String() string {
	return strconv.Itoa(int(s))
}

// ClassificationPolicy holds the switches that distinguish the schemes. One
// decision tree consults it instead of branching per scheme.
type ClassificationPolicy struct {
	// ResolvePathAmbiguity turns path-based outcomes into specific
	// contradictions, and a direct claim over a multi-hop path into a path
	// mismatch instead of an internal extension.
	ResolvePathAmbiguity bool
	// DirMismatchIsContradiction reports a reversed interaction with agreeing
	// connection types and attributes as a direction contradiction.
	DirMismatchIsContradiction bool
	// FlagIndirectReversal routes a reversed interaction read as indirect but
	// modeled as direct to flagged4.
	FlagIndirectReversal bool
	// FlagIndirectSignConflict routes an opposite-sign interaction read as
	// indirect but modeled as direct to flagged5.
	FlagIndirectSignConflict bool
}

func (s Scheme) Policy() ClassificationPolicy {
	switch s {
	case Scheme2:
		return ClassificationPolicy{ResolvePathAmbiguity: true}
	case Scheme3:
		return ClassificationPolicy{
			DirMismatchIsContradiction: true,
			FlagIndirectReversal:       true,
			FlagIndirectSignConflict:   true,
		}
	default:
		return ClassificationPolicy{}
	}
}

// Kinds lists the categories a classifier under s can produce, in
// precedence order.
func (s Scheme) Kinds() []Kind {
	out := make([]Kind, 0, len(precedence))
	for _, k := range precedence {
		if (k == KindFlagged4 || k == KindFlagged5) && s != Scheme3 {
			continue
		}
		out = append(out, k)
	}
	return out
}
