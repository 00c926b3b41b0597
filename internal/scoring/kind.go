package scoring

import (
	"fmt"
	"strings"

	"violin/internal/util"
)

// Kind is the taxonomy category of one reading interaction.
type Kind string

const (
	KindStrongCorroboration Kind = "strong corroboration"
	KindEmptyAttribute      Kind = "empty attribute"
	KindIndirectInteraction Kind = "indirect interaction"
	KindPathCorroboration   Kind = "path corroboration"
	KindSpecification       Kind = "specification"
	KindDirContradiction    Kind = "dir contradiction"
	KindSignContradiction   Kind = "sign contradiction"
	KindAttContradiction    Kind = "att contradiction"
	KindHangingExtension    Kind = "hanging extension"
	KindInternalExtension   Kind = "internal extension"
	KindFullExtension       Kind = "full extension"
	KindDirMismatch         Kind = "dir mismatch"
	KindPathMismatch        Kind = "path mismatch"
	KindSelfRegulation      Kind = "self-regulation"
	KindFlagged4            Kind = "flagged4"
	KindFlagged5            Kind = "flagged5"
)

// precedence lists every kind from strongest to weakest. Reducing several
// pairing outcomes keeps the earliest.
var precedence = []Kind{
	KindStrongCorroboration,
	KindEmptyAttribute,
	KindIndirectInteraction,
	KindPathCorroboration,
	KindSpecification,
	KindDirContradiction,
	KindSignContradiction,
	KindAttContradiction,
	KindHangingExtension,
	KindInternalExtension,
	KindFullExtension,
	KindDirMismatch,
	KindPathMismatch,
	KindSelfRegulation,
	KindFlagged4,
	KindFlagged5,
}

var rank = func() map[Kind]int {
	m := make(map[Kind]int, len(precedence))
	for i, k := range precedence {
		m[k] = i
	}
	return m
}()

var kindAliases = map[string]Kind{
	"weak corroboration1": KindEmptyAttribute,
	"weak corroboration2": KindIndirectInteraction,
	"weak corroboration3": KindPathCorroboration,
	"flagged1":            KindDirMismatch,
	"flagged2":            KindPathMismatch,
	"flagged3":            KindSelfRegulation,
	"self regulation":     KindSelfRegulation,
}

func AllKinds() []Kind {
	return append([]Kind(nil), precedence...)
}

func (k Kind) Valid() bool {
	_, ok := rank[k]
	return ok
}

// Rank is the position of k in the reduction order; lower wins.
func (k Kind) Rank() int {
	if r, ok := rank[k]; ok {
		return r
	}
	return len(precedence)
}

// ParseKind accepts canonical kind names and the legacy numbered names
// (weak corroboration1..3, flagged1..3).
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if k := Kind(name); k.Valid() {
		return k, nil
	}
	if k, ok := kindAliases[name]; ok {
		return k, nil
	}
	return "", fmt.Errorf("parse kind %q: %w", s, util.ErrUnknownKind)
}

// Category is the output bucket a kind is reported under.
type Category string

const (
	CategoryCorroboration Category = "corroborations"
	CategoryExtension     Category = "extensions"
	CategoryContradiction Category = "contradictions"
	CategoryFlagged       Category = "flagged"
)

var Categories = []Category{CategoryCorroboration, CategoryExtension, CategoryContradiction, CategoryFlagged}

func (k Kind) Category() Category {
	switch k {
	case KindStrongCorroboration, KindEmptyAttribute, KindIndirectInteraction, KindPathCorroboration, KindSpecification:
		return CategoryCorroboration
	case KindHangingExtension, KindInternalExtension, KindFullExtension:
		return CategoryExtension
	case KindDirContradiction, KindSignContradiction, KindAttContradiction:
		return CategoryContradiction
	default:
		return CategoryFlagged
	}
}

func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if name == string(c) || name+"s" == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("parse category %q: %w", s, util.ErrUnknownKind)
}

// MatchCategory records which endpoints of a reading interaction the model has.
type MatchCategory string

const (
	MatchNeither    MatchCategory = "neither present"
	MatchSourceOnly MatchCategory = "source present"
	MatchTargetOnly MatchCategory = "target present"
	MatchBoth       MatchCategory = "both present"
)

var MatchCategories = []MatchCategory{MatchSourceOnly, MatchTargetOnly, MatchBoth, MatchNeither}

func matchCategory(source, target bool) MatchCategory {
	switch {
	case source && target:
		return MatchBoth
	case source:
		return MatchSourceOnly
	case target:
		return MatchTargetOnly
	default:
		return MatchNeither
	}
}

// ParseMatchCategory accepts "source present" as well as the short "source".
func ParseMatchCategory(s string) (MatchCategory, error) {
	name := strings.ToLower(strings.Join(strings.Fields(s), " "))
	for _, c := range MatchCategories {
		if name == string(c) || name+" present" == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("parse match category %q: %w", s, util.ErrMissingMatchValue)
}
