package scoring

import (
	"fmt"
	"sort"
	"strings"

	"violin/internal/models"
	"violin/internal/util"
)

// KindValues maps each kind to its numeric Kind Score. Several kinds may
// share a value; buckets are still decided by kind, not by value.
type KindValues map[Kind]float64

// MatchValues maps each match category to its numeric Match Score.
type MatchValues map[MatchCategory]float64

func (kv KindValues) Clone() KindValues {
	out := make(KindValues, len(kv))
	for k, v := range kv {
		out[k] = v
	}
	return out
}

func (mv MatchValues) Clone() MatchValues {
	out := make(MatchValues, len(mv))
	for k, v := range mv {
		out[k] = v
	}
	return out
}

// ParseKindValues converts a name keyed table, accepting legacy kind names.
func ParseKindValues(raw map[string]float64) (KindValues, error) {
	out := make(KindValues, len(raw))
	for name, v := range raw {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func ParseMatchValues(raw map[string]float64) (MatchValues, error) {
	out := make(MatchValues, len(raw))
	for name, v := range raw {
		c, err := ParseMatchCategory(name)
		if err != nil {
			return nil, err
		}
		out[c] = v
	}
	return out, nil
}

type preset struct {
	kinds    KindValues
	match    MatchValues
	flagged4 float64
	flagged5 float64
}

var extendKinds = KindValues{
	KindStrongCorroboration: 2,
	KindEmptyAttribute:      1,
	KindIndirectInteraction: 3,
	KindPathCorroboration:   5,
	KindSpecification:       7,
	KindHangingExtension:    40,
	KindFullExtension:       39,
	KindInternalExtension:   38,
	KindDirContradiction:    11,
	KindSignContradiction:   10,
	KindAttContradiction:    9,
	KindDirMismatch:         20,
	KindPathMismatch:        19,
	KindSelfRegulation:      18,
}

var corroborateMatch = MatchValues{
	MatchSourceOnly: 1,
	MatchTargetOnly: 1,
	MatchBoth:       100,
	MatchNeither:    0.1,
}

var presets = map[string]preset{
	"extend": {
		kinds: extendKinds,
		match: MatchValues{
			MatchSourceOnly: 1,
			MatchTargetOnly: 100,
			MatchBoth:       10,
			MatchNeither:    0.1,
		},
		flagged4: 20,
		flagged5: 20,
	},
	"corroborate": {
		kinds:    extendKinds,
		match:    corroborateMatch,
		flagged4: 1,
		flagged5: 1,
	},
	"extend subcategories": {
		kinds: extendKinds,
		match: MatchValues{
			MatchSourceOnly: 1,
			MatchTargetOnly: 100,
			MatchBoth:       10,
			MatchNeither:    0.1,
		},
		flagged4: 23,
		flagged5: 24,
	},
	"corroborate subcategories": {
		kinds: KindValues{
			KindStrongCorroboration: 40,
			KindEmptyAttribute:      30,
			KindIndirectInteraction: 31,
			KindPathCorroboration:   32,
			KindSpecification:       11,
			KindHangingExtension:    2,
			KindFullExtension:       4,
			KindInternalExtension:   10,
			KindDirContradiction:    20,
			KindSignContradiction:   21,
			KindAttContradiction:    22,
			KindDirMismatch:         1,
			KindPathMismatch:        3,
			KindSelfRegulation:      5,
		},
		match:    corroborateMatch,
		flagged4: 7,
		flagged5: 9,
	},
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Preset returns fresh copies of a named value table pair. Scheme 3 tables
// also carry flagged4 and flagged5.
func Preset(name string, scheme Scheme) (KindValues, MatchValues, error) {
	key := strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(name, "_", " ")), " "))
	p, ok := presets[key]
	if !ok {
		return nil, nil, fmt.Errorf("load preset %q: %w", name, util.ErrUnknownPreset)
	}
	kinds := p.kinds.Clone()
	if scheme == Scheme3 {
		kinds[KindFlagged4] = p.flagged4
		kinds[KindFlagged5] = p.flagged5
	}
	return kinds, p.match.Clone(), nil
}

// Options configures one scoring run.
type Options struct {
	Scheme            Scheme
	Attributes        []Attribute
	ConnectionDefault models.ConnectionType
	KindValues        KindValues
	MatchValues       MatchValues
	Workers           int
}

// DefaultOptions is scheme 1 with the "extend" preset, no attributes and
// direct as the model connection default.
func DefaultOptions() Options {
	kinds, match, _ := Preset("extend", Scheme1)
	return Options{
		Scheme:            Scheme1,
		ConnectionDefault: models.ConnectionDirect,
		KindValues:        kinds,
		MatchValues:       match,
		Workers:           1,
	}
}

// Validate rejects configuration mistakes before any row is classified.
func (o Options) Validate() error {
	if !o.Scheme.Valid() {
		return fmt.Errorf("validate options: scheme %d: %w", int(o.Scheme), util.ErrInvalidScheme)
	}
	for _, a := range o.Attributes {
		if _, ok := lookupAttribute(string(a)); !ok {
			return fmt.Errorf("validate options: attribute %q: %w", a, util.ErrInvalidAttribute)
		}
	}
	switch o.ConnectionDefault {
	case models.ConnectionDirect, models.ConnectionIndirect:
	default:
		return fmt.Errorf("validate options: connection default %q: %w", o.ConnectionDefault, util.ErrInvalidConnection)
	}
	var missing []string
	for _, k := range o.Scheme.Kinds() {
		if _, ok := o.KindValues[k]; !ok {
			missing = append(missing, string(k))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("validate options: no value for %s: %w", strings.Join(missing, ", "), util.ErrMissingKindValue)
	}
	missing = missing[:0]
	for _, c := range MatchCategories {
		if _, ok := o.MatchValues[c]; !ok {
			missing = append(missing, string(c))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("validate options: no value for %s: %w", strings.Join(missing, ", "), util.ErrMissingMatchValue)
	}
	return nil
}
