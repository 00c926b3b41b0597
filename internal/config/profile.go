package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"violin/internal/models"
	"violin/internal/scoring"
)

// Profile is a YAML scoring profile. Value tables start from Preset and
// KindValues/MatchValues override single entries.
type Profile struct {
	Preset            string             `yaml:"preset" json:"preset,omitempty"`
	Scheme            string             `yaml:"scheme" json:"scheme,omitempty"`
	Attributes        []string           `yaml:"attributes" json:"attributes,omitempty"`
	ConnectionDefault string             `yaml:"connection_default" json:"connection_default,omitempty"`
	Workers           int                `yaml:"workers" json:"workers,omitempty"`
	KindValues        map[string]float64 `yaml:"kind_values" json:"kind_values,omitempty"`
	MatchValues       map[string]float64 `yaml:"match_values" json:"match_values,omitempty"`
}

func ParseProfile(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	return p, nil
}

func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile %s: %w", path, err)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return Profile{}, fmt.Errorf("load profile %s: %w", path, err)
	}
	return p, nil
}

// Options resolves the profile into validated scoring options. Empty fields
// fall back to scoring.DefaultOptions.
func (p Profile) Options() (scoring.Options, error) {
	opts := scoring.DefaultOptions()
	if strings.TrimSpace(p.Scheme) != "" {
		s, err := scoring.ParseScheme(p.Scheme)
		if err != nil {
			return scoring.Options{}, err
		}
		opts.Scheme = s
	}
	preset := p.Preset
	if strings.TrimSpace(preset) == "" {
		preset = "extend"
	}
	kinds, match, err := scoring.Preset(preset, opts.Scheme)
	if err != nil {
		return scoring.Options{}, err
	}
	overKinds, err := scoring.ParseKindValues(p.KindValues)
	if err != nil {
		return scoring.Options{}, err
	}
	for k, v := range overKinds {
		kinds[k] = v
	}
	overMatch, err := scoring.ParseMatchValues(p.MatchValues)
	if err != nil {
		return scoring.Options{}, err
	}
	for c, v := range overMatch {
		match[c] = v
	}
	opts.KindValues, opts.MatchValues = kinds, match

	attrs, err := scoring.ParseAttributes(p.Attributes)
	if err != nil {
		return scoring.Options{}, err
	}
	opts.Attributes = attrs
	if c := strings.ToLower(strings.TrimSpace(p.ConnectionDefault)); c != "" {
		opts.ConnectionDefault = models.ConnectionType(c)
	}
	if p.Workers > 0 {
		opts.Workers = p.Workers
	}
	if err := opts.Validate(); err != nil {
		return scoring.Options{}, err
	}
	return opts, nil
}
