package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const DefaultPolicyName = "free"

// MatchPolicy selects how matches are staffed: a free roster composed later,
// or full fixed-size teams required at creation.
type MatchPolicy struct {
	Name                       string `yaml:"-"`
	RosterCapacity             int    `yaml:"roster_capacity"`
	RequireFullTeamsAtCreation bool   `yaml:"require_full_teams_at_creation"`
}

// TeamSize is the number of players per side when full teams are required.
func (p MatchPolicy) TeamSize() int {
	return p.RosterCapacity / 2
}

type policyFile struct {
	Profiles map[string]MatchPolicy `yaml:"profiles"`
}

func DefaultPolicyProfiles() map[string]MatchPolicy {
	return map[string]MatchPolicy{
		"free":   {Name: "free", RosterCapacity: 10},
		"fixed5": {Name: "fixed5", RosterCapacity: 10, RequireFullTeamsAtCreation: true},
	}
}

// LoadPolicyProfiles reads match policy profiles from a YAML file.
func LoadPolicyProfiles(path string) (map[string]MatchPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read match policy file: %w", err)
	}
	return ParsePolicyProfiles(data)
}

func ParsePolicyProfiles(data []byte) (map[string]MatchPolicy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse match policy file: %w", err)
	}
	if len(file.Profiles) == 0 {
		return nil, fmt.Errorf("match policy file defines no profiles")
	}

	profiles := make(map[string]MatchPolicy, len(file.Profiles))
	for name, p := range file.Profiles {
		if p.RosterCapacity <= 0 {
			return nil, fmt.Errorf("profile %q: roster_capacity must be positive", name)
		}
		if p.RequireFullTeamsAtCreation && p.RosterCapacity%2 != 0 {
			return nil, fmt.Errorf("profile %q: roster_capacity must be even when full teams are required", name)
		}
		p.Name = name
		profiles[name] = p
	}
	return profiles, nil
}
