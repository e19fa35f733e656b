package osmium

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile declares the tag expressions passed to osmium tags-filter and
// the suffix appended to the derived output path.
type Profile struct {
	Suffix      string   `yaml:"suffix"`
	Expressions []string `yaml:"expressions"`
}

// RailwayProfile is the built-in default: railway infrastructure plus
// train routes and public transport relations.
func RailwayProfile() *Profile {
	return &Profile{
		Suffix: "-railway",
		Expressions: []string{
			"nwr/railway",
			"r/route=train",
			"r/route_master=train",
			"r/public_transport",
		},
	}
}

// LoadProfile reads a filter profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile YAML: %w", err)
	}
	if len(p.Expressions) == 0 {
		return nil, fmt.Errorf("profile %q declares no filter expressions", path)
	}
	if p.Suffix == "" {
		p.Suffix = "-filtered"
	}
	return &p, nil
}
