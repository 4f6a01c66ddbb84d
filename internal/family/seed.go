package family

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the on-disk shape used by the seeding utility.
type Seed struct {
	FamilyID       string         `yaml:"family_id"`
	Members        []Member       `yaml:"members"`
	KitchenProfile KitchenProfile `yaml:"kitchen_profile"`
}

// New returns the minimal record created on first access when no document exists.
func New(id string) *Family {
	return &Family{
		ID: id,
		Members: []Member{
			{Name: "Dad", Role: RoleParent},
			{Name: "Kid", Role: RoleChild},
		},
		KitchenProfile: KitchenProfile{CurrentInventory: []string{"Pasta", "Tomato Sauce"}},
		Preferences:    map[string]int{},
		WeekPlan:       &WeekPlan{},
	}
}

// LoadSeed reads a seed file, or the embedded default seed when path is empty.
func LoadSeed(path string) (*Seed, error) {
	data := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
		}
		data = b
	}

	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	if len(s.Members) == 0 {
		return nil, fmt.Errorf("seed has no members")
	}
	seen := make(map[string]struct{}, len(s.Members))
	for i, m := range s.Members {
		if m.Name == "" {
			return nil, fmt.Errorf("seed member %d has no name", i)
		}
		if _, dup := seen[m.Name]; dup {
			return nil, fmt.Errorf("seed member %q appears twice", m.Name)
		}
		seen[m.Name] = struct{}{}
		if m.Role == "" {
			// Members without a role in the seed are treated as children.
			s.Members[i].Role = RoleChild
		}
	}
	return &s, nil
}

// Family converts the seed into a fresh household document stored under id.
// The seed's own family_id is informational only.
func (s *Seed) Family(id string) *Family {
	return &Family{
		ID:             id,
		Members:        s.Members,
		KitchenProfile: s.KitchenProfile,
		Preferences:    map[string]int{},
		WeekPlan:       &WeekPlan{},
	}
}
