package scenario

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Scenario is a reactive record described in YAML: plain fields, computed
// fields derived from them, watches that trace changes, and the steps
// that mutate the fields.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Requires is a semver constraint on the reflow version, e.g. ">= 0.1.0".
	Requires string `yaml:"requires,omitempty"`

	// Phases overrides the runner's phases when set.
	Phases []string `yaml:"phases,omitempty"`

	// Fields are the initial slot values. Nested maps become child objects.
	Fields map[string]any `yaml:"fields"`

	Computed map[string]Compute `yaml:"computed,omitempty"`

	Watch []Watch `yaml:"watch,omitempty"`

	// Steps run one transaction each.
	Steps []Step `yaml:"steps"`
}

// Compute derives a field by applying Op to the fields listed in Of.
type Compute struct {
	Op string   `yaml:"op"`
	Of []string `yaml:"of"`
}

// Watch records every change of Field, in Phase (the first phase if empty).
type Watch struct {
	Field string `yaml:"field"`
	Phase string `yaml:"phase,omitempty"`
}

// Step is one transaction. Set paths are applied in sorted order, then
// the Close paths are closed.
type Step struct {
	Set   map[string]any `yaml:"set,omitempty"`
	Close []string       `yaml:"close,omitempty"`
}

// Load reads and parses a scenario YAML file.
// Unknown keys and missing required fields are errors.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &s, nil
}

// Validate checks the references between fields, computed fields, watches and steps.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Requires != "" {
		if _, err := semver.NewConstraint(s.Requires); err != nil {
			return fmt.Errorf("requires: %w", err)
		}
	}

	for name, c := range s.Computed {
		if _, ok := s.Fields[name]; ok {
			return fmt.Errorf("computed %q: already declared as a field", name)
		}
		if _, ok := ops[c.Op]; !ok {
			return fmt.Errorf("computed %q: unknown op %q (want one of %v)", name, c.Op, opNames())
		}
		if len(c.Of) == 0 {
			return fmt.Errorf("computed %q: of list is required and must be non-empty", name)
		}
		for _, path := range c.Of {
			if !s.declared(path) {
				return fmt.Errorf("computed %q: unknown field %q", name, path)
			}
		}
	}

	for i, w := range s.Watch {
		if !s.declared(w.Field) {
			return fmt.Errorf("watch[%d]: unknown field %q", i, w.Field)
		}
		if w.Phase != "" && len(s.Phases) > 0 && !slices.Contains(s.Phases, w.Phase) {
			return fmt.Errorf("watch[%d]: unknown phase %q", i, w.Phase)
		}
	}

	for i, step := range s.Steps {
		if len(step.Set) == 0 && len(step.Close) == 0 {
			return fmt.Errorf("steps[%d]: set or close is required", i)
		}
		for path := range step.Set {
			if _, ok := s.Fields[root(path)]; !ok {
				return fmt.Errorf("steps[%d]: unknown field %q", i, path)
			}
		}
		for _, path := range step.Close {
			if !s.declared(path) {
				return fmt.Errorf("steps[%d]: unknown field %q", i, path)
			}
		}
	}

	return nil
}

// Check reports whether version satisfies Requires.
func (s *Scenario) Check(version string) error {
	if s.Requires == "" {
		return nil
	}

	c, err := semver.NewConstraint(s.Requires)
	if err != nil {
		return fmt.Errorf("requires: %w", err)
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("version %q: %w", version, err)
	}

	if !c.Check(v) {
		return fmt.Errorf("scenario %q requires reflow %s, have %s", s.Name, s.Requires, version)
	}
	return nil
}

// declared reports whether the first segment of path is a field or a computed field.
func (s *Scenario) declared(path string) bool {
	name := root(path)
	if _, ok := s.Fields[name]; ok {
		return true
	}
	_, ok := s.Computed[name]
	return ok
}

func root(path string) string {
	name, _, _ := strings.Cut(path, ".")
	return name
}
