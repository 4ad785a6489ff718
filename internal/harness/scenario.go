package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cardbook/internal/catalog"
	"github.com/roach88/cardbook/internal/event"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is an inline album. Exactly one of Catalog and CatalogFile
	// must be set.
	Catalog *catalog.Album `yaml:"catalog,omitempty"`

	// CatalogFile is a catalog path, relative to the scenario file.
	CatalogFile string `yaml:"catalog_file,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after every step has run.
	Assertions []Assertion `yaml:"assertions"`

	// dir is the directory the scenario was loaded from.
	dir string
}

// Step is one scenario step. Exactly one field is set.
type Step struct {
	Assign     *AssignStep     `yaml:"assign,omitempty"`
	Concurrent *ConcurrentStep `yaml:"concurrent,omitempty"`
}

// AssignStep assigns one card to one user.
type AssignStep struct {
	User int64          `yaml:"user"`
	Card catalog.CardID `yaml:"card"`

	// Expect lists the events this assignment must publish, in order.
	// Nil skips the check; an empty list requires no events.
	Expect []ExpectedEvent `yaml:"expect,omitempty"`

	// ExpectError names the failure this assignment must produce.
	// The only supported value is "unknown_card".
	ExpectError string `yaml:"expect_error,omitempty"`
}

// ExpectedEvent is an event an AssignStep must publish.
type ExpectedEvent struct {
	Kind string        `yaml:"kind"`
	Set  catalog.SetID `yaml:"set,omitempty"`
}

// ConcurrentStep has Workers goroutines each assign every card of the
// catalog to users FirstUser..FirstUser+Users-1, Rounds times over, in a
// per-worker shuffled order.
type ConcurrentStep struct {
	Users     int   `yaml:"users"`
	Workers   int   `yaml:"workers"`
	Rounds    int   `yaml:"rounds"`
	FirstUser int64 `yaml:"first_user,omitempty"`
	Seed      int64 `yaml:"seed,omitempty"`
}

// Assertion validates the published events or the final collection state.
type Assertion struct {
	// Type is one of event_count, event_order, owns.
	Type string `yaml:"type"`

	// Kind is the event kind counted by event_count.
	Kind string `yaml:"kind,omitempty"`

	// User restricts event_count to one user; required by event_order
	// and owns.
	User *int64 `yaml:"user,omitempty"`

	// Count is the expected number of events (event_count).
	Count int `yaml:"count,omitempty"`

	// Kinds is the expected event sequence (event_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Card and Want check ownership (owns). Want defaults to true.
	Card catalog.CardID `yaml:"card,omitempty"`
	Want *bool          `yaml:"want,omitempty"`
}

// Assertion type constants.
const (
	AssertEventCount = "event_count"
	AssertEventOrder = "event_order"
	AssertOwns       = "owns"
)

// ExpectUnknownCard is the only ExpectError value.
const ExpectUnknownCard = "unknown_card"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	s.dir = filepath.Dir(path)

	if s.CatalogFile != "" {
		if _, err := os.Stat(s.catalogPath()); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: catalog file not found: %s", s.catalogPath())
		}
	}
	return s, nil
}

// ParseScenario parses and validates scenario YAML. A catalog_file is
// resolved against the current directory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// LoadScenarios loads every *.yaml scenario in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func (s *Scenario) catalogPath() string {
	if filepath.IsAbs(s.CatalogFile) || s.dir == "" {
		return s.CatalogFile
	}
	return filepath.Join(s.dir, s.CatalogFile)
}

// album returns the scenario's validated catalog.
func (s *Scenario) album() (catalog.Album, error) {
	if s.Catalog != nil {
		return catalog.Prepare(*s.Catalog)
	}
	return catalog.Load(s.catalogPath())
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if (s.Catalog == nil) == (s.CatalogFile == "") {
		return fmt.Errorf("exactly one of catalog and catalog_file is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	switch {
	case st.Assign != nil && st.Concurrent != nil:
		return fmt.Errorf("steps[%d]: assign and concurrent are mutually exclusive", index)
	case st.Assign != nil:
		a := st.Assign
		if a.ExpectError != "" && a.ExpectError != ExpectUnknownCard {
			return fmt.Errorf("steps[%d]: unknown expect_error %q", index, a.ExpectError)
		}
		if a.ExpectError != "" && a.Expect != nil {
			return fmt.Errorf("steps[%d]: expect and expect_error are mutually exclusive", index)
		}
		for j, e := range a.Expect {
			if _, err := event.ParseKind(e.Kind); err != nil {
				return fmt.Errorf("steps[%d].expect[%d]: %w", index, j, err)
			}
		}
	case st.Concurrent != nil:
		c := st.Concurrent
		if c.Users < 1 || c.Workers < 1 || c.Rounds < 1 {
			return fmt.Errorf("steps[%d]: concurrent users, workers and rounds must be positive", index)
		}
	default:
		return fmt.Errorf("steps[%d]: one of assign or concurrent is required", index)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventCount:
		if _, err := event.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertEventOrder:
		if a.User == nil {
			return fmt.Errorf("assertions[%d]: user is required for event_order", index)
		}
		for _, k := range a.Kinds {
			if _, err := event.ParseKind(k); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertOwns:
		if a.User == nil {
			return fmt.Errorf("assertions[%d]: user is required for owns", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
