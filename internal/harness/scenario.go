package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mealledger/internal/layout"
	"github.com/roach88/mealledger/internal/ledger"
	"github.com/roach88/mealledger/internal/store"
)

// Scenario defines a ledger scenario: documents to ingest, registry steps
// and assertions on the resulting reports.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RefData is a CUE reference data file, relative to the scenario file.
	// The embedded default set is used when empty.
	RefData string `yaml:"refdata,omitempty"`

	// RunID is the fixed ingestion run id. Defaults to "test-id-default".
	RunID string `yaml:"run_id,omitempty"`

	// Documents are the extractor dumps steps can ingest by name.
	Documents []layout.Document `yaml:"documents,omitempty"`

	// Steps run in order against one ledger.
	Steps []Step `yaml:"steps"`

	// Assertions validate the ledger after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation on the ledger. Exactly one operation is set.
type Step struct {
	// Ingest names the documents to ingest in one run, in input order.
	Ingest []string `yaml:"ingest,omitempty"`

	// Strike registers a strike day.
	Strike *StrikeStep `yaml:"strike,omitempty"`

	// Manual writes a hand-typed correction.
	Manual *store.ManualEntry `yaml:"manual,omitempty"`

	// Assign pins a school to a territory.
	Assign *AssignStep `yaml:"assign,omitempty"`

	// Sync reconciles school assignments with the territory definitions.
	Sync bool `yaml:"sync,omitempty"`

	// Expect is matched against the ingest report of this step (subset).
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

func (s Step) operations() int {
	n := 0
	if len(s.Ingest) > 0 {
		n++
	}
	if s.Strike != nil {
		n++
	}
	if s.Manual != nil {
		n++
	}
	if s.Assign != nil {
		n++
	}
	if s.Sync {
		n++
	}
	return n
}

// StrikeStep is a strike day as written in scenarios.
type StrikeStep struct {
	SchoolYear string `yaml:"school_year"`
	WeekNumber string `yaml:"week_number"`
	Day        string `yaml:"day"`
	Date       string `yaml:"date,omitempty"`
}

// StrikeDay converts the step, validating the weekday.
func (s StrikeStep) StrikeDay() (ledger.StrikeDay, error) {
	day, err := ledger.ParseWeekday(s.Day)
	if err != nil {
		return ledger.StrikeDay{}, err
	}
	return ledger.StrikeDay{
		SchoolYear: s.SchoolYear,
		WeekNumber: s.WeekNumber,
		Day:        day,
		Date:       s.Date,
	}, nil
}

// AssignStep pins School to Territory.
type AssignStep struct {
	School    string `yaml:"school"`
	Territory string `yaml:"territory"`
}

// Assertion validates the ledger after the last step.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Filter narrows record_count, summary and rollup queries. Keys are
	// school_year, week_number, base_school, school_type and territory.
	Filter map[string]string `yaml:"filter,omitempty"`

	// Territory names the rollup territory.
	Territory string `yaml:"territory,omitempty"`

	// Week pins the current week of a compliance check.
	Week int `yaml:"week,omitempty"`

	// SchoolYear restricts a compliance check.
	SchoolYear string `yaml:"school_year,omitempty"`

	// Document and Transition select trace events.
	Document   string `yaml:"document,omitempty"`
	Transition string `yaml:"transition,omitempty"`

	// Where selects one row (subset match).
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect lists expected field values of the selection (subset match).
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of matches for record_count and trace_count.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRecord        = "record"
	AssertRecordCount   = "record_count"
	AssertSummary       = "summary"
	AssertRollup        = "rollup"
	AssertCompliance    = "compliance"
	AssertSchool        = "school"
	AssertDocument      = "document"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
)

var filterKeys = map[string]bool{
	"school_year": true,
	"week_number": true,
	"base_school": true,
	"school_type": true,
	"territory":   true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields, or is missing required fields. RefData is resolved relative to the
// scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.RefData != "" && !filepath.IsAbs(scenario.RefData) {
		scenario.RefData = filepath.Join(filepath.Dir(path), scenario.RefData)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.RefData != "" {
		if _, err := os.Stat(s.RefData); err != nil {
			return fmt.Errorf("refdata file not found: %s", s.RefData)
		}
	}

	docs := make(map[string]bool, len(s.Documents))
	for i, d := range s.Documents {
		if d.Name == "" {
			return fmt.Errorf("documents[%d]: name is required", i)
		}
		if docs[d.Name] {
			return fmt.Errorf("documents[%d]: duplicate name %q", i, d.Name)
		}
		docs[d.Name] = true
	}

	for i, step := range s.Steps {
		if n := step.operations(); n != 1 {
			return fmt.Errorf("steps[%d]: exactly one operation is required, got %d", i, n)
		}
		for _, name := range step.Ingest {
			if !docs[name] {
				return fmt.Errorf("steps[%d]: unknown document %q", i, name)
			}
		}
		if step.Expect != nil && len(step.Ingest) == 0 {
			return fmt.Errorf("steps[%d]: expect is only valid on ingest steps", i)
		}
		if step.Strike != nil {
			if _, err := step.Strike.StrikeDay(); err != nil {
				return fmt.Errorf("steps[%d].strike: %w", i, err)
			}
		}
		if step.Assign != nil && (step.Assign.School == "" || step.Assign.Territory == "") {
			return fmt.Errorf("steps[%d].assign: school and territory are required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	for key := range a.Filter {
		if !filterKeys[key] {
			return fmt.Errorf("assertions[%d]: unknown filter key %q", index, key)
		}
	}

	switch a.Type {
	case AssertRecord, AssertSummary, AssertSchool, AssertDocument:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for %s", index, a.Type)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertRecordCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertRollup:
		if a.Territory == "" {
			return fmt.Errorf("assertions[%d]: territory is required for rollup", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for rollup", index)
		}
	case AssertCompliance:
		if a.Week < 1 || a.Week > 53 {
			return fmt.Errorf("assertions[%d]: week must be between 1 and 53 for compliance", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for compliance", index)
		}
	case AssertTraceContains:
		if a.Document == "" || a.Transition == "" {
			return fmt.Errorf("assertions[%d]: document and transition are required for trace_contains", index)
		}
	case AssertTraceCount:
		if a.Document == "" || a.Transition == "" {
			return fmt.Errorf("assertions[%d]: document and transition are required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
