package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mealledger/internal/layout"
	"github.com/roach88/mealledger/internal/ledger"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ref.cue"), []byte("// placeholder"), 0644))

	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
refdata: ref.cue
documents:
  - name: week12.txt
    lines: ["Meal order week 12"]
steps:
  - ingest: [week12.txt]
    expect: {processed: 1}
  - strike: {school_year: 2023-2024, week_number: "12", day: Monday}
  - manual:
      school: SCHOOL ALPHA
      week_number: "12"
      school_year: 2023-2024
      rows: [{regime: STANDARD, monday: 1}]
  - assign: {school: SCHOOL ALPHA, territory: NORTH}
  - sync: true
assertions:
  - type: record
    where: {base_school: SCHOOL ALPHA}
    expect: {monday: 1}
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, filepath.Join(dir, "ref.cue"), scenario.RefData, "refdata resolves next to the scenario")
	require.Len(t, scenario.Documents, 1)
	assert.Equal(t, []string{"Meal order week 12"}, scenario.Documents[0].Lines)
	require.Len(t, scenario.Steps, 5)
	assert.Equal(t, 1, scenario.Steps[0].Expect["processed"])
	assert.Equal(t, "SCHOOL ALPHA", scenario.Steps[2].Manual.School)
	assert.Equal(t, int64(1), scenario.Steps[2].Manual.Rows[0].Monday)
	assert.True(t, scenario.Steps[4].Sync)

	strike, err := scenario.Steps[1].Strike.StrikeDay()
	require.NoError(t, err)
	assert.Equal(t, ledger.Monday, strike.Day)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: typo
description: "assertion instead of assertions"
steps:
  - sync: true
assertion:
  - type: school
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingRefData(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: missing_refdata
description: "points at nothing"
refdata: nowhere.cue
steps:
  - sync: true
assertions:
  - type: record_count
    count: 0
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refdata file not found")
}

func TestValidateScenario(t *testing.T) {
	valid := func() *Scenario {
		return &Scenario{
			Name:        "valid",
			Description: "valid",
			Documents:   []layout.Document{{Name: "a.txt"}},
			Steps:       []Step{{Ingest: []string{"a.txt"}}},
			Assertions:  []Assertion{{Type: AssertRecordCount}},
		}
	}
	require.NoError(t, validateScenario(valid()))

	tests := []struct {
		name   string
		mutate func(s *Scenario)
		want   string
	}{
		{"name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"steps", func(s *Scenario) { s.Steps = nil }, "steps list is required"},
		{"assertions", func(s *Scenario) { s.Assertions = nil }, "assertions list is required"},
		{"unnamed document", func(s *Scenario) { s.Documents[0].Name = "" }, "documents[0]: name is required"},
		{"duplicate document", func(s *Scenario) {
			s.Documents = append(s.Documents, layout.Document{Name: "a.txt"})
		}, "duplicate name"},
		{"no operation", func(s *Scenario) { s.Steps[0] = Step{} }, "exactly one operation is required, got 0"},
		{"two operations", func(s *Scenario) { s.Steps[0].Sync = true }, "exactly one operation is required, got 2"},
		{"unknown document", func(s *Scenario) { s.Steps[0].Ingest = []string{"b.txt"} }, `unknown document "b.txt"`},
		{"expect outside ingest", func(s *Scenario) {
			s.Steps = append(s.Steps, Step{Sync: true, Expect: map[string]interface{}{"processed": 1}})
		}, "expect is only valid on ingest steps"},
		{"bad weekday", func(s *Scenario) {
			s.Steps = append(s.Steps, Step{Strike: &StrikeStep{SchoolYear: "2023-2024", WeekNumber: "12", Day: "saturday"}})
		}, "invalid weekday"},
		{"assign without territory", func(s *Scenario) {
			s.Steps = append(s.Steps, Step{Assign: &AssignStep{School: "SCHOOL ALPHA"}})
		}, "school and territory are required"},
		{"assertion type", func(s *Scenario) { s.Assertions[0].Type = "" }, "type is required"},
		{"unknown assertion type", func(s *Scenario) { s.Assertions[0].Type = "final_state" }, `unknown assertion type "final_state"`},
		{"unknown filter key", func(s *Scenario) {
			s.Assertions[0].Filter = map[string]string{"regime": "HALAL"}
		}, `unknown filter key "regime"`},
		{"record without where", func(s *Scenario) {
			s.Assertions[0] = Assertion{Type: AssertRecord, Expect: map[string]interface{}{"monday": 1}}
		}, "where is required for record"},
		{"rollup without territory", func(s *Scenario) {
			s.Assertions[0] = Assertion{Type: AssertRollup, Expect: map[string]interface{}{"grand_total": 1}}
		}, "territory is required for rollup"},
		{"compliance week", func(s *Scenario) {
			s.Assertions[0] = Assertion{Type: AssertCompliance, Week: 54, Expect: map[string]interface{}{"current_week": "54"}}
		}, "week must be between 1 and 53"},
		{"trace without transition", func(s *Scenario) {
			s.Assertions[0] = Assertion{Type: AssertTraceCount, Document: "a.txt"}
		}, "document and transition are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := validateScenario(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
