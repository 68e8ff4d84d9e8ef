package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/mealledger/internal/aggregate"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // assertion type
	Expected string // human-readable expected outcome
	Actual   string // human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	return buf.String()
}

// evaluate dispatches one assertion against the ledger and the run result.
func (h *Harness) evaluate(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertRecord:
		rows, err := h.engine.List(ctx, aggregate.Filter{})
		if err != nil {
			return err
		}
		return assertSelected(a, rows)

	case AssertRecordCount:
		rows, err := h.engine.List(ctx, toFilter(a.Filter))
		if err != nil {
			return err
		}
		maps, err := toMaps(rows)
		if err != nil {
			return err
		}
		if n := len(selectRows(maps, a.Where)); n != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d record(s) matching %s", a.Count, describe(a.Where)),
				Actual:   fmt.Sprintf("%d record(s)", n),
			}
		}
		return nil

	case AssertSummary:
		rows, err := h.engine.Summary(ctx, toFilter(a.Filter))
		if err != nil {
			return err
		}
		return assertSelected(a, rows)

	case AssertRollup:
		rollup, err := h.engine.TerritoryRollup(ctx, a.Territory, toFilter(a.Filter))
		if err != nil {
			return err
		}
		if len(a.Where) > 0 {
			return assertSelected(a, rollup.Rows)
		}
		return assertValue(a, rollup)

	case AssertCompliance:
		present, err := h.store.PresentWeeks(ctx, a.SchoolYear)
		if err != nil {
			return err
		}
		report := h.checker(a.Week).Check(present, "")
		if len(a.Where) > 0 {
			return assertSelected(a, report.Rows)
		}
		return assertValue(a, report)

	case AssertSchool:
		schools, err := h.store.ListSchools(ctx)
		if err != nil {
			return err
		}
		return assertSelected(a, schools)

	case AssertDocument:
		return assertSelected(a, h.result.Documents)

	case AssertTraceContains:
		return assertTraceContains(h.result.Trace, a)

	case AssertTraceCount:
		return assertTraceCount(h.result.Trace, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertSelected picks exactly one row matching Where and checks Expect.
func assertSelected(a Assertion, rows any) error {
	maps, err := toMaps(rows)
	if err != nil {
		return err
	}
	matches := selectRows(maps, a.Where)
	switch len(matches) {
	case 0:
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("a row matching %s", describe(a.Where)),
			Actual:   "no matching row",
		}
	case 1:
		return expectSubset(a.Type, matches[0], a.Expect)
	default:
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("exactly one row matching %s", describe(a.Where)),
			Actual:   fmt.Sprintf("%d rows (ambiguous where clause)", len(matches)),
		}
	}
}

// assertValue checks Expect against a single value.
func assertValue(a Assertion, v any) error {
	m, err := toMap(v)
	if err != nil {
		return err
	}
	return expectSubset(a.Type, m, a.Expect)
}

// assertTraceContains checks that the document logged a transition of the
// given kind, optionally on a line containing Where["line"].
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	needle, _ := a.Where["line"].(string)
	for _, ev := range trace {
		if ev.Type != EventTransition || ev.Document != a.Document || ev.Transition != a.Transition {
			continue
		}
		if strings.Contains(ev.Line, needle) {
			return nil
		}
	}
	expected := fmt.Sprintf("%s transition in %s", a.Transition, a.Document)
	if needle != "" {
		expected += fmt.Sprintf(" on a line containing %q", needle)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
	}
}

// assertTraceCount checks how many transitions of one kind a document logged.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Type == EventTransition && ev.Document == a.Document && ev.Transition == a.Transition {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s transition(s) in %s", a.Count, a.Transition, a.Document),
			Actual:   fmt.Sprintf("%d", count),
		}
	}
	return nil
}

// matchExpect checks an ingest step expectation against its report.
func matchExpect(label string, report any, expect map[string]interface{}) error {
	m, err := toMap(report)
	if err != nil {
		return err
	}
	return expectSubset(label, m, expect)
}

func expectSubset(label string, actual map[string]any, expect map[string]interface{}) error {
	var mismatches []string
	for _, key := range sortedKeys(expect) {
		got, ok := actual[key]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: missing", key))
			continue
		}
		if !valuesEqual(expect[key], got) {
			mismatches = append(mismatches, fmt.Sprintf("%s: got %v, want %v", key, got, expect[key]))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     label,
			Expected: describe(expect),
			Actual:   strings.Join(mismatches, "; "),
		}
	}
	return nil
}

// selectRows returns the rows whose fields include every where entry.
func selectRows(rows []map[string]any, where map[string]interface{}) []map[string]any {
	var out []map[string]any
	for _, row := range rows {
		if matchFields(row, where) {
			out = append(out, row)
		}
	}
	return out
}

func matchFields(row map[string]any, where map[string]interface{}) bool {
	for key, want := range where {
		got, ok := row[key]
		if !ok || !valuesEqual(want, got) {
			return false
		}
	}
	return true
}

// valuesEqual compares a YAML value against a decoded JSON value. Numbers
// compare by value; lists and maps compare element-wise.
func valuesEqual(expected, actual any) bool {
	return reflect.DeepEqual(normalize(expected), normalize(actual))
}

func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case []interface{}:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	}
	return v
}

// toMap converts a value to its JSON object form.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %T: %w", v, err)
	}
	return m, nil
}

// toMaps converts a slice to its JSON array-of-objects form.
func toMaps(v any) ([]map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode %T: %w", v, err)
	}
	return rows, nil
}

func toFilter(m map[string]string) aggregate.Filter {
	return aggregate.Filter{
		SchoolYear: m["school_year"],
		WeekNumber: m["week_number"],
		BaseSchool: m["base_school"],
		SchoolType: m["school_type"],
		Territory:  m["territory"],
	}
}

// describe formats a map with sorted keys for stable messages.
func describe(m map[string]interface{}) string {
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
