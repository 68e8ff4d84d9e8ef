// Package refdata loads the territory, calendar and exception reference set.
//
// Reference data is authored in CUE and unified with an embedded schema
// before being decoded, so malformed files are rejected with a source
// position rather than producing a half-filled configuration. When no file
// is given the embedded production set is used.
package refdata

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/mealledger/internal/ledger"
)

//go:embed schema.cue
var schemaCUE string

//go:embed default.cue
var defaultCUE []byte

// DefaultRolloverThreshold is used when the calendar omits rollover_threshold.
const DefaultRolloverThreshold = 30

// Calendar is the ordered academic cadence of expected delivery weeks.
type Calendar struct {
	Weeks             []int `json:"weeks"`
	RolloverThreshold int   `json:"rollover_threshold,omitempty"`
}

// Exception restricts the weeks due for schools whose name contains Match.
type Exception struct {
	Match            string `json:"match"`
	MaxWeekInclusive int    `json:"max_week_inclusive"`
}

// RefData is the decoded reference set.
type RefData struct {
	Version     string             `json:"version,omitempty"`
	Territories []ledger.Territory `json:"territories"`
	Calendar    Calendar           `json:"calendar"`
	Exceptions  []Exception        `json:"exceptions,omitempty"`
}

// Territory returns the definition with the given name.
func (r *RefData) Territory(name string) (ledger.Territory, bool) {
	for _, t := range r.Territories {
		if t.Name == name {
			return t, true
		}
	}
	return ledger.Territory{}, false
}

// TerritoryNames returns the territory names in lot order.
func (r *RefData) TerritoryNames() []string {
	names := make([]string, 0, len(r.Territories))
	for _, t := range r.Territories {
		names = append(names, t.Name)
	}
	return names
}

// ConfigError reports an invalid reference file with its source position.
type ConfigError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the embedded production reference set.
func Default() (*RefData, error) {
	return Parse("default.cue", defaultCUE)
}

// Load reads and validates a CUE reference file. An empty path selects the
// embedded default.
func Load(path string) (*RefData, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference data: %w", err)
	}
	return Parse(path, data)
}

// Parse compiles src, unifies it with the #RefData schema and decodes it.
func Parse(filename string, src []byte) (*RefData, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#RefData")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var rd RefData
	if err := unified.Decode(&rd); err != nil {
		return nil, formatCUEError(err)
	}
	if rd.Calendar.RolloverThreshold == 0 {
		rd.Calendar.RolloverThreshold = DefaultRolloverThreshold
	}
	if err := rd.check(unified); err != nil {
		return nil, err
	}
	return &rd, nil
}

// check enforces the cross-field rules CUE constraints cannot express
// without comprehensions: unique lots, unique names, unique weeks.
func (r *RefData) check(v cue.Value) error {
	lots := make(map[int]bool)
	names := make(map[string]bool)
	for i, t := range r.Territories {
		pos := v.LookupPath(cue.MakePath(cue.Str("territories"), cue.Index(i))).Pos()
		if t.Name == ledger.Unassigned {
			return &ConfigError{Field: "territories", Message: fmt.Sprintf("%q is reserved", t.Name), Pos: pos}
		}
		if lots[t.Lot] {
			return &ConfigError{Field: "territories", Message: fmt.Sprintf("duplicate lot %d", t.Lot), Pos: pos}
		}
		if names[t.Name] {
			return &ConfigError{Field: "territories", Message: fmt.Sprintf("duplicate territory %q", t.Name), Pos: pos}
		}
		lots[t.Lot] = true
		names[t.Name] = true
	}
	sort.SliceStable(r.Territories, func(i, j int) bool {
		return r.Territories[i].Lot < r.Territories[j].Lot
	})

	weeks := make(map[int]bool)
	for _, w := range r.Calendar.Weeks {
		if weeks[w] {
			pos := v.LookupPath(cue.ParsePath("calendar.weeks")).Pos()
			return &ConfigError{Field: "calendar.weeks", Message: fmt.Sprintf("duplicate week %d", w), Pos: pos}
		}
		weeks[w] = true
	}
	return nil
}

func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ConfigError{Field: "cue", Message: err.Error()}
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) == 0 {
		return &ConfigError{Field: "cue", Message: first.Error()}
	}
	return &ConfigError{Field: "cue", Message: first.Error(), Pos: positions[0]}
}
