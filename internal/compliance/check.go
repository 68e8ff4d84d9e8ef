package compliance

import (
	"math"
	"sort"
	"strings"

	"github.com/roach88/mealledger/internal/ledger"
)

// Exception caps the weeks due for schools whose upper-cased name contains
// Match: only expected weeks weighing no more than MaxWeekInclusive count.
type Exception struct {
	Match            string `json:"match"`
	MaxWeekInclusive int    `json:"max_week_inclusive"`
}

// Row is the compliance of one school.
type Row struct {
	SchoolName    string   `json:"school_name"`
	Percentage    int      `json:"percentage"`
	MissingWeeks  []string `json:"missing_weeks"`
	ExpectedCount int      `json:"expected_count"`
	ValidCount    int      `json:"valid_count"`
	IsException   bool     `json:"is_exception"`
}

// Report is the outcome of one check.
type Report struct {
	CurrentWeek string   `json:"current_week"`
	WeeksDue    []string `json:"weeks_due"`
	Rows        []Row    `json:"rows"`
}

// Checker evaluates schools against a calendar.
type Checker struct {
	calendar   Calendar
	exceptions []Exception
	clock      Clock
	week       int
}

// Option configures a Checker.
type Option func(*Checker)

// WithExceptions sets the per-school caps.
func WithExceptions(exceptions []Exception) Option {
	return func(c *Checker) {
		c.exceptions = exceptions
	}
}

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(c *Checker) {
		c.clock = clock
	}
}

// WithCurrentWeek pins the current week instead of reading the clock.
// Values outside 1..53 are ignored.
func WithCurrentWeek(week int) Option {
	return func(c *Checker) {
		if week >= 1 && week <= 53 {
			c.week = week
		}
	}
}

// NewChecker returns a checker over cal.
func NewChecker(cal Calendar, opts ...Option) *Checker {
	c := &Checker{calendar: cal, clock: SystemClock{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentWeek is the ISO week of the checker's clock, or the pinned week.
func (c *Checker) CurrentWeek() int {
	if c.week > 0 {
		return c.week
	}
	return ISOWeek(c.clock.Now())
}

// Check evaluates every school in present (base school → weeks with at
// least one record) against the weeks due at the current week. Rows are
// ordered by school name; a non-empty filter keeps schools whose name
// contains it, case-insensitively.
func (c *Checker) Check(present map[string][]int, filter string) Report {
	current := c.CurrentWeek()
	due := c.calendar.WeeksDue(current)

	schools := make([]string, 0, len(present))
	needle := strings.ToUpper(strings.TrimSpace(filter))
	for school := range present {
		if needle != "" && !strings.Contains(strings.ToUpper(school), needle) {
			continue
		}
		schools = append(schools, school)
	}
	sort.Strings(schools)

	report := Report{
		CurrentWeek: ledger.FormatWeek(current),
		WeeksDue:    formatWeeks(due),
		Rows:        make([]Row, 0, len(schools)),
	}
	for _, school := range schools {
		report.Rows = append(report.Rows, c.Evaluate(school, due, present[school]))
	}
	return report
}

// Evaluate computes one school's row from the weeks due and its present weeks.
func (c *Checker) Evaluate(school string, due, present []int) Row {
	row := Row{SchoolName: school, MissingWeeks: []string{}}

	if ex, ok := c.exception(school); ok {
		row.IsException = true
		limit := c.calendar.Weight(ex.MaxWeekInclusive)
		capped := make([]int, 0, len(due))
		for _, w := range due {
			if c.calendar.Weight(w) <= limit {
				capped = append(capped, w)
			}
		}
		due = capped
	}

	have := make(map[int]bool, len(present))
	for _, w := range present {
		have[w] = true
	}
	for _, w := range due {
		if have[w] {
			row.ValidCount++
		} else {
			row.MissingWeeks = append(row.MissingWeeks, ledger.FormatWeek(w))
		}
	}

	row.ExpectedCount = len(due)
	row.Percentage = percentage(row.ValidCount, row.ExpectedCount)
	return row
}

func (c *Checker) exception(school string) (Exception, bool) {
	upper := strings.ToUpper(school)
	for _, ex := range c.exceptions {
		if strings.Contains(upper, strings.ToUpper(ex.Match)) {
			return ex, true
		}
	}
	return Exception{}, false
}

// percentage rounds half away from zero; nothing due is full compliance.
func percentage(valid, expected int) int {
	if expected == 0 {
		return 100
	}
	return int(math.Round(100 * float64(valid) / float64(expected)))
}

func formatWeeks(weeks []int) []string {
	out := make([]string, len(weeks))
	for i, w := range weeks {
		out[i] = ledger.FormatWeek(w)
	}
	return out
}
