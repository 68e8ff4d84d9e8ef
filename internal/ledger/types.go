package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// Unassigned is the territory sentinel for schools no definition matched.
const Unassigned = "Non assigné"

// DeliveryRecord is one regime row of meal counts delivered to a school for a week.
type DeliveryRecord struct {
	ID           int64  `json:"id,omitempty"`
	DocumentID   string `json:"document_id"`
	BaseSchool   string `json:"base_school"`
	SchoolType   string `json:"school_type"`
	Regime       string `json:"regime"`
	WeekNumber   string `json:"week_number"`
	SchoolYear   string `json:"school_year"` // "2023-2024", empty when the document had no date
	Monday       int64  `json:"monday"`
	Tuesday      int64  `json:"tuesday"`
	Wednesday    int64  `json:"wednesday"` // always 0, kept for schema parity
	Thursday     int64  `json:"thursday"`
	Friday       int64  `json:"friday"`
	Total        int64  `json:"total"` // set once at creation
	DocumentDate string `json:"document_date,omitempty"`
	Territory    string `json:"territory,omitempty"` // populated by joined reads only
}

// Key returns the deduplication key of the record.
func (r DeliveryRecord) Key() Key {
	return Key{
		BaseSchool: r.BaseSchool,
		SchoolType: r.SchoolType,
		WeekNumber: r.WeekNumber,
		SchoolYear: r.SchoolYear,
		Regime:     r.Regime,
	}
}

// Count returns the stored value for day.
func (r DeliveryRecord) Count(day Weekday) int64 {
	switch day {
	case Monday:
		return r.Monday
	case Tuesday:
		return r.Tuesday
	case Wednesday:
		return r.Wednesday
	case Thursday:
		return r.Thursday
	case Friday:
		return r.Friday
	}
	return 0
}

// SetCount stores v for day. Wednesday is ignored.
func (r *DeliveryRecord) SetCount(day Weekday, v int64) {
	switch day {
	case Monday:
		r.Monday = v
	case Tuesday:
		r.Tuesday = v
	case Thursday:
		r.Thursday = v
	case Friday:
		r.Friday = v
	}
}

// DayTotal sums the non-wednesday counts.
func (r DeliveryRecord) DayTotal() int64 {
	return r.Monday + r.Tuesday + r.Thursday + r.Friday
}

// Key identifies a delivery row. Several regimes coexist per school and week,
// so the regime is part of the natural key.
type Key struct {
	BaseSchool string
	SchoolType string
	WeekNumber string
	SchoolYear string
	Regime     string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", k.BaseSchool, k.SchoolType, k.WeekNumber, k.SchoolYear, k.Regime)
}

// SchoolDetail assigns a territory to a base school.
type SchoolDetail struct {
	SchoolName string `json:"school_name"`
	Territory  string `json:"territory"`
}

// Territory is a static lot definition: a named group of member schools.
type Territory struct {
	Lot     int      `json:"lot"`
	Name    string   `json:"name"`
	Schools []string `json:"schools"`
}

// Has reports whether school is one of the territory's declared members.
func (t Territory) Has(school string) bool {
	for _, s := range t.Schools {
		if s == school {
			return true
		}
	}
	return false
}

// StrikeDay is a (year, week, weekday) whose contributions are zeroed in aggregates.
type StrikeDay struct {
	ID         int64   `json:"id,omitempty"`
	SchoolYear string  `json:"school_year"`
	WeekNumber string  `json:"week_number"`
	Day        Weekday `json:"day"`
	Date       string  `json:"date,omitempty"`
}

// FormatWeek zero-pads a week number to two digits.
func FormatWeek(week int) string {
	return fmt.Sprintf("%02d", week)
}

// NormalizeWeek accepts "5", "05" or " 5 " and returns "05".
func NormalizeWeek(s string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid week number %q", s)
	}
	if n < 1 || n > 53 {
		return "", fmt.Errorf("week number %d out of range 1..53", n)
	}
	return FormatWeek(n), nil
}
