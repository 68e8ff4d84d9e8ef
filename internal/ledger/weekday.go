package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Weekday is a delivery day. Only the five school days exist.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
)

// Weekdays lists the school days in calendar order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// CountedWeekdays lists the days that contribute to totals.
var CountedWeekdays = []Weekday{Monday, Tuesday, Thursday, Friday}

// ErrInvalidWeekday is returned when a day name is not a school day.
var ErrInvalidWeekday = errors.New("invalid weekday")

// ParseWeekday accepts the english day names, case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	d := Weekday(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
	}
	return d, nil
}

// Valid reports whether d is one of the five school days.
func (d Weekday) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday:
		return true
	}
	return false
}

// Counted reports whether values for d are included in totals.
func (d Weekday) Counted() bool {
	return d.Valid() && d != Wednesday
}
