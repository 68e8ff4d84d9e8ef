// Package compliance measures how completely each school's weekly delivery
// documents cover the academic calendar up to the current week.
package compliance

import (
	"sort"
	"time"
)

// DefaultThreshold splits the calendar year: weeks below it belong to the
// second half of the academic year.
const DefaultThreshold = 30

// Calendar is the ordered list of weeks in which deliveries are expected.
//
// Weeks are ordered by academic weight: a week below the threshold weighs
// week+52, so January follows December.
type Calendar struct {
	weeks     []int
	threshold int
}

// NewCalendar sorts weeks by academic weight. A threshold of 0 selects
// DefaultThreshold.
func NewCalendar(weeks []int, threshold int) Calendar {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	c := Calendar{weeks: append([]int(nil), weeks...), threshold: threshold}
	sort.SliceStable(c.weeks, func(i, j int) bool {
		return c.Weight(c.weeks[i]) < c.Weight(c.weeks[j])
	})
	return c
}

// Weight is the position of week in the academic year.
func (c Calendar) Weight(week int) int {
	if week < c.threshold {
		return week + 52
	}
	return week
}

// Weeks returns the expected weeks in academic order.
func (c Calendar) Weeks() []int {
	return append([]int(nil), c.weeks...)
}

// WeeksDue returns the expected weeks up to and including current. When
// current is not an expected week, the weeks weighing no more than it are
// due. The result is empty before the first expected week.
func (c Calendar) WeeksDue(current int) []int {
	limit := c.Weight(current)
	due := []int{}
	for _, w := range c.weeks {
		if c.Weight(w) > limit {
			break
		}
		due = append(due, w)
	}
	return due
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ISOWeek returns the ISO 8601 week number of t.
func ISOWeek(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}
