// Package recurrence computes due dates for repeating tasks.
package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// ErrInvalidRule is returned for schedules that cannot produce a next date.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Rule is a complete schedule. DaysOfWeek uses 0 for Sunday through 6 for
// Saturday and only applies to weekly rules; DayOfMonth only applies to
// monthly rules.
type Rule struct {
	Frequency  Frequency
	Interval   int
	DaysOfWeek []int
	DayOfMonth *int
}

// Validate checks the rule without computing anything.
func (r Rule) Validate() error {
	if !r.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, r.Frequency)
	}
	if r.Interval < 1 {
		return fmt.Errorf("%w: interval must be at least 1", ErrInvalidRule)
	}
	if r.DayOfMonth != nil && (*r.DayOfMonth < 1 || *r.DayOfMonth > 31) {
		return fmt.Errorf("%w: day_of_month must be between 1 and 31", ErrInvalidRule)
	}
	for _, d := range r.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: days_of_week entries must be between 0 and 6", ErrInvalidRule)
		}
	}
	return nil
}

// Next advances current by interval units of freq. Monthly rules land on
// dayOfMonth when given, otherwise on current's day; in both cases a day past
// the end of the target month is clamped to its last day. Yearly rules clamp
// Feb 29 the same way. The time of day is kept.
func Next(current time.Time, freq Frequency, interval int, dayOfMonth *int) (time.Time, error) {
	if err := (Rule{Frequency: freq, Interval: interval, DayOfMonth: dayOfMonth}).Validate(); err != nil {
		return time.Time{}, err
	}

	switch freq {
	case Daily:
		return current.AddDate(0, 0, interval), nil
	case Weekly:
		return current.AddDate(0, 0, 7*interval), nil
	case Monthly:
		day := current.Day()
		if dayOfMonth != nil {
			day = *dayOfMonth
		}
		months := int(current.Month()) - 1 + interval
		year := current.Year() + months/12
		month := time.Month(months%12 + 1)
		return at(current, year, month, day), nil
	default: // Yearly
		return at(current, current.Year()+interval, current.Month(), current.Day()), nil
	}
}

// NextOccurrence is Next with days_of_week honoured: a weekly rule with days
// selected moves to the next selected day of the current week, or to the first
// selected day interval weeks later. Weeks start on Monday.
func NextOccurrence(rule Rule, current time.Time) (time.Time, error) {
	if err := rule.Validate(); err != nil {
		return time.Time{}, err
	}
	if rule.Frequency != Weekly || len(rule.DaysOfWeek) == 0 {
		return Next(current, rule.Frequency, rule.Interval, rule.DayOfMonth)
	}

	days := make([]int, 0, len(rule.DaysOfWeek))
	for _, d := range rule.DaysOfWeek {
		days = append(days, mondayIndex(time.Weekday(d)))
	}
	sort.Ints(days)

	today := mondayIndex(current.Weekday())
	for _, d := range days {
		if d > today {
			return current.AddDate(0, 0, d-today), nil
		}
	}

	weekStart := current.AddDate(0, 0, -today)
	return weekStart.AddDate(0, 0, 7*rule.Interval+days[0]), nil
}

// IsDue reports whether a schedule should fire at now.
func IsDue(active bool, next time.Time, end *time.Time, now time.Time) bool {
	if !active || next.After(now) {
		return false
	}
	return end == nil || !end.Before(now)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

func at(clock time.Time, year int, month time.Month, day int) time.Time {
	if last := DaysIn(year, month, clock.Location()); day > last {
		day = last
	}
	return time.Date(year, month, day, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), clock.Location())
}

func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
