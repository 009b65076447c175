/*
calendar.go - Calendar-local date primitives

PURPOSE:
  LocalDate is a semantic (year, month, day) triple with no time-of-day and
  no timezone. Parsing and formatting are done by calendar-field
  construction, never by epoch conversion, so a stored YYYY-MM-DD string
  round-trips to the same calendar day on any host regardless of its
  timezone offset.

KEY FUNCTIONS:
  ParseLocalDate:   canonical string -> LocalDate (the only error boundary)
  String:           LocalDate -> canonical string (lossless inverse)
  DaysInMonth:      Gregorian month length with leap years
  StartOfISOWeek:   Monday of the date's week (Sunday belongs to the
                    previous week)

The backing value is a time.Time fixed at UTC midnight. That is an
implementation detail: no exported operation exposes clock time.
*/
package engine

import (
	"strings"
	"time"
)

// =============================================================================
// LOCAL DATE
// =============================================================================

type LocalDate struct {
	t time.Time
}

// NewLocalDate builds a date from calendar fields. Out-of-range fields
// normalize the way time.Date does (month 13 rolls into the next year),
// which the cycle resolver relies on for month-crossing arithmetic.
func NewLocalDate(year int, month time.Month, day int) LocalDate {
	return LocalDate{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseLocalDate parses a canonical YYYY-MM-DD string, tolerating a trailing
// time component (YYYY-MM-DDTHH:MM:SSZ becomes just the date part).
// Malformed input is a boundary error; internal code never re-validates.
func ParseLocalDate(s string) (LocalDate, error) {
	clean := s
	if i := strings.IndexByte(clean, 'T'); i >= 0 {
		clean = clean[:i]
	}
	t, err := time.Parse("2006-01-02", clean)
	if err != nil {
		return LocalDate{}, &FieldError{Field: "date", Value: s, Err: ErrMalformedDate}
	}
	return NewLocalDate(t.Year(), t.Month(), t.Day()), nil
}

// MustLocalDate parses a canonical date string and panics on malformed input.
// For literals in tests and fixtures only.
func MustLocalDate(s string) LocalDate {
	d, err := ParseLocalDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Today returns the current calendar day in the host's local clock,
// normalized to a LocalDate.
func Today() LocalDate {
	now := time.Now()
	return NewLocalDate(now.Year(), now.Month(), now.Day())
}

// Comparison
func (d LocalDate) Before(other LocalDate) bool        { return d.t.Before(other.t) }
func (d LocalDate) After(other LocalDate) bool         { return d.t.After(other.t) }
func (d LocalDate) Equal(other LocalDate) bool         { return d.t.Equal(other.t) }
func (d LocalDate) BeforeOrEqual(other LocalDate) bool { return !d.t.After(other.t) }
func (d LocalDate) AfterOrEqual(other LocalDate) bool  { return !d.t.Before(other.t) }
func (d LocalDate) IsZero() bool                       { return d.t.IsZero() }

// Arithmetic
func (d LocalDate) AddDays(n int) LocalDate   { return LocalDate{t: d.t.AddDate(0, 0, n)} }
func (d LocalDate) AddMonths(n int) LocalDate { return LocalDate{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d LocalDate) Year() int             { return d.t.Year() }
func (d LocalDate) Month() time.Month     { return d.t.Month() }
func (d LocalDate) Day() int              { return d.t.Day() }
func (d LocalDate) Weekday() time.Weekday { return d.t.Weekday() }

// String returns the canonical YYYY-MM-DD form.
func (d LocalDate) String() string { return d.t.Format("2006-01-02") }

// Canonical returns the date as a set-key DateString.
func (d LocalDate) Canonical() DateString { return DateString(d.String()) }

// MonthIndex returns year*12 + (month-1), a linear month counter used for
// installment numbering.
func (d LocalDate) MonthIndex() int { return d.Year()*12 + int(d.Month()) - 1 }

// =============================================================================
// CALENDAR HELPERS
// =============================================================================

// DaysInMonth returns the number of days in the given month, accounting for
// leap years. Day zero of the following month is the last day of this one.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// SameDay reports whether two dates are the same calendar day.
func SameDay(a, b LocalDate) bool { return a.Equal(b) }

// StartOfISOWeek returns the Monday on or before the date. Sunday is treated
// as day 7 of the prior week, so it maps to the previous Monday.
func StartOfISOWeek(d LocalDate) LocalDate {
	wd := int(d.Weekday())
	if wd == 0 {
		wd = 7
	}
	return d.AddDays(1 - wd)
}

// SameISOWeek reports whether two dates share a Monday-based week.
func SameISOWeek(a, b LocalDate) bool {
	return StartOfISOWeek(a).Equal(StartOfISOWeek(b))
}

// ISOWeek returns the ISO 8601 year and week number of the date.
func ISOWeek(d LocalDate) (year, week int) {
	return d.t.ISOWeek()
}

// DaysBetween returns the whole-day distance from one date to another.
// Negative when to precedes from.
func DaysBetween(from, to LocalDate) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}
