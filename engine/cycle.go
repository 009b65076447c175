/*
cycle.go - Billing period resolution

PURPOSE:
  A gig worker's bills do not follow the calendar month: rent may run from
  the 20th to the 19th, a card statement from the 5th to the 4th. The
  resolver turns an arbitrary reference date plus a configured cycle
  start/end day into the concrete [start, end] window containing that date.

TWO TOPOLOGIES:
  Non-wrapping (end day >= start day): the cycle sits inside one calendar
  month. The window shifts a whole month back or forward when the reference
  date falls outside it.

  Wrapping (end day < start day): the cycle starts in month M and ends in
  month M+1. A reference on/after this month's start boundary opens the
  [thisMonth.start, nextMonth.end] window; anything earlier belongs to
  [prevMonth.start, thisMonth.end].

CLAMPING:
  A configured day 31 applied to February must mean the 28th (or 29th).
  Clamping is applied independently in every month a boundary lands in,
  so the window length flexes at short months instead of erroring.

AUTOMATIC END DAY:
  With no explicit end day, the cycle ends the day before the next start
  day - except when the start day is 1, where the cycle is the plain
  calendar month and ends on that month's last day. The asymmetry is
  deliberate product behavior; do not unify the two rules.
*/
package engine

import (
	"strconv"
	"time"
)

// =============================================================================
// PERIOD - Inclusive [Start, End] window at day granularity
// =============================================================================

type Period struct {
	Start LocalDate
	End   LocalDate
}

// Contains reports whether the date is within the period [Start, End].
func (p Period) Contains(d LocalDate) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns every day of the period in order.
func (p Period) Days() []LocalDate {
	var days []LocalDate
	for cur := p.Start; cur.BeforeOrEqual(p.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

// Length returns the number of days in the period.
func (p Period) Length() int { return DaysBetween(p.Start, p.End) + 1 }

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// CYCLE CONFIGURATION
// =============================================================================

// CycleConfig holds the user's billing cycle boundaries. EndDay nil means
// automatic: the day before the next StartDay, or the month's last day when
// StartDay is 1.
type CycleConfig struct {
	StartDay int
	EndDay   *int
}

// Validate rejects day values outside 1..31. This is the settings-entry
// check; Resolve itself assumes a valid configuration.
func (c CycleConfig) Validate() error {
	if c.StartDay < 1 || c.StartDay > 31 {
		return &FieldError{Field: "startDay", Value: strconv.Itoa(c.StartDay), Err: ErrInvalidCycleDay}
	}
	if c.EndDay != nil && (*c.EndDay < 1 || *c.EndDay > 31) {
		return &FieldError{Field: "endDay", Value: strconv.Itoa(*c.EndDay), Err: ErrInvalidCycleDay}
	}
	return nil
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolve returns the billing period containing the reference date. It
// always succeeds for a valid configuration: every date belongs to exactly
// one window, and re-resolving with any date inside the returned window
// yields the identical window.
func (c CycleConfig) Resolve(ref LocalDate) Period {
	year, month := ref.Year(), ref.Month()

	// Automatic end day: the day before the next start, except start day 1
	// which means a plain calendar month.
	endDay := c.StartDay - 1
	if c.EndDay != nil {
		endDay = *c.EndDay
	} else if c.StartDay == 1 {
		endDay = DaysInMonth(year, month)
	}

	currentStart := cycleBoundary(year, month, c.StartDay)
	currentEnd := cycleBoundary(year, month, endDay)

	if endDay < c.StartDay {
		// Wrapping: the cycle crosses the month turn.
		if ref.AfterOrEqual(currentStart) {
			return Period{
				Start: currentStart,
				End:   cycleBoundary(year, month+1, endDay),
			}
		}
		return Period{
			Start: cycleBoundary(year, month-1, c.StartDay),
			End:   currentEnd,
		}
	}

	// Non-wrapping: the cycle sits inside one calendar month.
	switch {
	case ref.After(currentEnd):
		return Period{
			Start: cycleBoundary(year, month+1, c.StartDay),
			End:   cycleBoundary(year, month+1, endDay),
		}
	case ref.Before(currentStart):
		return Period{
			Start: cycleBoundary(year, month-1, c.StartDay),
			End:   cycleBoundary(year, month-1, endDay),
		}
	default:
		return Period{Start: currentStart, End: currentEnd}
	}
}

// ResolveOffset returns the period offset whole months from the one
// containing the reference date. Used by the period pager: offset -1 is the
// previous cycle's view, +1 the next.
func (c CycleConfig) ResolveOffset(ref LocalDate, offset int) Period {
	return c.Resolve(ref.AddMonths(offset))
}

// cycleBoundary places a configured day number inside a concrete month,
// clamping it to the month's length. The month argument may be out of
// range (0 or 13); it normalizes into the adjacent year.
func cycleBoundary(year int, month time.Month, day int) LocalDate {
	first := NewLocalDate(year, month, 1)
	max := DaysInMonth(first.Year(), first.Month())
	if day > max {
		day = max
	}
	return NewLocalDate(first.Year(), first.Month(), day)
}
