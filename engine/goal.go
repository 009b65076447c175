/*
goal.go - Daily target allocation and timeline bucketing

PURPOSE:
  Answers the rider's question: "how much do I need to make today?". The
  allocator spreads the period's outstanding gap across the days still
  available for work, skipping marked days off. The bucketer then folds the
  remaining days into week-sized chunks so the target reads as a schedule
  ("this week: 5 days, 300") instead of a bare number.

EXPECTED STATES, NOT ERRORS:
  - Gap already closed: target is zero, flagged as goal met.
  - No work days left: the gap is reported as a lump sum, flagged as cycle
    ended, rather than dividing by zero.
  Both are successful outputs of a pure function.
*/
package engine

import "time"

// =============================================================================
// DAILY TARGET
// =============================================================================

// DailyTarget is the allocation result for the current cycle view.
type DailyTarget struct {
	Target            Money
	RemainingWorkDays int

	// FutureWorkDays excludes today; TodayIsWorkDay tells whether today is
	// part of the remaining count.
	FutureWorkDays int
	TodayIsWorkDay bool

	// GoalMet: the gap was already zero or negative.
	// CycleEnded: no workable days remain, Target holds the gap as a lump.
	GoalMet    bool
	CycleEnded bool
}

// ComputeDailyTarget distributes the outstanding gap across the work days
// remaining in [today, period.End]. Today counts only if it is itself a
// work day. A zero-or-negative gap always yields a zero target.
func ComputeDailyTarget(gap Money, period Period, daysOff DateSet, today LocalDate) DailyTarget {
	t := DailyTarget{Target: Zero()}

	for cur := today; cur.BeforeOrEqual(period.End); cur = cur.AddDays(1) {
		if daysOff.Contains(cur.Canonical()) {
			continue
		}
		if SameDay(cur, today) {
			t.TodayIsWorkDay = true
		} else {
			t.FutureWorkDays++
		}
	}
	t.RemainingWorkDays = t.FutureWorkDays
	if t.TodayIsWorkDay {
		t.RemainingWorkDays++
	}

	if !gap.IsPositive() {
		t.GoalMet = true
		return t
	}

	if t.RemainingWorkDays == 0 {
		t.Target = gap
		t.CycleEnded = true
		return t
	}

	t.Target = gap.DivInt(t.RemainingWorkDays)
	return t
}

// ForecastDailyTarget previews a future cycle: the gap spread over every
// workable day of the whole window, since none of them has passed yet.
func ForecastDailyTarget(gap Money, period Period, daysOff DateSet) DailyTarget {
	t := DailyTarget{Target: Zero()}
	for _, day := range period.Days() {
		if !daysOff.Contains(day.Canonical()) {
			t.RemainingWorkDays++
		}
	}
	if !gap.IsPositive() {
		t.GoalMet = true
		return t
	}
	if t.RemainingWorkDays == 0 {
		t.Target = gap
		t.CycleEnded = true
		return t
	}
	t.Target = gap.DivInt(t.RemainingWorkDays)
	return t
}

// =============================================================================
// TIMELINE BUCKETER
// =============================================================================

type TimelineBlockKind string

const (
	// BlockCurrentWeek is the remainder of the week containing today.
	BlockCurrentWeek TimelineBlockKind = "current_week"
	// BlockFullWeek is a complete Monday-to-Sunday week.
	BlockFullWeek TimelineBlockKind = "week"
	// BlockRemainder is the partial tail ending at the cycle boundary.
	BlockRemainder TimelineBlockKind = "remainder"
)

// TimelineBlock is one weekly chunk of the remaining cycle.
type TimelineBlock struct {
	Kind     TimelineBlockKind
	Start    LocalDate
	End      LocalDate
	WorkDays int
	SubGoal  Money // WorkDays x daily target
}

// BuildTimeline groups the days from today to the cycle end into weekly
// buckets. Weeks close on Sunday; the final bucket closes at the period end
// whatever the weekday. Buckets without work days are dropped, except the
// very first one - "this week" stays visible even when fully off.
func BuildTimeline(period Period, daysOff DateSet, today LocalDate, target Money) []TimelineBlock {
	var blocks []TimelineBlock
	if today.After(period.End) {
		return blocks
	}

	blockStart := today
	workDays := 0

	for cur := today; cur.BeforeOrEqual(period.End); cur = cur.AddDays(1) {
		if !daysOff.Contains(cur.Canonical()) {
			workDays++
		}

		isSunday := cur.Weekday() == time.Sunday
		isLast := SameDay(cur, period.End)
		if !isSunday && !isLast {
			continue
		}

		first := len(blocks) == 0
		if workDays > 0 || first {
			kind := BlockFullWeek
			if first {
				kind = BlockCurrentWeek
			} else if isLast {
				kind = BlockRemainder
			}
			blocks = append(blocks, TimelineBlock{
				Kind:     kind,
				Start:    blockStart,
				End:      cur,
				WorkDays: workDays,
				SubGoal:  target.MulInt(workDays),
			})
		}
		blockStart = cur.AddDays(1)
		workDays = 0
	}
	return blocks
}

// =============================================================================
// SAVINGS - Reserve tracking alongside the daily goal
// =============================================================================

// SavingsPlan is the persisted reserve configuration: a per-day saving
// target, the days the user actually put the money aside, and ad-hoc
// adjustments (extra saved) and withdrawals keyed by day.
type SavingsPlan struct {
	DailyTarget Money
	SavedDates  []DateString
	Adjustments map[DateString]Money
	Withdrawals map[DateString]Money
}

// SavingsSummary is the derived reserve state.
type SavingsSummary struct {
	TotalSaved     Money
	TotalWithdrawn Money
	// ProjectedYearEnd assumes every remaining day of the year hits the
	// daily saving target.
	ProjectedYearEnd Money
}

// SummarizeSavings folds the plan into totals as of today.
func SummarizeSavings(plan SavingsPlan, today LocalDate) SavingsSummary {
	saved := plan.DailyTarget.MulInt(len(plan.SavedDates))
	for _, extra := range plan.Adjustments {
		saved = saved.Add(extra)
	}
	withdrawn := Zero()
	for _, w := range plan.Withdrawals {
		withdrawn = withdrawn.Add(w)
	}
	total := saved.Sub(withdrawn)

	endOfYear := NewLocalDate(today.Year(), time.December, 31)
	remaining := DaysBetween(today, endOfYear)
	if remaining < 0 {
		remaining = 0
	}

	return SavingsSummary{
		TotalSaved:       total,
		TotalWithdrawn:   withdrawn,
		ProjectedYearEnd: total.Add(plan.DailyTarget.MulInt(remaining)),
	}
}
