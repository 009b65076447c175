package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/engine"
)

func offs(dates ...string) engine.DateSet {
	ds := make([]engine.DateString, len(dates))
	for i, d := range dates {
		ds[i] = engine.DateString(d)
	}
	return engine.NewDateSet(ds)
}

// =============================================================================
// DAILY TARGET ALLOCATION
// =============================================================================

func TestDailyTarget_GapSpreadAcrossWorkDays(t *testing.T) {
	// GIVEN: 300 outstanding, cycle ends in 6 days, 1 of them is off,
	//        today is a work day
	// THEN:  5 remaining work days, 60 per day

	period := engine.Period{Start: date(2024, time.May, 20), End: date(2024, time.June, 15)}
	today := date(2024, time.June, 10)

	res := engine.ComputeDailyTarget(money(300), period, offs("2024-06-12"), today)

	assert.Equal(t, 5, res.RemainingWorkDays)
	assert.True(t, res.TodayIsWorkDay)
	assert.Equal(t, 4, res.FutureWorkDays)
	assert.True(t, res.Target.Equal(money(60)), "target %s", res.Target)
	assert.False(t, res.CycleEnded)
	assert.False(t, res.GoalMet)
}

func TestDailyTarget_TodayOffExcludedFromCount(t *testing.T) {
	period := engine.Period{Start: date(2024, time.May, 20), End: date(2024, time.June, 15)}
	today := date(2024, time.June, 10)

	res := engine.ComputeDailyTarget(money(300), period, offs("2024-06-10"), today)

	assert.False(t, res.TodayIsWorkDay)
	assert.Equal(t, 5, res.RemainingWorkDays) // 11th..15th
	assert.True(t, res.Target.Equal(money(60)))
}

func TestDailyTarget_ZeroGapAlwaysZeroTarget(t *testing.T) {
	// The goal-met state wins regardless of the day count.
	period := engine.Period{Start: date(2024, time.May, 20), End: date(2024, time.June, 15)}

	for _, today := range []engine.LocalDate{
		date(2024, time.June, 10),
		date(2024, time.June, 15),
		date(2024, time.June, 16), // past the cycle end
	} {
		res := engine.ComputeDailyTarget(money(0), period, nil, today)
		assert.True(t, res.Target.IsZero())
		assert.True(t, res.GoalMet)
		assert.False(t, res.CycleEnded)
	}
}

func TestDailyTarget_CycleExhausted_LumpFigure(t *testing.T) {
	// GIVEN: Every remaining day is off
	// THEN: The gap is reported whole, flagged as cycle ended, instead of
	//       dividing by zero

	period := engine.Period{Start: date(2024, time.May, 20), End: date(2024, time.June, 11)}
	today := date(2024, time.June, 10)

	res := engine.ComputeDailyTarget(money(250), period, offs("2024-06-10", "2024-06-11"), today)

	assert.Equal(t, 0, res.RemainingWorkDays)
	assert.True(t, res.CycleEnded)
	assert.True(t, res.Target.Equal(money(250)))
}

func TestDailyTarget_TodayPastWindowEnd(t *testing.T) {
	period := engine.Period{Start: date(2024, time.May, 20), End: date(2024, time.June, 15)}
	res := engine.ComputeDailyTarget(money(100), period, nil, date(2024, time.June, 20))

	assert.Equal(t, 0, res.RemainingWorkDays)
	assert.True(t, res.CycleEnded)
}

func TestDailyTarget_DecimalPrecision(t *testing.T) {
	// 100 across 3 days must not drift when re-aggregated.
	period := engine.Period{Start: date(2024, time.June, 10), End: date(2024, time.June, 12)}
	res := engine.ComputeDailyTarget(money(100), period, nil, date(2024, time.June, 10))

	require.Equal(t, 3, res.RemainingWorkDays)
	sum := res.Target.MulInt(3)
	diff := sum.Sub(money(100))
	assert.True(t, diff.Value.Abs().LessThan(money(0.0000001).Value), "3 x target = %s", sum)
}

// =============================================================================
// FUTURE CYCLE FORECAST
// =============================================================================

func TestForecastDailyTarget_UsesWholeWindow(t *testing.T) {
	// A future cycle has no "today": the gap spreads over every workable
	// day of the window.
	period := engine.Period{Start: date(2024, time.July, 1), End: date(2024, time.July, 10)}

	res := engine.ForecastDailyTarget(money(90), period, offs("2024-07-05"))
	assert.Equal(t, 9, res.RemainingWorkDays)
	assert.True(t, res.Target.Equal(money(10)))
}

// =============================================================================
// TIMELINE BUCKETING
// =============================================================================

func TestTimeline_WeeklyBuckets(t *testing.T) {
	// GIVEN: Today is Wednesday June 12, cycle ends Sunday June 30
	// THEN: Rest of this week, one full week, and the tail week

	period := engine.Period{Start: date(2024, time.May, 20), End: date(2024, time.June, 30)}
	today := date(2024, time.June, 12)

	blocks := engine.BuildTimeline(period, nil, today, money(50))
	require.Len(t, blocks, 3)

	assert.Equal(t, engine.BlockCurrentWeek, blocks[0].Kind)
	assert.Equal(t, date(2024, time.June, 12), blocks[0].Start)
	assert.Equal(t, date(2024, time.June, 16), blocks[0].End) // Sunday
	assert.Equal(t, 5, blocks[0].WorkDays)
	assert.True(t, blocks[0].SubGoal.Equal(money(250)))

	assert.Equal(t, engine.BlockFullWeek, blocks[1].Kind)
	assert.Equal(t, date(2024, time.June, 17), blocks[1].Start)
	assert.Equal(t, date(2024, time.June, 23), blocks[1].End)
	assert.Equal(t, 7, blocks[1].WorkDays)

	assert.Equal(t, engine.BlockRemainder, blocks[2].Kind)
	assert.Equal(t, date(2024, time.June, 24), blocks[2].Start)
	assert.Equal(t, date(2024, time.June, 30), blocks[2].End)
	assert.Equal(t, 7, blocks[2].WorkDays)
}

func TestTimeline_PartialTail(t *testing.T) {
	// Cycle ends midweek: the tail bucket closes at the boundary, not on
	// a Sunday.
	period := engine.Period{Start: date(2024, time.May, 20), End: date(2024, time.June, 25)} // Tuesday
	today := date(2024, time.June, 17)                                                      // Monday

	blocks := engine.BuildTimeline(period, nil, today, money(10))
	require.Len(t, blocks, 2)

	assert.Equal(t, engine.BlockCurrentWeek, blocks[0].Kind)
	assert.Equal(t, date(2024, time.June, 23), blocks[0].End)

	assert.Equal(t, engine.BlockRemainder, blocks[1].Kind)
	assert.Equal(t, date(2024, time.June, 25), blocks[1].End)
	assert.Equal(t, 2, blocks[1].WorkDays)
}

func TestTimeline_FirstBucketKeptWhenFullyOff(t *testing.T) {
	// "This week" stays visible even with zero work days; later empty
	// buckets are dropped.
	period := engine.Period{Start: date(2024, time.May, 20), End: date(2024, time.June, 30)}
	today := date(2024, time.June, 15) // Saturday

	daysOff := offs(
		"2024-06-15", "2024-06-16",
		// whole following week off
		"2024-06-17", "2024-06-18", "2024-06-19", "2024-06-20",
		"2024-06-21", "2024-06-22", "2024-06-23",
	)

	blocks := engine.BuildTimeline(period, daysOff, today, money(50))
	require.Len(t, blocks, 2)

	assert.Equal(t, engine.BlockCurrentWeek, blocks[0].Kind)
	assert.Equal(t, 0, blocks[0].WorkDays)
	assert.True(t, blocks[0].SubGoal.IsZero())

	// June 17..23 vanished; the tail survives with its work days.
	assert.Equal(t, engine.BlockRemainder, blocks[1].Kind)
	assert.Equal(t, date(2024, time.June, 24), blocks[1].Start)
	assert.Equal(t, 7, blocks[1].WorkDays)
}

func TestTimeline_TodayPastEnd(t *testing.T) {
	period := engine.Period{Start: date(2024, time.May, 20), End: date(2024, time.June, 15)}
	blocks := engine.BuildTimeline(period, nil, date(2024, time.June, 16), money(10))
	assert.Empty(t, blocks)
}

// =============================================================================
// SAVINGS
// =============================================================================

func TestSummarizeSavings(t *testing.T) {
	// GIVEN: 50/day target, 4 days saved, one 30 extra, one 20 withdrawal
	// THEN:  4x50 + 30 - 20 = 210 in the reserve

	plan := engine.SavingsPlan{
		DailyTarget: money(50),
		SavedDates:  []engine.DateString{"2024-12-01", "2024-12-02", "2024-12-03", "2024-12-04"},
		Adjustments: map[engine.DateString]engine.Money{"2024-12-02": money(30)},
		Withdrawals: map[engine.DateString]engine.Money{"2024-12-03": money(20)},
	}

	s := engine.SummarizeSavings(plan, date(2024, time.December, 30))

	assert.True(t, s.TotalSaved.Equal(money(210)), "saved %s", s.TotalSaved)
	assert.True(t, s.TotalWithdrawn.Equal(money(20)))
	// One day left in the year at the daily target.
	assert.True(t, s.ProjectedYearEnd.Equal(money(260)), "projected %s", s.ProjectedYearEnd)
}

func TestSummarizeSavings_LastDayOfYear(t *testing.T) {
	plan := engine.SavingsPlan{DailyTarget: money(50)}
	s := engine.SummarizeSavings(plan, date(2024, time.December, 31))
	assert.True(t, s.ProjectedYearEnd.IsZero())
}
