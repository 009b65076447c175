/*
view.go - Read-side assembly of one billing cycle

PURPOSE:
  Builds the complete dashboard state for a cycle in one pass: resolve the
  window, project occurrences, aggregate the summary, allocate the daily
  target, bucket the timeline, fold the savings plan. Everything here is
  derived - the view never writes.

CURRENT VS FUTURE CYCLES:
  The current cycle allocates the post-earnings gap (RemainingToEarn) over
  the days left from today. A future cycle has no earnings yet and no
  "today" inside it, so its forecast spreads the raw bills gap over the
  whole window. Past cycles get figures but no target or timeline.
*/
package tracker

import (
	"context"

	"github.com/warp/billing-engine/engine"
)

// CycleView is everything the dashboard shows for one billing cycle.
type CycleView struct {
	Period    engine.Period
	IsCurrent bool
	IsFuture  bool

	Occurrences []engine.Occurrence
	Summary     engine.PeriodSummary

	// Target and Timeline are zero-valued for past cycles.
	Target   engine.DailyTarget
	Timeline []engine.TimelineBlock

	Savings engine.SavingsSummary
}

// CurrentCycle resolves the billing window containing today.
func (s *Service) CurrentCycle(ctx context.Context) (engine.Period, error) {
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return engine.Period{}, err
	}
	return settings.CycleConfig().Resolve(s.Now()), nil
}

// View assembles the dashboard state for the cycle offset months away from
// the current one: 0 is the current cycle, +1 the next, -1 the previous.
func (s *Service) View(ctx context.Context, offset int) (CycleView, error) {
	return s.ViewFor(ctx, s.Now().AddMonths(offset))
}

// ViewFor assembles the dashboard state for the cycle containing ref.
func (s *Service) ViewFor(ctx context.Context, ref engine.LocalDate) (CycleView, error) {
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return CycleView{}, err
	}
	obligations, err := s.store.Obligations(ctx)
	if err != nil {
		return CycleView{}, err
	}
	transactions, err := s.store.Transactions(ctx)
	if err != nil {
		return CycleView{}, err
	}

	today := s.Now()
	cfg := settings.CycleConfig()
	period := cfg.Resolve(ref)
	current := cfg.Resolve(today)

	v := CycleView{
		Period:    period,
		IsCurrent: engine.SameDay(period.Start, current.Start),
		IsFuture:  period.Start.After(current.End),
	}

	v.Occurrences = engine.ProjectOccurrences(obligations, period)
	v.Summary = engine.Summarize(v.Occurrences, manualEntries(transactions), period, today)

	daysOff := engine.NewDateSet(settings.DaysOff)
	switch {
	case v.IsCurrent:
		v.Target = engine.ComputeDailyTarget(v.Summary.RemainingToEarn, period, daysOff, today)
		v.Timeline = engine.BuildTimeline(period, daysOff, today, v.Target.Target)
	case v.IsFuture:
		v.Target = engine.ForecastDailyTarget(v.Summary.BillsGap, period, daysOff)
	default:
		v.Target = engine.DailyTarget{Target: engine.Zero()}
	}

	v.Savings = engine.SummarizeSavings(settings.SavingsPlan(), today)
	return v, nil
}

// OccurrencesFor projects the stored obligations onto an arbitrary window.
func (s *Service) OccurrencesFor(ctx context.Context, period engine.Period) ([]engine.Occurrence, error) {
	obligations, err := s.store.Obligations(ctx)
	if err != nil {
		return nil, err
	}
	return engine.ProjectOccurrences(obligations, period), nil
}

// manualEntries narrows stored transactions to the fields the engine
// aggregates over. Dates were validated on the way in, so a parse failure
// here would be store corruption; such rows are skipped.
func manualEntries(transactions []Transaction) []engine.ManualTransaction {
	out := make([]engine.ManualTransaction, 0, len(transactions))
	for _, tx := range transactions {
		d, err := engine.ParseLocalDate(string(tx.Date))
		if err != nil {
			continue
		}
		out = append(out, engine.ManualTransaction{Amount: tx.Amount, Kind: tx.Kind, Date: d})
	}
	return out
}
