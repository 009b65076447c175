/*
summary.go - Period aggregation

PURPOSE:
  Folds the period's projected occurrences and manual transactions into the
  figures the goal engine and the dashboard need: what is still unpaid, what
  has been settled, and how much free balance the worker already holds.

THE GAP, STEP BY STEP:
  BillsGap       = max(0, unsettled expense - unsettled income)
                   A surplus of unsettled income is reported separately,
                   never folded in as a negative gap.
  NetProfit      = manual transaction balance in the window
                   - settled fixed expenses + settled fixed incomes
                   ("free balance": money already in pocket)
  RemainingToEarn = max(0, BillsGap - NetProfit)
                   The outstanding gap handed to the daily target allocator.
*/
package engine

// ManualTransaction is a single dated income or expense entry recorded by
// hand (a day's earnings, a fuel stop). Only the fields the aggregation
// needs cross into the engine.
type ManualTransaction struct {
	Amount Money
	Kind   Kind
	Date   LocalDate
}

// PeriodSummary carries every aggregate derived for one billing period.
type PeriodSummary struct {
	Period Period

	// Fixed-line totals, split by settlement state.
	UnsettledExpense Money
	UnsettledIncome  Money
	SettledExpense   Money
	SettledIncome    Money
	TotalBills       Money // all expense occurrences, settled or not

	// Manual transaction totals inside the window.
	ManualIncome  Money
	ManualExpense Money

	BillsGap        Money // outstanding fixed deficit, floored at zero
	Surplus         Money // unsettled income exceeding unsettled expense
	NetProfit       Money // free balance already earned this period
	RemainingToEarn Money // what work must still bring in

	IncomeToday Money // manual income recorded on the reference day
}

// Summarize aggregates one period. Pure: same inputs, same figures.
func Summarize(occurrences []Occurrence, transactions []ManualTransaction, period Period, today LocalDate) PeriodSummary {
	s := PeriodSummary{
		Period:           period,
		UnsettledExpense: Zero(),
		UnsettledIncome:  Zero(),
		SettledExpense:   Zero(),
		SettledIncome:    Zero(),
		TotalBills:       Zero(),
		ManualIncome:     Zero(),
		ManualExpense:    Zero(),
		IncomeToday:      Zero(),
	}

	for _, occ := range occurrences {
		switch {
		case occ.Kind == KindExpense && occ.IsSettled:
			s.SettledExpense = s.SettledExpense.Add(occ.Amount)
		case occ.Kind == KindExpense:
			s.UnsettledExpense = s.UnsettledExpense.Add(occ.Amount)
		case occ.IsSettled:
			s.SettledIncome = s.SettledIncome.Add(occ.Amount)
		default:
			s.UnsettledIncome = s.UnsettledIncome.Add(occ.Amount)
		}
		if occ.Kind == KindExpense {
			s.TotalBills = s.TotalBills.Add(occ.Amount)
		}
	}

	for _, tx := range transactions {
		if !period.Contains(tx.Date) {
			continue
		}
		if tx.Kind == KindIncome {
			s.ManualIncome = s.ManualIncome.Add(tx.Amount)
			if SameDay(tx.Date, today) {
				s.IncomeToday = s.IncomeToday.Add(tx.Amount)
			}
		} else {
			s.ManualExpense = s.ManualExpense.Add(tx.Amount)
		}
	}

	net := s.UnsettledExpense.Sub(s.UnsettledIncome)
	s.BillsGap = net.FloorZero()
	s.Surplus = net.Neg().FloorZero()

	manualBalance := s.ManualIncome.Sub(s.ManualExpense)
	s.NetProfit = manualBalance.Sub(s.SettledExpense).Add(s.SettledIncome)

	s.RemainingToEarn = s.BillsGap.Sub(s.NetProfit).FloorZero()
	return s
}

// ProgressRatio reports how much of the period's fixed bills are already
// covered, in [0, 1]. A period with no bills counts as fully covered.
func (s PeriodSummary) ProgressRatio() float64 {
	if !s.TotalBills.IsPositive() {
		return 1
	}
	covered := s.TotalBills.Sub(s.RemainingToEarn)
	ratio, _ := covered.Value.Div(s.TotalBills.Value).Float64()
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}
