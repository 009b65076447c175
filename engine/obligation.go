/*
obligation.go - Recurring obligations and occurrence projection

PURPOSE:
  An Obligation is the compact persisted definition of a fixed income or
  expense line: "rent, 1200, expense, monthly, anchored 2024-01-05". The
  projector expands definitions into the concrete dated occurrences that
  fall inside one billing period. Occurrences are ephemeral - recomputed on
  every query, never stored.

RECURRENCE KINDS:
  single:       exactly one occurrence, at the anchor date
  monthly:      one occurrence per cycle, on the anchor's day-of-month
                (clamped to short months)
  installments: monthly with a fixed count; each occurrence carries its
                1-based installment index

EDITING ONE FUTURE OCCURRENCE:
  Handled one level up as a data split: the edited date is added to the
  original's exclusion set and a new single-recurrence obligation is created
  at that date. The projector has no special case for it - an excluded date
  simply projects nothing, and the clone projects like any other single.

SINGLE-CYCLE WINDOWS:
  The candidate-date search tries the window's start month, then its end
  month. That yields at most one monthly occurrence per query, which is
  exactly right for cycle-length windows. Multi-month windows are outside
  the engine's contract.
*/
package engine

// =============================================================================
// OBLIGATION - Persisted recurring income/expense definition
// =============================================================================

type Recurrence string

const (
	RecurSingle       Recurrence = "single"
	RecurMonthly      Recurrence = "monthly"
	RecurInstallments Recurrence = "installments"
)

func (r Recurrence) Valid() bool {
	return r == RecurSingle || r == RecurMonthly || r == RecurInstallments
}

// Obligation is the stored definition. The projector treats it as read-only;
// the exclusion and settlement sets are owned by the obligation record and
// mutated only through the tracker's services.
type Obligation struct {
	ID           ObligationID `json:"id"`
	Title        string       `json:"title"`
	Amount       Money        `json:"amount"`
	Category     string       `json:"category,omitempty"`
	Kind         Kind         `json:"type"`
	AnchorDate   DateString   `json:"startDate"`
	Recurrence   Recurrence   `json:"recurrence"`
	Installments *int         `json:"installments,omitempty"`

	// ExcludedDates lists occurrence dates removed from the series without
	// deleting it. SettledDates lists occurrence dates marked paid/received.
	ExcludedDates []DateString `json:"excludedDates,omitempty"`
	SettledDates  []DateString `json:"paidDates,omitempty"`

	// CardID optionally links the obligation to a credit card account.
	CardID string `json:"cardId,omitempty"`
}

// Validate checks the fields raw input may get wrong. Called at the data
// boundary; projection assumes validated records.
func (o Obligation) Validate() error {
	if !o.Kind.Valid() {
		return &FieldError{Field: "type", Value: string(o.Kind), Err: ErrInvalidKind}
	}
	if !o.Recurrence.Valid() {
		return &FieldError{Field: "recurrence", Value: string(o.Recurrence), Err: ErrInvalidRecurrence}
	}
	if !o.Amount.IsPositive() {
		return &FieldError{Field: "amount", Value: o.Amount.String(), Err: ErrAmountNotPositive}
	}
	if (o.Recurrence == RecurInstallments) != (o.Installments != nil && *o.Installments > 0) {
		return &FieldError{Field: "installments", Value: string(o.Recurrence), Err: ErrInstallmentsRequired}
	}
	if _, err := ParseLocalDate(string(o.AnchorDate)); err != nil {
		return err
	}
	for _, d := range o.ExcludedDates {
		if _, err := ParseLocalDate(string(d)); err != nil {
			return err
		}
	}
	for _, d := range o.SettledDates {
		if _, err := ParseLocalDate(string(d)); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// OCCURRENCE - Derived, never persisted
// =============================================================================

// Occurrence is one dated instance of an obligation inside a query window.
type Occurrence struct {
	ObligationID ObligationID
	Title        string
	Amount       Money
	Category     string
	Kind         Kind
	Date         LocalDate

	// InstallmentIndex is 1-based and set only for installment recurrence.
	InstallmentIndex *int
	// TotalInstallments mirrors the obligation's count for display ("3/12").
	TotalInstallments *int

	IsSettled bool
	CardID    string
}

// =============================================================================
// PROJECTOR
// =============================================================================

// ProjectOccurrences expands obligations into the occurrences falling inside
// the period. Output preserves input order; projecting the same inputs always
// yields the same result.
func ProjectOccurrences(obligations []Obligation, period Period) []Occurrence {
	var out []Occurrence
	for _, o := range obligations {
		if occ, ok := projectOne(o, period); ok {
			out = append(out, occ)
		}
	}
	return out
}

func projectOne(o Obligation, period Period) (Occurrence, bool) {
	anchor := MustLocalDate(string(o.AnchorDate))

	// Not started yet: nothing to project.
	if anchor.After(period.End) {
		return Occurrence{}, false
	}

	var date LocalDate
	switch o.Recurrence {
	case RecurSingle:
		if !period.Contains(anchor) {
			return Occurrence{}, false
		}
		date = anchor

	default: // monthly and installments share the candidate-date logic
		candidate, ok := monthlyCandidate(anchor, period)
		if !ok {
			return Occurrence{}, false
		}
		date = candidate
	}

	// A candidate present in the exclusion set projects nothing at all.
	if NewDateSet(o.ExcludedDates).Contains(date.Canonical()) {
		return Occurrence{}, false
	}

	occ := Occurrence{
		ObligationID: o.ID,
		Title:        o.Title,
		Amount:       o.Amount,
		Category:     o.Category,
		Kind:         o.Kind,
		Date:         date,
		IsSettled:    NewDateSet(o.SettledDates).Contains(date.Canonical()),
		CardID:       o.CardID,
	}

	if o.Recurrence == RecurInstallments {
		monthDiff := date.MonthIndex() - anchor.MonthIndex()
		if monthDiff < 0 || monthDiff >= *o.Installments {
			return Occurrence{}, false
		}
		idx := monthDiff + 1
		occ.InstallmentIndex = &idx
		occ.TotalInstallments = o.Installments
	}

	return occ, true
}

// monthlyCandidate applies the anchor's day-of-month inside the window's
// start month, falling back to the end month when that lands before the
// window. The day clamps to each month's length independently, so an
// anchor on the 31st projects onto Feb 29 in a leap year.
func monthlyCandidate(anchor LocalDate, period Period) (LocalDate, bool) {
	targetDay := anchor.Day()

	candidate := cycleBoundary(period.Start.Year(), period.Start.Month(), targetDay)
	if candidate.Before(period.Start) {
		candidate = cycleBoundary(period.End.Year(), period.End.Month(), targetDay)
	}

	if !period.Contains(candidate) || candidate.Before(anchor) {
		return LocalDate{}, false
	}
	return candidate, true
}
