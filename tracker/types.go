/*
Package tracker implements the gig-worker tracking domain on top of the
billing engine.

PURPOSE:
  The engine is pure; this package owns the records around it - manual
  transactions, obligation definitions, credit cards, cycle settings - and
  the mutation discipline the engine's data model requires: exclusion and
  settlement bookkeeping is an atomic read-modify-write of the single
  obligation being edited, and "edit one future occurrence" is an
  exclude-then-clone split, never an in-place recurrence change.

KEY TYPES:
  Transaction: a manually recorded income/expense for one day
  CreditCard:  an account an obligation can be linked to
  Settings:    cycle configuration, day-off markers, savings plan
  Store:       persistence interface (store.go)
  Service:     operations + the query facade (service.go)
*/
package tracker

import (
	"github.com/warp/billing-engine/engine"
)

// =============================================================================
// RECORDS (JSON-serializable persistence contracts)
// =============================================================================

// Transaction is one manually recorded income or expense entry.
type Transaction struct {
	ID          engine.TransactionID `json:"id"`
	Amount      engine.Money         `json:"amount"`
	Description string               `json:"description"`
	Date        engine.DateString    `json:"date"`
	Kind        engine.Kind          `json:"type"`
}

// Validate checks raw input at the data boundary.
func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return &engine.FieldError{Field: "type", Value: string(t.Kind), Err: engine.ErrInvalidKind}
	}
	if !t.Amount.IsPositive() {
		return &engine.FieldError{Field: "amount", Value: t.Amount.String(), Err: engine.ErrAmountNotPositive}
	}
	if _, err := engine.ParseLocalDate(string(t.Date)); err != nil {
		return err
	}
	return nil
}

// CreditCard is an account obligations can reference through CardID.
type CreditCard struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Color string       `json:"color"`
	Limit engine.Money `json:"limit"`
}

// Settings is the single per-user configuration record.
type Settings struct {
	StartDay int  `json:"startDayOfMonth"`
	EndDay   *int `json:"endDayOfMonth,omitempty"`

	DaysOff []engine.DateString `json:"daysOff"`

	DailySavingTarget  engine.Money                           `json:"dailySavingTarget"`
	SavingsDates       []engine.DateString                    `json:"savingsDates"`
	SavingsAdjustments map[engine.DateString]engine.Money     `json:"savingsAdjustments,omitempty"`
	SavingsWithdrawals map[engine.DateString]engine.Money     `json:"savingsWithdrawals,omitempty"`
}

// DefaultSettings is the state of a fresh profile: plain calendar-month
// cycle, no days off, no savings plan.
func DefaultSettings() Settings {
	return Settings{StartDay: 1}
}

// CycleConfig exposes the settings' cycle boundaries to the engine.
func (s Settings) CycleConfig() engine.CycleConfig {
	return engine.CycleConfig{StartDay: s.StartDay, EndDay: s.EndDay}
}

// SavingsPlan exposes the settings' reserve plan to the engine.
func (s Settings) SavingsPlan() engine.SavingsPlan {
	return engine.SavingsPlan{
		DailyTarget: s.DailySavingTarget,
		SavedDates:  s.SavingsDates,
		Adjustments: s.SavingsAdjustments,
		Withdrawals: s.SavingsWithdrawals,
	}
}

// Validate rejects malformed cycle days and day-off dates.
func (s Settings) Validate() error {
	if err := s.CycleConfig().Validate(); err != nil {
		return err
	}
	for _, d := range s.DaysOff {
		if _, err := engine.ParseLocalDate(string(d)); err != nil {
			return err
		}
	}
	return nil
}
