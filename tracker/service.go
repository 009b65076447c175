/*
service.go - Mutation operations over tracker records

PURPOSE:
  Every write path of the application goes through here: recording
  transactions, managing obligation series, marking occurrences paid or
  removed, toggling days off, updating the cycle configuration.

OCCURRENCE EDITS:
  The three per-occurrence operations follow the data model's ownership
  rule - only the obligation a set belongs to is ever written:

  ToggleSettled:     flips one date in the settlement set
  ExcludeOccurrence: adds one date to the exclusion set
  EditOccurrence:    the series split - the original gains an exclusion and
                     a new single-recurrence obligation is created at that
                     date. Both writes land in one store transaction.
*/
package tracker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/warp/billing-engine/engine"
)

// Service owns all domain operations. Now is injectable so tests pin the
// clock; it defaults to the host's calendar day.
type Service struct {
	store Store
	Now   func() engine.LocalDate
}

func NewService(store Store) *Service {
	return &Service{store: store, Now: engine.Today}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// AddTransaction validates and stores a new entry, minting its ID.
func (s *Service) AddTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	if tx.ID == "" {
		tx.ID = engine.TransactionID(uuid.NewString())
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// UpdateTransaction replaces an existing entry.
func (s *Service) UpdateTransaction(ctx context.Context, tx Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	return s.store.SaveTransaction(ctx, tx)
}

func (s *Service) DeleteTransaction(ctx context.Context, id engine.TransactionID) error {
	return s.store.DeleteTransaction(ctx, id)
}

// =============================================================================
// OBLIGATION SERIES
// =============================================================================

// CreateObligation validates and stores a new series, minting its ID. The
// exclusion and settlement sets start empty regardless of input.
func (s *Service) CreateObligation(ctx context.Context, o engine.Obligation) (engine.Obligation, error) {
	o.ID = engine.ObligationID(uuid.NewString())
	o.ExcludedDates = nil
	o.SettledDates = nil
	if err := o.Validate(); err != nil {
		return engine.Obligation{}, err
	}
	if err := s.store.SaveObligation(ctx, o); err != nil {
		return engine.Obligation{}, err
	}
	return o, nil
}

// UpdateObligation edits the whole series. The stored exclusion and
// settlement sets are carried over untouched: editing the title of a series
// must not resurrect removed occurrences or forget paid ones.
func (s *Service) UpdateObligation(ctx context.Context, o engine.Obligation) error {
	return s.store.WithTx(ctx, func(st Store) error {
		existing, err := st.GetObligation(ctx, o.ID)
		if err != nil {
			return err
		}
		o.ExcludedDates = existing.ExcludedDates
		o.SettledDates = existing.SettledDates
		if err := o.Validate(); err != nil {
			return err
		}
		return st.SaveObligation(ctx, o)
	})
}

// DeleteObligation removes the whole series and every derived occurrence
// with it.
func (s *Service) DeleteObligation(ctx context.Context, id engine.ObligationID) error {
	return s.store.DeleteObligation(ctx, id)
}

// ToggleSettled flips the paid/received state of one occurrence.
func (s *Service) ToggleSettled(ctx context.Context, id engine.ObligationID, date engine.DateString) error {
	if _, err := engine.ParseLocalDate(string(date)); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(st Store) error {
		o, err := st.GetObligation(ctx, id)
		if err != nil {
			return err
		}
		o.SettledDates = toggleDate(o.SettledDates, date)
		return st.SaveObligation(ctx, o)
	})
}

// ExcludeOccurrence removes a single occurrence from the series without
// touching the rest of it.
func (s *Service) ExcludeOccurrence(ctx context.Context, id engine.ObligationID, date engine.DateString) error {
	if _, err := engine.ParseLocalDate(string(date)); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(st Store) error {
		o, err := st.GetObligation(ctx, id)
		if err != nil {
			return err
		}
		if !engine.NewDateSet(o.ExcludedDates).Contains(date) {
			o.ExcludedDates = append(o.ExcludedDates, date)
		}
		return st.SaveObligation(ctx, o)
	})
}

// OccurrencePatch carries the editable fields of one occurrence.
type OccurrencePatch struct {
	Title    string
	Amount   engine.Money
	Category string
	Kind     engine.Kind
	CardID   string
}

// EditOccurrence changes one future occurrence without affecting the rest
// of the series. For a single-recurrence obligation this is a plain update.
// For monthly/installment series it is the immutable split: the original
// gains an exclusion for the date, and a new single obligation anchored at
// that date carries the edited fields plus the occurrence's settled state.
// Both writes commit together or not at all.
func (s *Service) EditOccurrence(ctx context.Context, id engine.ObligationID, date engine.DateString, patch OccurrencePatch) (engine.Obligation, error) {
	if _, err := engine.ParseLocalDate(string(date)); err != nil {
		return engine.Obligation{}, err
	}

	var result engine.Obligation
	err := s.store.WithTx(ctx, func(st Store) error {
		original, err := st.GetObligation(ctx, id)
		if err != nil {
			return err
		}

		if original.Recurrence == engine.RecurSingle {
			original.Title = patch.Title
			original.Amount = patch.Amount
			original.Category = patch.Category
			original.Kind = patch.Kind
			original.CardID = patch.CardID
			if err := original.Validate(); err != nil {
				return err
			}
			result = original
			return st.SaveObligation(ctx, original)
		}

		wasSettled := engine.NewDateSet(original.SettledDates).Contains(date)

		clone := engine.Obligation{
			ID:         engine.ObligationID(uuid.NewString()),
			Title:      patch.Title,
			Amount:     patch.Amount,
			Category:   patch.Category,
			Kind:       patch.Kind,
			AnchorDate: date,
			Recurrence: engine.RecurSingle,
			CardID:     patch.CardID,
		}
		if wasSettled {
			clone.SettledDates = []engine.DateString{date}
		}
		if err := clone.Validate(); err != nil {
			return err
		}

		if !engine.NewDateSet(original.ExcludedDates).Contains(date) {
			original.ExcludedDates = append(original.ExcludedDates, date)
		}

		if err := st.SaveObligation(ctx, original); err != nil {
			return err
		}
		if err := st.SaveObligation(ctx, clone); err != nil {
			return err
		}
		result = clone
		return nil
	})
	if err != nil {
		return engine.Obligation{}, err
	}
	return result, nil
}

// =============================================================================
// CREDIT CARDS
// =============================================================================

func (s *Service) SaveCard(ctx context.Context, c CreditCard) (CreditCard, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := s.store.SaveCard(ctx, c); err != nil {
		return CreditCard{}, err
	}
	return c, nil
}

// DeleteCard removes a card and unlinks every obligation referencing it,
// atomically.
func (s *Service) DeleteCard(ctx context.Context, id string) error {
	return s.store.WithTx(ctx, func(st Store) error {
		if err := st.DeleteCard(ctx, id); err != nil {
			return err
		}
		obligations, err := st.Obligations(ctx)
		if err != nil {
			return err
		}
		for _, o := range obligations {
			if o.CardID != id {
				continue
			}
			o.CardID = ""
			if err := st.SaveObligation(ctx, o); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// SETTINGS
// =============================================================================

// UpdateCycleConfig changes the billing cycle boundaries. This is the
// configuration boundary: day values are validated here, never in the
// resolver.
func (s *Service) UpdateCycleConfig(ctx context.Context, startDay int, endDay *int) error {
	cfg := engine.CycleConfig{StartDay: startDay, EndDay: endDay}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(st Store) error {
		settings, err := st.Settings(ctx)
		if err != nil {
			return err
		}
		settings.StartDay = startDay
		settings.EndDay = endDay
		return st.SaveSettings(ctx, settings)
	})
}

// ToggleDayOff flips one day-off marker.
func (s *Service) ToggleDayOff(ctx context.Context, date engine.DateString) error {
	if _, err := engine.ParseLocalDate(string(date)); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(st Store) error {
		settings, err := st.Settings(ctx)
		if err != nil {
			return err
		}
		settings.DaysOff = toggleDate(settings.DaysOff, date)
		return st.SaveSettings(ctx, settings)
	})
}

// ToggleSavingsDay marks or unmarks a day as saved at the daily target.
func (s *Service) ToggleSavingsDay(ctx context.Context, date engine.DateString) error {
	if _, err := engine.ParseLocalDate(string(date)); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(st Store) error {
		settings, err := st.Settings(ctx)
		if err != nil {
			return err
		}
		settings.SavingsDates = toggleDate(settings.SavingsDates, date)
		return st.SaveSettings(ctx, settings)
	})
}

// AdjustSavings records an extra amount saved and/or withdrawn for one day.
// A zero amount clears the corresponding entry.
func (s *Service) AdjustSavings(ctx context.Context, date engine.DateString, extra, withdrawal engine.Money) error {
	if _, err := engine.ParseLocalDate(string(date)); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(st Store) error {
		settings, err := st.Settings(ctx)
		if err != nil {
			return err
		}
		if settings.SavingsAdjustments == nil {
			settings.SavingsAdjustments = make(map[engine.DateString]engine.Money)
		}
		if settings.SavingsWithdrawals == nil {
			settings.SavingsWithdrawals = make(map[engine.DateString]engine.Money)
		}
		if extra.IsZero() {
			delete(settings.SavingsAdjustments, date)
		} else {
			settings.SavingsAdjustments[date] = extra
		}
		if withdrawal.IsZero() {
			delete(settings.SavingsWithdrawals, date)
		} else {
			settings.SavingsWithdrawals[date] = withdrawal
		}
		return st.SaveSettings(ctx, settings)
	})
}

// UpdateSettings replaces the whole settings record after validation.
func (s *Service) UpdateSettings(ctx context.Context, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return s.store.SaveSettings(ctx, settings)
}

// Settings returns the stored settings record.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	return s.store.Settings(ctx)
}

func toggleDate(dates []engine.DateString, date engine.DateString) []engine.DateString {
	for i, d := range dates {
		if d == date {
			return append(dates[:i], dates[i+1:]...)
		}
	}
	return append(dates, date)
}

// Transactions returns all stored transactions.
func (s *Service) Transactions(ctx context.Context) ([]Transaction, error) {
	return s.store.Transactions(ctx)
}

// Obligations returns all stored obligation series.
func (s *Service) Obligations(ctx context.Context) ([]engine.Obligation, error) {
	return s.store.Obligations(ctx)
}

// Cards returns all stored credit cards.
func (s *Service) Cards(ctx context.Context) ([]CreditCard, error) {
	return s.store.Cards(ctx)
}

// GetObligation returns one series by ID.
func (s *Service) GetObligation(ctx context.Context, id engine.ObligationID) (engine.Obligation, error) {
	o, err := s.store.GetObligation(ctx, id)
	if err != nil {
		return engine.Obligation{}, fmt.Errorf("obligation %s: %w", id, err)
	}
	return o, nil
}
