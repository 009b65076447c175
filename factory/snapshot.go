/*
Package factory provides JSON snapshot import and export.

PURPOSE:
  Converts a full application-data JSON blob - obligations, transactions,
  cards, settings - into validated domain records and back. This is the
  backup/restore surface and the migration path from other trackers: data
  can move as a single file, and the factory guarantees nothing malformed
  ever crosses into the engine.

JSON SCHEMA:
  {
    "obligations": [
      {
        "id": "ob-1",
        "title": "rent",
        "amount": "1200",
        "type": "expense",
        "startDate": "2024-01-05",
        "recurrence": "monthly",
        "excludedDates": [],
        "paidDates": ["2024-06-05"]
      }
    ],
    "transactions": [
      {"id": "tx-1", "amount": "120.50", "date": "2024-06-08", "type": "income"}
    ],
    "cards": [
      {"id": "card-1", "name": "visa", "color": "#336699", "limit": "2000"}
    ],
    "settings": {
      "startDayOfMonth": 20,
      "daysOff": ["2024-06-12"],
      "dailySavingTarget": "50",
      "savingsDates": []
    }
  }

VALIDATION:
  Fail-fast: the first invalid record aborts the import with a field-level
  error. Amounts are decimal strings; dates are canonical YYYY-MM-DD.

USAGE:
  snap, err := factory.ParseSnapshot(data)
  ...
  err = factory.Restore(ctx, store, snap)
  data, err := factory.Export(ctx, store)

SEE ALSO:
  - engine/obligation.go: Obligation validation
  - tracker/types.go: Transaction, CreditCard, Settings validation
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/warp/billing-engine/engine"
	"github.com/warp/billing-engine/tracker"
)

// Snapshot is the complete portable application state.
type Snapshot struct {
	Obligations  []engine.Obligation   `json:"obligations"`
	Transactions []tracker.Transaction `json:"transactions"`
	Cards        []tracker.CreditCard  `json:"cards"`
	Settings     *tracker.Settings     `json:"settings,omitempty"`
}

// ParseSnapshot decodes and validates a snapshot blob. Every record is
// checked before anything is returned; a snapshot either parses whole or
// not at all.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse snapshot JSON: %w", err)
	}
	if err := Validate(snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Validate checks every record in the snapshot.
func Validate(snap Snapshot) error {
	seen := make(map[engine.ObligationID]bool, len(snap.Obligations))
	for i, o := range snap.Obligations {
		if o.ID == "" {
			return fmt.Errorf("obligation %d: missing id", i)
		}
		if seen[o.ID] {
			return fmt.Errorf("obligation %d: duplicate id %s", i, o.ID)
		}
		seen[o.ID] = true
		if err := o.Validate(); err != nil {
			return fmt.Errorf("obligation %s: %w", o.ID, err)
		}
	}

	seenTx := make(map[engine.TransactionID]bool, len(snap.Transactions))
	for i, tx := range snap.Transactions {
		if tx.ID == "" {
			return fmt.Errorf("transaction %d: missing id", i)
		}
		if seenTx[tx.ID] {
			return fmt.Errorf("transaction %d: duplicate id %s", i, tx.ID)
		}
		seenTx[tx.ID] = true
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
	}

	for i, c := range snap.Cards {
		if c.ID == "" {
			return fmt.Errorf("card %d: missing id", i)
		}
	}

	if snap.Settings != nil {
		if err := snap.Settings.Validate(); err != nil {
			return fmt.Errorf("settings: %w", err)
		}
	}
	return nil
}

// Restore writes a validated snapshot into the store in one transaction.
// Existing records with matching IDs are overwritten; others are kept.
func Restore(ctx context.Context, st tracker.Store, snap Snapshot) error {
	if err := Validate(snap); err != nil {
		return err
	}
	return st.WithTx(ctx, func(tx tracker.Store) error {
		for _, o := range snap.Obligations {
			if err := tx.SaveObligation(ctx, o); err != nil {
				return err
			}
		}
		for _, t := range snap.Transactions {
			if err := tx.SaveTransaction(ctx, t); err != nil {
				return err
			}
		}
		for _, c := range snap.Cards {
			if err := tx.SaveCard(ctx, c); err != nil {
				return err
			}
		}
		if snap.Settings != nil {
			if err := tx.SaveSettings(ctx, *snap.Settings); err != nil {
				return err
			}
		}
		return nil
	})
}

// Export reads the whole store into a snapshot blob.
func Export(ctx context.Context, st tracker.Store) ([]byte, error) {
	snap, err := Collect(ctx, st)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Collect assembles the snapshot struct without encoding it.
func Collect(ctx context.Context, st tracker.Store) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Obligations, err = st.Obligations(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Transactions, err = st.Transactions(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Cards, err = st.Cards(ctx); err != nil {
		return Snapshot{}, err
	}
	settings, err := st.Settings(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Settings = &settings
	return snap, nil
}
