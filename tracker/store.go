/*
store.go - Persistence interface for tracker records

PURPOSE:
  Defines the boundary between the domain and the database. The tracker does
  not care how records reach it - SQLite in production, memory in tests.

MUTATION DISCIPLINE:
  Save* methods are upserts keyed by ID. The obligation edit operations in
  service.go always run read-modify-write inside WithTx so the exclusion and
  settlement sets of a single obligation change atomically, and the
  exclude-then-clone occurrence split lands as one unit.

IMPLEMENTATIONS:
  - tracker/store:  in-memory, for tests and dev
  - store/sqlite:   production SQLite
*/
package tracker

import (
	"context"
	"errors"

	"github.com/warp/billing-engine/engine"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// Store persists the tracker's records.
type Store interface {
	// Transactions, ordered by date then insertion.
	Transactions(ctx context.Context) ([]Transaction, error)
	SaveTransaction(ctx context.Context, tx Transaction) error
	DeleteTransaction(ctx context.Context, id engine.TransactionID) error

	// Obligations, in insertion order.
	Obligations(ctx context.Context) ([]engine.Obligation, error)
	GetObligation(ctx context.Context, id engine.ObligationID) (engine.Obligation, error)
	SaveObligation(ctx context.Context, o engine.Obligation) error
	DeleteObligation(ctx context.Context, id engine.ObligationID) error

	// Credit cards.
	Cards(ctx context.Context) ([]CreditCard, error)
	SaveCard(ctx context.Context, c CreditCard) error
	DeleteCard(ctx context.Context, id string) error

	// Settings: a single record per store.
	Settings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error

	// WithTx executes fn atomically. If fn returns an error every write
	// inside it is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
