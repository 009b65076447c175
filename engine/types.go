/*
Package engine provides the core billing-cycle and recurring-obligation engine.

PURPOSE:
  This package contains the pure computation core of the tracker: resolving
  a reference date into its billing period, projecting recurring obligations
  into dated occurrences, aggregating a period into settled/outstanding
  totals, and allocating the outstanding gap across remaining work days.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal amount in the single implied currency
  - Kind: Whether a line is income or expense
  - DateString: The canonical YYYY-MM-DD form used for storage and set keys

DESIGN PRINCIPLES:
  1. Purity: Every exported computation is a function of its inputs only
  2. Precision: Uses decimal.Decimal to avoid floating-point drift
  3. Re-derivation: Occurrences and targets are never stored, always recomputed
  4. Calendar-local: Dates have no time-of-day and no timezone component

SEE ALSO:
  - calendar.go: LocalDate and date primitives
  - cycle.go: Billing period resolution
  - obligation.go: Recurrence projection
  - goal.go: Daily target allocation and timeline bucketing
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal amount in a single implied currency
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func Zero() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(b Money) Money          { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money          { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s)} }
func (m Money) MulInt(n int) Money         { return Money{Value: m.Value.Mul(decimal.NewFromInt(int64(n)))} }
func (m Money) DivInt(n int) Money         { return Money{Value: m.Value.Div(decimal.NewFromInt(int64(n)))} }
func (m Money) Neg() Money                 { return Money{Value: m.Value.Neg()} }
func (m Money) IsNegative() bool           { return m.Value.IsNegative() }
func (m Money) IsZero() bool               { return m.Value.IsZero() }
func (m Money) IsPositive() bool           { return m.Value.IsPositive() }
func (m Money) Equal(b Money) bool         { return m.Value.Equal(b.Value) }
func (m Money) GreaterThan(b Money) bool   { return m.Value.GreaterThan(b.Value) }
func (m Money) LessThan(b Money) bool      { return m.Value.LessThan(b.Value) }
func (m Money) String() string             { return m.Value.String() }

// Money crosses JSON boundaries as its plain decimal form; both quoted
// strings and bare numbers are accepted on the way in.
func (m Money) MarshalJSON() ([]byte, error)  { return m.Value.MarshalJSON() }
func (m *Money) UnmarshalJSON(b []byte) error { return m.Value.UnmarshalJSON(b) }

// FloorZero clamps a negative amount to zero. Gaps and targets are never
// reported negative; a surplus is carried as its own figure instead.
func (m Money) FloorZero() Money {
	if m.IsNegative() {
		return Zero()
	}
	return m
}

// =============================================================================
// KIND - Income vs expense
// =============================================================================

type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

func (k Kind) Valid() bool { return k == KindIncome || k == KindExpense }

// =============================================================================
// IDENTIFIERS AND DATE KEYS
// =============================================================================

type ObligationID string
type TransactionID string

// DateString is the canonical YYYY-MM-DD textual form of a calendar date.
// It is the storage representation and the key form for exclusion,
// settlement, and day-off sets.
type DateString string

// DateSet answers membership questions over a list of canonical date strings.
// Persisted records keep plain slices; the engine builds a set per query.
type DateSet map[DateString]struct{}

func NewDateSet(dates []DateString) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

func (s DateSet) Contains(d DateString) bool {
	_, ok := s[d]
	return ok
}
