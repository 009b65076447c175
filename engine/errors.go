/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Errors here belong to the BOUNDARIES of the engine: configuration entry
  and raw data import. The computation core itself has no error paths -
  degenerate states (zero work days, zero gap, empty obligation lists)
  are valid outputs, never errors.

ERROR CATEGORIES:
  1. Configuration errors - cycle day outside 1..31
  2. Data errors - malformed date strings, non-positive amounts,
     missing installment counts

USAGE:
  Callers at the boundary wrap these with field context:

    if errors.Is(err, engine.ErrMalformedDate) {
        return fmt.Errorf("obligation %s: %w", id, err)
    }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidCycleDay is returned when a configured cycle start or end day
	// falls outside 1..31. Rejected at the settings boundary; the resolver
	// assumes valid input.
	ErrInvalidCycleDay = errors.New("cycle day must be between 1 and 31")

	// ErrMalformedDate is returned when a date string is not canonical
	// YYYY-MM-DD. Rejected where raw input enters the system; internal code
	// assumes well-formed canonical strings.
	ErrMalformedDate = errors.New("malformed date string")

	// ErrAmountNotPositive is returned when an obligation or transaction
	// amount is zero or negative. Direction is carried by Kind, not by sign.
	ErrAmountNotPositive = errors.New("amount must be positive")

	// ErrInstallmentsRequired is returned when an installment obligation has
	// no total installment count, or a non-installment one carries a count.
	ErrInstallmentsRequired = errors.New("installment count required iff recurrence is installments")

	// ErrInvalidKind is returned for a kind other than income or expense.
	ErrInvalidKind = errors.New("kind must be income or expense")

	// ErrInvalidRecurrence is returned for an unknown recurrence value.
	ErrInvalidRecurrence = errors.New("recurrence must be single, monthly or installments")
)

// =============================================================================
// STRUCTURED ERRORS - Carry field context
// =============================================================================

// FieldError attaches the offending field and raw value to a sentinel error.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v (got %q)", e.Field, e.Err, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Err }

// IsClientError reports whether the error is due to invalid supplied data,
// as opposed to an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidCycleDay) ||
		errors.Is(err, ErrMalformedDate) ||
		errors.Is(err, ErrAmountNotPositive) ||
		errors.Is(err, ErrInstallmentsRequired) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrInvalidRecurrence)
}
