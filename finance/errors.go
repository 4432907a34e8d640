package finance

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks by the calling layer.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrSplitMismatch    = errors.New("split shares do not sum to total")
)

// InvalidInputError reports a violated precondition on a named field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// CurrencyMismatchError is returned when two amounts in different
// currencies are combined without an exchange rate.
type CurrencyMismatchError struct {
	Expected string
	Actual   string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: expected %s, got %s", e.Expected, e.Actual)
}

func (e *CurrencyMismatchError) Is(target error) bool {
	return target == ErrCurrencyMismatch
}

// SplitMismatchError carries the signed difference total - sum(shares).
// A positive delta means part of the total is still unassigned.
type SplitMismatchError struct {
	Delta Money
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("split shares do not sum to total: delta %s", e.Delta)
}

func (e *SplitMismatchError) Is(target error) bool {
	return target == ErrSplitMismatch
}
