package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAssetNotFound is returned when an asset lookup matches no row
	ErrAssetNotFound = errors.New("asset not found")

	// ErrTransactionNotFound is returned when a transaction lookup matches no row
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAssetHasTransactions is returned when deleting an asset that is still
	// referenced by ledger transactions
	ErrAssetHasTransactions = errors.New("asset has transactions and cannot be deleted")

	// ErrInsufficientQuantity is returned when a sell (real or simulated) asks
	// for more than the currently held quantity
	ErrInsufficientQuantity = errors.New("insufficient quantity held")

	// ErrUpstreamUnavailable is returned when the price provider produced no
	// usable data at all
	ErrUpstreamUnavailable = errors.New("price provider unavailable")

	// ErrInvalidInterval is returned when the snapshot interval is not a
	// positive number of minutes
	ErrInvalidInterval = errors.New("snapshot interval must be a positive number of minutes")

	// ErrSettingNotFound is returned when a settings key has never been stored
	ErrSettingNotFound = errors.New("setting not found")
)

// ValidationError reports a rejected input together with the offending field.
// Validation happens before any mutation, so a ValidationError guarantees the
// ledger is unchanged.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
