package tokenledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// Authorization errors
	ErrWrongCollection = errors.New("tokenledger: wrong collection")
	ErrNotHolder       = errors.New("tokenledger: caller does not hold this record")

	// Balance errors
	ErrWrongTokenID        = errors.New("tokenledger: wrong token id")
	ErrInsufficientBalance = errors.New("tokenledger: insufficient balance")
	ErrZeroAmount          = errors.New("tokenledger: amount must be greater than zero")

	// Argument errors
	ErrInvalidInput = errors.New("tokenledger: invalid input")

	// Lookup errors
	ErrCollectionNotFound = errors.New("tokenledger: collection not found")
	ErrCapNotFound        = errors.New("tokenledger: capability not found")
	ErrBalanceNotFound    = errors.New("tokenledger: balance not found")
	ErrMetadataNotFound   = errors.New("tokenledger: metadata not found")
	ErrNotFound           = errors.New("tokenledger: not found")
	ErrAlreadyExists      = errors.New("tokenledger: already exists")

	// Store errors
	ErrStoreNotReady = errors.New("tokenledger: store not ready")
	ErrStoreClosed   = errors.New("tokenledger: store is closed")
)

// InvariantError reports a supply-conservation violation: an overflow on
// mint or join, or an underflow on burn. These are never caused by bad
// input — they indicate a defect in the ledger itself, so the engine logs
// them at Error level before returning them.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("tokenledger: invariant violation in %s: %s", e.Op, e.Detail)
}

// NewInvariantError constructs an InvariantError for the given operation.
func NewInvariantError(op, format string, args ...any) *InvariantError {
	return &InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)}
}

// IsInvariantViolation reports whether err is a fatal conservation failure
// rather than a user-correctable input error.
func IsInvariantViolation(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCollectionNotFound) ||
		errors.Is(err, ErrCapNotFound) ||
		errors.Is(err, ErrBalanceNotFound) ||
		errors.Is(err, ErrMetadataNotFound)
}

// IsUserError returns true if the error was caused by caller input and can
// be corrected by the caller, as opposed to a store failure or an
// invariant violation.
func IsUserError(err error) bool {
	return errors.Is(err, ErrWrongCollection) ||
		errors.Is(err, ErrWrongTokenID) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrZeroAmount) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotHolder)
}
