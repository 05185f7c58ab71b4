/*
errors.go - Centralized error types for the account engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Callers match with errors.Is; the HTTP layer maps each kind to a
  status code.

ERROR CATEGORIES:
  1. Lookup errors - Missing accounts/clients
  2. Authentication errors - Wrong PIN, locked client
  3. Business-rule errors - Insufficient funds, invalid input
  4. Resource errors - Lock acquisition timeout, storage failure

SEE ALSO:
  - auth.go, ledger.go, transfer.go: Produce these errors
  - api/handlers.go: Maps them to HTTP responses
*/
package bank

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountNotFound is returned when no account has the given number.
	ErrAccountNotFound = errors.New("account not found")

	// ErrClientNotFound is returned when no client has the given identity.
	ErrClientNotFound = errors.New("client not found")

	// ErrClientLocked is returned when authentication is refused because the
	// client is locked. Cleared only by an administrative unlock.
	ErrClientLocked = errors.New("client locked")

	// ErrInvalidPIN is returned on a PIN mismatch. During authentication it
	// also drives the failed-attempt counter.
	ErrInvalidPIN = errors.New("invalid pin")

	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	// The account is left unmodified.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned for non-positive operation amounts,
	// checked before any mutation.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSameAccount is returned when a transfer names one account twice.
	ErrSameAccount = errors.New("source and destination are the same account")

	// ErrBusy is returned when exclusive access to an account or client
	// could not be acquired within the bounded wait. Safe to retry.
	ErrBusy = errors.New("resource busy")

	// ErrStorageUnavailable is returned when the store failed to durably
	// apply a write. Any tentative balance change is rolled back first.
	// This is the one condition safe to retry at the caller's discretion.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidInput is returned when provisioning input is malformed
	// (empty identity, number or PIN).
	ErrInvalidInput = errors.New("invalid input")

	// ErrClientExists is returned when provisioning reuses an identity.
	ErrClientExists = errors.New("client already exists")

	// ErrAccountExists is returned when provisioning reuses a number.
	ErrAccountExists = errors.New("account already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError provides details about a balance shortage.
type InsufficientFundsError struct {
	AccountNumber string
	Available     Money
	Requested     Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on %s: available %v, requested %v",
		e.AccountNumber, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// StorageError wraps a store-layer failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage unavailable: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return ErrStorageUnavailable
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrStorageUnavailable)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrClientNotFound)
}

// IsClientError returns true if the error is due to invalid caller input
// rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrSameAccount) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidPIN) ||
		errors.Is(err, ErrClientExists) ||
		errors.Is(err, ErrAccountExists)
}
