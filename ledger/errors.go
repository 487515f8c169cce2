/*
errors.go - Centralized error types for the cashback engine

PURPOSE:
  All error types in one place. The engine returns these as typed
  results; the router renders them into user-facing replies and must
  fall back to a generic notice for anything it does not recognize.

ERROR CATEGORIES:
  1. Input errors     - Unparsable/non-positive/out-of-range amounts
  2. Rule rejections  - Balance or cap violations (carry context)
  3. Authorization    - Non-admin attempted an admin command
  4. Storage errors   - Durable store I/O failed; transaction aborted

USAGE:
  Structured errors unwrap to their sentinels:

    if errors.Is(err, ledger.ErrInsufficientBalance) { ... }
    var capErr *ledger.RedeemCapError
    if errors.As(err, &capErr) { reply(capErr.Cap) }

SEE ALSO:
  - engine.go: Produces these errors
  - bot/router.go: Renders them
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned for unparsable or non-positive amounts
	// where a positive amount is required. No state is mutated.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAmountOutOfRange is returned when an amount exceeds 2^53 minor units.
	ErrAmountOutOfRange = errors.New("amount out of range")

	// ErrInsufficientBalance is returned when a redemption exceeds the
	// client's current balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrRedeemCapExceeded is returned when a redemption exceeds the
	// purchase-based cap.
	ErrRedeemCapExceeded = errors.New("redeem cap exceeded")

	// ErrForbidden is returned when a non-administrator attempts an
	// admin-only command. Checked before the transaction is evaluated.
	ErrForbidden = errors.New("forbidden")

	// ErrStorageUnavailable wraps durable-store I/O failures. The whole
	// transaction is aborted with no partial effect; callers may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports the current balance so the caller can
// show it to the user.
type InsufficientBalanceError struct {
	ClientID  ClientID
	Balance   Money
	Requested Money
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, requested %s", e.Balance, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// RedeemCapError reports the maximum redeemable amount for this purchase.
type RedeemCapError struct {
	ClientID  ClientID
	Cap       Money
	Requested Money
}

func (e *RedeemCapError) Error() string {
	return fmt.Sprintf("redeem cap exceeded: cap %s, requested %s", e.Cap, e.Requested)
}

func (e *RedeemCapError) Unwrap() error { return ErrRedeemCapExceeded }

// StorageError wraps the underlying store failure.
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error { return ErrStorageUnavailable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a business-rule rejection (safe to render and re-prompt).
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrAmountOutOfRange) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrRedeemCapExceeded)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
