/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Calling packages wrap these with additional context.

ERROR CATEGORIES:
  1. Validation errors - malformed input, rejected before any commit
  2. State errors - void-twice, missing records
  3. Concurrency errors - optimistic lock conflicts (retryable)
  4. Consistency errors - replay diverged from a stored checkpoint (fatal)

WARNINGS:
  OverReturnWarning is NOT an error: an over-return clamps the due count
  to zero and still commits. It is returned to the caller for optional
  manual follow-up, never used to block a transaction.

USAGE:
  if errors.Is(err, ledger.ErrAlreadyVoided) { ... }
*/
package ledger

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed transactions or items
	// (negative quantity, unknown type). Nothing is committed.
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyVoided is returned when undoing a transaction that is
	// already voided. VOIDED is terminal; no mutation occurs.
	ErrAlreadyVoided = errors.New("transaction already voided")

	// ErrInsufficientInventory is returned when the inventory collaborator
	// cannot satisfy a sale. The whole transaction is rejected.
	ErrInsufficientInventory = errors.New("insufficient inventory")

	// ErrInventoryReversalFailed is returned when the inventory collaborator
	// reports any per-item failure during an undo. The undo aborts whole.
	ErrInventoryReversalFailed = errors.New("inventory reversal failed")

	// ErrConcurrentModification is returned when the optimistic-concurrency
	// check fails on a derived-field write. Callers retry.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrReplayInconsistency is returned when a recomputed running balance
	// diverges from a stored checkpoint beyond tolerance. Never silently
	// auto-corrected; flagged for manual reconciliation.
	ErrReplayInconsistency = errors.New("replay inconsistency detected")

	// ErrTransactionNotFound is returned when a referenced transaction doesn't exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrCustomerNotFound is returned when a referenced customer doesn't exist.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrCustomerExists is returned when creating a customer with a taken id.
	ErrCustomerExists = errors.New("customer already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which item (by position) failed validation and why.
type ValidationError struct {
	ItemIndex int // -1 when the problem is the transaction itself
	Field     string
	Message   string
}

func (e *ValidationError) Error() string {
	if e.ItemIndex < 0 {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: item %d: %s: %s", e.ItemIndex, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AlreadyVoidedError carries the original void metadata.
type AlreadyVoidedError struct {
	TransactionID TransactionID
	VoidedBy      string
	VoidedAt      *time.Time
}

func (e *AlreadyVoidedError) Error() string {
	return fmt.Sprintf("transaction %s already voided by %s", e.TransactionID, e.VoidedBy)
}

func (e *AlreadyVoidedError) Unwrap() error { return ErrAlreadyVoided }

// ReplayInconsistencyError reports a divergence between a stored checkpoint
// and a fresh full-history replay.
type ReplayInconsistencyError struct {
	CustomerID CustomerID
	Expected   Money // checkpointed balance
	Recomputed Money // freshly replayed balance
}

func (e *ReplayInconsistencyError) Error() string {
	return fmt.Sprintf("replay inconsistency for customer %s: checkpoint %s, recomputed %s",
		e.CustomerID, e.Expected, e.Recomputed)
}

func (e *ReplayInconsistencyError) Unwrap() error { return ErrReplayInconsistency }

// =============================================================================
// WARNINGS - Non-fatal, reported alongside successful results
// =============================================================================

// OverReturnWarning is emitted when a return/buyback would drive a due
// count negative. The count clamps to zero and the transaction commits.
type OverReturnWarning struct {
	CylinderType string
	Due          int // due count before the subtraction
	Returned     int // quantity returned/bought back
}

func (w OverReturnWarning) String() string {
	return fmt.Sprintf("over-return of %s: %d returned but only %d due (clamped to 0)",
		w.CylinderType, w.Returned, w.Due)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrAlreadyVoided) ||
		errors.Is(err, ErrInsufficientInventory)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrCustomerNotFound)
}
