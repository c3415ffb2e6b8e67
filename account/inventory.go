/*
inventory.go - Inventory transition collaborator

PURPOSE:
  The engine decides WHAT physical inventory change a transaction implies;
  an external collaborator performs it and reports per-item success or
  failure. Selling a cylinder moves it IN_STOCK -> WITH_CUSTOMER; a return
  or buyback moves it back as an empty. Undo applies the same transitions
  with the direction swapped.

FAILURE CONTRACT:
  Any reported failure aborts the whole engine operation before anything
  is committed: a sale that inventory cannot satisfy is rejected
  (ErrInsufficientInventory), and an undo whose reversal fails is aborted
  (ErrInventoryReversalFailed). No partial state either way.
*/
package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
)

type CylinderStatus string

const (
	StatusInStock      CylinderStatus = "IN_STOCK"
	StatusWithCustomer CylinderStatus = "WITH_CUSTOMER"
	StatusEmptyInStock CylinderStatus = "EMPTY_IN_STOCK"
)

// CylinderTransition is one requested physical status change.
type CylinderTransition struct {
	CylinderType string
	Quantity     int
	From         CylinderStatus
	To           CylinderStatus
}

// TransitionResult is the collaborator's per-item verdict.
type TransitionResult struct {
	Transition CylinderTransition
	OK         bool
	Reason     string // set when !OK
}

// Inventory executes physical cylinder status changes.
type Inventory interface {
	Apply(ctx context.Context, transitions []CylinderTransition) ([]TransitionResult, error)
}

// AcceptAllInventory approves every transition. Used when inventory is
// managed elsewhere and the engine only records the ledger side.
type AcceptAllInventory struct{}

func (AcceptAllInventory) Apply(_ context.Context, transitions []CylinderTransition) ([]TransitionResult, error) {
	results := make([]TransitionResult, len(transitions))
	for i, tr := range transitions {
		results[i] = TransitionResult{Transition: tr, OK: true}
	}
	return results, nil
}

// =============================================================================
// TRANSITION DERIVATION
// =============================================================================

// TransitionsFor maps classified items to the inventory changes a posted
// transaction requires. Non-cylinder items have no physical side.
func TransitionsFor(items ledger.ClassifiedItems) []CylinderTransition {
	var out []CylinderTransition
	for _, item := range items.Sale {
		if item.CylinderType == "" || item.Quantity == 0 {
			continue
		}
		out = append(out, CylinderTransition{
			CylinderType: item.CylinderType,
			Quantity:     item.Quantity,
			From:         StatusInStock,
			To:           StatusWithCustomer,
		})
	}
	for _, item := range items.Buyback {
		if item.CylinderType == "" || item.Quantity == 0 {
			continue
		}
		out = append(out, CylinderTransition{
			CylinderType: item.CylinderType,
			Quantity:     item.Quantity,
			From:         StatusWithCustomer,
			To:           StatusEmptyInStock,
		})
	}
	for _, item := range items.Return {
		if item.CylinderType == "" || item.Quantity == 0 {
			continue
		}
		out = append(out, CylinderTransition{
			CylinderType: item.CylinderType,
			Quantity:     item.Quantity,
			From:         StatusWithCustomer,
			To:           StatusEmptyInStock,
		})
	}
	return out
}

// InverseTransitions swaps direction for an undo: cylinders marked
// WITH_CUSTOMER on the original sale return to their prior status.
func InverseTransitions(transitions []CylinderTransition) []CylinderTransition {
	out := make([]CylinderTransition, len(transitions))
	for i, tr := range transitions {
		out[i] = CylinderTransition{
			CylinderType: tr.CylinderType,
			Quantity:     tr.Quantity,
			From:         tr.To,
			To:           tr.From,
		}
	}
	return out
}

// failedTransitions filters results down to the rejected ones.
func failedTransitions(results []TransitionResult) []TransitionResult {
	var failed []TransitionResult
	for _, r := range results {
		if !r.OK {
			failed = append(failed, r)
		}
	}
	return failed
}

// InventoryError wraps per-item failures behind the appropriate sentinel.
type InventoryError struct {
	Sentinel error // ledger.ErrInsufficientInventory or ledger.ErrInventoryReversalFailed
	Failures []TransitionResult
}

func (e *InventoryError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%dx %s (%s -> %s): %s",
			f.Transition.Quantity, f.Transition.CylinderType, f.Transition.From, f.Transition.To, f.Reason)
	}
	return fmt.Sprintf("%v: %s", e.Sentinel, strings.Join(parts, "; "))
}

func (e *InventoryError) Unwrap() error { return e.Sentinel }
