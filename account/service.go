/*
Package account orchestrates the ledger engine for B2B customer accounts.

PURPOSE:
  Composes the pure pieces in package ledger (classifier, balance
  calculator, due tracker, window computation) with persistence, the
  inventory collaborator, per-customer serialization, and checkpointing
  into the four exposed operations:

    PostTransaction   post a transaction, update derived caches
    UndoTransaction   one-way POSTED -> VOIDED reversal with full replay
    GetLedger         windowed, paginated ledger view
    GetCylinderDues   per-type outstanding cylinder counts

ATOMICITY:
  Every mutating operation runs its storage steps inside one WithTx: the
  transaction append/void, the derived-cache update, everything - commits
  together or rolls back together. Inventory transitions are requested
  BEFORE the storage transaction; a reported failure aborts the operation
  with nothing committed, and a storage failure after inventory succeeded
  triggers a best-effort compensating reversal.

DERIVED STATE:
  After every mutation the customer's balance and due counts are rebuilt
  by FULL replay of the ordered history - never patched locally - and
  written with an optimistic version check (ErrConcurrentModification on
  conflict; callers retry).
*/
package account

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amintahir16/lpg-gas-app-sub000/cache"
	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
)

// Service is the customer-account facade over the ledger engine.
type Service struct {
	Store       ledger.TxStore
	Inventory   Inventory
	Checkpoints cache.CheckpointCache

	// ReplayTimeout bounds full-history replays on read paths. Zero
	// disables the bound.
	ReplayTimeout time.Duration

	// CheckpointTTL controls how long cached checkpoints live.
	CheckpointTTL time.Duration

	locks customerLocks
	now   func() time.Time
	newID func() ledger.TransactionID
}

// NewService wires a service with production defaults.
func NewService(store ledger.TxStore, inventory Inventory, checkpoints cache.CheckpointCache) *Service {
	if inventory == nil {
		inventory = AcceptAllInventory{}
	}
	if checkpoints == nil {
		checkpoints = cache.NewMemoryCheckpointCache()
	}
	return &Service{
		Store:         store,
		Inventory:     inventory,
		Checkpoints:   checkpoints,
		ReplayTimeout: 30 * time.Second,
		CheckpointTTL: 24 * time.Hour,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         func() ledger.TransactionID { return ledger.TransactionID(uuid.NewString()) },
	}
}

// =============================================================================
// POST
// =============================================================================

// PostInput describes a transaction to post. Optional monetary fields are
// derived from the classified items when nil.
type PostInput struct {
	CustomerID    ledger.CustomerID
	Type          ledger.TransactionType
	BusinessDate  time.Time
	Items         []ledger.TransactionItem
	TotalAmount   *ledger.Money
	PaidAmount    *ledger.Money
	PaymentStatus ledger.PaymentStatus // derived from PaidAmount when empty
}

// PostResult reports the committed transaction and its balance effect.
type PostResult struct {
	TransactionID     ledger.TransactionID
	BalanceImpact     ledger.Money
	NewRunningBalance ledger.Money
	DueCounts         ledger.DueCounts
	Warnings          []ledger.OverReturnWarning
}

// PostTransaction validates, classifies, requests inventory transitions,
// and commits the transaction plus derived-cache updates atomically.
func (s *Service) PostTransaction(ctx context.Context, input PostInput) (*PostResult, error) {
	if !ledger.KnownTransactionType(input.Type) {
		return nil, &ledger.ValidationError{ItemIndex: -1, Field: "type", Message: "unknown transaction type"}
	}

	// Classify before touching storage; malformed items reject here.
	classified, err := ledger.Classify(input.Items)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(input.CustomerID)
	defer unlock()

	customer, err := s.Store.GetCustomer(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}

	tx := s.buildTransaction(input, classified)

	// Request physical transitions up front; a sale inventory cannot
	// satisfy rejects the whole transaction.
	transitions := TransitionsFor(classified)
	if err := s.applyInventory(ctx, transitions, ledger.ErrInsufficientInventory); err != nil {
		return nil, err
	}

	result := &PostResult{TransactionID: tx.ID, BalanceImpact: ledger.Impact(tx)}
	var committed []ledger.Transaction
	err = s.Store.WithTx(ctx, func(st ledger.Store) error {
		if err := st.AppendTransaction(ctx, tx); err != nil {
			return err
		}
		history, err := st.LoadByCustomer(ctx, input.CustomerID)
		if err != nil {
			return err
		}
		balance := ledger.BalanceAfter(history)
		dues, warnings, err := ledger.RecomputeFromHistory(history)
		if err != nil {
			return err
		}
		if err := st.UpdateCustomerDerived(ctx, customer.ID, balance, dues, customer.Version); err != nil {
			return err
		}
		result.NewRunningBalance = balance
		result.DueCounts = dues
		result.Warnings = warnings
		committed = history
		return nil
	})
	if err != nil {
		// Inventory already moved; compensate so no partial state leaks.
		s.compensateInventory(ctx, transitions)
		return nil, err
	}

	// Only checkpoint state that actually committed.
	s.storeCheckpoint(ctx, ledger.TakeCheckpoint(customer.ID, committed))

	for _, w := range result.Warnings {
		log.Printf("warning: customer %s: %s", input.CustomerID, w)
	}
	return result, nil
}

func (s *Service) buildTransaction(input PostInput, classified ledger.ClassifiedItems) ledger.Transaction {
	now := s.now()
	businessDate := input.BusinessDate
	if businessDate.IsZero() {
		businessDate = now
	}

	// Stamp the authoritative kind on each item, preserving item order.
	items := make([]ledger.TransactionItem, len(input.Items))
	copy(items, input.Items)
	for i := range items {
		items[i].Kind = ledger.KindOf(items[i])
	}

	total := ledger.ZeroMoney()
	if input.TotalAmount != nil {
		total = *input.TotalAmount
	} else {
		total = totalFromItems(classified)
	}

	status := input.PaymentStatus
	var paid, unpaid *ledger.Money
	if input.PaidAmount != nil {
		p := *input.PaidAmount
		paid = &p
		u := total.Sub(p)
		if u.IsNegative() {
			u = ledger.ZeroMoney()
		}
		unpaid = &u
		if status == "" {
			switch {
			case p.IsZero():
				status = ledger.PaymentUnpaid
			case u.IsZero():
				status = ledger.PaymentFullyPaid
			default:
				status = ledger.PaymentPartial
			}
		}
	} else if status == "" {
		status = ledger.PaymentUnpaid
	}

	return ledger.Transaction{
		ID:            s.newID(),
		CustomerID:    input.CustomerID,
		Type:          input.Type,
		BusinessDate:  businessDate,
		CreatedAt:     now,
		TotalAmount:   total,
		PaidAmount:    paid,
		UnpaidAmount:  unpaid,
		PaymentStatus: status,
		Items:         items,
	}
}

// totalFromItems derives the transaction total from its classified items:
// sale lines contribute price, buyback lines their negotiated total.
func totalFromItems(items ledger.ClassifiedItems) ledger.Money {
	total := ledger.ZeroMoney()
	for _, item := range items.Sale {
		switch {
		case item.TotalPrice != nil:
			total = total.Add(*item.TotalPrice)
		case item.PricePerItem != nil:
			total = total.Add(ledger.Money{Value: item.PricePerItem.Value.Mul(decimalFromInt(item.Quantity))})
		}
	}
	for _, item := range items.Buyback {
		if item.BuybackTotal != nil {
			total = total.Add(*item.BuybackTotal)
		}
	}
	return total
}

// =============================================================================
// UNDO
// =============================================================================

// UndoResult reports the reversal's effect.
type UndoResult struct {
	TransactionID         ledger.TransactionID
	ReversedBalanceImpact ledger.Money
	NewRunningBalance     ledger.Money
	UpdatedDueCounts      ledger.DueCounts
}

// UndoTransaction voids a posted transaction and replays history so every
// downstream running balance reflects the now-zero impact. VOIDED is
// terminal: undoing twice fails with ErrAlreadyVoided and mutates nothing.
func (s *Service) UndoTransaction(ctx context.Context, id ledger.TransactionID, voidedBy, reason string) (*UndoResult, error) {
	tx, err := s.Store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Voided {
		return nil, &ledger.AlreadyVoidedError{TransactionID: id, VoidedBy: tx.VoidedBy, VoidedAt: tx.VoidedAt}
	}

	unlock := s.locks.lock(tx.CustomerID)
	defer unlock()

	customer, err := s.Store.GetCustomer(ctx, tx.CustomerID)
	if err != nil {
		return nil, err
	}

	classified, err := ledger.Classify(tx.Items)
	if err != nil {
		return nil, err
	}

	// The impact being removed, measured before the void flips it to zero.
	reversed := ledger.Impact(*tx)

	// Request inverse physical transitions; any reported failure aborts
	// the whole undo with no state change.
	inverse := InverseTransitions(TransitionsFor(classified))
	if err := s.applyInventory(ctx, inverse, ledger.ErrInventoryReversalFailed); err != nil {
		return nil, err
	}

	result := &UndoResult{TransactionID: id, ReversedBalanceImpact: reversed}
	err = s.Store.WithTx(ctx, func(st ledger.Store) error {
		if err := st.MarkVoided(ctx, id, voidedBy, reason, s.now()); err != nil {
			return err
		}
		history, err := st.LoadByCustomer(ctx, tx.CustomerID)
		if err != nil {
			return err
		}
		balance := ledger.BalanceAfter(history)
		dues, _, err := ledger.RecomputeFromHistory(history)
		if err != nil {
			return err
		}
		if err := st.UpdateCustomerDerived(ctx, customer.ID, balance, dues, customer.Version); err != nil {
			return err
		}
		result.NewRunningBalance = balance
		result.UpdatedDueCounts = dues
		return nil
	})
	if err != nil {
		// Put the cylinders back where the reversal moved them from.
		s.compensateInventory(ctx, inverse)
		return nil, err
	}

	// The void changed a prefix balance retroactively; a surviving
	// checkpoint would now be stale.
	if err := s.Checkpoints.Delete(ctx, tx.CustomerID); err != nil {
		log.Printf("warning: failed to invalidate checkpoint for customer %s: %v", tx.CustomerID, err)
	}
	return result, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) applyInventory(ctx context.Context, transitions []CylinderTransition, sentinel error) error {
	if len(transitions) == 0 {
		return nil
	}
	results, err := s.Inventory.Apply(ctx, transitions)
	if err != nil {
		return &InventoryError{Sentinel: sentinel, Failures: []TransitionResult{{Reason: err.Error()}}}
	}
	if failed := failedTransitions(results); len(failed) > 0 {
		return &InventoryError{Sentinel: sentinel, Failures: failed}
	}
	return nil
}

func (s *Service) compensateInventory(ctx context.Context, applied []CylinderTransition) {
	if len(applied) == 0 {
		return
	}
	if _, err := s.Inventory.Apply(ctx, InverseTransitions(applied)); err != nil {
		log.Printf("warning: inventory compensation failed: %v", err)
	}
}

func (s *Service) storeCheckpoint(ctx context.Context, cp ledger.Checkpoint) {
	if err := s.Checkpoints.Set(ctx, cp, s.CheckpointTTL); err != nil {
		log.Printf("warning: failed to store checkpoint for customer %s: %v", cp.CustomerID, err)
	}
}

// replayContext bounds a full-history replay when a timeout is configured.
func (s *Service) replayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.ReplayTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.ReplayTimeout)
}

// CreateCustomer registers a new account with empty derived caches.
func (s *Service) CreateCustomer(ctx context.Context, id ledger.CustomerID, name string) (*ledger.Customer, error) {
	if id == "" {
		return nil, &ledger.ValidationError{ItemIndex: -1, Field: "id", Message: "must not be empty"}
	}
	c := ledger.Customer{
		ID:        id,
		Name:      name,
		Balance:   ledger.ZeroMoney(),
		DueCounts: ledger.NewDueCounts(),
		CreatedAt: s.now(),
	}
	if err := s.Store.SaveCustomer(ctx, c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCustomer returns the stored record with its derived caches.
func (s *Service) GetCustomer(ctx context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	return s.Store.GetCustomer(ctx, id)
}

// ListCustomers returns all accounts.
func (s *Service) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	return s.Store.ListCustomers(ctx)
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
