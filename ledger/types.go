/*
Package ledger provides the core transaction ledger and balance engine.

PURPOSE:
  This package contains the types and algorithms that keep a B2B customer
  account consistent: classifying composite line items into financial
  buckets, computing a transaction's signed balance impact, folding a
  running balance over the customer's history, and tracking per-type
  outstanding cylinder counts.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal monetary amount (no floating-point drift)
  - Transaction: An immutable ledger entry with ordered line items
  - TransactionItem: A single line within a transaction
  - ItemKind: The financial bucket a line item belongs to (sale/buyback/return)
  - Customer: Account identity plus DERIVED balance and due-count caches

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never edited. The only permitted
     mutation is the one-way POSTED -> VOIDED transition.
  2. Replay: Balance and due counts are always recomputable from the
     ordered transaction history. Stored values are caches, not truth.
  3. Precision: Uses decimal.Decimal to avoid floating-point errors.
  4. Single classification: ItemKind is assigned once by the classifier
     and persisted, so every consumer reads the same tag instead of
     re-deriving it from optional fields.

ORDERING:
  The running balance is a total order over a customer's transactions
  sorted by CreatedAt (insertion time), NOT BusinessDate. Two transactions
  entered for the same business day keep their insertion order for balance
  purposes; display may sort by BusinessDate independently.

SEE ALSO:
  - classify.go: Line-item classification rules
  - balance.go: Impact and running-balance computation
  - dues.go: Per-cylinder-type due tracking
  - store.go: Persistence interfaces
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal monetary amount
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

func ZeroMoney() Money {
	return Money{Value: decimal.Zero}
}

// MustParseMoney parses a stored decimal string. An unparseable historical
// value degrades to zero so a single corrupt record cannot make the whole
// ledger unviewable; callers log the degradation.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func (m Money) Add(o Money) Money         { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money         { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money                { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money                { return Money{Value: m.Value.Abs()} }
func (m Money) IsZero() bool              { return m.Value.IsZero() }
func (m Money) IsNegative() bool          { return m.Value.IsNegative() }
func (m Money) IsPositive() bool          { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool        { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool  { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool     { return m.Value.LessThan(o.Value) }
func (m Money) String() string            { return m.Value.String() }

func (m Money) Float64() float64 {
	f, _ := m.Value.Float64()
	return f
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CustomerID string
type TransactionID string

// =============================================================================
// TRANSACTION - Immutable ledger entry
// =============================================================================

type TransactionType string

const (
	TxSale        TransactionType = "SALE"
	TxPayment     TransactionType = "PAYMENT"
	TxBuyback     TransactionType = "BUYBACK"
	TxReturnEmpty TransactionType = "RETURN_EMPTY"
	TxAdjustment  TransactionType = "ADJUSTMENT"
	TxCreditNote  TransactionType = "CREDIT_NOTE"
)

// KnownTransactionType reports whether t is one of the recognized types.
// Unrecognized types are tolerated on read (impact 0) but rejected on post.
func KnownTransactionType(t TransactionType) bool {
	switch t {
	case TxSale, TxPayment, TxBuyback, TxReturnEmpty, TxAdjustment, TxCreditNote:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid    PaymentStatus = "UNPAID"
	PaymentPartial   PaymentStatus = "PARTIAL"
	PaymentFullyPaid PaymentStatus = "FULLY_PAID"
)

// ItemKind is the financial bucket assigned to a line item by the
// classifier. It is assigned exactly once and persisted with the item.
type ItemKind string

const (
	KindSale    ItemKind = "sale"
	KindBuyback ItemKind = "buyback"
	KindReturn  ItemKind = "return"
)

type Transaction struct {
	ID           TransactionID
	CustomerID   CustomerID
	Type         TransactionType
	BusinessDate time.Time // the day the business event happened
	CreatedAt    time.Time // insertion timestamp; authoritative for balance order
	TotalAmount  Money
	PaidAmount   *Money // nil when not applicable
	UnpaidAmount *Money // nil when not applicable
	PaymentStatus PaymentStatus
	Items        []TransactionItem

	// Void state. Voided is the only field that ever changes after posting,
	// and only via the one-way POSTED -> VOIDED transition.
	Voided     bool
	VoidedBy   string
	VoidedAt   *time.Time
	VoidReason string
}

// TransactionItem is a single line item. Optional fields are pointers so
// "explicitly zero" is distinguishable from "never set": a buyback
// negotiated at rate 0 is still a buyback.
type TransactionItem struct {
	CylinderType string // empty = non-cylinder item (accessory/product)
	ProductName  string
	Quantity     int
	PricePerItem *Money
	TotalPrice   *Money
	RemainingKg  *decimal.Decimal
	BuybackRate  *decimal.Decimal
	BuybackTotal *Money

	// Kind is stamped by Classify and persisted. Empty on unclassified input.
	Kind ItemKind
}

// =============================================================================
// CUSTOMER - Account identity plus derived caches
// =============================================================================

// Customer carries derived fields (Balance, DueCounts) that are caches of
// a full-history replay, never the source of truth. Version backs the
// optimistic-concurrency check on derived-field writes.
type Customer struct {
	ID        CustomerID
	Name      string
	Balance   Money     // derived: running balance after latest transaction
	DueCounts DueCounts // derived: outstanding cylinders per type
	Version   int64
	CreatedAt time.Time
}
