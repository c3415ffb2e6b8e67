/*
store.go - Persistence interfaces for the ledger

PURPOSE:
  Defines the boundary between the engine and the database. Implementations
  exist for memory (ledger/store), SQLite (store/sqlite) and PostgreSQL
  (store/postgres); the engine never sees which one it is talking to.

MUTATION CONTRACT:
  Transactions are append-only with ONE exception: MarkVoided performs the
  one-way POSTED -> VOIDED transition and stamps the void metadata. No
  other transaction field mutation exists. Corrections are modeled as new
  adjustment transactions.

ORDERING:
  LoadByCustomer returns transactions ordered by CreatedAt ascending -
  the authoritative balance order. LoadByCustomerRange additionally
  filters by BusinessDate (inclusive bounds) for display windows.

CUSTOMER DERIVED FIELDS:
  UpdateCustomerDerived writes the balance/due caches with an optimistic
  version check; a mismatch returns ErrConcurrentModification and the
  caller retries with a fresh snapshot.
*/
package ledger

import (
	"context"
	"time"
)

// Store handles persistence of customers and their transactions.
type Store interface {
	// AppendTransaction persists a new transaction with its items.
	AppendTransaction(ctx context.Context, tx Transaction) error

	// GetTransaction returns a transaction by id, or ErrTransactionNotFound.
	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)

	// LoadByCustomer returns the customer's full history ordered by
	// CreatedAt ascending.
	LoadByCustomer(ctx context.Context, customerID CustomerID) ([]Transaction, error)

	// LoadByCustomerRange returns the history filtered to BusinessDate in
	// [from, to] inclusive, still ordered by CreatedAt.
	LoadByCustomerRange(ctx context.Context, customerID CustomerID, from, to time.Time) ([]Transaction, error)

	// MarkVoided performs the one-way POSTED -> VOIDED transition.
	// Returns ErrAlreadyVoided if the transaction is already voided and
	// ErrTransactionNotFound if it does not exist. This is the ONLY
	// permitted transaction mutation.
	MarkVoided(ctx context.Context, id TransactionID, voidedBy, reason string, at time.Time) error

	// SaveCustomer inserts a new customer record.
	SaveCustomer(ctx context.Context, c Customer) error

	// GetCustomer returns a customer by id, or ErrCustomerNotFound.
	GetCustomer(ctx context.Context, id CustomerID) (*Customer, error)

	// ListCustomers returns all customers.
	ListCustomers(ctx context.Context) ([]Customer, error)

	// UpdateCustomerDerived writes the derived balance/due caches if the
	// stored version still equals expectedVersion, bumping the version.
	// Returns ErrConcurrentModification on a version mismatch.
	UpdateCustomerDerived(ctx context.Context, id CustomerID, balance Money, dues DueCounts, expectedVersion int64) error
}

// TxStore wraps Store with transaction support. Every mutating engine
// operation (post, undo) runs inside WithTx so all its steps commit
// together or not at all.
type TxStore interface {
	Store

	// WithTx executes fn within a storage transaction. If fn returns an
	// error the transaction rolls back; otherwise it commits.
	WithTx(ctx context.Context, fn func(Store) error) error
}
