/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using SQLite. The same SQL
  shapes apply to PostgreSQL (store/postgres) with only placeholder and
  dialect differences.

APPEND-ONLY ENFORCEMENT:
  The transactions table is append-only with ONE exception: MarkVoided
  flips the voided flag and stamps the void metadata, guarded by
  `AND voided = 0` so the transition is one-way at the SQL level. No
  DELETE statements exist for transactions.

KEY TABLES:
  customers:    Account identity plus derived balance/due caches + version
  transactions: Immutable ledger entries; line items stored as JSON

INDEXES:
  - idx_transactions_customer_created:  Replay order (hot path)
  - idx_transactions_customer_business: Business-date window filters

DERIVED-FIELD WRITES:
  UpdateCustomerDerived is a compare-and-swap on the version column.
  Zero rows affected means either a stale version (ErrConcurrentModification)
  or a missing customer (ErrCustomerNotFound); a follow-up existence check
  tells them apart.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
  - store/postgres: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Customers (derived caches + optimistic version)
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		due_counts_json TEXT NOT NULL DEFAULT '{}',
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Transactions (append-only ledger; voided flag is the one exception)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		business_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		paid_amount TEXT,
		unpaid_amount TEXT,
		payment_status TEXT NOT NULL DEFAULT '',
		items_json TEXT NOT NULL DEFAULT '[]',
		voided BOOLEAN NOT NULL DEFAULT FALSE,
		voided_by TEXT,
		voided_at TEXT,
		void_reason TEXT
	);

	-- Composite index for replay queries (hot path)
	CREATE INDEX IF NOT EXISTS idx_transactions_customer_created
		ON transactions(customer_id, created_at ASC);

	-- For business-date window filters
	CREATE INDEX IF NOT EXISTS idx_transactions_customer_business
		ON transactions(customer_id, business_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// queryer abstracts *sql.DB and *sql.Tx so the same statement helpers run
// inside and outside storage transactions.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTION STORE (ledger.Store interface)
// =============================================================================

const txColumns = `id, customer_id, tx_type, business_date, created_at, total_amount,
	       paid_amount, unpaid_amount, payment_status, items_json,
	       voided, voided_by, voided_at, void_reason`

// AppendTransaction persists a new transaction with its items.
func (s *Store) AppendTransaction(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return appendTransaction(ctx, s.db, tx)
}

func appendTransaction(ctx context.Context, db queryer, tx ledger.Transaction) error {
	itemsJSON, err := json.Marshal(toStoredItems(tx.Items))
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	query := `
		INSERT INTO transactions
		(id, customer_id, tx_type, business_date, created_at, total_amount,
		 paid_amount, unpaid_amount, payment_status, items_json,
		 voided, voided_by, voided_at, void_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		tx.ID,
		tx.CustomerID,
		tx.Type,
		tx.BusinessDate.UTC().Format("2006-01-02"),
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
		tx.TotalAmount.String(),
		moneyString(tx.PaidAmount),
		moneyString(tx.UnpaidAmount),
		tx.PaymentStatus,
		string(itemsJSON),
		tx.Voided,
		nullString(tx.VoidedBy),
		timeString(tx.VoidedAt),
		nullString(tx.VoidReason),
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// GetTransaction returns a transaction by id.
func (s *Store) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getTransaction(ctx, s.db, id)
}

func getTransaction(ctx context.Context, db queryer, id ledger.TransactionID) (*ledger.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = ?`

	txs, err := queryTransactions(ctx, db, query, id)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, ledger.ErrTransactionNotFound
	}
	return &txs[0], nil
}

// LoadByCustomer returns the customer's full history in replay order.
func (s *Store) LoadByCustomer(ctx context.Context, customerID ledger.CustomerID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return loadByCustomer(ctx, s.db, customerID)
}

func loadByCustomer(ctx context.Context, db queryer, customerID ledger.CustomerID) ([]ledger.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE customer_id = ?
		ORDER BY created_at ASC
	`

	return queryTransactions(ctx, db, query, customerID)
}

// LoadByCustomerRange returns the history filtered to business dates in
// [from, to] inclusive, still in replay order.
func (s *Store) LoadByCustomerRange(ctx context.Context, customerID ledger.CustomerID, from, to time.Time) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return loadByCustomerRange(ctx, s.db, customerID, from, to)
}

func loadByCustomerRange(ctx context.Context, db queryer, customerID ledger.CustomerID, from, to time.Time) ([]ledger.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE customer_id = ?
		  AND business_date >= ? AND business_date <= ?
		ORDER BY created_at ASC
	`

	return queryTransactions(ctx, db, query, customerID,
		from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
}

// MarkVoided performs the one-way POSTED -> VOIDED transition. The
// `AND voided = 0` guard makes the transition one-way at the SQL level.
func (s *Store) MarkVoided(ctx context.Context, id ledger.TransactionID, voidedBy, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return markVoided(ctx, s.db, id, voidedBy, reason, at)
}

func markVoided(ctx context.Context, db queryer, id ledger.TransactionID, voidedBy, reason string, at time.Time) error {
	query := `
		UPDATE transactions
		SET voided = TRUE, voided_by = ?, voided_at = ?, void_reason = ?
		WHERE id = ? AND voided = FALSE
	`

	res, err := db.ExecContext(ctx, query,
		voidedBy, at.UTC().Format(time.RFC3339Nano), nullString(reason), id)
	if err != nil {
		return fmt.Errorf("failed to void transaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// No row updated: either already voided or missing entirely.
	var voided bool
	err = db.QueryRowContext(ctx, "SELECT voided FROM transactions WHERE id = ?", id).Scan(&voided)
	if err == sql.ErrNoRows {
		return ledger.ErrTransactionNotFound
	}
	if err != nil {
		return err
	}
	return &ledger.AlreadyVoidedError{TransactionID: id}
}

func queryTransactions(ctx context.Context, db queryer, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		tx           ledger.Transaction
		businessDate string
		createdAt    string
		totalAmount  string
		paidAmount   sql.NullString
		unpaidAmount sql.NullString
		itemsJSON    string
		voidedBy     sql.NullString
		voidedAt     sql.NullString
		voidReason   sql.NullString
	)

	err := rows.Scan(
		&tx.ID, &tx.CustomerID, &tx.Type, &businessDate, &createdAt, &totalAmount,
		&paidAmount, &unpaidAmount, &tx.PaymentStatus, &itemsJSON,
		&tx.Voided, &voidedBy, &voidedAt, &voidReason,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.BusinessDate, _ = time.Parse("2006-01-02", businessDate)
	tx.CreatedAt = parseTime(createdAt)
	tx.TotalAmount = parseMoney(string(tx.ID), "total_amount", totalAmount)
	tx.PaidAmount = parseMoneyPtr(string(tx.ID), "paid_amount", paidAmount)
	tx.UnpaidAmount = parseMoneyPtr(string(tx.ID), "unpaid_amount", unpaidAmount)
	tx.VoidedBy = voidedBy.String
	tx.VoidReason = voidReason.String
	if voidedAt.Valid {
		t := parseTime(voidedAt.String)
		tx.VoidedAt = &t
	}

	var items []storedItem
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		return tx, fmt.Errorf("failed to decode items for transaction %s: %w", tx.ID, err)
	}
	tx.Items = fromStoredItems(string(tx.ID), items)

	return tx, nil
}

// =============================================================================
// CUSTOMER STORE
// =============================================================================

// SaveCustomer inserts a new customer record.
func (s *Store) SaveCustomer(ctx context.Context, c ledger.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveCustomer(ctx, s.db, c)
}

func saveCustomer(ctx context.Context, db queryer, c ledger.Customer) error {
	duesJSON, err := json.Marshal(c.DueCounts)
	if err != nil {
		return fmt.Errorf("failed to encode due counts: %w", err)
	}

	query := `
		INSERT INTO customers (id, name, balance, due_counts_json, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		c.ID, c.Name, c.Balance.String(), string(duesJSON), c.Version,
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrCustomerExists
		}
		return fmt.Errorf("failed to save customer: %w", err)
	}
	return nil
}

// GetCustomer returns a customer by id.
func (s *Store) GetCustomer(ctx context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getCustomer(ctx, s.db, id)
}

func getCustomer(ctx context.Context, db queryer, id ledger.CustomerID) (*ledger.Customer, error) {
	var (
		c         ledger.Customer
		balance   string
		duesJSON  string
		createdAt string
	)

	err := db.QueryRowContext(ctx,
		"SELECT id, name, balance, due_counts_json, version, created_at FROM customers WHERE id = ?",
		id,
	).Scan(&c.ID, &c.Name, &balance, &duesJSON, &c.Version, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ledger.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}

	c.Balance = parseMoney(string(c.ID), "balance", balance)
	c.CreatedAt = parseTime(createdAt)
	c.DueCounts = ledger.DueCounts{}
	if err := json.Unmarshal([]byte(duesJSON), &c.DueCounts); err != nil {
		return nil, fmt.Errorf("failed to decode due counts for customer %s: %w", c.ID, err)
	}
	return &c, nil
}

// ListCustomers returns all customers ordered by name.
func (s *Store) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listCustomers(ctx, s.db)
}

func listCustomers(ctx context.Context, db queryer) ([]ledger.Customer, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, balance, due_counts_json, version, created_at FROM customers ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []ledger.Customer
	for rows.Next() {
		var (
			c         ledger.Customer
			balance   string
			duesJSON  string
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.Name, &balance, &duesJSON, &c.Version, &createdAt); err != nil {
			return nil, err
		}
		c.Balance = parseMoney(string(c.ID), "balance", balance)
		c.CreatedAt = parseTime(createdAt)
		c.DueCounts = ledger.DueCounts{}
		if err := json.Unmarshal([]byte(duesJSON), &c.DueCounts); err != nil {
			return nil, fmt.Errorf("failed to decode due counts for customer %s: %w", c.ID, err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// UpdateCustomerDerived writes the derived caches with a version CAS.
func (s *Store) UpdateCustomerDerived(ctx context.Context, id ledger.CustomerID, balance ledger.Money, dues ledger.DueCounts, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return updateCustomerDerived(ctx, s.db, id, balance, dues, expectedVersion)
}

func updateCustomerDerived(ctx context.Context, db queryer, id ledger.CustomerID, balance ledger.Money, dues ledger.DueCounts, expectedVersion int64) error {
	duesJSON, err := json.Marshal(dues)
	if err != nil {
		return fmt.Errorf("failed to encode due counts: %w", err)
	}

	query := `
		UPDATE customers
		SET balance = ?, due_counts_json = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	res, err := db.ExecContext(ctx, query, balance.String(), string(duesJSON), id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers WHERE id = ?", id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return ledger.ErrCustomerNotFound
	}
	return ledger.ErrConcurrentModification
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every Store method through the open sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) AppendTransaction(ctx context.Context, tx ledger.Transaction) error {
	return appendTransaction(ctx, ts.tx, tx)
}

func (ts *txStore) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	return getTransaction(ctx, ts.tx, id)
}

func (ts *txStore) LoadByCustomer(ctx context.Context, customerID ledger.CustomerID) ([]ledger.Transaction, error) {
	return loadByCustomer(ctx, ts.tx, customerID)
}

func (ts *txStore) LoadByCustomerRange(ctx context.Context, customerID ledger.CustomerID, from, to time.Time) ([]ledger.Transaction, error) {
	return loadByCustomerRange(ctx, ts.tx, customerID, from, to)
}

func (ts *txStore) MarkVoided(ctx context.Context, id ledger.TransactionID, voidedBy, reason string, at time.Time) error {
	return markVoided(ctx, ts.tx, id, voidedBy, reason, at)
}

func (ts *txStore) SaveCustomer(ctx context.Context, c ledger.Customer) error {
	return saveCustomer(ctx, ts.tx, c)
}

func (ts *txStore) GetCustomer(ctx context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	return getCustomer(ctx, ts.tx, id)
}

func (ts *txStore) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	return listCustomers(ctx, ts.tx)
}

func (ts *txStore) UpdateCustomerDerived(ctx context.Context, id ledger.CustomerID, balance ledger.Money, dues ledger.DueCounts, expectedVersion int64) error {
	return updateCustomerDerived(ctx, ts.tx, id, balance, dues, expectedVersion)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"transactions", "customers"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// storedItem is the JSON shape of a line item in the items_json column.
// Decimals are stored as strings to round-trip exactly.
type storedItem struct {
	CylinderType string  `json:"cylinder_type,omitempty"`
	ProductName  string  `json:"product_name,omitempty"`
	Quantity     int     `json:"quantity"`
	PricePerItem *string `json:"price_per_item,omitempty"`
	TotalPrice   *string `json:"total_price,omitempty"`
	RemainingKg  *string `json:"remaining_kg,omitempty"`
	BuybackRate  *string `json:"buyback_rate,omitempty"`
	BuybackTotal *string `json:"buyback_total,omitempty"`
	Kind         string  `json:"kind,omitempty"`
}

func toStoredItems(items []ledger.TransactionItem) []storedItem {
	out := make([]storedItem, len(items))
	for i, item := range items {
		out[i] = storedItem{
			CylinderType: item.CylinderType,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			PricePerItem: moneyStringPtr(item.PricePerItem),
			TotalPrice:   moneyStringPtr(item.TotalPrice),
			RemainingKg:  decimalStringPtr(item.RemainingKg),
			BuybackRate:  decimalStringPtr(item.BuybackRate),
			BuybackTotal: moneyStringPtr(item.BuybackTotal),
			Kind:         string(item.Kind),
		}
	}
	return out
}

func fromStoredItems(txID string, items []storedItem) []ledger.TransactionItem {
	out := make([]ledger.TransactionItem, len(items))
	for i, item := range items {
		out[i] = ledger.TransactionItem{
			CylinderType: item.CylinderType,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			PricePerItem: parseMoneyField(txID, "price_per_item", item.PricePerItem),
			TotalPrice:   parseMoneyField(txID, "total_price", item.TotalPrice),
			RemainingKg:  parseDecimalField(txID, "remaining_kg", item.RemainingKg),
			BuybackRate:  parseDecimalField(txID, "buyback_rate", item.BuybackRate),
			BuybackTotal: parseMoneyField(txID, "buyback_total", item.BuybackTotal),
			Kind:         ledger.ItemKind(item.Kind),
		}
	}
	return out
}

// parseMoney degrades an unparseable stored value to zero so one corrupt
// record cannot make the whole ledger unviewable. The degradation is logged.
func parseMoney(txID, field, value string) ledger.Money {
	if _, err := decimal.NewFromString(value); err != nil {
		log.Printf("WARN: unparseable %s %q on record %s, treating as zero", field, value, txID)
	}
	return ledger.MustParseMoney(value)
}

func parseMoneyPtr(txID, field string, ns sql.NullString) *ledger.Money {
	if !ns.Valid {
		return nil
	}
	m := parseMoney(txID, field, ns.String)
	return &m
}

func parseMoneyField(txID, field string, s *string) *ledger.Money {
	if s == nil {
		return nil
	}
	m := parseMoney(txID, field, *s)
	return &m
}

func parseDecimalField(txID, field string, s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		log.Printf("WARN: unparseable %s %q on record %s, treating as zero", field, *s, txID)
		d = decimal.Zero
	}
	return &d
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func moneyString(m *ledger.Money) any {
	if m == nil {
		return nil
	}
	return m.String()
}

func moneyStringPtr(m *ledger.Money) *string {
	if m == nil {
		return nil
	}
	s := m.String()
	return &s
}

func decimalStringPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func timeString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
