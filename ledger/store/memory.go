// Package store provides an in-memory ledger.Store implementation
// (testing/dev).
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	transactions map[ledger.CustomerID][]ledger.Transaction
	byID         map[ledger.TransactionID]ledger.CustomerID
	customers    map[ledger.CustomerID]ledger.Customer
}

func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[ledger.CustomerID][]ledger.Transaction),
		byID:         make(map[ledger.TransactionID]ledger.CustomerID),
		customers:    make(map[ledger.CustomerID]ledger.Customer),
	}
}

func (m *Memory) AppendTransaction(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(tx)
}

func (m *Memory) appendLocked(tx ledger.Transaction) error {
	txs := m.transactions[tx.CustomerID]

	// Binary search for the CreatedAt insertion point so reads stay sorted.
	i := sort.Search(len(txs), func(i int) bool {
		return txs[i].CreatedAt.After(tx.CreatedAt)
	})
	txs = append(txs, ledger.Transaction{})
	copy(txs[i+1:], txs[i:])
	txs[i] = tx
	m.transactions[tx.CustomerID] = txs
	m.byID[tx.ID] = tx.CustomerID
	return nil
}

func (m *Memory) GetTransaction(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	customerID, ok := m.byID[id]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	for _, tx := range m.transactions[customerID] {
		if tx.ID == id {
			cp := tx
			return &cp, nil
		}
	}
	return nil, ledger.ErrTransactionNotFound
}

func (m *Memory) LoadByCustomer(_ context.Context, customerID ledger.CustomerID) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Transaction, len(m.transactions[customerID]))
	copy(result, m.transactions[customerID])
	return result, nil
}

func (m *Memory) LoadByCustomerRange(_ context.Context, customerID ledger.CustomerID, from, to time.Time) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Transaction
	for _, tx := range m.transactions[customerID] {
		if !tx.BusinessDate.Before(from) && !tx.BusinessDate.After(to) {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (m *Memory) MarkVoided(_ context.Context, id ledger.TransactionID, voidedBy, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markVoidedLocked(id, voidedBy, reason, at)
}

func (m *Memory) markVoidedLocked(id ledger.TransactionID, voidedBy, reason string, at time.Time) error {
	customerID, ok := m.byID[id]
	if !ok {
		return ledger.ErrTransactionNotFound
	}
	txs := m.transactions[customerID]
	for i := range txs {
		if txs[i].ID != id {
			continue
		}
		if txs[i].Voided {
			return &ledger.AlreadyVoidedError{
				TransactionID: id,
				VoidedBy:      txs[i].VoidedBy,
				VoidedAt:      txs[i].VoidedAt,
			}
		}
		txs[i].Voided = true
		txs[i].VoidedBy = voidedBy
		txs[i].VoidReason = reason
		voidedAt := at
		txs[i].VoidedAt = &voidedAt
		return nil
	}
	return ledger.ErrTransactionNotFound
}

// =============================================================================
// CUSTOMERS
// =============================================================================

func (m *Memory) SaveCustomer(_ context.Context, c ledger.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.customers[c.ID]; exists {
		return ledger.ErrCustomerExists
	}
	c.DueCounts = c.DueCounts.Clone()
	m.customers[c.ID] = c
	return nil
}

func (m *Memory) GetCustomer(_ context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.customers[id]
	if !ok {
		return nil, ledger.ErrCustomerNotFound
	}
	c.DueCounts = c.DueCounts.Clone()
	return &c, nil
}

func (m *Memory) ListCustomers(_ context.Context) ([]ledger.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		c.DueCounts = c.DueCounts.Clone()
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateCustomerDerived(_ context.Context, id ledger.CustomerID, balance ledger.Money, dues ledger.DueCounts, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateDerivedLocked(id, balance, dues, expectedVersion)
}

func (m *Memory) updateDerivedLocked(id ledger.CustomerID, balance ledger.Money, dues ledger.DueCounts, expectedVersion int64) error {
	c, ok := m.customers[id]
	if !ok {
		return ledger.ErrCustomerNotFound
	}
	if c.Version != expectedVersion {
		return ledger.ErrConcurrentModification
	}
	c.Balance = balance
	c.DueCounts = dues.Clone()
	c.Version++
	m.customers[id] = c
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with snapshot/rollback transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn against a view of the store; on error the pre-call
// snapshot is restored so no partial state is ever observable.
func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snap := tm.snapshot()
	view := &txMemoryView{parent: tm}
	if err := fn(view); err != nil {
		tm.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	transactions map[ledger.CustomerID][]ledger.Transaction
	byID         map[ledger.TransactionID]ledger.CustomerID
	customers    map[ledger.CustomerID]ledger.Customer
}

func (tm *TxMemory) snapshot() memorySnapshot {
	txs := make(map[ledger.CustomerID][]ledger.Transaction, len(tm.transactions))
	for k, v := range tm.transactions {
		txs[k] = append([]ledger.Transaction{}, v...)
	}
	ids := make(map[ledger.TransactionID]ledger.CustomerID, len(tm.byID))
	for k, v := range tm.byID {
		ids[k] = v
	}
	customers := make(map[ledger.CustomerID]ledger.Customer, len(tm.customers))
	for k, v := range tm.customers {
		v.DueCounts = v.DueCounts.Clone()
		customers[k] = v
	}
	return memorySnapshot{transactions: txs, byID: ids, customers: customers}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.transactions = s.transactions
	tm.byID = s.byID
	tm.customers = s.customers
}

// txMemoryView routes calls to the locked parent without re-locking.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) AppendTransaction(_ context.Context, tx ledger.Transaction) error {
	return tv.parent.appendLocked(tx)
}

func (tv *txMemoryView) GetTransaction(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	customerID, ok := tv.parent.byID[id]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	for _, tx := range tv.parent.transactions[customerID] {
		if tx.ID == id {
			cp := tx
			return &cp, nil
		}
	}
	return nil, ledger.ErrTransactionNotFound
}

func (tv *txMemoryView) LoadByCustomer(_ context.Context, customerID ledger.CustomerID) ([]ledger.Transaction, error) {
	result := make([]ledger.Transaction, len(tv.parent.transactions[customerID]))
	copy(result, tv.parent.transactions[customerID])
	return result, nil
}

func (tv *txMemoryView) LoadByCustomerRange(_ context.Context, customerID ledger.CustomerID, from, to time.Time) ([]ledger.Transaction, error) {
	var result []ledger.Transaction
	for _, tx := range tv.parent.transactions[customerID] {
		if !tx.BusinessDate.Before(from) && !tx.BusinessDate.After(to) {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (tv *txMemoryView) MarkVoided(_ context.Context, id ledger.TransactionID, voidedBy, reason string, at time.Time) error {
	return tv.parent.markVoidedLocked(id, voidedBy, reason, at)
}

func (tv *txMemoryView) SaveCustomer(_ context.Context, c ledger.Customer) error {
	if _, exists := tv.parent.customers[c.ID]; exists {
		return ledger.ErrCustomerExists
	}
	c.DueCounts = c.DueCounts.Clone()
	tv.parent.customers[c.ID] = c
	return nil
}

func (tv *txMemoryView) GetCustomer(_ context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	c, ok := tv.parent.customers[id]
	if !ok {
		return nil, ledger.ErrCustomerNotFound
	}
	c.DueCounts = c.DueCounts.Clone()
	return &c, nil
}

func (tv *txMemoryView) ListCustomers(_ context.Context) ([]ledger.Customer, error) {
	out := make([]ledger.Customer, 0, len(tv.parent.customers))
	for _, c := range tv.parent.customers {
		c.DueCounts = c.DueCounts.Clone()
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tv *txMemoryView) UpdateCustomerDerived(_ context.Context, id ledger.CustomerID, balance ledger.Money, dues ledger.DueCounts, expectedVersion int64) error {
	return tv.parent.updateDerivedLocked(id, balance, dues, expectedVersion)
}
