/*
reconcile.go - Derived-cache reconciliation sweep

PURPOSE:
  The stored customer balance and due counts are caches of a full-history
  replay. This sweep recomputes both for every customer and reports any
  drift. Drift is REPORTED, never silently corrected; RepairCustomer is
  the explicit, operator-invoked fix.
*/
package account

import (
	"context"
	"time"

	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
)

// DriftEntry describes one customer whose caches diverge from replay.
type DriftEntry struct {
	CustomerID      ledger.CustomerID
	StoredBalance   ledger.Money
	ReplayedBalance ledger.Money
	StoredDues      ledger.DueCounts
	ReplayedDues    ledger.DueCounts
}

// ReconciliationReport summarizes one sweep.
type ReconciliationReport struct {
	CheckedAt time.Time
	Customers int
	Drifts    []DriftEntry
}

// Reconcile replays every customer's history and compares against the
// stored derived caches.
func (s *Service) Reconcile(ctx context.Context) (*ReconciliationReport, error) {
	customers, err := s.Store.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{CheckedAt: s.now(), Customers: len(customers)}
	for _, c := range customers {
		history, err := s.Store.LoadByCustomer(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		balance := ledger.BalanceAfter(history)
		dues, _, err := ledger.RecomputeFromHistory(history)
		if err != nil {
			return nil, err
		}
		if balance.Equal(c.Balance) && dues.Equal(c.DueCounts) {
			continue
		}
		report.Drifts = append(report.Drifts, DriftEntry{
			CustomerID:      c.ID,
			StoredBalance:   c.Balance,
			ReplayedBalance: balance,
			StoredDues:      c.DueCounts,
			ReplayedDues:    dues,
		})
	}
	return report, nil
}

// RepairCustomer rebuilds one customer's derived caches from replay.
// Serialized against mutating operations on the same customer.
func (s *Service) RepairCustomer(ctx context.Context, id ledger.CustomerID) error {
	unlock := s.locks.lock(id)
	defer unlock()

	customer, err := s.Store.GetCustomer(ctx, id)
	if err != nil {
		return err
	}
	history, err := s.Store.LoadByCustomer(ctx, id)
	if err != nil {
		return err
	}
	balance := ledger.BalanceAfter(history)
	dues, _, err := ledger.RecomputeFromHistory(history)
	if err != nil {
		return err
	}
	if err := s.Store.UpdateCustomerDerived(ctx, id, balance, dues, customer.Version); err != nil {
		return err
	}
	// The repair supersedes whatever the cache believed.
	return s.Checkpoints.Delete(ctx, id)
}
