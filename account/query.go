/*
query.go - Read-side operations

PURPOSE:
  GetLedger serves paginated, date-filtered ledger views; GetCylinderDues
  serves per-type outstanding counts. Both are pure reads: they replay the
  committed history and recompute presentation values on demand, mutating
  nothing.

CHECKPOINT VERIFICATION:
  When a cached checkpoint exists for the customer, the fresh replay is
  verified against it before answering. Divergence beyond tolerance fails
  the query with ErrReplayInconsistency for manual reconciliation; it is
  never silently auto-corrected.
*/
package account

import (
	"context"
	"log"
	"time"

	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
)

// LedgerQuery selects the window and page of a ledger view.
type LedgerQuery struct {
	StartDate *time.Time // inclusive, by BusinessDate
	EndDate   *time.Time // inclusive end-of-day, by BusinessDate
	Page      int
	Limit     int
}

// GetLedger computes one page of the customer's windowed ledger view.
// Balances are folded over the complete filtered set before pagination,
// seeded at the replayed pre-window balance.
func (s *Service) GetLedger(ctx context.Context, customerID ledger.CustomerID, q LedgerQuery) (*ledger.LedgerPage, error) {
	ctx, cancel := s.replayContext(ctx)
	defer cancel()

	if _, err := s.Store.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	history, err := s.Store.LoadByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if err := s.verifyCheckpoint(ctx, customerID, history); err != nil {
		return nil, err
	}

	page := ledger.ComputeWindow(history, ledger.Window{Start: q.StartDate, End: q.EndDate}, q.Page, q.Limit)

	// The replay we just did is worth keeping.
	s.storeCheckpoint(ctx, ledger.TakeCheckpoint(customerID, history))

	return &page, nil
}

// GetCylinderDues rebuilds the per-type due map from history. Clamp
// warnings encountered during replay are logged, not returned: they were
// already reported when the offending transactions committed.
func (s *Service) GetCylinderDues(ctx context.Context, customerID ledger.CustomerID) (ledger.DueCounts, error) {
	ctx, cancel := s.replayContext(ctx)
	defer cancel()

	if _, err := s.Store.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	history, err := s.Store.LoadByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	dues, warnings, err := ledger.RecomputeFromHistory(history)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		log.Printf("replay warning: customer %s: %s", customerID, w)
	}
	return dues, nil
}

func (s *Service) verifyCheckpoint(ctx context.Context, customerID ledger.CustomerID, history []ledger.Transaction) error {
	cp, ok, err := s.Checkpoints.Get(ctx, customerID)
	if err != nil {
		// A broken cache degrades to a plain replay.
		log.Printf("warning: checkpoint lookup failed for customer %s: %v", customerID, err)
		return nil
	}
	if !ok {
		return nil
	}
	return cp.Verify(history)
}
