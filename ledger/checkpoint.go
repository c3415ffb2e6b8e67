/*
checkpoint.go - Balance checkpoints for long histories

PURPOSE:
  Replaying the full history on every windowed query is correct but grows
  linearly with history length. A checkpoint records the replayed balance
  through a known prefix so later replays can be verified (and, for very
  long histories, seeded) without changing any externally observable
  invariant: replay remains the source of truth.

STALENESS:
  An undo retroactively changes a prefix balance, so the undo engine must
  invalidate the customer's checkpoint. A stale checkpoint that survives
  anyway is caught by verification and surfaces as ErrReplayInconsistency -
  flagged for manual reconciliation, never silently auto-corrected.
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckpointTolerance is the maximum divergence between a checkpointed
// balance and a fresh replay before the ledger is flagged inconsistent.
var CheckpointTolerance = decimal.NewFromFloat(0.000001)

// Checkpoint captures the running balance through a history prefix.
type Checkpoint struct {
	CustomerID       CustomerID `json:"customer_id"`
	ThroughCreatedAt time.Time  `json:"through_created_at"`
	TxCount          int        `json:"tx_count"`
	Balance          Money      `json:"-"`

	// BalanceValue carries Balance across JSON encoding (cache storage).
	BalanceValue string `json:"balance"`
}

// TakeCheckpoint replays the full history and records the result.
func TakeCheckpoint(customerID CustomerID, history []Transaction) Checkpoint {
	ordered := SortByCreatedAt(history)
	balance := BalanceAfter(ordered)

	cp := Checkpoint{
		CustomerID: customerID,
		TxCount:    len(ordered),
		Balance:    balance,
	}
	cp.BalanceValue = balance.String()
	if len(ordered) > 0 {
		cp.ThroughCreatedAt = ordered[len(ordered)-1].CreatedAt
	}
	return cp
}

// Rehydrate restores the decimal balance after JSON decoding. An
// unparseable stored value degrades to zero, like any other corrupt
// historical field.
func (cp *Checkpoint) Rehydrate() {
	cp.Balance = MustParseMoney(cp.BalanceValue)
}

// Verify recomputes the balance of the checkpointed prefix from the given
// history and compares. A divergence beyond tolerance is fatal.
func (cp Checkpoint) Verify(history []Transaction) error {
	recomputed := ZeroMoney()
	count := 0
	for _, tx := range SortByCreatedAt(history) {
		if tx.CreatedAt.After(cp.ThroughCreatedAt) {
			break
		}
		recomputed = recomputed.Add(Impact(tx))
		count++
	}
	if count != cp.TxCount {
		// Prefix membership changed (e.g. backfill); the checkpoint no
		// longer describes this history and cannot vouch for it.
		return &ReplayInconsistencyError{CustomerID: cp.CustomerID, Expected: cp.Balance, Recomputed: recomputed}
	}

	diff := cp.Balance.Sub(recomputed).Abs()
	if diff.Value.GreaterThan(CheckpointTolerance) {
		return &ReplayInconsistencyError{CustomerID: cp.CustomerID, Expected: cp.Balance, Recomputed: recomputed}
	}
	return nil
}
