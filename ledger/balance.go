/*
balance.go - Signed impact and running-balance computation

PURPOSE:
  Computes each transaction's signed balance impact and folds impacts into
  a running balance over the customer's ordered history. This is the
  single source of truth consumed by the API, reports, and the account
  service; no surface keeps its own incrementally mutated counter.

SIGN CONVENTION:
  Positive running balance = customer owes the company. The customer-facing
  "net balance" is the NEGATION of the running balance (positive shown
  value = customer has credit). Displayed() is the one place that inversion
  lives; every rendering surface must go through it.

ORDERING:
  The fold is over transactions sorted by CreatedAt (insertion order),
  seeded at 0 for the customer's first-ever transaction. BusinessDate is a
  display/filter concern only.

IMPACT RULES:
  SALE:        0 when FULLY_PAID; else UnpaidAmount when set; else TotalAmount
  PAYMENT, BUYBACK, ADJUSTMENT, CREDIT_NOTE: -TotalAmount
  RETURN_EMPTY and unrecognized types:        0
  Any voided transaction:                     0 (overrides everything)
*/
package ledger

import (
	"sort"
	"time"
)

// =============================================================================
// IMPACT
// =============================================================================

// Impact returns the signed balance impact of a single transaction.
// A voided transaction always contributes 0, permanently.
func Impact(tx Transaction) Money {
	if tx.Voided {
		return ZeroMoney()
	}

	switch tx.Type {
	case TxSale:
		if tx.PaymentStatus == PaymentFullyPaid {
			return ZeroMoney()
		}
		if tx.UnpaidAmount != nil {
			return *tx.UnpaidAmount
		}
		return tx.TotalAmount
	case TxPayment, TxBuyback, TxAdjustment, TxCreditNote:
		return tx.TotalAmount.Neg()
	default:
		// RETURN_EMPTY and anything unrecognized carry no balance impact.
		return ZeroMoney()
	}
}

// Displayed converts an internal running balance to the customer-facing
// net balance. This negation is applied identically at every surface that
// renders a balance; a surface that skips it is a defect.
func Displayed(running Money) Money {
	return running.Neg()
}

// =============================================================================
// RUNNING BALANCE
// =============================================================================

// BalanceLine pairs a transaction with its impact and the running balance
// after applying it.
type BalanceLine struct {
	Transaction    Transaction
	Impact         Money
	RunningBalance Money
}

// SortByCreatedAt orders a copy of history by insertion time. The sort is
// stable so transactions sharing a CreatedAt keep their given order.
func SortByCreatedAt(history []Transaction) []Transaction {
	ordered := make([]Transaction, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	return ordered
}

// RunningBalances replays the full history in CreatedAt order, seeded at 0.
func RunningBalances(history []Transaction) []BalanceLine {
	return FoldBalances(SortByCreatedAt(history), ZeroMoney())
}

// FoldBalances folds impacts over an already-ordered sequence, seeded at
// the given starting balance.
func FoldBalances(ordered []Transaction, starting Money) []BalanceLine {
	lines := make([]BalanceLine, len(ordered))
	balance := starting
	for i, tx := range ordered {
		impact := Impact(tx)
		balance = balance.Add(impact)
		lines[i] = BalanceLine{Transaction: tx, Impact: impact, RunningBalance: balance}
	}
	return lines
}

// BalanceAfter returns the running balance after the last transaction in
// the history (0 for an empty history).
func BalanceAfter(history []Transaction) Money {
	lines := RunningBalances(history)
	if len(lines) == 0 {
		return ZeroMoney()
	}
	return lines[len(lines)-1].RunningBalance
}

// StartingBalance replays every transaction strictly preceding the given
// insertion time and returns the balance at that point. A filtered window
// seeds its fold here instead of assuming 0.
func StartingBalance(history []Transaction, before time.Time) Money {
	balance := ZeroMoney()
	for _, tx := range SortByCreatedAt(history) {
		if !tx.CreatedAt.Before(before) {
			break
		}
		balance = balance.Add(Impact(tx))
	}
	return balance
}
