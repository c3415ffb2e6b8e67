/*
window.go - Date-windowed, paginated ledger views

PURPOSE:
  Serves the "show me this customer's ledger for March" use case with
  correct balance continuity across the filter boundary. The window
  filters on BusinessDate, but balance order stays CreatedAt: the starting
  balance is the running balance of the last transaction strictly
  preceding the window's earliest member by CreatedAt, computed by
  replaying all prior history - never assumed to be 0.

PAGINATION:
  Balances are folded over the COMPLETE filtered set before slicing a
  page, so pagination can never change a balance value.
*/
package ledger

import "time"

// Window is an inclusive BusinessDate range. A nil bound is open.
// End means end-of-day (23:59:59.999...).
type Window struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether a business date falls inside the window.
func (w Window) Contains(businessDate time.Time) bool {
	if w.Start != nil && businessDate.Before(startOfDay(*w.Start)) {
		return false
	}
	if w.End != nil && businessDate.After(endOfDay(*w.End)) {
		return false
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// =============================================================================
// RESULT TYPES
// =============================================================================

// Summary aggregates the filtered set only. NetBalance keeps the internal
// running-balance sign convention (ending - starting); rendering surfaces
// apply Displayed() on top, like everywhere else.
type Summary struct {
	NetBalance      Money // endingBalance - startingBalance over the window
	TotalIn         Money // sum of positive impacts (charges)
	TotalOut        Money // sum of negative impacts, as a positive number (credits)
	StartingBalance Money
	EndingBalance   Money
}

type Pagination struct {
	Page  int
	Limit int
	Total int
	Pages int
}

// LedgerPage is one page of a windowed ledger view.
type LedgerPage struct {
	Summary    Summary
	Lines      []BalanceLine
	Pagination Pagination
}

// =============================================================================
// WINDOW COMPUTATION
// =============================================================================

// ComputeWindow filters, balances, and paginates a customer's history.
// Pure: operates on the given history snapshot only.
func ComputeWindow(history []Transaction, w Window, page, limit int) LedgerPage {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	ordered := SortByCreatedAt(history)

	// Filter by BusinessDate, preserving CreatedAt order.
	var filtered []Transaction
	for _, tx := range ordered {
		if w.Contains(tx.BusinessDate) {
			filtered = append(filtered, tx)
		}
	}

	if len(filtered) == 0 {
		return LedgerPage{
			Summary:    Summary{NetBalance: ZeroMoney(), TotalIn: ZeroMoney(), TotalOut: ZeroMoney(), StartingBalance: ZeroMoney(), EndingBalance: ZeroMoney()},
			Lines:      []BalanceLine{},
			Pagination: Pagination{Page: page, Limit: limit, Total: 0, Pages: 0},
		}
	}

	// Starting balance: replay everything strictly before the earliest
	// member's insertion time.
	starting := StartingBalance(ordered, filtered[0].CreatedAt)

	// Fold the complete filtered set before any slicing.
	lines := FoldBalances(filtered, starting)

	totalIn := ZeroMoney()
	totalOut := ZeroMoney()
	for _, line := range lines {
		if line.Impact.IsNegative() {
			totalOut = totalOut.Add(line.Impact.Neg())
		} else {
			totalIn = totalIn.Add(line.Impact)
		}
	}
	ending := lines[len(lines)-1].RunningBalance

	total := len(lines)
	pages := (total + limit - 1) / limit

	// Slice the page from the already-balanced set.
	from := (page - 1) * limit
	if from > total {
		from = total
	}
	to := from + limit
	if to > total {
		to = total
	}

	return LedgerPage{
		Summary: Summary{
			NetBalance:      ending.Sub(starting),
			TotalIn:         totalIn,
			TotalOut:        totalOut,
			StartingBalance: starting,
			EndingBalance:   ending,
		},
		Lines:      lines[from:to],
		Pagination: Pagination{Page: page, Limit: limit, Total: total, Pages: pages},
	}
}
