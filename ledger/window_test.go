package ledger_test

import (
	"testing"
	"time"

	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
)

// txOn builds a transaction whose BusinessDate and CreatedAt fall on the
// given calendar day, inserted at the given hour for ordering.
func txOn(id string, txType ledger.TransactionType, total float64, day, hour int) ledger.Transaction {
	at := time.Date(2025, time.March, day, hour, 0, 0, 0, time.UTC)
	return ledger.Transaction{
		ID:            ledger.TransactionID(id),
		CustomerID:    "cust-1",
		Type:          txType,
		BusinessDate:  at,
		CreatedAt:     at,
		TotalAmount:   ledger.NewMoney(total),
		PaymentStatus: ledger.PaymentUnpaid,
	}
}

func datePtr(day int) *time.Time {
	d := time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC)
	return &d
}

// =============================================================================
// WINDOWING
// =============================================================================

func TestComputeWindow_NetBalanceEqualsEndingMinusStarting(t *testing.T) {
	// GIVEN: History spanning March 1-20, window [March 10, March 20]
	// WHEN: Computing the windowed view
	// THEN: summary net == ending - starting, and starting is the replayed
	//       pre-window balance, not 0

	history := []ledger.Transaction{
		txOn("t1", ledger.TxSale, 2500, 1, 9),     // before window: +2500
		txOn("t2", ledger.TxPayment, 1000, 5, 9),  // before window: -1000
		txOn("t3", ledger.TxSale, 800, 12, 9),     // in window: +800
		txOn("t4", ledger.TxBuyback, 300, 15, 9),  // in window: -300
	}

	page := ledger.ComputeWindow(history, ledger.Window{Start: datePtr(10), End: datePtr(20)}, 1, 20)

	if !page.Summary.StartingBalance.Equal(ledger.NewMoney(1500)) {
		t.Errorf("starting: expected +1500, got %s", page.Summary.StartingBalance)
	}
	if !page.Summary.EndingBalance.Equal(ledger.NewMoney(2000)) {
		t.Errorf("ending: expected +2000, got %s", page.Summary.EndingBalance)
	}
	want := page.Summary.EndingBalance.Sub(page.Summary.StartingBalance)
	if !page.Summary.NetBalance.Equal(want) {
		t.Errorf("net %s != ending - starting %s", page.Summary.NetBalance, want)
	}
	if !page.Summary.TotalIn.Equal(ledger.NewMoney(800)) {
		t.Errorf("total in: expected 800, got %s", page.Summary.TotalIn)
	}
	if !page.Summary.TotalOut.Equal(ledger.NewMoney(300)) {
		t.Errorf("total out: expected 300, got %s", page.Summary.TotalOut)
	}
}

func TestComputeWindow_EndDateIsInclusive(t *testing.T) {
	// A transaction late on the window's end day is still a member.
	history := []ledger.Transaction{
		txOn("t1", ledger.TxSale, 500, 20, 23),
	}

	page := ledger.ComputeWindow(history, ledger.Window{Start: datePtr(10), End: datePtr(20)}, 1, 20)
	if page.Pagination.Total != 1 {
		t.Errorf("end-of-day transaction excluded from inclusive window")
	}
}

func TestComputeWindow_EmptyWindow_AllZeros(t *testing.T) {
	history := []ledger.Transaction{
		txOn("t1", ledger.TxSale, 500, 1, 9),
	}

	page := ledger.ComputeWindow(history, ledger.Window{Start: datePtr(10), End: datePtr(20)}, 1, 20)
	if page.Pagination.Total != 0 {
		t.Fatalf("expected no members, got %d", page.Pagination.Total)
	}
	if !page.Summary.StartingBalance.IsZero() || !page.Summary.EndingBalance.IsZero() || !page.Summary.NetBalance.IsZero() {
		t.Errorf("empty window must report zero balances, got %+v", page.Summary)
	}
}

func TestComputeWindow_OpenBounds_IncludeEverything(t *testing.T) {
	history := []ledger.Transaction{
		txOn("t1", ledger.TxSale, 500, 1, 9),
		txOn("t2", ledger.TxSale, 500, 20, 9),
	}

	page := ledger.ComputeWindow(history, ledger.Window{}, 1, 20)
	if page.Pagination.Total != 2 {
		t.Errorf("open window should include all, got %d", page.Pagination.Total)
	}
	if !page.Summary.StartingBalance.IsZero() {
		t.Errorf("full-history window starts at 0, got %s", page.Summary.StartingBalance)
	}
}

// =============================================================================
// PAGINATION
// =============================================================================

func TestComputeWindow_PaginationNeverChangesBalances(t *testing.T) {
	// GIVEN: 5 window members and a page size of 2
	// WHEN: Fetching every page
	// THEN: Each row's running balance matches the single-page fold exactly

	var history []ledger.Transaction
	for i := 0; i < 5; i++ {
		history = append(history, txOn(
			string(rune('a'+i)), ledger.TxSale, float64(100*(i+1)), 10+i, 9))
	}

	whole := ledger.ComputeWindow(history, ledger.Window{}, 1, 100)

	var paged []ledger.BalanceLine
	for page := 1; page <= 3; page++ {
		p := ledger.ComputeWindow(history, ledger.Window{}, page, 2)
		paged = append(paged, p.Lines...)
		if !p.Summary.EndingBalance.Equal(whole.Summary.EndingBalance) {
			t.Errorf("page %d: summary diverged from whole-set fold", page)
		}
	}

	if len(paged) != len(whole.Lines) {
		t.Fatalf("expected %d lines across pages, got %d", len(whole.Lines), len(paged))
	}
	for i := range paged {
		if !paged[i].RunningBalance.Equal(whole.Lines[i].RunningBalance) {
			t.Errorf("line %d: paged balance %s != whole-set balance %s",
				i, paged[i].RunningBalance, whole.Lines[i].RunningBalance)
		}
	}
}

func TestComputeWindow_PageBeyondEnd_Empty(t *testing.T) {
	history := []ledger.Transaction{txOn("t1", ledger.TxSale, 500, 1, 9)}

	page := ledger.ComputeWindow(history, ledger.Window{}, 5, 20)
	if len(page.Lines) != 0 {
		t.Errorf("expected empty page, got %d lines", len(page.Lines))
	}
	if page.Pagination.Total != 1 || page.Pagination.Pages != 1 {
		t.Errorf("pagination block should still describe the set: %+v", page.Pagination)
	}
}

func TestComputeWindow_Defaults(t *testing.T) {
	page := ledger.ComputeWindow(nil, ledger.Window{}, 0, 0)
	if page.Pagination.Page != 1 || page.Pagination.Limit != 20 {
		t.Errorf("expected defaults page=1 limit=20, got %+v", page.Pagination)
	}
}
