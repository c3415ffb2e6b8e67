package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
	"github.com/amintahir16/lpg-gas-app-sub000/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testCustomer() ledger.Customer {
	return ledger.Customer{
		ID:        "cust-1",
		Name:      "Test Trader",
		Balance:   ledger.ZeroMoney(),
		DueCounts: ledger.NewDueCounts(),
		CreatedAt: time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC),
	}
}

func testTx(id string, day, hour int) ledger.Transaction {
	at := time.Date(2025, time.March, day, hour, 0, 0, 0, time.UTC)
	paid := ledger.NewMoney(1000)
	unpaid := ledger.NewMoney(1500)
	return ledger.Transaction{
		ID:            ledger.TransactionID(id),
		CustomerID:    "cust-1",
		Type:          ledger.TxSale,
		BusinessDate:  at,
		CreatedAt:     at,
		TotalAmount:   ledger.NewMoney(2500),
		PaidAmount:    &paid,
		UnpaidAmount:  &unpaid,
		PaymentStatus: ledger.PaymentPartial,
		Items: []ledger.TransactionItem{
			{CylinderType: "DOMESTIC_11KG", Quantity: 5, Kind: ledger.KindSale},
		},
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestSQLite_AppendAndLoad_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx := testTx("t1", 1, 9)
	require.NoError(t, store.AppendTransaction(ctx, tx))

	loaded, err := store.GetTransaction(ctx, "t1")
	require.NoError(t, err)

	assert.Equal(t, tx.ID, loaded.ID)
	assert.Equal(t, tx.Type, loaded.Type)
	assert.True(t, loaded.TotalAmount.Equal(tx.TotalAmount))
	require.NotNil(t, loaded.PaidAmount)
	assert.True(t, loaded.PaidAmount.Equal(*tx.PaidAmount))
	require.NotNil(t, loaded.UnpaidAmount)
	assert.True(t, loaded.UnpaidAmount.Equal(*tx.UnpaidAmount))
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "DOMESTIC_11KG", loaded.Items[0].CylinderType)
	assert.Equal(t, ledger.KindSale, loaded.Items[0].Kind)
	assert.False(t, loaded.Voided)
}

func TestSQLite_LoadByCustomer_CreatedAtOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Insert out of chronological order.
	require.NoError(t, store.AppendTransaction(ctx, testTx("t3", 3, 9)))
	require.NoError(t, store.AppendTransaction(ctx, testTx("t1", 1, 9)))
	require.NoError(t, store.AppendTransaction(ctx, testTx("t2", 2, 9)))

	history, err := store.LoadByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, ledger.TransactionID("t1"), history[0].ID)
	assert.Equal(t, ledger.TransactionID("t2"), history[1].ID)
	assert.Equal(t, ledger.TransactionID("t3"), history[2].ID)
}

func TestSQLite_LoadByCustomerRange_InclusiveBounds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendTransaction(ctx, testTx("t1", 1, 9)))
	require.NoError(t, store.AppendTransaction(ctx, testTx("t2", 10, 9)))
	require.NoError(t, store.AppendTransaction(ctx, testTx("t3", 20, 23)))
	require.NoError(t, store.AppendTransaction(ctx, testTx("t4", 21, 9)))

	from := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)
	got, err := store.LoadByCustomerRange(ctx, "cust-1", from, to)
	require.NoError(t, err)

	require.Len(t, got, 2, "both boundary days belong to the range")
	assert.Equal(t, ledger.TransactionID("t2"), got[0].ID)
	assert.Equal(t, ledger.TransactionID("t3"), got[1].ID)
}

func TestSQLite_MarkVoided_OneWay(t *testing.T) {
	// GIVEN: A posted transaction
	// WHEN: Voiding it twice
	// THEN: First succeeds and stamps metadata; second fails ErrAlreadyVoided

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendTransaction(ctx, testTx("t1", 1, 9)))

	at := time.Date(2025, time.March, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.MarkVoided(ctx, "t1", "admin", "entered twice", at))

	loaded, err := store.GetTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, loaded.Voided)
	assert.Equal(t, "admin", loaded.VoidedBy)
	assert.Equal(t, "entered twice", loaded.VoidReason)
	require.NotNil(t, loaded.VoidedAt)
	assert.True(t, loaded.VoidedAt.Equal(at))

	err = store.MarkVoided(ctx, "t1", "admin", "again", at)
	assert.ErrorIs(t, err, ledger.ErrAlreadyVoided)
}

func TestSQLite_MarkVoided_Missing(t *testing.T) {
	store := newTestStore(t)

	err := store.MarkVoided(context.Background(), "ghost", "admin", "", time.Now())
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}

// =============================================================================
// CUSTOMERS
// =============================================================================

func TestSQLite_Customer_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := testCustomer()
	c.DueCounts["DOMESTIC_11KG"] = 5
	require.NoError(t, store.SaveCustomer(ctx, c))

	loaded, err := store.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, loaded.Name)
	assert.Equal(t, 5, loaded.DueCounts["DOMESTIC_11KG"])
	assert.Equal(t, int64(0), loaded.Version)
}

func TestSQLite_SaveCustomer_DuplicateRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCustomer(ctx, testCustomer()))
	err := store.SaveCustomer(ctx, testCustomer())
	assert.ErrorIs(t, err, ledger.ErrCustomerExists)
}

func TestSQLite_UpdateCustomerDerived_VersionCAS(t *testing.T) {
	// GIVEN: A customer at version 0
	// WHEN: Writing derived caches with the right then the same (stale) version
	// THEN: First write bumps to 1; stale write fails ErrConcurrentModification

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCustomer(ctx, testCustomer()))

	dues := ledger.DueCounts{"DOMESTIC_11KG": 5}
	require.NoError(t, store.UpdateCustomerDerived(ctx, "cust-1", ledger.NewMoney(2500), dues, 0))

	loaded, err := store.GetCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Version)
	assert.True(t, loaded.Balance.Equal(ledger.NewMoney(2500)))

	err = store.UpdateCustomerDerived(ctx, "cust-1", ledger.NewMoney(0), nil, 0)
	assert.ErrorIs(t, err, ledger.ErrConcurrentModification)
}

func TestSQLite_UpdateCustomerDerived_Missing(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateCustomerDerived(context.Background(), "ghost", ledger.ZeroMoney(), nil, 0)
	assert.ErrorIs(t, err, ledger.ErrCustomerNotFound)
}

// =============================================================================
// STORAGE TRANSACTIONS
// =============================================================================

func TestSQLite_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction function that appends then fails
	// WHEN: Running it via WithTx
	// THEN: Nothing it did is visible afterwards

	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(st ledger.Store) error {
		if err := st.AppendTransaction(ctx, testTx("t1", 1, 9)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.GetTransaction(ctx, "t1")
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}

func TestSQLite_WithTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(st ledger.Store) error {
		if err := st.SaveCustomer(ctx, testCustomer()); err != nil {
			return err
		}
		return st.AppendTransaction(ctx, testTx("t1", 1, 9))
	})
	require.NoError(t, err)

	history, err := store.LoadByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
