package ledger_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(v float64) *ledger.Money {
	m := ledger.NewMoney(v)
	return &m
}

func dec(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

// =============================================================================
// RULE ORDER TESTS
// =============================================================================

func TestClassify_BuybackRateWins_EvenAtZero(t *testing.T) {
	// GIVEN: A cylinder item with BOTH a price and an explicit buyback rate of 0
	// WHEN: Classifying
	// THEN: Rule 1 fires - the item is a buyback, not a sale

	item := ledger.TransactionItem{
		CylinderType: "DOMESTIC_11KG",
		Quantity:     3,
		PricePerItem: money(500),
		BuybackRate:  dec(0),
	}

	if got := ledger.KindOf(item); got != ledger.KindBuyback {
		t.Errorf("expected buyback (rate explicitly 0), got %v", got)
	}
}

func TestClassify_PricedItem_IsSale(t *testing.T) {
	// GIVEN: A cylinder item with a positive price and no buyback rate
	// WHEN: Classifying
	// THEN: Rule 2 fires - sale

	item := ledger.TransactionItem{
		CylinderType: "DOMESTIC_11KG",
		Quantity:     5,
		PricePerItem: money(500),
	}

	if got := ledger.KindOf(item); got != ledger.KindSale {
		t.Errorf("expected sale, got %v", got)
	}
}

func TestClassify_BareCylinder_IsPlainReturn(t *testing.T) {
	// GIVEN: A cylinder with no price, no buyback rate and no remaining kg
	// WHEN: Classifying
	// THEN: Rule 3 fires - plain empty return

	item := ledger.TransactionItem{
		CylinderType: "COMMERCIAL_45KG",
		Quantity:     2,
	}

	if got := ledger.KindOf(item); got != ledger.KindReturn {
		t.Errorf("expected return, got %v", got)
	}
}

func TestClassify_Accessory_IsSale_EvenFree(t *testing.T) {
	// GIVEN: A non-cylinder item with no price at all (a freebie regulator)
	// WHEN: Classifying
	// THEN: Rule 4 fires - sale

	item := ledger.TransactionItem{
		ProductName: "Regulator",
		Quantity:    1,
	}

	if got := ledger.KindOf(item); got != ledger.KindSale {
		t.Errorf("expected sale for accessory, got %v", got)
	}
}

func TestClassify_AmbiguousCylinder_DefaultsToReturn(t *testing.T) {
	// GIVEN: A cylinder with remaining kg recorded but no price and no
	//        buyback rate - rules 1-3 all pass over it
	// WHEN: Classifying
	// THEN: Rule 5 fires - return

	item := ledger.TransactionItem{
		CylinderType: "DOMESTIC_11KG",
		Quantity:     1,
		RemainingKg:  dec(4.5),
	}

	if got := ledger.KindOf(item); got != ledger.KindReturn {
		t.Errorf("expected return by default, got %v", got)
	}
}

func TestClassify_ZeroPricedCylinder_NotASale(t *testing.T) {
	// A price explicitly set to 0 does not satisfy rule 2 (it requires a
	// POSITIVE price). With RemainingKg nil rule 3 also misses (price is
	// set), so the item lands on the rule-5 default.
	item := ledger.TransactionItem{
		CylinderType: "DOMESTIC_11KG",
		Quantity:     1,
		PricePerItem: money(0),
	}

	if got := ledger.KindOf(item); got != ledger.KindReturn {
		t.Errorf("expected return for zero-priced cylinder, got %v", got)
	}
}

// =============================================================================
// BUCKETING AND CONTRACT TESTS
// =============================================================================

func TestClassify_MixedTransaction_BucketsEveryItem(t *testing.T) {
	// GIVEN: A composite delivery: 5 sold, 3 bought back, 2 plain returns,
	//        1 accessory
	// WHEN: Classifying the whole item list
	// THEN: Every item lands in exactly one bucket with its Kind stamped

	items := []ledger.TransactionItem{
		{CylinderType: "DOMESTIC_11KG", Quantity: 5, PricePerItem: money(500)},
		{CylinderType: "DOMESTIC_11KG", Quantity: 3, BuybackRate: dec(0.6), BuybackTotal: money(900)},
		{CylinderType: "COMMERCIAL_45KG", Quantity: 2},
		{ProductName: "Hose", Quantity: 1, PricePerItem: money(150)},
	}

	classified, err := ledger.Classify(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(classified.Sale) != 2 {
		t.Errorf("expected 2 sale items, got %d", len(classified.Sale))
	}
	if len(classified.Buyback) != 1 {
		t.Errorf("expected 1 buyback item, got %d", len(classified.Buyback))
	}
	if len(classified.Return) != 1 {
		t.Errorf("expected 1 return item, got %d", len(classified.Return))
	}

	for _, item := range classified.All() {
		if item.Kind == "" {
			t.Errorf("item %q left without a Kind stamp", item.CylinderType+item.ProductName)
		}
	}
}

func TestClassify_NegativeQuantity_Rejected(t *testing.T) {
	// GIVEN: An item list whose second entry has a negative quantity
	// WHEN: Classifying
	// THEN: ValidationError naming the item index; nothing is classified

	items := []ledger.TransactionItem{
		{CylinderType: "DOMESTIC_11KG", Quantity: 5, PricePerItem: money(500)},
		{CylinderType: "DOMESTIC_11KG", Quantity: -1},
	}

	_, err := ledger.Classify(items)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var vErr *ledger.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if vErr.ItemIndex != 1 {
		t.Errorf("expected item index 1, got %d", vErr.ItemIndex)
	}
	if !ledger.IsClientError(err) {
		t.Error("validation errors must be client errors")
	}
}

func TestClassify_Deterministic(t *testing.T) {
	// Identical fields must classify identically, run after run.
	item := ledger.TransactionItem{
		CylinderType: "DOMESTIC_11KG",
		Quantity:     3,
		BuybackRate:  dec(0.6),
	}

	first := ledger.KindOf(item)
	for i := 0; i < 100; i++ {
		if got := ledger.KindOf(item); got != first {
			t.Fatalf("run %d: classification flipped from %v to %v", i, first, got)
		}
	}
}
