/*
classify.go - Line-item classification into financial buckets

PURPOSE:
  A single transaction can mix deliveries, buybacks, plain empty returns
  and accessory sales. Classification assigns each line item exactly one
  ItemKind so that the balance calculator, the due tracker, and every
  presentation surface read the same authoritative tag instead of
  re-deriving it from optional fields.

RULE ORDER (load-bearing - it resolves ambiguous combinations):
  1. BuybackRate explicitly set (even 0)          -> buyback
  2. PricePerItem > 0 and no BuybackRate          -> sale
  3. Cylinder, no price, no buyback, no remaining -> return (plain empty)
  4. No cylinder type (accessory, even free)      -> sale
  5. Cylinder present, nothing else matched       -> return (default)

  A buyback negotiated at rate 0 is still a buyback: rule 1 keys on the
  field being SET, not on its value.

CONTRACT:
  Pure and deterministic. No hidden state, no side effects. Malformed
  items (negative quantity) fail with ValidationError before any rule
  is applied.
*/
package ledger

// ClassifiedItems groups a transaction's line items by kind. Order within
// each bucket preserves the transaction's item order.
type ClassifiedItems struct {
	Sale    []TransactionItem
	Buyback []TransactionItem
	Return  []TransactionItem
}

// All returns every classified item in original bucketing order.
func (c ClassifiedItems) All() []TransactionItem {
	out := make([]TransactionItem, 0, len(c.Sale)+len(c.Buyback)+len(c.Return))
	out = append(out, c.Sale...)
	out = append(out, c.Buyback...)
	out = append(out, c.Return...)
	return out
}

// Classify validates and buckets line items. Each returned item has its
// Kind stamped; input items are not mutated.
func Classify(items []TransactionItem) (ClassifiedItems, error) {
	var out ClassifiedItems

	for i, item := range items {
		if item.Quantity < 0 {
			return ClassifiedItems{}, &ValidationError{
				ItemIndex: i,
				Field:     "quantity",
				Message:   "must not be negative",
			}
		}

		item.Kind = classifyItem(item)
		switch item.Kind {
		case KindBuyback:
			out.Buyback = append(out.Buyback, item)
		case KindReturn:
			out.Return = append(out.Return, item)
		default:
			out.Sale = append(out.Sale, item)
		}
	}

	return out, nil
}

// KindOf returns the bucket a single item classifies into, without
// validation. Deterministic: identical fields always yield the same kind.
func KindOf(item TransactionItem) ItemKind {
	return classifyItem(item)
}

// classifyItem applies the rules in their exact order.
func classifyItem(item TransactionItem) ItemKind {
	// Rule 1: an explicitly set buyback rate wins, even when the rate is 0.
	if item.BuybackRate != nil {
		return KindBuyback
	}

	// Rule 2: priced item with no buyback rate is a sale.
	if item.PricePerItem != nil && item.PricePerItem.IsPositive() {
		return KindSale
	}

	// Rule 3: bare cylinder (no price, no buyback, no remaining kg) is a
	// plain empty return.
	if item.CylinderType != "" && item.PricePerItem == nil && item.RemainingKg == nil {
		return KindReturn
	}

	// Rule 4: non-cylinder items are sales, including zero-priced freebies.
	if item.CylinderType == "" {
		return KindSale
	}

	// Rule 5: ambiguous cylinder items default to return.
	return KindReturn
}
