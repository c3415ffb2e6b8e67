/*
dues.go - Per-cylinder-type due tracking

PURPOSE:
  A "due" is a cylinder delivered to a customer and not yet returned or
  bought back. The tracker applies classified line items as deltas and can
  rebuild the whole map from history, so incremental application and full
  replay always agree (the undo engine and data-repair tools depend on
  that idempotence).

RULES:
  Sale-classified cylinder items:       due[type] += quantity
  Buyback/return-classified items:      due[type] = max(0, due[type] - quantity)
  Payment items, non-cylinder items:    no effect
  Voided transactions:                  no effect, permanently

CLAMPING:
  Due counts never go negative. An over-return clamps to 0 and emits an
  OverReturnWarning; it never blocks the transaction.
*/
package ledger

// DueCounts maps cylinder type to outstanding count. All values are >= 0.
type DueCounts map[string]int

func NewDueCounts() DueCounts { return make(DueCounts) }

// Clone returns an independent copy. A nil receiver clones to an empty map.
func (d DueCounts) Clone() DueCounts {
	out := make(DueCounts, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Equal reports whether two due maps hold the same non-zero counts.
func (d DueCounts) Equal(o DueCounts) bool {
	for k, v := range d {
		if v != 0 && o[k] != v {
			return false
		}
	}
	for k, v := range o {
		if v != 0 && d[k] != v {
			return false
		}
	}
	return true
}

// Total returns the sum over all cylinder types.
func (d DueCounts) Total() int {
	n := 0
	for _, v := range d {
		n += v
	}
	return n
}

// =============================================================================
// DELTA APPLICATION
// =============================================================================

// ApplyDelta folds one transaction's classified items into the due counts.
// The input map is not mutated. Voided transactions contribute nothing.
func ApplyDelta(due DueCounts, tx Transaction, items ClassifiedItems) (DueCounts, []OverReturnWarning) {
	out := due.Clone()
	if tx.Voided {
		return out, nil
	}

	var warnings []OverReturnWarning
	for _, item := range items.Sale {
		if item.CylinderType == "" {
			continue // accessories carry no cylinder
		}
		out[item.CylinderType] += item.Quantity
	}
	for _, item := range items.Buyback {
		if item.CylinderType == "" {
			continue
		}
		out, warnings = subtractClamped(out, item, warnings)
	}
	for _, item := range items.Return {
		if item.CylinderType == "" {
			continue
		}
		out, warnings = subtractClamped(out, item, warnings)
	}
	return out, warnings
}

// ApplyInverse re-runs ApplyDelta with roles swapped: items that
// incremented dues now decrement (clamped at 0) and vice versa. This is
// the undo engine's step 2.
func ApplyInverse(due DueCounts, tx Transaction, items ClassifiedItems) (DueCounts, []OverReturnWarning) {
	out := due.Clone()

	var warnings []OverReturnWarning
	for _, item := range items.Sale {
		if item.CylinderType == "" {
			continue
		}
		out, warnings = subtractClamped(out, item, warnings)
	}
	for _, item := range items.Buyback {
		if item.CylinderType == "" {
			continue
		}
		out[item.CylinderType] += item.Quantity
	}
	for _, item := range items.Return {
		if item.CylinderType == "" {
			continue
		}
		out[item.CylinderType] += item.Quantity
	}
	return out, warnings
}

func subtractClamped(due DueCounts, item TransactionItem, warnings []OverReturnWarning) (DueCounts, []OverReturnWarning) {
	current := due[item.CylinderType]
	next := current - item.Quantity
	if next < 0 {
		warnings = append(warnings, OverReturnWarning{
			CylinderType: item.CylinderType,
			Due:          current,
			Returned:     item.Quantity,
		})
		next = 0
	}
	due[item.CylinderType] = next
	return due, warnings
}

// =============================================================================
// FULL REPLAY
// =============================================================================

// RecomputeFromHistory rebuilds due counts from scratch in CreatedAt order.
// Replaying the same history always yields the same result as incremental
// application over it.
func RecomputeFromHistory(history []Transaction) (DueCounts, []OverReturnWarning, error) {
	due := NewDueCounts()
	var warnings []OverReturnWarning

	for _, tx := range SortByCreatedAt(history) {
		classified, err := Classify(tx.Items)
		if err != nil {
			return nil, nil, err
		}
		var w []OverReturnWarning
		due, w = ApplyDelta(due, tx, classified)
		warnings = append(warnings, w...)
	}
	return due, warnings, nil
}
