// Package inventory computes merchandise availability.
//
// The only authoritative number is a variant's own stock column, mutated by
// the store through a conditional decrement/increment. Variants created
// before per-variant stock existed carry a nil stock; for those the event's
// aggregate stock is spread evenly across variants, remainder first. That
// derived figure is only used for reads and for a one-time backfill, after
// which the variant holds an explicit value like every other row.
package inventory

import (
	"fmt"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
)

// EffectiveStock returns the units available per variant ID.
func EffectiveStock(event *model.Event) map[string]int {
	out := make(map[string]int, len(event.Variants))
	legacy := legacyShares(event)
	for i, v := range event.Variants {
		if v.Stock != nil {
			out[v.ID] = *v.Stock
			continue
		}
		out[v.ID] = legacy[i]
	}
	return out
}

// Available returns the effective stock of a single variant, and false when
// the event has no such variant.
func Available(event *model.Event, variantID string) (int, bool) {
	for i, v := range event.Variants {
		if v.ID != variantID {
			continue
		}
		if v.Stock != nil {
			return *v.Stock, true
		}
		return legacyShares(event)[i], true
	}
	return 0, false
}

// NeedsBackfill reports whether any variant still relies on the derived
// fallback.
func NeedsBackfill(event *model.Event) bool {
	for _, v := range event.Variants {
		if v.Stock == nil {
			return true
		}
	}
	return false
}

// Backfill returns explicit stock values for variants that have none,
// keyed by variant ID. Variants that already carry stock are omitted.
func Backfill(event *model.Event) map[string]int {
	shares := legacyShares(event)
	out := make(map[string]int)
	for i, v := range event.Variants {
		if v.Stock == nil {
			out[v.ID] = shares[i]
		}
	}
	return out
}

// CheckTotal verifies that explicit variant stock fits the declared
// aggregate and is never negative.
func CheckTotal(event *model.Event) error {
	total := 0
	for _, v := range event.Variants {
		if v.Stock == nil {
			continue
		}
		if *v.Stock < 0 {
			return fmt.Errorf("variant %s has negative stock %d", v.Label(), *v.Stock)
		}
		total += *v.Stock
	}
	if event.StockQuantity != nil && total > *event.StockQuantity {
		return fmt.Errorf("variant stock %d exceeds declared stock quantity %d", total, *event.StockQuantity)
	}
	return nil
}

// legacyShares distributes the aggregate over all variants in declaration
// order. Only meaningful for entries whose own stock is nil.
func legacyShares(event *model.Event) []int {
	shares := make([]int, len(event.Variants))
	n := len(event.Variants)
	if n == 0 || event.StockQuantity == nil || *event.StockQuantity <= 0 {
		return shares
	}
	base := *event.StockQuantity / n
	remainder := *event.StockQuantity % n
	for i := range shares {
		shares[i] = base
		if i < remainder {
			shares[i]++
		}
	}
	return shares
}
