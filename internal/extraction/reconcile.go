package extraction

import "math"

// driftTolerance is the post-reconciliation agreement required between the
// receipt total and the summed line items, in currency units.
const driftTolerance = 0.01

// Reconcile forces sum(items.TotalPrice) to match the extracted total. Any
// drift beyond tolerance is absorbed entirely by the last item, whose unit
// price is then recomputed from its quantity. Adjusting one item keeps the
// output predictable; spreading the drift proportionally would touch every
// line for no display benefit.
//
// Zero items against a positive total is recovered by synthesizing a single
// catch-all item covering the whole amount.
//
// A negative drift larger than the last item clamps it at zero instead of
// going negative; the residual mismatch is left for the caller's record
// validation to reject.
func Reconcile(total float64, items []LineItem) []LineItem {
	if len(items) == 0 {
		if total > 0 {
			return []LineItem{{
				Description: "Purchased Items",
				Quantity:    1,
				UnitPrice:   round2(total),
				TotalPrice:  round2(total),
			}}
		}
		return items
	}

	drift := round2(total - itemsTotal(items))
	if math.Abs(drift) > driftTolerance {
		last := &items[len(items)-1]
		last.TotalPrice = round2(last.TotalPrice + drift)
		if last.TotalPrice < 0 {
			last.TotalPrice = 0
		}
		if last.Quantity < 1 {
			last.Quantity = 1
		}
		last.UnitPrice = round2(last.TotalPrice / float64(last.Quantity))
	}
	return items
}
