// Package extraction turns raw OCR text from a receipt into a structured,
// internally consistent ReceiptRecord. Every extractor is a pure function over
// the text with an ordered chain of pattern tiers; a tier that fails falls
// through to the next, and the last tier always produces a usable default, so
// extraction never errors out.
package extraction

import "math"

// LineItem is a single purchased line on a receipt.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// ReceiptRecord is the engine's sole output type. All fields are always
// populated: unresolved fields carry documented defaults rather than zero
// values, and Items is never empty.
type ReceiptRecord struct {
	Vendor    string     `json:"vendor"`
	Date      string     `json:"date"` // YYYY-MM-DD
	Total     float64    `json:"total"`
	Currency  string     `json:"currency"`
	TaxAmount float64    `json:"tax_amount"`
	Items     []LineItem `json:"items"`

	// ImageRef is an opaque handle to the source image, threaded through
	// from the caller untouched.
	ImageRef string `json:"image_ref,omitempty"`
}

// ItemsTotal sums the line item totals.
func (r ReceiptRecord) ItemsTotal() float64 {
	return itemsTotal(r.Items)
}

func itemsTotal(items []LineItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.TotalPrice
	}
	return round2(sum)
}

// round2 rounds a monetary value to 2 decimal places. All monetary fields are
// rounded at the point of extraction, never left as raw float matches.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
