package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// "2 x 3.50" or "Coffee 2 x 3.50 7.00" style quantity lines.
	itemQtyRe = regexp.MustCompile(`^(.{0,48}?)\s*(\d{1,3})\s*[xX@]\s*[$€£¥]?\s*(\d+(?:\.\d{1,2})?)(?:\s*=?\s*[$€£¥]?\s*(\d+(?:\.\d{1,2})?))?\s*$`)
	// "Description 4.99" style lines.
	itemLineRe = regexp.MustCompile(`^(.+?)\s+[$€£¥]?(\d+\.\d{2})\s*$`)
	// Summary lines that must never become line items.
	summaryRe = regexp.MustCompile(`(?i)\b(?:total|tax|subtotal|balance|change|cash)\b`)
	// Global fallback scan over the whole text.
	itemGlobalRe = regexp.MustCompile(`([A-Za-z][A-Za-z '&\-]{2,40}?)\s+[$€£¥]?(\d+\.\d{2})`)
)

// ExtractItems pulls purchased line items out of raw receipt text. Tiers:
//
//  1. per-line "qty x unitPrice [totalPrice]" matches
//  2. per-line "description amount" matches, skipping summary-keyword lines
//     and amounts at or above 90% of the receipt total
//  3. a global pattern scan across the whole text when line tiers find nothing
//
// If the extracted items sum to less than half the total, a single synthetic
// item carrying the shortfall is appended so the record is never wildly short
// of its own total.
func ExtractItems(text string, total float64) []LineItem {
	lines := nonBlankLines(text)

	items := quantityItems(lines)
	if len(items) == 0 {
		items = descriptionItems(lines, total)
	}
	if len(items) == 0 {
		items = globalScanItems(text, total)
	}

	sum := itemsTotal(items)
	if total > 0 && sum < 0.5*total {
		desc := "Additional Items"
		if len(items) == 0 {
			desc = "Purchased Items"
		}
		shortfall := round2(total - sum)
		items = append(items, LineItem{
			Description: desc,
			Quantity:    1,
			UnitPrice:   shortfall,
			TotalPrice:  shortfall,
		})
	}
	return items
}

func quantityItems(lines []string) []LineItem {
	var items []LineItem
	for _, line := range lines {
		m := itemQtyRe.FindStringSubmatch(line)
		if m == nil || summaryRe.MatchString(line) {
			continue
		}
		qty, _ := strconv.Atoi(m[2])
		if qty < 1 {
			qty = 1
		}
		unit, ok := parseAmount(m[3])
		if !ok {
			continue
		}
		lineTotal := round2(float64(qty) * unit)
		if m[4] != "" {
			if t, ok := parseAmount(m[4]); ok {
				lineTotal = round2(t)
			}
		}
		items = append(items, LineItem{
			Description: itemDescription(m[1]),
			Quantity:    qty,
			UnitPrice:   round2(unit),
			TotalPrice:  lineTotal,
		})
	}
	return items
}

func descriptionItems(lines []string, total float64) []LineItem {
	var items []LineItem
	for _, line := range lines {
		if summaryRe.MatchString(line) {
			continue
		}
		m := itemLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		amt, ok := parseAmount(m[2])
		if !ok || amt <= 0 {
			continue
		}
		if total > 0 && amt >= 0.9*total {
			continue
		}
		items = append(items, LineItem{
			Description: itemDescription(m[1]),
			Quantity:    1,
			UnitPrice:   round2(amt),
			TotalPrice:  round2(amt),
		})
	}
	return items
}

func globalScanItems(text string, total float64) []LineItem {
	var items []LineItem
	for _, m := range itemGlobalRe.FindAllStringSubmatch(text, -1) {
		desc := strings.TrimSpace(m[1])
		if summaryRe.MatchString(desc) {
			continue
		}
		amt, ok := parseAmount(m[2])
		if !ok || amt <= 0 {
			continue
		}
		if total > 0 && amt >= 0.9*total {
			continue
		}
		items = append(items, LineItem{
			Description: desc,
			Quantity:    1,
			UnitPrice:   round2(amt),
			TotalPrice:  round2(amt),
		})
	}
	return items
}

func itemDescription(raw string) string {
	desc := strings.Trim(strings.TrimSpace(raw), "-–:.")
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "Item"
	}
	return desc
}
