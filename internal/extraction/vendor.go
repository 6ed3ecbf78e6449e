package extraction

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// UnknownVendor is the sentinel vendor name used when no tier resolves.
const UnknownVendor = "Unknown Vendor"

var (
	vendorLabelRe = regexp.MustCompile(`(?i)^\s*(?:store|vendor|merchant|business)\s*[:\-]\s*(.+)$`)
	allCapsRe     = regexp.MustCompile(`^[A-Z][A-Z0-9&'.\- ]*$`)
	titleCaseRe   = regexp.MustCompile(`^[A-Z][a-z]+(?: [A-Z][a-z]+)+$`)
)

// knownVendors are merchants the canonicalizer snaps close OCR misreads to.
// The list doubles as the synthetic generator's vendor pool.
var knownVendors = []string{
	"Amazon", "Starbucks", "Office Depot",
	"Uber", "Walmart", "Target",
	"Apple Store", "Best Buy", "Home Depot",
	"Whole Foods", "Costco", "CVS Pharmacy",
}

// ExtractVendor pulls the merchant name out of raw receipt text. Tiers, first
// match wins:
//
//  1. an explicit "store/vendor/merchant/business:" label anywhere in the text
//  2. an ALL-CAPS line longer than 3 characters within the first 3 non-blank lines
//  3. a Title-Case multi-word line in the same window
//  4. the first non-blank line verbatim
//
// Falls back to UnknownVendor for blank input.
func ExtractVendor(text string) string {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return UnknownVendor
	}

	for _, line := range lines {
		if m := vendorLabelRe.FindStringSubmatch(line); m != nil {
			return canonicalVendor(strings.TrimSpace(m[1]))
		}
	}

	window := lines
	if len(window) > 3 {
		window = window[:3]
	}
	for _, line := range window {
		if len(line) > 3 && allCapsRe.MatchString(line) {
			return canonicalVendor(line)
		}
	}
	for _, line := range window {
		if titleCaseRe.MatchString(line) {
			return canonicalVendor(line)
		}
	}

	return canonicalVendor(lines[0])
}

// canonicalVendor snaps a candidate onto a known merchant name when the OCR
// read is within edit distance 2 of it. Exact matches pass through unchanged.
func canonicalVendor(name string) string {
	if len(name) < 4 {
		if name == "" {
			return UnknownVendor
		}
		return name
	}
	lower := strings.ToLower(name)
	for _, known := range knownVendors {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(known))
		if d == 0 {
			return known
		}
		if d <= 2 && len(name) >= len(known)-2 {
			return known
		}
	}
	return name
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
