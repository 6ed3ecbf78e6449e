package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateTier pairs a pattern with an interpreter that turns its submatches into
// a calendar date. Tiers are evaluated in priority order with early return on
// the first interpretable match.
type dateTier struct {
	re        *regexp.Regexp
	interpret func(m []string) (int, time.Month, int, bool)
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

const monthAbbrevs = `jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec`

var dateTiers = []dateTier{
	// Numeric with separators: DD/MM/YYYY, MM/DD/YYYY or YYYY/MM/DD.
	{
		re: regexp.MustCompile(`\b(\d{1,4})[/\-.](\d{1,2})[/\-.](\d{2,4})\b`),
		interpret: func(m []string) (int, time.Month, int, bool) {
			a, _ := strconv.Atoi(m[1])
			b, _ := strconv.Atoi(m[2])
			c, _ := strconv.Atoi(m[3])
			switch {
			case a > 1000: // year first
				return a, time.Month(b), c, true
			case a > 12: // day first
				return normalizeYear(c), time.Month(b), a, true
			default: // month first
				return normalizeYear(c), time.Month(a), b, true
			}
		},
	},
	// ISO: YYYY-MM-DD.
	{
		re: regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`),
		interpret: func(m []string) (int, time.Month, int, bool) {
			y, _ := strconv.Atoi(m[1])
			mo, _ := strconv.Atoi(m[2])
			d, _ := strconv.Atoi(m[3])
			return y, time.Month(mo), d, true
		},
	},
	// Textual, month first: Jan 5, 2024.
	{
		re: regexp.MustCompile(`(?i)\b(` + monthAbbrevs + `)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{2,4})\b`),
		interpret: func(m []string) (int, time.Month, int, bool) {
			mo, ok := months[strings.ToLower(m[1])]
			if !ok {
				return 0, 0, 0, false
			}
			d, _ := strconv.Atoi(m[2])
			y, _ := strconv.Atoi(m[3])
			return normalizeYear(y), mo, d, true
		},
	},
	// Textual, day first: 5 Jan 2024.
	{
		re: regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthAbbrevs + `)[a-z]*\.?,?\s+(\d{2,4})\b`),
		interpret: func(m []string) (int, time.Month, int, bool) {
			d, _ := strconv.Atoi(m[1])
			mo, ok := months[strings.ToLower(m[2])]
			if !ok {
				return 0, 0, 0, false
			}
			y, _ := strconv.Atoi(m[3])
			return normalizeYear(y), mo, d, true
		},
	},
}

// ExtractDate finds the transaction date in raw receipt text and normalizes
// it to YYYY-MM-DD. Ambiguous numeric dates are disambiguated by token
// magnitude: a first token above 12 is a day, above 1000 a year, anything
// else a month. Two-digit years are shifted into the 2000s. When no tier
// matches, the extraction's run date is returned.
func ExtractDate(text string, now time.Time) string {
	for _, tier := range dateTiers {
		for _, m := range tier.re.FindAllStringSubmatch(text, -1) {
			y, mo, d, ok := tier.interpret(m)
			if !ok || !validDate(y, mo, d) {
				continue
			}
			return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		}
	}
	return now.Format("2006-01-02")
}

func normalizeYear(y int) int {
	if y < 100 {
		return y + 2000
	}
	return y
}

func validDate(y int, mo time.Month, d int) bool {
	if y < 1900 || y > 2200 || mo < time.January || mo > time.December || d < 1 || d > 31 {
		return false
	}
	// Reject day overflow (e.g. Feb 30) by round-tripping through time.Date.
	t := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && t.Month() == mo && t.Day() == d
}
