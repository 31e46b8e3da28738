package normalize

import "regexp"

var (
	// Slash- or dash-separated numeric triplet: 03/15/2024, 3-5-24, 2024-03-15.
	datelikeRe = regexp.MustCompile(`\d{1,4}[/-]\d{1,2}[/-]\d{1,4}`)

	// Currency-symbol-prefixed numeral, or a bare two-decimal numeral.
	// Parentheses and DR/CR suffixes around either form are tolerated because
	// this is a substring search.
	amountlikeRe = regexp.MustCompile(`[$£€]\s*\d|\d+\.\d{2}`)
)

// HasDateToken reports whether the line contains a date-shaped substring.
func HasDateToken(line string) bool {
	return datelikeRe.MatchString(line)
}

// HasAmountToken reports whether the line contains an amount-shaped
// substring.
func HasAmountToken(line string) bool {
	return amountlikeRe.MatchString(line)
}

// LooksLikeTransaction reports whether a raw line plausibly holds a
// transaction: it must contain both a date-shaped and an amount-shaped
// substring. Used as a cheap gate ahead of real extraction so titles, page
// headers, and disclaimers never reach the description-fallback logic.
func LooksLikeTransaction(line string) bool {
	return HasDateToken(line) && HasAmountToken(line)
}
