// Package normalize holds the format-agnostic token parsers shared by the
// PDF and delimited statement parsers: amount normalization, date
// normalization, and the transaction-line heuristic. Functions here are pure;
// logging and skip-counting belong to the callers.
package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// currencySymbols are stripped before numeric parsing.
var currencySymbols = []string{"$", "£", "€"}

// Amount parses a raw statement amount token into a signed decimal.
//
// Negativity markers: surrounding parentheses, a trailing "DR" suffix, or a
// leading minus. A trailing "CR" suffix is positive. Currency symbols,
// thousands separators, and interior whitespace are stripped; if more than
// one decimal point survives cleaning, only the first is treated as the
// decimal separator. An error means the token is not an amount and the line
// should be skipped.
func Amount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("normalize.Amount: empty token")
	}

	negative := false

	// Accounting-style negative: (45.00)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") && len(s) > 2 {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "DR"):
		negative = true
		s = strings.TrimSpace(s[:len(s)-2])
	case strings.HasSuffix(upper, "CR"):
		s = strings.TrimSpace(s[:len(s)-2])
	}

	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), "")

	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	// Only the first dot separates decimals; later ones are noise.
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i+1] + strings.ReplaceAll(s[i+1:], ".", "")
	}

	if !numericWithOneDot(s) {
		return decimal.Zero, fmt.Errorf("normalize.Amount: %q is not numeric", raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("normalize.Amount: parsing %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// numericWithOneDot reports whether s consists of digits with at most one
// decimal point and at least one digit.
func numericWithOneDot(s string) bool {
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
