package categorize

import (
	"strings"
	"unicode"
)

// CanonicalLabels is the closed category set every stored transaction must
// carry, in display order.
var CanonicalLabels = []string{
	"Housing",
	"Transportation",
	"Groceries",
	"Dining Out",
	"Utilities",
	"Subscriptions",
	"Healthcare",
	"Insurance",
	"Child Care",
	"Education",
	"Entertainment",
	"Travel",
	"Personal Care",
	"Gifts/Donations",
	"Savings/Investments",
	"Income",
	"Bank Fees",
	"Taxes",
	"Uncategorized Expense",
	"Other",
}

var canonicalByLower = func() map[string]string {
	m := make(map[string]string, len(CanonicalLabels))
	for _, l := range CanonicalLabels {
		m[strings.ToLower(l)] = l
	}
	return m
}()

// Standardize maps an arbitrary label onto the canonical set. Resolution
// order: exact case-insensitive match, then the same after camel-case
// expansion ("DiningOut" becomes "Dining Out"), then substring containment
// in either direction against each canonical label. A label that survives
// all three passes through title-cased rather than being forced to Other,
// so genuinely novel model output stays visible downstream.
func Standardize(label string) string {
	s := strings.TrimSpace(label)
	if s == "" {
		return LabelOther
	}
	if c, ok := canonicalByLower[strings.ToLower(s)]; ok {
		return c
	}
	s = expandCamelCase(s)
	lower := strings.ToLower(s)
	if c, ok := canonicalByLower[lower]; ok {
		return c
	}
	for _, c := range CanonicalLabels {
		cl := strings.ToLower(c)
		if strings.Contains(lower, cl) || strings.Contains(cl, lower) {
			return c
		}
	}
	return titleCase(s)
}

// expandCamelCase inserts a space before each upper-case letter that
// follows a lower-case one. Labels that already contain separators are
// returned untouched.
func expandCamelCase(s string) string {
	if strings.ContainsAny(s, " /-_") {
		return s
	}
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
