package parser

import "strings"

type delimiter int

const (
	delimComma delimiter = iota
	delimTab
	delimWhitespace
)

// ColumnMapping is the per-file resolution of which field positions hold
// which values. Either AmountCol is set (single signed amount column) or
// IsSplit is true and the withdrawal/deposit pair is set; unused indices are
// -1. Built once from the first non-empty line and reused for every row.
type ColumnMapping struct {
	DateCol       int
	DescCol       int
	AmountCol     int
	WithdrawalCol int
	DepositCol    int
	IsSplit       bool

	// HasHeader is true when the first line contained at least one
	// recognized column keyword; the line is then consumed as a header
	// rather than parsed as data.
	HasHeader bool

	delim delimiter
}

// Column alias sets, lowercased. Matching is substring containment against
// the normalized header token.
var (
	dateAliases        = []string{"date", "posted", "posting"}
	descriptionAliases = []string{"description", "payee", "merchant", "memo", "details", "narrative", "transaction"}
	withdrawalAliases  = []string{"withdrawal", "debit", "paid out", "money out", "outflow"}
	depositAliases     = []string{"deposit", "credit", "paid in", "money in", "inflow"}
	amountAliases      = []string{"amount", "value", "sum", "total"}
)

// ResolveColumns inspects the first non-empty line of a delimited file and
// decides the delimiter, whether the line is a header, and which column holds
// what. Tokens are matched against the alias sets in priority order: date and
// description first (unambiguous), then the withdrawal/deposit pair (both
// must be present to activate split mode), else a single amount column.
// When nothing is recognized the line is data and the default positions
// (0, 1, 2) apply.
func ResolveColumns(line string) ColumnMapping {
	d := detectDelimiter(line)
	m := ColumnMapping{
		DateCol:       0,
		DescCol:       1,
		AmountCol:     2,
		WithdrawalCol: -1,
		DepositCol:    -1,
		delim:         d,
	}

	date, desc, withdrawal, deposit, amount := -1, -1, -1, -1, -1
	for i, tok := range splitFields(line, d, true) {
		norm := strings.ToLower(strings.TrimSpace(tok))
		if norm == "" {
			continue
		}
		switch {
		case date < 0 && matchesAny(norm, dateAliases):
			date = i
		case desc < 0 && matchesAny(norm, descriptionAliases):
			desc = i
		case withdrawal < 0 && matchesAny(norm, withdrawalAliases):
			withdrawal = i
		case deposit < 0 && matchesAny(norm, depositAliases):
			deposit = i
		case amount < 0 && matchesAny(norm, amountAliases):
			amount = i
		}
	}

	if date < 0 && desc < 0 && withdrawal < 0 && deposit < 0 && amount < 0 {
		return m
	}

	m.HasHeader = true
	if date >= 0 {
		m.DateCol = date
	}
	if desc >= 0 {
		m.DescCol = desc
	}
	if withdrawal >= 0 && deposit >= 0 {
		m.IsSplit = true
		m.WithdrawalCol = withdrawal
		m.DepositCol = deposit
		m.AmountCol = -1
	} else if amount >= 0 {
		m.AmountCol = amount
	}
	return m
}

func matchesAny(token string, aliases []string) bool {
	for _, a := range aliases {
		if strings.Contains(token, a) {
			return true
		}
	}
	return false
}

// detectDelimiter prefers tab, then comma; lines with neither fall back to
// whitespace splitting.
func detectDelimiter(line string) delimiter {
	switch {
	case strings.ContainsRune(line, '\t'):
		return delimTab
	case strings.ContainsRune(line, ','):
		return delimComma
	default:
		return delimWhitespace
	}
}

// splitFields tokenizes one line. With respectQuotes, a double quote toggles
// an inside-field state: the delimiter does not split inside quotes, and a
// doubled quote inside a quoted region unescapes to a single quote. Fields
// come back trimmed.
func splitFields(line string, d delimiter, respectQuotes bool) []string {
	if d == delimWhitespace {
		return strings.Fields(line)
	}

	sep := byte(',')
	if d == delimTab {
		sep = '\t'
	}

	if !respectQuotes {
		parts := strings.Split(line, string(sep))
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}

	var fields []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == sep && !inQuotes:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, strings.TrimSpace(cur.String()))
	return fields
}
