package parser

import (
	"regexp"
	"strings"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
	"github.com/davidrdinardo/smart-spend-map/internal/normalize"
)

const (
	// Lines shorter than this are page furniture, not candidate entries.
	minPDFLineLen = 10

	// Descriptions shorter than this trigger the previous-line fallback.
	minDescriptionLen = 3
)

// Ordered date patterns for recovered PDF text; the first match on a line
// wins.
var pdfDateRes = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2}\b`),
	regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`),
	regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`),
}

// Ordered amount patterns: parenthesized first so the surrounding markers
// stay attached to the match, then currency-prefixed, then bare two-decimal
// numerals.
var pdfAmountRes = []*regexp.Regexp{
	regexp.MustCompile(`\(\s*-?[$£€]?\s?\d[\d,]*\.\d{2}\s*\)`),
	regexp.MustCompile(`-?[$£€]\s?\d[\d,]*(\.\d{2})?(\s?(?i:DR|CR)\b)?`),
	regexp.MustCompile(`-?\d[\d,]*\.\d{2}(\s?(?i:DR|CR)\b)?`),
}

func parsePDF(data []byte, opts Options) (*Result, error) {
	text, source, err := ExtractText(data)
	if err != nil {
		return nil, err
	}
	res := parsePDFText(text, opts)
	res.TextSource = source
	return res, nil
}

// parsePDFText walks the recovered text line by line. Short lines and lines
// failing the transaction heuristic are noise and pass silently; lines that
// look like transactions but fail extraction are counted as skipped. A line
// whose amount wrapped onto the next line consumes that line; a line whose
// description collapses to almost nothing borrows the previous line's text.
func parsePDFText(text string, opts Options) *Result {
	res := &Result{}
	lines := splitLines(text)

	prev := ""
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		candidate := normalize.LooksLikeTransaction(line)
		if !candidate && normalize.HasDateToken(line) && i+1 < len(lines) {
			// The amount may have wrapped onto the continuation line.
			candidate = normalize.HasAmountToken(strings.TrimSpace(lines[i+1]))
		}
		if len(line) < minPDFLineLen || !candidate {
			prev = line
			continue
		}

		dateStr, ok := findFirst(pdfDateRes, line)
		if !ok {
			res.Skipped++
			prev = line
			continue
		}

		amountStr, found := findFirst(pdfAmountRes, line)
		consumedNext := false
		if !found && i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if s, ok := findFirst(pdfAmountRes, next); ok {
				amountStr = s
				consumedNext = true
				found = true
			}
		}
		if !found {
			res.Skipped++
			prev = line
			continue
		}

		amount, err := normalize.Amount(amountStr)
		if err != nil || amount.IsZero() {
			res.Skipped++
			prev = line
			continue
		}

		desc := strings.Replace(line, dateStr, " ", 1)
		if !consumedNext {
			desc = strings.Replace(desc, amountStr, " ", 1)
		}
		desc = collapseSpaces(desc)
		if len(desc) < minDescriptionLen {
			desc = collapseSpaces(prev)
		}
		if len(desc) < minDescriptionLen {
			res.Skipped++
			prev = line
			continue
		}

		date, inferred := normalize.Date(dateStr, opts.Fallback)

		dir := domain.Inflow
		if amount.IsNegative() {
			dir = domain.Outflow
		}

		res.Transactions = append(res.Transactions, &domain.Transaction{
			Date:         date,
			DateInferred: inferred,
			Description:  desc,
			Amount:       amount.Abs(),
			Direction:    dir,
			UploadID:     opts.UploadID,
			UserID:       opts.UserID,
		})

		prev = line
		if consumedNext {
			i++
		}
	}
	return res
}

// findFirst returns the first pattern's first match on the line.
func findFirst(patterns []*regexp.Regexp, line string) (string, bool) {
	for _, re := range patterns {
		if m := re.FindString(line); m != "" {
			return m, true
		}
	}
	return "", false
}
