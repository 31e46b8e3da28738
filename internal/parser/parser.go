// Package parser turns raw statement files into normalized transactions.
//
// Two input families are supported: text-based PDFs (text recovered through
// an ordered strategy chain, then parsed line by line) and delimited text
// files (columns resolved once from the header, then parsed row by row).
// Both share the token parsers in internal/normalize. Parsing never aborts a
// file on a bad line: failed lines are counted and skipped.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"cloud.google.com/go/civil"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
)

// Options carries the per-upload context a parser needs.
type Options struct {
	UploadID string
	UserID   string

	// Fallback is the date assigned to lines whose own date cannot be
	// parsed. Callers set it to the processing date, or to a month-hint
	// date when the request carries one.
	Fallback civil.Date
}

// Result is the outcome of parsing one file.
type Result struct {
	Transactions []*domain.Transaction
	Skipped      int

	// TextSource records which recovery strategy produced the text for a
	// PDF input. TextSourceNone for delimited files.
	TextSource TextSource
}

// Parse dispatches on the file extension and parses the whole file.
// A returned error means the document as a whole could not be processed;
// line-level problems are reported through Result.Skipped instead.
func Parse(data []byte, filename string, opts Options) (*Result, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return parsePDF(data, opts)
	case ".csv", ".tsv", ".txt":
		return parseDelimited(data, opts)
	default:
		return nil, fmt.Errorf("parser.Parse: unsupported file type %q", filename)
	}
}

func parseDelimited(data []byte, opts Options) (*Result, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("parser: file is not valid text")
	}

	lines := splitLines(string(data))
	first := -1
	for i, ln := range lines {
		if strings.TrimSpace(ln) != "" {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, fmt.Errorf("parser: file contains no rows")
	}

	mapping := ResolveColumns(lines[first])

	start := first
	if mapping.HasHeader {
		start = first + 1
	}

	res := &Result{}
	for _, raw := range lines[start:] {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		tx, ok := parseDelimitedLine(line, mapping, opts)
		if !ok {
			res.Skipped++
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res, nil
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
