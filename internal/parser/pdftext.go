package parser

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextSource identifies which recovery strategy produced the text for a PDF.
type TextSource int

const (
	TextSourceNone TextSource = iota
	TextSourceReader
	TextSourceMarkers
	TextSourceByteScan
)

func (s TextSource) String() string {
	switch s {
	case TextSourceReader:
		return "reader"
	case TextSourceMarkers:
		return "markers"
	case TextSourceByteScan:
		return "bytescan"
	default:
		return "none"
	}
}

const (
	// maxReaderTextBytes caps how much text the library reader may produce.
	maxReaderTextBytes = 512 * 1024

	// byteWindowSpan is the lookback/lookahead taken around a date/amount
	// pair when synthesizing a line from raw bytes.
	byteWindowSpan = 20

	// byteWindowMaxGap bounds how far an amount may sit after its date and
	// still be considered part of the same entry.
	byteWindowMaxGap = 120
)

// ExtractText recovers a best-effort text stream from raw PDF bytes.
//
// Strategies are tried in order, each only when the previous produced
// nothing: the pdf library reader (handles well-formed files, including
// compressed content streams), a scan for the BT/ET operator pairs that
// bracket text-showing regions in uncompressed streams, and finally a raw
// byte scan that pairs date-shaped with amount-shaped substrings and cuts a
// small window around each pair as a synthetic line. An error means no
// strategy recovered anything.
func ExtractText(data []byte) (string, TextSource, error) {
	if text := extractWithReader(data); strings.TrimSpace(text) != "" {
		return text, TextSourceReader, nil
	}
	if text := extractTextOperators(data); strings.TrimSpace(text) != "" {
		return text, TextSourceMarkers, nil
	}
	if text := extractByteWindows(data); strings.TrimSpace(text) != "" {
		return text, TextSourceByteScan, nil
	}
	return "", TextSourceNone, fmt.Errorf("parser: no text recovered from pdf")
}

// extractWithReader parses the document with the pdf library and joins page
// rows with newlines. The library panics on some malformed inputs, so the
// whole call is guarded; any panic or error degrades to "no text" and the
// next strategy takes over.
func extractWithReader(data []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			for i, word := range row.Content {
				if i > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(word.S)
			}
			sb.WriteByte('\n')
		}
		if sb.Len() > maxReaderTextBytes {
			break
		}
	}
	return sb.String()
}

// extractTextOperators scans for BT...ET regions and pulls the two PDF
// string-literal encodings out of each: (parenthesized) literals with
// backslash escapes, and <hex> strings. Literals within one region join with
// spaces; regions become lines. Only uncompressed text-based content streams
// yield anything here.
func extractTextOperators(data []byte) string {
	var sb strings.Builder
	pos := 0
	for {
		begin := bytes.Index(data[pos:], []byte("BT"))
		if begin < 0 {
			break
		}
		begin += pos + 2
		end := bytes.Index(data[begin:], []byte("ET"))
		if end < 0 {
			break
		}
		end += begin

		if line := extractStringLiterals(data[begin:end]); line != "" {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		pos = end + 2
	}
	return sb.String()
}

func extractStringLiterals(region []byte) string {
	var parts []string
	for i := 0; i < len(region); i++ {
		switch region[i] {
		case '(':
			s, next := readParenLiteral(region, i)
			if s != "" {
				parts = append(parts, s)
			}
			i = next - 1
		case '<':
			if i+1 < len(region) && region[i+1] == '<' {
				i++ // dictionary start, not a hex string
				continue
			}
			s, next := readHexLiteral(region, i)
			if s != "" {
				parts = append(parts, s)
			}
			i = next - 1
		}
	}
	return strings.Join(parts, " ")
}

// readParenLiteral decodes a (…) literal starting at the opening paren.
// Balanced nested parens are part of the literal; \(, \) and \\ unescape;
// escaped line-break characters become spaces. Returns the decoded text and
// the index just past the closing paren.
func readParenLiteral(b []byte, start int) (string, int) {
	var sb strings.Builder
	depth := 1
	i := start + 1
	for i < len(b) && depth > 0 {
		c := b[i]
		switch c {
		case '\\':
			if i+1 < len(b) {
				i++
				switch e := b[i]; e {
				case '(', ')', '\\':
					sb.WriteByte(e)
				case 'n', 'r', 't':
					sb.WriteByte(' ')
				}
			}
		case '(':
			depth++
			sb.WriteByte(c)
		case ')':
			depth--
			if depth > 0 {
				sb.WriteByte(c)
			}
		default:
			sb.WriteByte(c)
		}
		i++
	}
	return sanitizeText(sb.String()), i
}

// readHexLiteral decodes a <…> hex string starting at the opening bracket.
// Non-hex bytes inside are ignored; an odd nibble count is padded with zero,
// matching the PDF convention.
func readHexLiteral(b []byte, start int) (string, int) {
	end := start + 1
	for end < len(b) && b[end] != '>' {
		end++
	}
	if end >= len(b) {
		return "", len(b)
	}

	nibbles := make([]byte, 0, end-start)
	for _, c := range b[start+1 : end] {
		if isHexDigit(c) {
			nibbles = append(nibbles, c)
		}
	}
	if len(nibbles)%2 == 1 {
		nibbles = append(nibbles, '0')
	}
	decoded := make([]byte, len(nibbles)/2)
	if _, err := hex.Decode(decoded, nibbles); err != nil {
		return "", end + 1
	}
	return sanitizeText(string(decoded)), end + 1
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

var (
	byteDateRe   = regexp.MustCompile(`\d{1,4}[/-]\d{1,2}[/-]\d{1,4}`)
	byteAmountRe = regexp.MustCompile(`[$£€]\s?\d[\d,]*(\.\d{2})?|\d[\d,]*\.\d{2}`)
)

// extractByteWindows is the last-resort strategy: project the raw bytes onto
// a printable view, find date-shaped substrings, pair each with the next
// amount-shaped substring within reach, and cut a window around the pair as
// one synthetic line.
func extractByteWindows(data []byte) string {
	view := make([]byte, len(data))
	for i, c := range data {
		if c >= 32 && c < 127 {
			view[i] = c
		} else {
			view[i] = ' '
		}
	}
	s := string(view)

	dateLocs := byteDateRe.FindAllStringIndex(s, -1)
	amountLocs := byteAmountRe.FindAllStringIndex(s, -1)

	var lines []string
	ai := 0
	for _, dl := range dateLocs {
		for ai < len(amountLocs) && amountLocs[ai][0] < dl[1] {
			ai++
		}
		if ai >= len(amountLocs) {
			break
		}
		al := amountLocs[ai]
		if al[0]-dl[1] > byteWindowMaxGap {
			continue
		}

		start := dl[0] - byteWindowSpan
		if start < 0 {
			start = 0
		}
		end := al[1] + byteWindowSpan
		if end > len(s) {
			end = len(s)
		}
		if line := collapseSpaces(s[start:end]); line != "" {
			lines = append(lines, line)
		}
		ai++
	}
	return strings.Join(lines, "\n")
}

// sanitizeText keeps the printable subset of a decoded string. NUL bytes are
// dropped outright so UTF-16BE-encoded ASCII survives as readable text;
// everything else non-printable becomes a space and runs collapse.
func sanitizeText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	var sb strings.Builder
	for _, r := range s {
		if r >= 32 && r < 127 {
			sb.WriteRune(r)
		} else {
			sb.WriteByte(' ')
		}
	}
	return collapseSpaces(sb.String())
}
