package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// datePattern pairs a token shape with the field order of its captures.
type datePattern struct {
	re    *regexp.Regexp
	build func(m []string) (year, month, day int)
}

// Tried in order; the first pattern that matches and yields a real calendar
// date wins.
var datePatterns = []datePattern{
	// MM/DD/YYYY
	{regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`), func(m []string) (int, int, int) {
		return atoi(m[3]), atoi(m[1]), atoi(m[2])
	}},
	// MM/DD/YY, century-expanded to 20YY
	{regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2})$`), func(m []string) (int, int, int) {
		return 2000 + atoi(m[3]), atoi(m[1]), atoi(m[2])
	}},
	// YYYY-MM-DD
	{regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`), func(m []string) (int, int, int) {
		return atoi(m[1]), atoi(m[2]), atoi(m[3])
	}},
	// MM-DD-YYYY
	{regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`), func(m []string) (int, int, int) {
		return atoi(m[3]), atoi(m[1]), atoi(m[2])
	}},
}

// Date parses a raw date token against the supported statement date shapes.
//
// Unparseable tokens never fail the line: the fallback date is returned with
// inferred=true so the caller can keep the transaction while recording that
// its real date was lost. Callers choose the fallback (processing date, or a
// month-hint date when the request carries one).
func Date(raw string, fallback civil.Date) (d civil.Date, inferred bool) {
	s := strings.TrimSpace(raw)
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		year, month, day := p.build(m)
		cand := civil.Date{Year: year, Month: time.Month(month), Day: day}
		if !cand.IsValid() {
			continue
		}
		return cand, false
	}
	return fallback, true
}

// MonthFallback converts a YYYY-MM month hint into the fallback date used for
// lines whose own date cannot be parsed: the middle of the hinted month, so a
// recovered transaction at least lands in the period the caller selected.
// Blank or malformed hints return today.
func MonthFallback(hint string, today civil.Date) civil.Date {
	m := monthHintRe.FindStringSubmatch(strings.TrimSpace(hint))
	if m == nil {
		return today
	}
	year, month := atoi(m[1]), atoi(m[2])
	if month < 1 || month > 12 {
		return today
	}
	return civil.Date{Year: year, Month: time.Month(month), Day: 15}
}

var monthHintRe = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
