package parser

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
	"github.com/davidrdinardo/smart-spend-map/internal/normalize"
)

// parseDelimitedLine extracts one transaction from a data row. ok=false means
// the row is not a transaction (too few fields, blank description, amount
// missing or unparseable) and should be counted as skipped.
func parseDelimitedLine(line string, m ColumnMapping, opts Options) (*domain.Transaction, bool) {
	// Quote-aware tokenization is only worth it when it can matter: comma
	// delimiter and a quote actually present in this row.
	respectQuotes := m.delim == delimComma && strings.Contains(line, `"`)
	fields := splitFields(line, m.delim, respectQuotes)
	if len(fields) < 3 {
		return nil, false
	}

	date, inferred := normalize.Date(fieldAt(fields, m.DateCol), opts.Fallback)

	desc := collapseSpaces(fieldAt(fields, m.DescCol))
	if desc == "" {
		return nil, false
	}

	var amount decimal.Decimal
	var dir domain.Direction
	if m.IsSplit {
		withdrawal, wok := parseOptionalAmount(fieldAt(fields, m.WithdrawalCol))
		deposit, dok := parseOptionalAmount(fieldAt(fields, m.DepositCol))
		switch {
		case wok && !withdrawal.IsZero():
			amount = withdrawal.Abs()
			dir = domain.Outflow
		case dok && !deposit.IsZero():
			amount = deposit.Abs()
			dir = domain.Inflow
		default:
			// Both blank or zero: a non-transaction row, not an error.
			return nil, false
		}
	} else {
		v, err := normalize.Amount(fieldAt(fields, m.AmountCol))
		if err != nil || v.IsZero() {
			return nil, false
		}
		if v.IsNegative() {
			dir = domain.Outflow
		} else {
			dir = domain.Inflow
		}
		amount = v.Abs()
	}

	return &domain.Transaction{
		Date:         date,
		DateInferred: inferred,
		Description:  desc,
		Amount:       amount,
		Direction:    dir,
		UploadID:     opts.UploadID,
		UserID:       opts.UserID,
	}, true
}

// parseOptionalAmount treats blank and unparseable cells the same way: no
// value. Split-column rows often leave one side empty.
func parseOptionalAmount(raw string) (decimal.Decimal, bool) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, false
	}
	v, err := normalize.Amount(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

func fieldAt(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}
