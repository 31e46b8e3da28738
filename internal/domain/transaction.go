package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Direction tells whether money moved into or out of the account.
// The sign convention of the source file is folded into this enum at parse
// time; Amount is always an unsigned magnitude.
type Direction string

const (
	Inflow  Direction = "inflow"
	Outflow Direction = "outflow"
)

// Category sources, recorded per transaction so downstream consumers can tell
// a deterministic keyword match from a model-produced label.
const (
	CategorySourceRule  = "rule"
	CategorySourceModel = "model"
)

// Transaction is one normalized statement entry produced by a parser and
// enriched by the categorization engine. This is a domain struct, not a
// BigQuery row; the store maps it into the transactions table schema.
type Transaction struct {
	Date         civil.Date      // normalized calendar date
	DateInferred bool            // true when the date fell back to the processing date
	Description  string          // trimmed, never empty
	Amount       decimal.Decimal // unsigned magnitude, currency precision
	Direction    Direction

	Category       string // canonical label, assigned after parsing
	CategorySource string // CategorySourceRule or CategorySourceModel

	UploadID string // originating upload, for traceability and duplicate scoping
	UserID   string
}

// MonthKey returns the YYYY-MM grouping key derived from the transaction date.
func (t *Transaction) MonthKey() string {
	return fmt.Sprintf("%04d-%02d", t.Date.Year, int(t.Date.Month))
}

// SignedAmount folds Direction back into a signed value (outflows negative).
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Direction == Outflow {
		return t.Amount.Neg()
	}
	return t.Amount
}
