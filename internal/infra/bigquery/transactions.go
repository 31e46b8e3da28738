package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	UserID   string `bigquery:"user_id"`   // REQUIRED
	UploadID string `bigquery:"upload_id"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED DATE
	DateInferred    bool       `bigquery:"date_inferred"`    // true when the date fell back

	Amount    *big.Rat `bigquery:"amount"`    // REQUIRED NUMERIC, absolute value
	Direction string   `bigquery:"direction"` // REQUIRED, inflow|outflow

	Description string `bigquery:"description"` // REQUIRED

	Category       string `bigquery:"category"`        // REQUIRED, canonical label
	CategorySource string `bigquery:"category_source"` // rule|model

	MonthKey string `bigquery:"month_key"` // YYYY-MM, for monthly grouping

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// NewTransactionRow maps a parsed transaction onto the table schema.
func NewTransactionRow(tx *domain.Transaction) *TransactionRow {
	return &TransactionRow{
		TransactionID:   uuid.NewString(),
		UserID:          tx.UserID,
		UploadID:        tx.UploadID,
		TransactionDate: tx.Date,
		DateInferred:    tx.DateInferred,
		Amount:          tx.Amount.Rat(),
		Direction:       string(tx.Direction),
		Description:     tx.Description,
		Category:        tx.Category,
		CategorySource:  tx.CategorySource,
		MonthKey:        tx.MonthKey(),
		CreatedTS:       time.Now(),
	}
}
