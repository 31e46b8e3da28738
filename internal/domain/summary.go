package domain

import "fmt"

// Summary is the per-upload processing report returned to the caller and
// recorded on the upload row. Counts are best-effort: a summary is produced
// even when the document could not be parsed at all.
type Summary struct {
	UploadID             string `json:"upload_id"`
	Success              bool   `json:"success"`
	TotalParsed          int    `json:"total_parsed"`
	SkippedRows          int    `json:"skipped_rows"`
	InsertedTransactions int    `json:"inserted_transactions"`
	Deduplicated         int    `json:"deduplicated"`
	Message              string `json:"message"`
}

// String renders the summary counts in log-friendly form.
func (s *Summary) String() string {
	return fmt.Sprintf("parsed=%d skipped=%d inserted=%d deduplicated=%d",
		s.TotalParsed, s.SkippedRows, s.InsertedTransactions, s.Deduplicated)
}
