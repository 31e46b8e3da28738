package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// Upload lifecycle statuses.
const (
	UploadStatusPending    = "PENDING"
	UploadStatusProcessing = "PROCESSING"
	UploadStatusProcessed  = "PROCESSED"
	UploadStatusFailed     = "FAILED"
)

type UploadRow struct {
	UploadID         string `bigquery:"upload_id"`   // REQUIRED
	UserID           string `bigquery:"user_id"`     // REQUIRED
	ObjectPath       string `bigquery:"object_path"` // REQUIRED
	OriginalFilename string `bigquery:"original_filename"`
	ChecksumSHA256   string `bigquery:"checksum_sha256"`

	MonthHint bigquery.NullString `bigquery:"month_hint"` // NULLABLE, YYYY-MM

	Status      string                 `bigquery:"status"` // REQUIRED
	UploadTS    time.Time              `bigquery:"upload_ts"`
	ProcessedTS bigquery.NullTimestamp `bigquery:"processed_ts"` // NULLABLE

	// Result counters, NULL until the upload has been processed.
	TotalParsed          bigquery.NullInt64  `bigquery:"total_parsed"`
	SkippedRows          bigquery.NullInt64  `bigquery:"skipped_rows"`
	InsertedTransactions bigquery.NullInt64  `bigquery:"inserted_transactions"`
	Deduplicated         bigquery.NullInt64  `bigquery:"deduplicated"`
	Message              bigquery.NullString `bigquery:"message"`
}

// NewUploadRow creates a pending upload record.
func NewUploadRow(uploadID, userID, objectPath, filename, monthHint, checksum string) *UploadRow {
	row := &UploadRow{
		UploadID:         uploadID,
		UserID:           userID,
		ObjectPath:       objectPath,
		OriginalFilename: filename,
		ChecksumSHA256:   checksum,
		Status:           UploadStatusPending,
		UploadTS:         time.Now(),
	}
	if monthHint != "" {
		row.MonthHint = bigquery.NullString{StringVal: monthHint, Valid: true}
	}
	return row
}
