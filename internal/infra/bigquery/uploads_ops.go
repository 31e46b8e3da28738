package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
)

const uploadColumns = `
	upload_id,
	user_id,
	object_path,
	original_filename,
	checksum_sha256,
	month_hint,
	status,
	upload_ts,
	processed_ts,
	total_parsed,
	skipped_rows,
	inserted_transactions,
	deduplicated,
	message`

// runAndWait runs a DML query and surfaces the first error from the job.
func runAndWait(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}
	return nil
}

// InsertUpload records a new upload with status=PENDING.
func InsertUpload(ctx context.Context, row *UploadRow) error {
	client, err := bigquery.NewClient(ctx, ProjectID())
	if err != nil {
		return fmt.Errorf("InsertUpload: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertUploadWithClient(ctx, client, row)
}

// InsertUploadWithClient records a new upload using the provided client. DML
// rather than the streaming inserter so later status updates can touch the
// row straight away.
func InsertUploadWithClient(ctx context.Context, client *bigquery.Client, row *UploadRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			upload_id,
			user_id,
			object_path,
			original_filename,
			checksum_sha256,
			month_hint,
			status,
			upload_ts
		)
		VALUES (
			@upload_id,
			@user_id,
			@object_path,
			@original_filename,
			@checksum_sha256,
			@month_hint,
			@status,
			@upload_ts
		)
	`, DatasetID(), uploadsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "upload_id", Value: row.UploadID},
		{Name: "user_id", Value: row.UserID},
		{Name: "object_path", Value: row.ObjectPath},
		{Name: "original_filename", Value: row.OriginalFilename},
		{Name: "checksum_sha256", Value: row.ChecksumSHA256},
		{Name: "month_hint", Value: row.MonthHint},
		{Name: "status", Value: row.Status},
		{Name: "upload_ts", Value: row.UploadTS},
	}

	return runAndWait(ctx, q, "InsertUpload")
}

// MarkUploadProcessing flips an upload to status=PROCESSING.
func MarkUploadProcessing(ctx context.Context, uploadID string) error {
	client, err := bigquery.NewClient(ctx, ProjectID())
	if err != nil {
		return fmt.Errorf("MarkUploadProcessing: bigquery client: %w", err)
	}
	defer client.Close()

	return MarkUploadProcessingWithClient(ctx, client, uploadID)
}

// MarkUploadProcessingWithClient flips an upload to status=PROCESSING using
// the provided client.
func MarkUploadProcessingWithClient(ctx context.Context, client *bigquery.Client, uploadID string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status
		WHERE upload_id = @upload_id
	`, DatasetID(), uploadsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: UploadStatusProcessing},
		{Name: "upload_id", Value: uploadID},
	}

	return runAndWait(ctx, q, "MarkUploadProcessing")
}

// MarkUploadProcessed writes the final state of an upload: PROCESSED or
// FAILED depending on the summary, plus the run counters and message.
func MarkUploadProcessed(ctx context.Context, uploadID string, summary *domain.Summary) error {
	client, err := bigquery.NewClient(ctx, ProjectID())
	if err != nil {
		return fmt.Errorf("MarkUploadProcessed: bigquery client: %w", err)
	}
	defer client.Close()

	return MarkUploadProcessedWithClient(ctx, client, uploadID, summary)
}

// MarkUploadProcessedWithClient writes the final state of an upload using
// the provided client.
func MarkUploadProcessedWithClient(ctx context.Context, client *bigquery.Client, uploadID string, summary *domain.Summary) error {
	status := UploadStatusProcessed
	if !summary.Success {
		status = UploadStatusFailed
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    processed_ts = @processed_ts,
		    total_parsed = @total_parsed,
		    skipped_rows = @skipped_rows,
		    inserted_transactions = @inserted_transactions,
		    deduplicated = @deduplicated,
		    message = @message
		WHERE upload_id = @upload_id
	`, DatasetID(), uploadsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "processed_ts", Value: time.Now()},
		{Name: "total_parsed", Value: int64(summary.TotalParsed)},
		{Name: "skipped_rows", Value: int64(summary.SkippedRows)},
		{Name: "inserted_transactions", Value: int64(summary.InsertedTransactions)},
		{Name: "deduplicated", Value: int64(summary.Deduplicated)},
		{Name: "message", Value: summary.Message},
		{Name: "upload_id", Value: uploadID},
	}

	return runAndWait(ctx, q, "MarkUploadProcessed")
}

// FindUploadByChecksum retrieves the most recent upload with this content
// checksum for one user. Returns nil when the file has never been ingested.
func FindUploadByChecksum(ctx context.Context, userID, checksum string) (*UploadRow, error) {
	client, err := bigquery.NewClient(ctx, ProjectID())
	if err != nil {
		return nil, fmt.Errorf("FindUploadByChecksum: bigquery client: %w", err)
	}
	defer client.Close()

	return FindUploadByChecksumWithClient(ctx, client, userID, checksum)
}

// FindUploadByChecksumWithClient retrieves an upload by checksum using the
// provided client.
func FindUploadByChecksumWithClient(ctx context.Context, client *bigquery.Client, userID, checksum string) (*UploadRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM `+"`%s.%s.%s`"+`
		WHERE user_id = @user_id
		  AND checksum_sha256 = @checksum
		ORDER BY upload_ts DESC
		LIMIT 1
	`, uploadColumns, ProjectID(), DatasetID(), uploadsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "checksum", Value: checksum},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindUploadByChecksum: query read: %w", err)
	}

	var row UploadRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindUploadByChecksum: reading row: %w", err)
	}
	return &row, nil
}

// ListUploads retrieves a user's uploads, newest first.
func ListUploads(ctx context.Context, userID string) ([]*UploadRow, error) {
	client, err := bigquery.NewClient(ctx, ProjectID())
	if err != nil {
		return nil, fmt.Errorf("ListUploads: bigquery client: %w", err)
	}
	defer client.Close()

	return ListUploadsWithClient(ctx, client, userID)
}

// ListUploadsWithClient retrieves a user's uploads using the provided client.
func ListUploadsWithClient(ctx context.Context, client *bigquery.Client, userID string) ([]*UploadRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM `+"`%s.%s.%s`"+`
		WHERE user_id = @user_id
		ORDER BY upload_ts DESC
	`, uploadColumns, ProjectID(), DatasetID(), uploadsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListUploads: query read: %w", err)
	}

	var uploads []*UploadRow
	for {
		var row UploadRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListUploads: iterating: %w", err)
		}
		uploads = append(uploads, &row)
	}
	return uploads, nil
}
