package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
	"github.com/davidrdinardo/smart-spend-map/internal/pipeline"
)

// Store bundles the upload and transaction operations behind one shared
// client.
type Store struct {
	client *bigquery.Client
}

var _ pipeline.TransactionStore = (*Store)(nil)

// NewStore creates a store with its own BigQuery client.
func NewStore(ctx context.Context) (*Store, error) {
	project := ProjectID()
	if project == "" {
		return nil, fmt.Errorf("NewStore: GOOGLE_CLOUD_PROJECT is not set")
	}
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return NewStoreWithClient(client), nil
}

// NewStoreWithClient wraps an existing client. The caller keeps ownership
// and is responsible for closing it.
func NewStoreWithClient(client *bigquery.Client) *Store {
	return &Store{client: client}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Exists delegates to ExistsTransactionWithClient with the shared client.
func (s *Store) Exists(ctx context.Context, tx *domain.Transaction) (bool, error) {
	return ExistsTransactionWithClient(ctx, s.client, tx)
}

// InsertBatch maps the transactions onto rows and streams them in.
func (s *Store) InsertBatch(ctx context.Context, txs []*domain.Transaction) error {
	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, NewTransactionRow(tx))
	}
	return InsertTransactionsWithClient(ctx, s.client, rows)
}

// MarkUploadProcessed delegates to MarkUploadProcessedWithClient with the
// shared client.
func (s *Store) MarkUploadProcessed(ctx context.Context, uploadID string, summary *domain.Summary) error {
	return MarkUploadProcessedWithClient(ctx, s.client, uploadID, summary)
}

// CreateUpload delegates to InsertUploadWithClient with the shared client.
func (s *Store) CreateUpload(ctx context.Context, row *UploadRow) error {
	return InsertUploadWithClient(ctx, s.client, row)
}

// MarkUploadProcessing delegates to MarkUploadProcessingWithClient with the
// shared client.
func (s *Store) MarkUploadProcessing(ctx context.Context, uploadID string) error {
	return MarkUploadProcessingWithClient(ctx, s.client, uploadID)
}

// FindUploadByChecksum delegates to FindUploadByChecksumWithClient with the
// shared client.
func (s *Store) FindUploadByChecksum(ctx context.Context, userID, checksum string) (*UploadRow, error) {
	return FindUploadByChecksumWithClient(ctx, s.client, userID, checksum)
}

// ListUploads delegates to ListUploadsWithClient with the shared client.
func (s *Store) ListUploads(ctx context.Context, userID string) ([]*UploadRow, error) {
	return ListUploadsWithClient(ctx, s.client, userID)
}

// TransactionsByMonth delegates to QueryTransactionsByMonthWithClient with
// the shared client.
func (s *Store) TransactionsByMonth(ctx context.Context, userID, monthKey string) ([]*TransactionRow, error) {
	return QueryTransactionsByMonthWithClient(ctx, s.client, userID, monthKey)
}
