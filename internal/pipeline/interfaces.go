package pipeline

import (
	"context"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
)

// ObjectStore is the download capability for uploaded statement files.
type ObjectStore interface {
	Download(ctx context.Context, objectPath string) ([]byte, error)
}

// TransactionStore is the persistence boundary. Exists matches an existing
// record on (user, date, description, amount); InsertBatch writes one batch
// atomically from the caller's point of view. MarkUploadProcessing flags the
// upload row when a run begins and MarkUploadProcessed records the final
// state whatever the run outcome was.
type TransactionStore interface {
	Exists(ctx context.Context, tx *domain.Transaction) (bool, error)
	InsertBatch(ctx context.Context, txs []*domain.Transaction) error
	MarkUploadProcessing(ctx context.Context, uploadID string) error
	MarkUploadProcessed(ctx context.Context, uploadID string, summary *domain.Summary) error
}

// Categorizer labels transactions in place. Implementations must not fail
// the run; classification trouble degrades internally to rule labels.
type Categorizer interface {
	Categorize(ctx context.Context, txs []*domain.Transaction)
}
