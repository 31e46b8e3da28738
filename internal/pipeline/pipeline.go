// Package pipeline drives statement ingestion: download, parse, categorize,
// duplicate-suppress and persist, then mark the upload processed. Steps share
// a State and run strictly in order; the caller always gets a summary with
// the best available counts.
package pipeline

import (
	"context"
	"fmt"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
	"github.com/davidrdinardo/smart-spend-map/internal/logger"
)

// Ingestor wires storage, persistence and categorization into the standard
// ingestion pipeline.
type Ingestor struct {
	objects   ObjectStore
	store     TransactionStore
	engine    Categorizer
	batchSize int
}

// NewIngestor creates an ingestor with the default insert batch size.
func NewIngestor(objects ObjectStore, store TransactionStore, engine Categorizer) *Ingestor {
	return &Ingestor{
		objects:   objects,
		store:     store,
		engine:    engine,
		batchSize: DefaultBatchSize,
	}
}

// ProcessUpload runs one uploaded file through the pipeline and marks the
// upload processed whatever the outcome. Step failures land in the summary
// (Success false, Message set); the error return is reserved for a
// malformed request, the one case a caller must treat as its own fault.
func (in *Ingestor) ProcessUpload(ctx context.Context, req UploadRequest) (*domain.Summary, error) {
	if req.UploadID == "" {
		return nil, fmt.Errorf("ProcessUpload: upload id is required")
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("ProcessUpload: user id is required")
	}
	if req.ObjectPath == "" {
		return nil, fmt.Errorf("ProcessUpload: object path is required")
	}

	log := logger.ForUpload(logger.FromContext(ctx), req.UploadID, req.UserID)
	ctx = logger.WithContext(ctx, log)

	// Status transitions are advisory; a run never stops for them.
	if err := in.store.MarkUploadProcessing(ctx, req.UploadID); err != nil {
		log.Warn().Err(err).Msg("failed to mark upload processing")
	}

	state := &State{
		Request: req,
		Summary: &domain.Summary{UploadID: req.UploadID, Success: true},
	}

	pipe := NewPipeline(
		&DownloadStep{Objects: in.objects},
		&ParseStep{},
		&CategorizeStep{Engine: in.engine},
		&PersistStep{Store: in.store, BatchSize: in.batchSize},
	)

	log.Info().Str("object", req.ObjectPath).Str("filename", req.filename()).Msg("processing upload")

	if err := pipe.Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("upload processing failed")
		state.Summary.Success = false
		state.Summary.Message = err.Error()
	}
	if state.Summary.Message == "" {
		state.Summary.Message = fmt.Sprintf(
			"parsed %d transactions, inserted %d, skipped %d rows, %d duplicates",
			state.Summary.TotalParsed,
			state.Summary.InsertedTransactions,
			state.Summary.SkippedRows,
			state.Summary.Deduplicated,
		)
	}

	// The upload row must reflect this run even when the caller has already
	// gone away.
	markCtx := context.WithoutCancel(ctx)
	if err := in.store.MarkUploadProcessed(markCtx, req.UploadID, state.Summary); err != nil {
		log.Error().Err(err).Msg("failed to mark upload processed")
	}

	log.Info().
		Bool("success", state.Summary.Success).
		Int("parsed", state.Summary.TotalParsed).
		Int("inserted", state.Summary.InsertedTransactions).
		Int("skipped", state.Summary.SkippedRows).
		Int("duplicates", state.Summary.Deduplicated).
		Msg("upload processed")

	return state.Summary, nil
}

// ProcessUploads handles a multi-file request sequentially in caller order.
// Each file gets its own summary and a failed file never aborts the rest; a
// malformed request stops the run where it stands.
func (in *Ingestor) ProcessUploads(ctx context.Context, reqs []UploadRequest) ([]*domain.Summary, error) {
	summaries := make([]*domain.Summary, 0, len(reqs))
	for _, req := range reqs {
		summary, err := in.ProcessUpload(ctx, req)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
