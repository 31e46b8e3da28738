package pipeline

import (
	"context"
	"fmt"
	"path"
	"time"

	"cloud.google.com/go/civil"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
	"github.com/davidrdinardo/smart-spend-map/internal/logger"
	"github.com/davidrdinardo/smart-spend-map/internal/normalize"
	"github.com/davidrdinardo/smart-spend-map/internal/parser"
)

// Step represents a single step in the ingestion pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// UploadRequest identifies one uploaded statement file to process.
type UploadRequest struct {
	UploadID   string
	UserID     string
	ObjectPath string
	Filename   string // defaults to the object path basename
	MonthHint  string // optional YYYY-MM statement period
}

func (r UploadRequest) filename() string {
	if r.Filename != "" {
		return r.Filename
	}
	return path.Base(r.ObjectPath)
}

// State holds the shared state across all pipeline steps.
type State struct {
	Request UploadRequest

	Data    []byte
	Result  *parser.Result
	Summary *domain.Summary
}

// DownloadStep fetches the uploaded file bytes from object storage.
type DownloadStep struct {
	Objects ObjectStore
}

func (s *DownloadStep) Execute(ctx context.Context, state *State) error {
	data, err := s.Objects.Download(ctx, state.Request.ObjectPath)
	if err != nil {
		return fmt.Errorf("download %s: %w", state.Request.ObjectPath, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("download %s: object is empty", state.Request.ObjectPath)
	}
	state.Data = data
	return nil
}

// ParseStep turns the file bytes into transactions and fills the parse
// counters on the summary. The month hint, when present, moves the
// bad-date fallback from today to the middle of the statement month.
type ParseStep struct{}

func (s *ParseStep) Execute(ctx context.Context, state *State) error {
	req := state.Request
	fallback := normalize.MonthFallback(req.MonthHint, civil.DateOf(time.Now()))

	result, err := parser.Parse(state.Data, req.filename(), parser.Options{
		UploadID: req.UploadID,
		UserID:   req.UserID,
		Fallback: fallback,
	})
	if err != nil {
		return fmt.Errorf("parse %s: %w", req.filename(), err)
	}
	state.Result = result
	state.Summary.TotalParsed = len(result.Transactions)
	state.Summary.SkippedRows = result.Skipped

	log := logger.FromContext(ctx)
	evt := log.Info().
		Int("parsed", len(result.Transactions)).
		Int("skipped", result.Skipped)
	if result.TextSource != parser.TextSourceNone {
		evt = evt.Str("text_source", result.TextSource.String())
	}
	evt.Msg("statement parsed")

	if inferred := countInferredDates(result.Transactions); inferred > 0 {
		log.Warn().Int("dates_inferred", inferred).
			Msg("some dates could not be parsed, fallback date assigned")
	}
	return nil
}

func countInferredDates(txs []*domain.Transaction) int {
	n := 0
	for _, tx := range txs {
		if tx.DateInferred {
			n++
		}
	}
	return n
}

// CategorizeStep labels every parsed transaction.
type CategorizeStep struct {
	Engine Categorizer
}

func (s *CategorizeStep) Execute(ctx context.Context, state *State) error {
	if state.Result == nil || len(state.Result.Transactions) == 0 {
		return nil
	}
	s.Engine.Categorize(ctx, state.Result.Transactions)
	return nil
}

// PersistStep runs duplicate suppression and batched inserts. The batch is
// the failure unit: a duplicate-check or insert error drops that batch,
// logs it, and moves on to the next one. Cancellation stops before the next
// batch so nothing is ever half-submitted.
type PersistStep struct {
	Store     TransactionStore
	BatchSize int
}

func (s *PersistStep) Execute(ctx context.Context, state *State) error {
	if state.Result == nil || len(state.Result.Transactions) == 0 {
		return nil
	}
	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	log := logger.FromContext(ctx)

	txs := state.Result.Transactions
	totalBatches := (len(txs) + batchSize - 1) / batchSize
	failed := 0

	for start := 0; start < len(txs); start += batchSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("persist: %w", err)
		}
		end := start + batchSize
		if end > len(txs) {
			end = len(txs)
		}
		batch := txs[start:end]

		keep, dups, err := s.filterDuplicates(ctx, batch)
		if err != nil {
			failed++
			log.Error().Err(err).
				Int("batch_size", len(batch)).
				Msg("duplicate check failed, dropping batch")
			continue
		}
		state.Summary.Deduplicated += dups
		if len(keep) == 0 {
			continue
		}

		if err := s.Store.InsertBatch(ctx, keep); err != nil {
			failed++
			log.Error().Err(err).
				Int("batch_size", len(keep)).
				Msg("insert failed, dropping batch")
			continue
		}
		state.Summary.InsertedTransactions += len(keep)
	}

	if failed > 0 {
		state.Summary.Message = fmt.Sprintf("%d of %d transaction batches could not be stored", failed, totalBatches)
	}
	return nil
}

func (s *PersistStep) filterDuplicates(ctx context.Context, batch []*domain.Transaction) ([]*domain.Transaction, int, error) {
	keep := make([]*domain.Transaction, 0, len(batch))
	dups := 0
	for _, tx := range batch {
		exists, err := s.Store.Exists(ctx, tx)
		if err != nil {
			return nil, 0, fmt.Errorf("checking duplicate for %q on %s: %w", tx.Description, tx.Date, err)
		}
		if exists {
			dups++
			continue
		}
		keep = append(keep, tx)
	}
	return keep, dups, nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, stopping at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
