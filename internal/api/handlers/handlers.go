package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/davidrdinardo/smart-spend-map/internal/api/middleware"
	"github.com/davidrdinardo/smart-spend-map/internal/domain"
	"github.com/davidrdinardo/smart-spend-map/internal/infra/bigquery"
	"github.com/davidrdinardo/smart-spend-map/internal/jobs"
	"github.com/davidrdinardo/smart-spend-map/internal/pipeline"
)

// Ingestor runs the ingestion pipeline for a batch of uploads.
// Satisfied by *pipeline.Ingestor.
type Ingestor interface {
	ProcessUploads(ctx context.Context, reqs []pipeline.UploadRequest) ([]*domain.Summary, error)
}

// TransactionReader serves stored transactions for the month view.
// Satisfied by *bigquery.Store.
type TransactionReader interface {
	TransactionsByMonth(ctx context.Context, userID, monthKey string) ([]*bigquery.TransactionRow, error)
}

// uploadPayload is one upload in a process request.
type uploadPayload struct {
	UploadID   string `json:"upload_id"`
	UserID     string `json:"user_id"`
	ObjectPath string `json:"object_path"`
	Filename   string `json:"filename,omitempty"`
	MonthHint  string `json:"month_hint,omitempty"`
}

// validate reports the first field that makes the upload unprocessable.
func (p uploadPayload) validate() error {
	switch {
	case p.UploadID == "":
		return fmt.Errorf("upload_id is required")
	case p.UserID == "":
		return fmt.Errorf("user_id is required")
	case p.ObjectPath == "":
		return fmt.Errorf("object_path is required")
	}
	return nil
}

func (p uploadPayload) request() pipeline.UploadRequest {
	return pipeline.UploadRequest{
		UploadID:   p.UploadID,
		UserID:     p.UserID,
		ObjectPath: p.ObjectPath,
		Filename:   p.Filename,
		MonthHint:  p.MonthHint,
	}
}

type processRequest struct {
	Uploads []uploadPayload `json:"uploads"`
}

// decodeProcessRequest reads and validates a process request body. A missing
// identifier on any upload rejects the whole request before any work starts.
func decodeProcessRequest(w http.ResponseWriter, r *http.Request) ([]pipeline.UploadRequest, bool) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}

	if len(req.Uploads) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "At least one upload is required")
		return nil, false
	}

	reqs := make([]pipeline.UploadRequest, 0, len(req.Uploads))
	for i, u := range req.Uploads {
		if err := u.validate(); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Upload %d: %v", i, err))
			return nil, false
		}
		reqs = append(reqs, u.request())
	}

	return reqs, true
}

// ProcessHandler handles statement ingestion endpoints.
type ProcessHandler struct {
	ingestor  Ingestor
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewProcessHandler creates a new process handler.
func NewProcessHandler(ingestor Ingestor, publisher jobs.Publisher, log zerolog.Logger) *ProcessHandler {
	return &ProcessHandler{ingestor: ingestor, publisher: publisher, log: log}
}

// Process handles POST /api/process
// It ingests the listed uploads synchronously, in request order, and returns
// one summary per upload. Document-level failures land in their summary; the
// request itself only fails for a malformed body.
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	reqs, ok := decodeProcessRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()

	summaries, err := h.ingestor.ProcessUploads(ctx, reqs)
	if err != nil {
		// Validation runs before processing, so this is still caller input
		// the pipeline would not accept.
		h.log.Warn().Err(err).Msg("Ingestion rejected request")
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"summaries": summaries,
		"count":     len(summaries),
	})
}

// ProcessAsync handles POST /api/process/async
// It enqueues one ingestion job per upload and returns the job IDs without
// waiting for any of them to run.
func (h *ProcessHandler) ProcessAsync(w http.ResponseWriter, r *http.Request) {
	reqs, ok := decodeProcessRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()

	enqueued := make([]map[string]string, 0, len(reqs))
	for _, req := range reqs {
		job := &jobs.ProcessUploadJob{
			UploadID:   req.UploadID,
			UserID:     req.UserID,
			ObjectPath: req.ObjectPath,
			Filename:   req.Filename,
			MonthHint:  req.MonthHint,
		}

		if err := h.publisher.PublishProcessUpload(ctx, job); err != nil {
			h.log.Error().Err(err).Str("upload_id", req.UploadID).Msg("Failed to enqueue ingestion job")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue ingestion job")
			return
		}

		h.log.Info().Str("job_id", job.JobID).Str("upload_id", req.UploadID).Msg("Ingestion job enqueued")

		enqueued = append(enqueued, map[string]string{
			"job_id":    job.JobID,
			"upload_id": req.UploadID,
			"status":    string(job.Status),
		})
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"jobs":  enqueued,
		"count": len(enqueued),
	})
}

// TransactionsHandler serves the stored-transaction read side.
type TransactionsHandler struct {
	reader TransactionReader
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(reader TransactionReader, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{reader: reader, log: log}
}

// ListTransactions handles GET /api/transactions
// Query parameters: user_id (required) and month (YYYY-MM, defaults to the
// current month).
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()

	userID := query.Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	monthKey := query.Get("month")
	if monthKey == "" {
		monthKey = time.Now().Format("2006-01")
	} else if _, err := time.Parse("2006-01", monthKey); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid month format, want YYYY-MM")
		return
	}

	transactions, err := h.reader.TransactionsByMonth(ctx, userID, monthKey)
	if err != nil {
		h.log.Error().Err(err).Str("month", monthKey).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	// An empty month serializes as [] rather than null.
	if transactions == nil {
		transactions = make([]*bigquery.TransactionRow, 0)
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"month":        monthKey,
		"count":        len(transactions),
	})
}

// JobsHandler serves async ingestion job status out of the job store.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Warn().Err(err).Str("job_id", jobID).Msg("Job lookup failed")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
// Jobs come back newest first, narrowed by the upload_id, user_id and
// status query parameters; limit and offset paginate.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := jobs.JobFilter{
		UploadID: query.Get("upload_id"),
		UserID:   query.Get("user_id"),
		Status:   jobs.JobStatus(query.Get("status")),
		Limit:    queryInt(query.Get("limit")),
		Offset:   queryInt(query.Get("offset")),
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// queryInt parses an optional numeric query parameter, treating garbage
// as absent.
func queryInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
