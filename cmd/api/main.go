package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/subosito/gotenv"

	"github.com/davidrdinardo/smart-spend-map/internal/api/handlers"
	"github.com/davidrdinardo/smart-spend-map/internal/api/middleware"
	"github.com/davidrdinardo/smart-spend-map/internal/categorize"
	infraBQ "github.com/davidrdinardo/smart-spend-map/internal/infra/bigquery"
	"github.com/davidrdinardo/smart-spend-map/internal/jobs"
	"github.com/davidrdinardo/smart-spend-map/internal/jobs/inmemory"
	"github.com/davidrdinardo/smart-spend-map/internal/logger"
	"github.com/davidrdinardo/smart-spend-map/internal/pipeline"
	"github.com/davidrdinardo/smart-spend-map/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = gotenv.Load()

	var (
		port      = flag.String("port", envOr("PORT", "8080"), "HTTP server port (or set PORT)")
		workers   = flag.Int("workers", inmemory.DefaultWorkerCount, "concurrent ingestion workers")
		rulesFile = flag.String("rules", os.Getenv("SPENDMAP_RULES_FILE"), "YAML keyword rule file (or set SPENDMAP_RULES_FILE)")
	)
	flag.Parse()

	log := logger.NewWithLevel(os.Getenv("LOG_LEVEL"))
	ctx := context.Background()

	store, err := infraBQ.NewStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	objects, err := storage.NewService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage service")
	}
	defer objects.Close()

	engine := newEngine(log, *rulesFile)
	ingestor := pipeline.NewIngestor(objects, store, engine)

	// Single-instance queue. Cloud Tasks or Pub/Sub would slot in behind
	// the same interfaces for a multi-instance deployment.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Int("workers", *workers).Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, newJobHandler(log, ingestor)); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	mux := newRouter(
		handlers.NewProcessHandler(ingestor, jobQueue, log),
		handlers.NewTransactionsHandler(store, log),
		handlers.NewJobsHandler(jobStore, log),
	)

	chain := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      chain,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Str("bucket", objects.Bucket()).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Block until SIGINT or SIGTERM, then drain: stop accepting requests,
	// cancel the workers, let in-flight jobs finish.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}

// newRouter wires the handlers to their routes on a plain net/http mux.
func newRouter(process *handlers.ProcessHandler, transactions *handlers.TransactionsHandler, jobsH *handlers.JobsHandler) *http.ServeMux {
	mux := http.NewServeMux()

	handle(mux, "/api/process", http.MethodPost, process.Process)
	handle(mux, "/api/process/async", http.MethodPost, process.ProcessAsync)
	handle(mux, "/api/transactions", http.MethodGet, transactions.ListTransactions)
	handle(mux, "/api/jobs", http.MethodGet, jobsH.ListJobs)

	// /api/jobs/{id}
	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsH.GetJob(w, r, jobID)
	})

	handle(mux, "/healthz", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return mux
}

// handle registers h for exactly one method, answering 405 otherwise.
func handle(mux *http.ServeMux, pattern, method string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	})
}

// newEngine builds the categorization engine from the keyword rule file and
// whatever model credentials the environment carries. Without credentials the
// engine still works, on rules alone.
func newEngine(log zerolog.Logger, rulesFile string) *categorize.Engine {
	rules := categorize.DefaultRules()
	if rulesFile != "" {
		loaded, err := categorize.LoadRules(rulesFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", rulesFile).Msg("Failed to load rule file")
		}
		rules = loaded
		log.Info().Int("rules", len(loaded)).Str("file", rulesFile).Msg("Loaded keyword rules")
	}

	var classifier categorize.Classifier
	if gc := categorize.NewGeminiClassifierFromEnv(); gc != nil {
		classifier = gc
		log.Info().Msg("Model classification enabled")
	} else {
		log.Warn().Msg("No model credentials configured - categorizing with keyword rules only")
	}

	return categorize.NewEngine(rules, classifier)
}

// newJobHandler returns the queue handler that runs the ingestion pipeline
// for one upload job. A failed run returns an error so the queue can retry;
// reruns are safe because inserts are duplicate-suppressed.
func newJobHandler(log zerolog.Logger, ingestor *pipeline.Ingestor) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		uploadJob, ok := job.(*jobs.ProcessUploadJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", uploadJob.JobID).
			Str("upload_id", uploadJob.UploadID).
			Str("object_path", uploadJob.ObjectPath).
			Msg("Processing ingestion job")

		summary, err := ingestor.ProcessUpload(ctx, pipeline.UploadRequest{
			UploadID:   uploadJob.UploadID,
			UserID:     uploadJob.UserID,
			ObjectPath: uploadJob.ObjectPath,
			Filename:   uploadJob.Filename,
			MonthHint:  uploadJob.MonthHint,
		})
		if err != nil {
			log.Error().Err(err).Str("job_id", uploadJob.JobID).Msg("Ingestion job rejected")
			return err
		}

		uploadJob.Summary = summary
		if !summary.Success {
			log.Error().
				Str("job_id", uploadJob.JobID).
				Str("message", summary.Message).
				Msg("Ingestion job failed")
			return fmt.Errorf("ingestion failed: %s", summary.Message)
		}

		log.Info().
			Str("job_id", uploadJob.JobID).
			Str("upload_id", uploadJob.UploadID).
			Int("inserted", summary.InsertedTransactions).
			Msg("Ingestion job completed")

		return nil
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
