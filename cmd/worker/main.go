package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/subosito/gotenv"

	"github.com/davidrdinardo/smart-spend-map/internal/categorize"
	infraBQ "github.com/davidrdinardo/smart-spend-map/internal/infra/bigquery"
	"github.com/davidrdinardo/smart-spend-map/internal/jobs"
	"github.com/davidrdinardo/smart-spend-map/internal/jobs/inmemory"
	"github.com/davidrdinardo/smart-spend-map/internal/logger"
	"github.com/davidrdinardo/smart-spend-map/internal/pipeline"
	"github.com/davidrdinardo/smart-spend-map/internal/storage"
)

func main() {
	_ = gotenv.Load()

	var (
		workers   = flag.Int("workers", inmemory.DefaultWorkerCount, "concurrent ingestion workers")
		rulesFile = flag.String("rules", os.Getenv("SPENDMAP_RULES_FILE"), "YAML keyword rule file (or set SPENDMAP_RULES_FILE)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.NewWithLevel(os.Getenv("LOG_LEVEL"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workers, jobStore)

	log.Info().Int("workers", *workers).Str("bucket", objects.Bucket()).Msg("Starting worker service")

	// Start consuming jobs
	if err := jobQueue.Start(ctx, newJobHandler(log, ingestor)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}

// newEngine builds the categorization engine from the keyword rule file and
// whatever model credentials the environment carries.
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
// for one upload job.
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
