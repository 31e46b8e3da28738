package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/subosito/gotenv"

	"github.com/davidrdinardo/smart-spend-map/internal/categorize"
	infraBQ "github.com/davidrdinardo/smart-spend-map/internal/infra/bigquery"
	"github.com/davidrdinardo/smart-spend-map/internal/logger"
	"github.com/davidrdinardo/smart-spend-map/internal/pipeline"
	"github.com/davidrdinardo/smart-spend-map/internal/storage"
)

func main() {
	_ = gotenv.Load()

	// Parse CLI flags
	var (
		filePath  = flag.String("file", "", "local statement file to upload and ingest")
		object    = flag.String("object", "", "existing statement object (bare path in the bucket or a gs:// URI)")
		userID    = flag.String("user", "", "owner of the transactions (required)")
		monthHint = flag.String("month", "", "statement month YYYY-MM for dateless rows")
		force     = flag.Bool("force", false, "ingest even when an identical file was already processed")
		rulesFile = flag.String("rules", os.Getenv("SPENDMAP_RULES_FILE"), "YAML keyword rule file (or set SPENDMAP_RULES_FILE)")
	)
	flag.Parse()

	// Initialize structured logger
	log := logger.New()

	if *userID == "" {
		log.Fatal().Msg("Error: -user is required")
	}
	if (*filePath == "") == (*object == "") {
		log.Fatal().Msg("Error: exactly one of -file or -object is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

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

	// Resolve the statement bytes and where they live in the bucket.
	var (
		data       []byte
		objectPath string
		filename   string
	)
	if *filePath != "" {
		data, err = os.ReadFile(*filePath)
		if err != nil {
			log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read statement file")
		}
		filename = filepath.Base(*filePath)
		objectPath = fmt.Sprintf("uploads/%s/%s-%s", *userID, time.Now().Format("20060102T150405"), filename)
	} else {
		data, err = objects.Download(ctx, *object)
		if err != nil {
			log.Fatal().Err(err).Str("object", *object).Msg("Failed to download statement object")
		}
		objectPath = *object
		filename = storage.FilenameFromURI(*object)
	}

	checksum := storage.ChecksumSHA256(data)

	// Re-ingest guard: an identical file for this user is normally a mistake.
	existing, err := store.FindUploadByChecksum(ctx, *userID, checksum)
	if err != nil {
		log.Warn().Err(err).Msg("Checksum lookup failed, continuing without the re-ingest guard")
	}
	if existing != nil && !*force {
		log.Warn().
			Str("upload_id", existing.UploadID).
			Time("uploaded", existing.UploadTS).
			Msg("Identical file already ingested")
		fmt.Printf("Skipped: identical file already ingested as upload %s. Use -force to ingest again.\n", existing.UploadID)
		return
	}

	// A local file goes to the bucket first so the pipeline can pull it back.
	if *filePath != "" {
		uri, err := objects.Upload(ctx, objectPath, data)
		if err != nil {
			log.Fatal().Err(err).Msg("Upload failed")
		}
		log.Info().Str("uri", uri).Msg("Uploaded statement")
	}

	uploadID := uuid.NewString()
	if err := store.CreateUpload(ctx, infraBQ.NewUploadRow(uploadID, *userID, objectPath, filename, *monthHint, checksum)); err != nil {
		log.Fatal().Err(err).Msg("Failed to create upload record")
	}

	rules := categorize.DefaultRules()
	if *rulesFile != "" {
		rules, err = categorize.LoadRules(*rulesFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", *rulesFile).Msg("Failed to load rule file")
		}
	}
	var classifier categorize.Classifier
	if gc := categorize.NewGeminiClassifierFromEnv(); gc != nil {
		classifier = gc
	} else {
		log.Warn().Msg("No model credentials configured - categorizing with keyword rules only")
	}

	ingestor := pipeline.NewIngestor(objects, store, categorize.NewEngine(rules, classifier))

	log.Info().Str("upload_id", uploadID).Str("object", objectPath).Msg("Starting ingestion")

	summary, err := ingestor.ProcessUpload(ctx, pipeline.UploadRequest{
		UploadID:   uploadID,
		UserID:     *userID,
		ObjectPath: objectPath,
		Filename:   filename,
		MonthHint:  *monthHint,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}
	if !summary.Success {
		log.Fatal().Str("message", summary.Message).Msg("Ingestion failed")
	}

	fmt.Printf("Ingestion completed: %s\n", summary.Message)
}
