package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/davidrdinardo/smart-spend-map/internal/categorize"
	"github.com/davidrdinardo/smart-spend-map/internal/logger"
	"github.com/davidrdinardo/smart-spend-map/internal/normalize"
	"github.com/davidrdinardo/smart-spend-map/internal/parser"
)

// Dry-run parser for local statement files. Prints what ingestion would
// produce, categorized by keyword rules alone, without touching GCP.
func main() {
	var (
		filePath  = flag.String("file", "", "local statement file (required)")
		monthHint = flag.String("month", "", "statement month YYYY-MM for dateless rows")
		rulesFile = flag.String("rules", os.Getenv("SPENDMAP_RULES_FILE"), "YAML keyword rule file (or set SPENDMAP_RULES_FILE)")
	)
	flag.Parse()

	log := logger.New()

	if *filePath == "" {
		log.Fatal().Msg("Error: -file is required")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read statement file")
	}

	filename := filepath.Base(*filePath)
	fallback := normalize.MonthFallback(*monthHint, civil.DateOf(time.Now()))

	result, err := parser.Parse(data, filename, parser.Options{
		UploadID: "local",
		UserID:   "local",
		Fallback: fallback,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Parse failed")
	}

	rules := categorize.DefaultRules()
	if *rulesFile != "" {
		rules, err = categorize.LoadRules(*rulesFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", *rulesFile).Msg("Failed to load rule file")
		}
	}

	ctx := logger.WithContext(context.Background(), log)
	categorize.NewEngine(rules, nil).Categorize(ctx, result.Transactions)

	fmt.Printf("\n=== %s ===\n", filename)
	if result.TextSource != parser.TextSourceNone {
		fmt.Printf("Text recovered via: %s\n", result.TextSource)
	}
	fmt.Printf("Parsed %d transactions, skipped %d rows\n\n", len(result.Transactions), result.Skipped)

	net := decimal.Zero
	for i, tx := range result.Transactions {
		marker := ""
		if tx.DateInferred {
			marker = " (inferred)"
		}
		fmt.Printf("%3d. %s%s  %-7s %10s  %-22s %s\n",
			i+1, tx.Date, marker, tx.Direction, tx.Amount.StringFixed(2), tx.Category, tx.Description)
		net = net.Add(tx.SignedAmount())
	}
	fmt.Printf("\nNet: %s\n", net.StringFixed(2))
}
