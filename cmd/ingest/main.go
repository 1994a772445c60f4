// Command ingest runs the full ingestion pipeline once, against a local
// statement file or a gs:// URI, and prints the committed transactions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ledger/internal/archive"
	"github.com/dvloznov/statement-ledger/internal/categories"
	"github.com/dvloznov/statement-ledger/internal/extract"
	"github.com/dvloznov/statement-ledger/internal/infra/sqlite"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/parser"
	"github.com/dvloznov/statement-ledger/internal/pipeline"
)

func main() {
	var (
		path   = flag.String("file", "", "Statement to ingest: a local path or a gs:// URI (required)")
		dbPath = flag.String("db", "ledger.db", "Path to the sqlite database file")
		userID = flag.String("user", "", "User the transactions belong to (required)")
		model  = flag.String("model", "", "Gemini model for statement extraction")
	)
	flag.Parse()

	log := logger.New("ingest")

	if *path == "" {
		log.Fatal().Msg("Error: -file is required")
	}
	if *userID == "" {
		log.Fatal().Msg("Error: -user is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	data, filename, err := readStatement(ctx, *path, log)
	if err != nil {
		log.Fatal().Err(err).Str("file", *path).Msg("Failed to read statement")
	}

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open database")
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}
	if _, err := store.SeedSystemCategories(ctx, categories.DefaultCategories); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed system categories")
	}

	resolver := categories.NewResolver(store, log)
	pl := pipeline.New(extract.New(log), parser.NewGeminiParser(parser.Config{Model: *model}), resolver, store, log)

	log.Info().Str("file", *path).Str("user_id", *userID).Msg("Starting ingestion")
	transactions, err := pl.Ingest(ctx, data, filename, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	out, _ := json.MarshalIndent(transactions, "", "  ")
	fmt.Println(string(out))
	fmt.Printf("Ingestion completed: %d transactions.\n", len(transactions))
}

// readStatement loads the statement bytes from a local path or, for gs://
// URIs, from Cloud Storage. It also returns the filename the extractor uses
// to detect the format.
func readStatement(ctx context.Context, path string, log zerolog.Logger) ([]byte, string, error) {
	if strings.HasPrefix(path, "gs://") {
		fetcher, err := archive.New(ctx, "", log)
		if err != nil {
			return nil, "", err
		}
		defer fetcher.Close()

		data, err := fetcher.Fetch(ctx, path)
		if err != nil {
			return nil, "", err
		}
		return data, archive.FilenameFromURI(path), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(path), nil
}
