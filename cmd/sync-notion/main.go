// Command sync-notion mirrors a user's ledger into a Notion database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/statement-ledger/internal/infra/sqlite"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/notionsync"
)

func main() {
	var (
		dbPath     = flag.String("db", "ledger.db", "Path to the sqlite database file")
		userID     = flag.String("user", "", "User whose transactions to sync (required)")
		notionDBID = flag.String("notion-db", "", "Notion database ID (required)")
		dryRun     = flag.Bool("dry-run", false, "Preview changes without writing to Notion")
	)
	flag.Parse()

	log := logger.New("sync-notion")

	if *userID == "" {
		log.Fatal().Msg("Error: -user is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: -notion-db is required")
	}
	token := os.Getenv("NOTION_TOKEN")
	if token == "" {
		log.Fatal().Msg("Error: NOTION_TOKEN environment variable is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open database")
	}
	defer store.Close()

	notionClient := notionsync.NewNotionClient(token)

	if err := notionsync.SyncTransactions(ctx, store, notionClient, *notionDBID, *userID, *dryRun, log); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}
