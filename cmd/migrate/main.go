// Command migrate creates the sqlite schema and seeds the system categories.
// It is idempotent: re-running against an existing database is a no-op.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/statement-ledger/internal/categories"
	"github.com/dvloznov/statement-ledger/internal/infra/sqlite"
	"github.com/dvloznov/statement-ledger/internal/logger"
)

func main() {
	dbPath := flag.String("db", "ledger.db", "Path to the sqlite database file")
	flag.Parse()

	log := logger.New("migrate")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open database")
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}
	log.Info().Str("db", *dbPath).Msg("Schema up to date")

	created, err := store.SeedSystemCategories(ctx, categories.DefaultCategories)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed system categories")
	}
	log.Info().
		Int("created", created).
		Int("total", len(categories.DefaultCategories)).
		Msg("System categories seeded")

	fmt.Printf("Migration completed: %d of %d system categories created.\n", created, len(categories.DefaultCategories))
}
