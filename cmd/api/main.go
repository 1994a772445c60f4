package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/statement-ledger/internal/api/handlers"
	"github.com/dvloznov/statement-ledger/internal/api/middleware"
	"github.com/dvloznov/statement-ledger/internal/archive"
	"github.com/dvloznov/statement-ledger/internal/categories"
	"github.com/dvloznov/statement-ledger/internal/extract"
	"github.com/dvloznov/statement-ledger/internal/infra/sqlite"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/parser"
	"github.com/dvloznov/statement-ledger/internal/pipeline"
	"github.com/dvloznov/statement-ledger/internal/summary"
)

func main() {
	var (
		port   = flag.String("port", envOr("PORT", "8080"), "HTTP server port")
		dbPath = flag.String("db", envOr("LEDGER_DB", "ledger.db"), "Path to the sqlite database file")
		bucket = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for statement archival (or set GCS_BUCKET env)")
		model  = flag.String("model", envOr("GEMINI_MODEL", ""), "Gemini model for statement extraction")
	)
	flag.Parse()

	log := logger.New("api")
	ctx := context.Background()

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open database")
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}
	if created, err := store.SeedSystemCategories(ctx, categories.DefaultCategories); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed system categories")
	} else if created > 0 {
		log.Info().Int("created", created).Msg("Seeded system categories")
	}

	resolver := categories.NewResolver(store, log)
	extractor := extract.New(log)
	gemini := parser.NewGeminiParser(parser.Config{Model: *model})

	pl := pipeline.New(extractor, gemini, resolver, store, log)
	if *bucket != "" {
		archiver, err := archive.New(ctx, *bucket, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create archiver")
		}
		defer archiver.Close()
		pl.WithArchiver(archiver)
	} else {
		log.Warn().Msg("No GCS bucket configured - statements will not be archived")
	}

	engine := summary.NewEngine(store)

	statementsHandler := handlers.NewStatementsHandler(pl, log)
	transactionsHandler := handlers.NewTransactionsHandler(pl, store, log)
	summaryHandler := handlers.NewSummaryHandler(engine, log)
	categoriesHandler := handlers.NewCategoriesHandler(resolver, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/statements", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			statementsHandler.Upload(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.List(w, r)
		case http.MethodPost:
			transactionsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/summary/income", get(summaryHandler.Income))
	mux.HandleFunc("/api/summary/expense", get(summaryHandler.Expense))
	mux.HandleFunc("/api/summary/spending-by-category", get(summaryHandler.SpendingByCategory))
	mux.HandleFunc("/api/summary/monthly", get(summaryHandler.Monthly))
	mux.HandleFunc("/api/summary/by-month", get(summaryHandler.ByMonth))

	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			categoriesHandler.List(w, r)
		case http.MethodPost:
			categoriesHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/categories/all", get(categoriesHandler.ListAll))

	mux.HandleFunc("/api/categories/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/categories/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Category ID is required")
			return
		}
		categoriesHandler.Delete(w, r, id)
	})

	// Health check stays outside the auth wrapper.
	authenticated := middleware.UserID(mux)
	root := http.NewServeMux()
	root.Handle("/api/", authenticated)
	root.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(root),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // statement extraction can be slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}

func get(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
