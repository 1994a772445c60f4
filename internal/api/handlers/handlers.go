// Package handlers exposes statement ingestion, the transaction ledger,
// summaries and category management over HTTP. Every endpoint is scoped to
// the user identified by the X-User-ID header.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ledger/internal/api/middleware"
	"github.com/dvloznov/statement-ledger/internal/domain"
)

// maxUploadBytes bounds statement uploads; bank statements are small files.
const maxUploadBytes = 20 << 20

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Ingestor runs the statement ingestion pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, data []byte, filename, userID string) ([]*domain.Transaction, error)
	IngestManual(ctx context.Context, c domain.Candidate, userID string) (*domain.Transaction, error)
}

// TransactionLister pages through a user's ledger.
type TransactionLister interface {
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, int64, error)
}

// SummaryService computes aggregate views over the ledger.
type SummaryService interface {
	IncomeTotal(ctx context.Context, userID string) (float64, error)
	ExpenseTotal(ctx context.Context, userID string) (float64, error)
	SpendingByCategory(ctx context.Context, userID string) (map[string]float64, error)
	TotalByMonth(ctx context.Context, userID string, txType domain.TransactionType, month, year int) (float64, error)
	MonthlySummary(ctx context.Context, userID string) ([]domain.MonthlySummary, error)
}

// CategoryService manages user categories.
type CategoryService interface {
	Create(ctx context.Context, name, userID string) (int64, error)
	Delete(ctx context.Context, userID string, categoryID int64) error
	CategoriesForUser(ctx context.Context, userID string) ([]domain.Category, error)
	ListAll(ctx context.Context) ([]string, error)
}

// statusForError maps the domain sentinels onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnsupportedFileFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrMalformedExtraction),
		errors.Is(err, domain.ErrExtractionUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidDateFormat),
		errors.Is(err, domain.ErrFutureDate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrCategoryExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCategoryNotFoundOrProtected):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// StatementsHandler handles statement uploads.
type StatementsHandler struct {
	ingestor Ingestor
	log      zerolog.Logger
}

func NewStatementsHandler(ingestor Ingestor, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{ingestor: ingestor, log: log}
}

// Upload handles POST /api/statements. The statement file arrives as the
// "statement" part of a multipart form.
func (h *StatementsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("statement")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Multipart field 'statement' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	transactions, err := h.ingestor.Ingest(ctx, data, header.Filename, userID)
	if err != nil {
		h.log.Error().Err(err).Str("filename", header.Filename).Msg("Statement ingestion failed")
		middleware.WriteError(w, statusForError(err), err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// TransactionsHandler handles the ledger endpoints.
type TransactionsHandler struct {
	ingestor Ingestor
	lister   TransactionLister
	log      zerolog.Logger
}

func NewTransactionsHandler(ingestor Ingestor, lister TransactionLister, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{ingestor: ingestor, lister: lister, log: log}
}

// Create handles POST /api/transactions, the manual entry path.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	var candidate domain.Candidate
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.ingestor.IngestManual(ctx, candidate, userID)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError && !errors.Is(err, domain.ErrPersistence) {
			// Validation failures are the caller's fault.
			status = http.StatusBadRequest
		}
		middleware.WriteError(w, status, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// List handles GET /api/transactions?limit=&offset=.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	limit := defaultPageSize
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			offset = n
		}
	}

	transactions, total, err := h.lister.ListTransactions(ctx, userID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, statusForError(err), "Failed to list transactions")
		return
	}

	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"total_count":  total,
		"has_more":     int64(offset+len(transactions)) < total,
	})
}

// SummaryHandler handles the aggregate endpoints.
type SummaryHandler struct {
	summary SummaryService
	log     zerolog.Logger
}

func NewSummaryHandler(summary SummaryService, log zerolog.Logger) *SummaryHandler {
	return &SummaryHandler{summary: summary, log: log}
}

// Income handles GET /api/summary/income.
func (h *SummaryHandler) Income(w http.ResponseWriter, r *http.Request) {
	h.writeTotal(w, r, "total_income", h.summary.IncomeTotal)
}

// Expense handles GET /api/summary/expense.
func (h *SummaryHandler) Expense(w http.ResponseWriter, r *http.Request) {
	h.writeTotal(w, r, "total_expense", h.summary.ExpenseTotal)
}

func (h *SummaryHandler) writeTotal(w http.ResponseWriter, r *http.Request, key string, fn func(context.Context, string) (float64, error)) {
	ctx := r.Context()
	total, err := fn(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute total")
		middleware.WriteError(w, statusForError(err), "Failed to compute total")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]float64{key: total})
}

// SpendingByCategory handles GET /api/summary/spending-by-category.
func (h *SummaryHandler) SpendingByCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	spending, err := h.summary.SpendingByCategory(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute spending by category")
		middleware.WriteError(w, statusForError(err), "Failed to compute spending by category")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"spending": spending})
}

// Monthly handles GET /api/summary/monthly.
func (h *SummaryHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	months, err := h.summary.MonthlySummary(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute monthly summary")
		middleware.WriteError(w, statusForError(err), "Failed to compute monthly summary")
		return
	}
	if months == nil {
		months = []domain.MonthlySummary{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"months": months})
}

// ByMonth handles GET /api/summary/by-month?year=&month=&type=.
func (h *SummaryHandler) ByMonth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	year, err := strconv.Atoi(query.Get("year"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid year")
		return
	}
	month, err := strconv.Atoi(query.Get("month"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid month")
		return
	}
	txType := domain.TransactionType(query.Get("type"))
	if !txType.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "type must be INCOME or EXPENSE")
		return
	}

	total, err := h.summary.TotalByMonth(ctx, middleware.UserIDFromContext(ctx), txType, month, year)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"year":  year,
		"month": month,
		"type":  txType,
		"total": total,
	})
}

// CategoriesHandler handles category management.
type CategoriesHandler struct {
	categories CategoryService
	log        zerolog.Logger
}

func NewCategoriesHandler(categories CategoryService, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{categories: categories, log: log}
}

// List handles GET /api/categories, the full rows visible to the user.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cats, err := h.categories.CategoriesForUser(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list categories")
		middleware.WriteError(w, statusForError(err), "Failed to list categories")
		return
	}
	if cats == nil {
		cats = []domain.Category{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": cats,
		"count":      len(cats),
	})
}

// ListAll handles GET /api/categories/all, the active names across all users.
func (h *CategoriesHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	names, err := h.categories.ListAll(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list categories")
		middleware.WriteError(w, statusForError(err), "Failed to list categories")
		return
	}
	if names == nil {
		names = []string{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": names,
		"count":      len(names),
	})
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Category name is required")
		return
	}

	id, err := h.categories.Create(ctx, req.Name, userID)
	if err != nil {
		middleware.WriteError(w, statusForError(err), err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"category_id": id,
	})
}

// Delete handles DELETE /api/categories/{id}.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request, rawID string) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid category id")
		return
	}

	if err := h.categories.Delete(ctx, userID, id); err != nil {
		middleware.WriteError(w, statusForError(err), err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
