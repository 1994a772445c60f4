// Package summary computes aggregate views over a user's persisted
// transactions. Nothing is cached: every query recomputes from the store.
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

// Store is the read surface the engine aggregates over.
type Store interface {
	Totals(ctx context.Context, userID string) (income, expense float64, err error)
	SumByTypeInRange(ctx context.Context, userID string, txType domain.TransactionType, start, end time.Time) (float64, error)
	SpendingByCategory(ctx context.Context, userID string) (map[string]float64, error)
	MonthlyBreakdown(ctx context.Context, userID string) ([]domain.MonthlySummary, error)
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// IncomeTotal returns the all-time income sum, 0 when the user has no income
// rows.
func (e *Engine) IncomeTotal(ctx context.Context, userID string) (float64, error) {
	income, _, err := e.store.Totals(ctx, userID)
	return income, err
}

// ExpenseTotal returns the all-time expense sum, 0 when the user has no
// expense rows.
func (e *Engine) ExpenseTotal(ctx context.Context, userID string) (float64, error) {
	_, expense, err := e.store.Totals(ctx, userID)
	return expense, err
}

// SpendingByCategory maps category name to expense total. Categories with no
// expense rows are omitted, not reported as zero.
func (e *Engine) SpendingByCategory(ctx context.Context, userID string) (map[string]float64, error) {
	return e.store.SpendingByCategory(ctx, userID)
}

// TotalByMonth sums one transaction type over the half-open interval
// [first day of month, first day of next month). time.Date normalizes
// month 13, so December rolls into January of the next year without a
// special case.
func (e *Engine) TotalByMonth(ctx context.Context, userID string, txType domain.TransactionType, month, year int) (float64, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("summary: month %d out of range", month)
	}
	if !txType.Valid() {
		return 0, fmt.Errorf("summary: invalid transaction type %q", txType)
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	return e.store.SumByTypeInRange(ctx, userID, txType, start, end)
}

// MonthlySummary returns one row per distinct (year, month) in the user's
// transactions, sorted ascending, with zero defaults for the missing type.
func (e *Engine) MonthlySummary(ctx context.Context, userID string) ([]domain.MonthlySummary, error) {
	return e.store.MonthlyBreakdown(ctx, userID)
}
