package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

// Totals returns the user's all-time income and expense sums, zero when no
// matching rows exist.
func (s *Store) Totals(ctx context.Context, userID string) (income, expense float64, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN transaction_type = 'INCOME' THEN amount END), 0),
			COALESCE(SUM(CASE WHEN transaction_type = 'EXPENSE' THEN amount END), 0)
		FROM transactions
		WHERE user_id = ?`, userID).Scan(&income, &expense)
	if err != nil {
		return 0, 0, fmt.Errorf("Totals: %w", err)
	}
	return income, expense, nil
}

// SumByTypeInRange sums amounts of one transaction type over the half-open
// date interval [start, end). Dates are stored as YYYY-MM-DD text, so the
// lexical comparison is also the chronological one.
func (s *Store) SumByTypeInRange(ctx context.Context, userID string, txType domain.TransactionType, start, end time.Time) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = ?
		  AND transaction_type = ?
		  AND date >= ?
		  AND date < ?`,
		userID, string(txType), start.Format(dateFormat), end.Format(dateFormat)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("SumByTypeInRange: %w", err)
	}
	return total, nil
}

// SpendingByCategory sums EXPENSE amounts per category name. Categories with
// no expense rows do not appear.
func (s *Store) SpendingByCategory(ctx context.Context, userID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.category_name, SUM(t.amount)
		FROM transactions t
		JOIN categories c ON c.category_id = t.category_id
		WHERE t.user_id = ? AND t.transaction_type = 'EXPENSE'
		GROUP BY c.category_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("SpendingByCategory: query: %w", err)
	}
	defer rows.Close()

	result := make(map[string]float64)
	for rows.Next() {
		var (
			name  string
			total float64
		)
		if err := rows.Scan(&name, &total); err != nil {
			return nil, fmt.Errorf("SpendingByCategory: scan: %w", err)
		}
		result[name] = total
	}
	return result, rows.Err()
}

// MonthlyBreakdown returns one row per distinct (year, month) present in the
// user's transactions, income and expense summed separately, ordered
// ascending by year then month.
func (s *Store) MonthlyBreakdown(ctx context.Context, userID string) ([]domain.MonthlySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			CAST(strftime('%Y', date) AS INTEGER) AS year,
			CAST(strftime('%m', date) AS INTEGER) AS month,
			COALESCE(SUM(CASE WHEN transaction_type = 'INCOME' THEN amount END), 0),
			COALESCE(SUM(CASE WHEN transaction_type = 'EXPENSE' THEN amount END), 0)
		FROM transactions
		WHERE user_id = ?
		GROUP BY year, month
		ORDER BY year, month`, userID)
	if err != nil {
		return nil, fmt.Errorf("MonthlyBreakdown: query: %w", err)
	}
	defer rows.Close()

	var result []domain.MonthlySummary
	for rows.Next() {
		var m domain.MonthlySummary
		if err := rows.Scan(&m.Year, &m.Month, &m.TotalIncome, &m.TotalExpense); err != nil {
			return nil, fmt.Errorf("MonthlyBreakdown: scan: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
