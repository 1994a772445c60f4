package summary

import (
	"context"
	"testing"
	"time"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

type mockStore struct {
	TotalsFunc           func(ctx context.Context, userID string) (float64, float64, error)
	SumByTypeInRangeFunc func(ctx context.Context, userID string, txType domain.TransactionType, start, end time.Time) (float64, error)
}

func (m *mockStore) Totals(ctx context.Context, userID string) (float64, float64, error) {
	return m.TotalsFunc(ctx, userID)
}

func (m *mockStore) SumByTypeInRange(ctx context.Context, userID string, txType domain.TransactionType, start, end time.Time) (float64, error) {
	return m.SumByTypeInRangeFunc(ctx, userID, txType, start, end)
}

func (m *mockStore) SpendingByCategory(ctx context.Context, userID string) (map[string]float64, error) {
	return nil, nil
}

func (m *mockStore) MonthlyBreakdown(ctx context.Context, userID string) ([]domain.MonthlySummary, error) {
	return nil, nil
}

func TestTotalByMonth_Bounds(t *testing.T) {
	tests := []struct {
		name      string
		month     int
		year      int
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "mid-year month",
			month:     4,
			year:      2024,
			wantStart: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "december rolls into next year",
			month:     12,
			year:      2024,
			wantStart: time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotStart, gotEnd time.Time
			store := &mockStore{
				SumByTypeInRangeFunc: func(ctx context.Context, userID string, txType domain.TransactionType, start, end time.Time) (float64, error) {
					gotStart, gotEnd = start, end
					return 10, nil
				},
			}

			total, err := NewEngine(store).TotalByMonth(context.Background(), "u1", domain.Income, tt.month, tt.year)
			if err != nil {
				t.Fatalf("TotalByMonth failed: %v", err)
			}
			if total != 10 {
				t.Errorf("total = %v, want 10", total)
			}
			if !gotStart.Equal(tt.wantStart) || !gotEnd.Equal(tt.wantEnd) {
				t.Errorf("range [%v, %v), want [%v, %v)", gotStart, gotEnd, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestTotalByMonth_Validation(t *testing.T) {
	e := NewEngine(&mockStore{})

	if _, err := e.TotalByMonth(context.Background(), "u1", domain.Income, 0, 2024); err == nil {
		t.Error("expected error for month 0")
	}
	if _, err := e.TotalByMonth(context.Background(), "u1", domain.Income, 13, 2024); err == nil {
		t.Error("expected error for month 13")
	}
	if _, err := e.TotalByMonth(context.Background(), "u1", "TRANSFER", 5, 2024); err == nil {
		t.Error("expected error for invalid type")
	}
}

func TestTotals_SplitsIncomeAndExpense(t *testing.T) {
	store := &mockStore{
		TotalsFunc: func(ctx context.Context, userID string) (float64, float64, error) {
			return 1500, 320.5, nil
		},
	}
	e := NewEngine(store)

	income, err := e.IncomeTotal(context.Background(), "u1")
	if err != nil || income != 1500 {
		t.Errorf("IncomeTotal = %v, %v; want 1500, nil", income, err)
	}
	expense, err := e.ExpenseTotal(context.Background(), "u1")
	if err != nil || expense != 320.5 {
		t.Errorf("ExpenseTotal = %v, %v; want 320.5, nil", expense, err)
	}
}
