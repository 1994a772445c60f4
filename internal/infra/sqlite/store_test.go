package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-ledger/internal/categories"
	"github.com/dvloznov/statement-ledger/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.InitSchema(ctx))
	_, err = store.SeedSystemCategories(ctx, categories.DefaultCategories)
	require.NoError(t, err)
	return store
}

func testTx(userID string, categoryID int64, date string, amount float64, txType domain.TransactionType) *domain.Transaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return &domain.Transaction{
		TransactionID: uuid.NewString(),
		UserID:        userID,
		Date:          d,
		Amount:        amount,
		Type:          txType,
		CategoryID:    categoryID,
		CreatedTS:     time.Now().UTC(),
	}
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.InitSchema(context.Background()))
}

func TestSeedSystemCategoriesIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// newTestStore already seeded once.
	created, err := store.SeedSystemCategories(ctx, categories.DefaultCategories)
	require.NoError(t, err)
	assert.Zero(t, created)

	names, err := store.ListAllCategoryNames(ctx)
	require.NoError(t, err)
	assert.Len(t, names, len(categories.DefaultCategories))
}

func TestInsertCategoryUniquePerOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertCategory(ctx, "holidays", "user-1")
	require.NoError(t, err)

	_, err = store.InsertCategory(ctx, "holidays", "user-1")
	assert.ErrorIs(t, err, domain.ErrCategoryExists)

	// The same name under a different owner is a different category.
	_, err = store.InsertCategory(ctx, "holidays", "user-2")
	assert.NoError(t, err)
}

func TestCategoryNameReusableAfterSoftDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.InsertCategory(ctx, "holidays", "user-1")
	require.NoError(t, err)

	affected, err := store.SoftDeleteCategory(ctx, "user-1", id)
	require.NoError(t, err)
	require.True(t, affected)

	newID, err := store.InsertCategory(ctx, "holidays", "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, id, newID)
}

func TestFindActivePrefersUserOwned(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// "income" exists as a system category; shadow it for user-1.
	ownID, err := store.InsertCategory(ctx, "income", "user-1")
	require.NoError(t, err)

	id, ok, err := store.FindActive(ctx, "income", "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ownID, id)

	// Another user still resolves to the system row.
	otherID, ok, err := store.FindActive(ctx, "income", "user-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, ownID, otherID)

	_, ok, err = store.FindActive(ctx, "no-such-category", "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSoftDeleteProtectsSystemAndForeignCategories(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	systemID, ok, err := store.FindActive(ctx, "income", "user-1")
	require.NoError(t, err)
	require.True(t, ok)

	affected, err := store.SoftDeleteCategory(ctx, "user-1", systemID)
	require.NoError(t, err)
	assert.False(t, affected, "system categories must not be deletable")

	ownID, err := store.InsertCategory(ctx, "holidays", "user-1")
	require.NoError(t, err)

	affected, err = store.SoftDeleteCategory(ctx, "user-2", ownID)
	require.NoError(t, err)
	assert.False(t, affected, "foreign categories must not be deletable")

	affected, err = store.SoftDeleteCategory(ctx, "user-1", ownID)
	require.NoError(t, err)
	assert.True(t, affected)

	// Already deleted.
	affected, err = store.SoftDeleteCategory(ctx, "user-1", ownID)
	require.NoError(t, err)
	assert.False(t, affected)
}

func TestListCategoryNamesForUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertCategory(ctx, "holidays", "user-1")
	require.NoError(t, err)
	_, err = store.InsertCategory(ctx, "pets", "user-2")
	require.NoError(t, err)

	names, err := store.ListCategoryNamesForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Contains(t, names, "holidays")
	assert.Contains(t, names, "income") // system default
	assert.NotContains(t, names, "pets")
}

func TestResolveOrCreateConvergesOnOneRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	resolver := categories.NewResolver(store, zerolog.Nop())

	first, err := resolver.ResolveOrCreate(ctx, "  Holidays ", "user-1")
	require.NoError(t, err)
	assert.Equal(t, categories.Created, first.Outcome)

	second, err := resolver.ResolveOrCreate(ctx, "holidays", "user-1")
	require.NoError(t, err)
	assert.Equal(t, categories.Found, second.Outcome)
	assert.Equal(t, first.CategoryID, second.CategoryID)
}

func TestResolveOrCreateConcurrentCallersShareOneRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	resolver := categories.NewResolver(store, zerolog.Nop())

	const callers = 8
	results := make(chan categories.Resolution, callers)
	errs := make(chan error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := resolver.ResolveOrCreate(ctx, "holidays", "user-1")
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("ResolveOrCreate: %v", err)
	}

	ids := make(map[int64]bool)
	for res := range results {
		ids[res.CategoryID] = true
	}
	assert.Len(t, ids, 1, "every caller must converge on the same category id")

	var count int
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE category_name = ? AND user_id = ? AND is_deleted = 0`,
		"holidays", "user-1").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestInsertTransactionBatchIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	catID, err := store.InsertCategory(ctx, "holidays", "user-1")
	require.NoError(t, err)

	good := testTx("user-1", catID, "2024-02-01", 10, domain.Expense)
	dup := testTx("user-1", catID, "2024-02-02", 20, domain.Expense)
	dup.TransactionID = good.TransactionID // primary key collision

	err = store.InsertTransactionBatch(ctx, []*domain.Transaction{good, dup})
	assert.ErrorIs(t, err, domain.ErrPersistence)

	_, total, err := store.ListTransactions(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total, "a failing batch must leave no rows behind")
}

func TestInsertTransactionBatchEmptyIsNoop(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.InsertTransactionBatch(context.Background(), nil))
}

func TestListTransactionsPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	catID, err := store.InsertCategory(ctx, "holidays", "user-1")
	require.NoError(t, err)

	batch := []*domain.Transaction{
		testTx("user-1", catID, "2024-01-05", 1, domain.Expense),
		testTx("user-1", catID, "2024-01-10", 2, domain.Expense),
		testTx("user-1", catID, "2024-02-01", 3, domain.Expense),
		testTx("user-1", catID, "2024-02-20", 4, domain.Expense),
		testTx("user-2", catID, "2024-02-25", 5, domain.Expense),
	}
	require.NoError(t, store.InsertTransactionBatch(ctx, batch))

	page, total, err := store.ListTransactions(ctx, "user-1", 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "2024-02-20", page[0].Date.Format("2006-01-02"), "newest first")
	assert.Equal(t, "2024-02-01", page[1].Date.Format("2006-01-02"))
	assert.Equal(t, "holidays", page[0].CategoryName)

	page, total, err = store.ListTransactions(ctx, "user-1", 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "2024-01-10", page[0].Date.Format("2006-01-02"))

	page, _, err = store.ListTransactions(ctx, "user-1", 2, 4)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestSummaryQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	incomeID, ok, err := store.FindActive(ctx, "income", "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	transportID, ok, err := store.FindActive(ctx, "transport", "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	diningID, ok, err := store.FindActive(ctx, "dining out", "user-1")
	require.NoError(t, err)
	require.True(t, ok)

	salary := testTx("user-1", incomeID, "2024-02-01", 1500, domain.Income)
	salary.ToFrom = "Employer"
	batch := []*domain.Transaction{
		salary,
		testTx("user-1", transportID, "2024-02-03", 40, domain.Expense),
		testTx("user-1", transportID, "2024-02-28", 60, domain.Expense),
		testTx("user-1", diningID, "2024-03-01", 25, domain.Expense),
		testTx("user-2", diningID, "2024-02-10", 999, domain.Expense),
	}
	require.NoError(t, store.InsertTransactionBatch(ctx, batch))

	income, expense, err := store.Totals(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, income)
	assert.Equal(t, 125.0, expense)

	spending, err := store.SpendingByCategory(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"transport": 100, "dining out": 25}, spending)

	// February only: the half-open upper bound excludes March 1st.
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	total, err := store.SumByTypeInRange(ctx, "user-1", domain.Expense, feb, mar)
	require.NoError(t, err)
	assert.Equal(t, 100.0, total)

	total, err = store.SumByTypeInRange(ctx, "user-1", domain.Income, feb, mar)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, total)

	months, err := store.MonthlyBreakdown(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, months, 2)
	assert.Equal(t, domain.MonthlySummary{Year: 2024, Month: 2, TotalIncome: 1500, TotalExpense: 100}, months[0])
	assert.Equal(t, domain.MonthlySummary{Year: 2024, Month: 3, TotalIncome: 0, TotalExpense: 25}, months[1])
}

func TestListAllTransactionsForUserOldestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	catID, err := store.InsertCategory(ctx, "holidays", "user-1")
	require.NoError(t, err)

	batch := []*domain.Transaction{
		testTx("user-1", catID, "2024-02-20", 2, domain.Expense),
		testTx("user-1", catID, "2024-01-05", 1, domain.Expense),
	}
	require.NoError(t, store.InsertTransactionBatch(ctx, batch))

	all, err := store.ListAllTransactionsForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Date.Before(all[1].Date))
}

func TestListCategoriesForUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertCategory(ctx, "holidays", "user-1")
	require.NoError(t, err)
	_, err = store.InsertCategory(ctx, "pets", "user-2")
	require.NoError(t, err)

	cats, err := store.ListCategoriesForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, cats, len(categories.DefaultCategories)+1)

	byName := make(map[string]domain.Category, len(cats))
	for _, c := range cats {
		byName[c.CategoryName] = c
	}
	require.Contains(t, byName, "holidays")
	own := byName["holidays"]
	assert.False(t, own.IsSystem)
	require.NotNil(t, own.UserID)
	assert.Equal(t, "user-1", *own.UserID)
	assert.False(t, own.CreateDate.IsZero())

	require.Contains(t, byName, "income")
	assert.True(t, byName["income"].IsSystem)
	assert.Nil(t, byName["income"].UserID)
}

func TestBatchInsertCreatesUserRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	catID, err := store.InsertCategory(ctx, "holidays", "user-1")
	require.NoError(t, err)

	batch := []*domain.Transaction{
		testTx("user-1", catID, "2024-02-01", 10, domain.Expense),
		testTx("user-1", catID, "2024-02-02", 20, domain.Expense),
	}
	require.NoError(t, store.InsertTransactionBatch(ctx, batch))

	var count int
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE user_id = ?`, "user-1").Scan(&count))
	assert.Equal(t, 1, count)

	// A second batch for the same user does not duplicate the row.
	require.NoError(t, store.InsertTransactionBatch(ctx, []*domain.Transaction{
		testTx("user-1", catID, "2024-02-03", 30, domain.Expense),
	}))
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestIsUniqueViolationIgnoresOtherErrors(t *testing.T) {
	assert.False(t, isUniqueViolation(errors.New("plain error")))
	assert.False(t, isUniqueViolation(nil))
}
