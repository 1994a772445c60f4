package categories

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/logger"
)

// mockStore is a func-field mock over the Store interface.
type mockStore struct {
	FindActiveFunc               func(ctx context.Context, name, userID string) (int64, bool, error)
	FindOwnedActiveFunc          func(ctx context.Context, name, userID string) (int64, bool, error)
	InsertCategoryFunc           func(ctx context.Context, name, userID string) (int64, error)
	SoftDeleteCategoryFunc       func(ctx context.Context, userID string, categoryID int64) (bool, error)
	ListCategoryNamesForUserFunc func(ctx context.Context, userID string) ([]string, error)
	ListAllCategoryNamesFunc     func(ctx context.Context) ([]string, error)
	ListCategoriesForUserFunc    func(ctx context.Context, userID string) ([]domain.Category, error)
}

func (m *mockStore) FindActive(ctx context.Context, name, userID string) (int64, bool, error) {
	return m.FindActiveFunc(ctx, name, userID)
}

func (m *mockStore) FindOwnedActive(ctx context.Context, name, userID string) (int64, bool, error) {
	return m.FindOwnedActiveFunc(ctx, name, userID)
}

func (m *mockStore) InsertCategory(ctx context.Context, name, userID string) (int64, error) {
	return m.InsertCategoryFunc(ctx, name, userID)
}

func (m *mockStore) SoftDeleteCategory(ctx context.Context, userID string, categoryID int64) (bool, error) {
	return m.SoftDeleteCategoryFunc(ctx, userID, categoryID)
}

func (m *mockStore) ListCategoryNamesForUser(ctx context.Context, userID string) ([]string, error) {
	return m.ListCategoryNamesForUserFunc(ctx, userID)
}

func (m *mockStore) ListAllCategoryNames(ctx context.Context) ([]string, error) {
	return m.ListAllCategoryNamesFunc(ctx)
}

func (m *mockStore) ListCategoriesForUser(ctx context.Context, userID string) ([]domain.Category, error) {
	return m.ListCategoriesForUserFunc(ctx, userID)
}

func testResolver(store Store) *Resolver {
	return NewResolver(store, logger.NewWithWriter(nopWriter{}))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestCanonical(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Groceries", "groceries"},
		{"  Dining Out  ", "dining out"},
		{"RENT / MORTGAGE", "rent / mortgage"},
		{"income", "income"},
	}
	for _, tt := range tests {
		if got := Canonical(tt.in); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveOrCreate_FindsExisting(t *testing.T) {
	var inserted bool
	store := &mockStore{
		FindActiveFunc: func(ctx context.Context, name, userID string) (int64, bool, error) {
			if name != "groceries" {
				t.Errorf("lookup used %q, want canonical name", name)
			}
			return 7, true, nil
		},
		InsertCategoryFunc: func(ctx context.Context, name, userID string) (int64, error) {
			inserted = true
			return 0, nil
		},
	}

	res, err := testResolver(store).ResolveOrCreate(context.Background(), "  Groceries ", "u1")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if res.CategoryID != 7 || res.Outcome != Found {
		t.Errorf("got %+v, want id 7 / Found", res)
	}
	if inserted {
		t.Error("no insert expected when the category already exists")
	}
}

func TestResolveOrCreate_CreatesWhenAbsent(t *testing.T) {
	store := &mockStore{
		FindActiveFunc: func(ctx context.Context, name, userID string) (int64, bool, error) {
			return 0, false, nil
		},
		InsertCategoryFunc: func(ctx context.Context, name, userID string) (int64, error) {
			return 42, nil
		},
	}

	res, err := testResolver(store).ResolveOrCreate(context.Background(), "hobbies", "u1")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if res.CategoryID != 42 || res.Outcome != Created {
		t.Errorf("got %+v, want id 42 / Created", res)
	}
}

func TestResolveOrCreate_IsIdempotent(t *testing.T) {
	// A very small in-memory store: first call creates, second finds.
	byName := map[string]int64{}
	var next int64
	store := &mockStore{
		FindActiveFunc: func(ctx context.Context, name, userID string) (int64, bool, error) {
			id, ok := byName[name]
			return id, ok, nil
		},
		InsertCategoryFunc: func(ctx context.Context, name, userID string) (int64, error) {
			if _, ok := byName[name]; ok {
				return 0, fmt.Errorf("insert: %w", domain.ErrCategoryExists)
			}
			next++
			byName[name] = next
			return next, nil
		},
	}
	r := testResolver(store)

	first, err := r.ResolveOrCreate(context.Background(), "Hobbies", "u1")
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	second, err := r.ResolveOrCreate(context.Background(), "hobbies ", "u1")
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if first.CategoryID != second.CategoryID {
		t.Errorf("ids differ: %d vs %d", first.CategoryID, second.CategoryID)
	}
	if len(byName) != 1 {
		t.Errorf("got %d category rows, want 1", len(byName))
	}
	if second.Outcome != Found {
		t.Errorf("second outcome = %v, want Found", second.Outcome)
	}
}

func TestResolveOrCreate_ConflictRetried(t *testing.T) {
	// Simulate losing the race: the first lookup misses, the insert hits the
	// uniqueness constraint, the re-resolve finds the winner's row.
	calls := 0
	store := &mockStore{
		FindActiveFunc: func(ctx context.Context, name, userID string) (int64, bool, error) {
			calls++
			if calls == 1 {
				return 0, false, nil
			}
			return 99, true, nil
		},
		InsertCategoryFunc: func(ctx context.Context, name, userID string) (int64, error) {
			return 0, fmt.Errorf("insert: %w", domain.ErrCategoryExists)
		},
	}

	res, err := testResolver(store).ResolveOrCreate(context.Background(), "travel", "u1")
	if err != nil {
		t.Fatalf("a lost race must not surface as an error: %v", err)
	}
	if res.CategoryID != 99 || res.Outcome != ConflictRetried {
		t.Errorf("got %+v, want id 99 / ConflictRetried", res)
	}
}

func TestResolveOrCreate_EmptyName(t *testing.T) {
	if _, err := testResolver(&mockStore{}).ResolveOrCreate(context.Background(), "   ", "u1"); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestCreate_ConflictSurfaces(t *testing.T) {
	store := &mockStore{
		FindOwnedActiveFunc: func(ctx context.Context, name, userID string) (int64, bool, error) {
			return 3, true, nil
		},
	}

	_, err := testResolver(store).Create(context.Background(), "travel", "u1")
	if !errors.Is(err, domain.ErrCategoryExists) {
		t.Errorf("got %v, want ErrCategoryExists", err)
	}
}

func TestCreate_RaceStillSurfacesConflict(t *testing.T) {
	store := &mockStore{
		FindOwnedActiveFunc: func(ctx context.Context, name, userID string) (int64, bool, error) {
			return 0, false, nil
		},
		InsertCategoryFunc: func(ctx context.Context, name, userID string) (int64, error) {
			return 0, fmt.Errorf("insert: %w", domain.ErrCategoryExists)
		},
	}

	_, err := testResolver(store).Create(context.Background(), "travel", "u1")
	if !errors.Is(err, domain.ErrCategoryExists) {
		t.Errorf("got %v, want ErrCategoryExists", err)
	}
}

func TestCreate_AllowsShadowingSystemName(t *testing.T) {
	// The explicit path checks only the user's own categories; a name that
	// exists as a system category may still be created for the user.
	store := &mockStore{
		FindOwnedActiveFunc: func(ctx context.Context, name, userID string) (int64, bool, error) {
			return 0, false, nil
		},
		InsertCategoryFunc: func(ctx context.Context, name, userID string) (int64, error) {
			return 15, nil
		},
	}

	id, err := testResolver(store).Create(context.Background(), "income", "u1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id != 15 {
		t.Errorf("got id %d, want 15", id)
	}
}

func TestDelete_ProtectedTargets(t *testing.T) {
	store := &mockStore{
		SoftDeleteCategoryFunc: func(ctx context.Context, userID string, categoryID int64) (bool, error) {
			return false, nil
		},
	}

	err := testResolver(store).Delete(context.Background(), "u1", 12)
	if !errors.Is(err, domain.ErrCategoryNotFoundOrProtected) {
		t.Errorf("got %v, want ErrCategoryNotFoundOrProtected", err)
	}
}

func TestDelete_Succeeds(t *testing.T) {
	store := &mockStore{
		SoftDeleteCategoryFunc: func(ctx context.Context, userID string, categoryID int64) (bool, error) {
			return true, nil
		},
	}

	if err := testResolver(store).Delete(context.Background(), "u1", 12); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
}
