package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

// Store is the persistence surface the resolver needs. The sqlite
// implementation lives in internal/infra/sqlite.
type Store interface {
	// FindActive looks up an active category by canonical name, preferring
	// one owned by the user over a system-wide one. ok is false when neither
	// exists.
	FindActive(ctx context.Context, name, userID string) (id int64, ok bool, err error)

	// FindOwnedActive looks up an active category owned by exactly this user.
	FindOwnedActive(ctx context.Context, name, userID string) (id int64, ok bool, err error)

	// InsertCategory creates a user-owned category. It returns an error
	// wrapping domain.ErrCategoryExists when the uniqueness constraint on
	// (name, user) is violated.
	InsertCategory(ctx context.Context, name, userID string) (int64, error)

	// SoftDeleteCategory marks the category deleted when it belongs to the
	// user, is not a system category, and is not already deleted. It reports
	// whether a row was affected.
	SoftDeleteCategory(ctx context.Context, userID string, categoryID int64) (bool, error)

	ListCategoryNamesForUser(ctx context.Context, userID string) ([]string, error)
	ListAllCategoryNames(ctx context.Context) ([]string, error)
	ListCategoriesForUser(ctx context.Context, userID string) ([]domain.Category, error)
}

// Outcome says how a resolution obtained its category id.
type Outcome int

const (
	// Found means an active category with that name already existed.
	Found Outcome = iota
	// Created means a new user category was inserted.
	Created
	// ConflictRetried means the insert lost a creation race and the id was
	// re-resolved from the winner's row.
	ConflictRetried
)

// Resolution is the result of ResolveOrCreate.
type Resolution struct {
	CategoryID int64
	Outcome    Outcome
}

// Resolver maps free-text category names to durable category ids, scoped to
// a user with fallback to system categories, creating user categories on
// demand.
type Resolver struct {
	store Store
	log   zerolog.Logger
}

func NewResolver(store Store, log zerolog.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// Canonical is the single normalization rule for category names: trim, then
// lower-case. Applied everywhere names are compared or stored.
func Canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ResolveOrCreate returns the id of the active category with this name for
// the user (user-owned first, then system), creating a user category when
// neither exists. Losing a concurrent creation race is not an error: the
// winner's id is re-resolved and returned.
func (r *Resolver) ResolveOrCreate(ctx context.Context, name, userID string) (Resolution, error) {
	canon := Canonical(name)
	if canon == "" {
		return Resolution{}, fmt.Errorf("categories: empty category name")
	}

	id, ok, err := r.store.FindActive(ctx, canon, userID)
	if err != nil {
		return Resolution{}, fmt.Errorf("categories: resolve %q: %w", canon, err)
	}
	if ok {
		return Resolution{CategoryID: id, Outcome: Found}, nil
	}

	id, err = r.store.InsertCategory(ctx, canon, userID)
	if err == nil {
		r.log.Info().Str("category", canon).Str("user_id", userID).Msg("Created category on demand")
		return Resolution{CategoryID: id, Outcome: Created}, nil
	}
	if !errors.Is(err, domain.ErrCategoryExists) {
		return Resolution{}, fmt.Errorf("categories: create %q: %w", canon, err)
	}

	// Lost the creation race; the winner's row is the one we want.
	id, ok, err = r.store.FindActive(ctx, canon, userID)
	if err != nil {
		return Resolution{}, fmt.Errorf("categories: re-resolve %q: %w", canon, err)
	}
	if !ok {
		return Resolution{}, fmt.Errorf("categories: %q vanished after creation conflict", canon)
	}
	return Resolution{CategoryID: id, Outcome: ConflictRetried}, nil
}

// Create is the explicit, user-initiated creation path. Unlike
// ResolveOrCreate it reports a conflict to the caller instead of silently
// succeeding.
func (r *Resolver) Create(ctx context.Context, name, userID string) (int64, error) {
	canon := Canonical(name)
	if canon == "" {
		return 0, fmt.Errorf("categories: empty category name")
	}

	_, ok, err := r.store.FindOwnedActive(ctx, canon, userID)
	if err != nil {
		return 0, fmt.Errorf("categories: create %q: %w", canon, err)
	}
	if ok {
		return 0, fmt.Errorf("categories: %q: %w", canon, domain.ErrCategoryExists)
	}

	id, err := r.store.InsertCategory(ctx, canon, userID)
	if err != nil {
		// A race here still surfaces as the conflict it is.
		return 0, fmt.Errorf("categories: create %q: %w", canon, err)
	}
	return id, nil
}

// Delete soft-deletes a category owned by the user. System categories,
// foreign categories, and already-deleted rows are protected.
func (r *Resolver) Delete(ctx context.Context, userID string, categoryID int64) error {
	affected, err := r.store.SoftDeleteCategory(ctx, userID, categoryID)
	if err != nil {
		return fmt.Errorf("categories: delete %d: %w", categoryID, err)
	}
	if !affected {
		return fmt.Errorf("categories: delete %d: %w", categoryID, domain.ErrCategoryNotFoundOrProtected)
	}
	return nil
}

// ListForUser returns the active category names visible to the user: their
// own plus the system-wide defaults.
func (r *Resolver) ListForUser(ctx context.Context, userID string) ([]string, error) {
	names, err := r.store.ListCategoryNamesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("categories: list for user: %w", err)
	}
	return names, nil
}

// CategoriesForUser returns the full category rows visible to the user, for
// the management endpoints. The ingestion whitelist uses ListForUser instead.
func (r *Resolver) CategoriesForUser(ctx context.Context, userID string) ([]domain.Category, error) {
	cats, err := r.store.ListCategoriesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("categories: list detailed: %w", err)
	}
	return cats, nil
}

// ListAll returns every active category name regardless of owner.
func (r *Resolver) ListAll(ctx context.Context) ([]string, error) {
	names, err := r.store.ListAllCategoryNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("categories: list all: %w", err)
	}
	return names, nil
}
