package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

// FindActive returns the active category with this name visible to the user,
// preferring a user-owned row over a system-wide one.
func (s *Store) FindActive(ctx context.Context, name, userID string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT category_id
		FROM categories
		WHERE category_name = ?
		  AND is_deleted = 0
		  AND (user_id = ? OR user_id IS NULL)
		ORDER BY CASE WHEN user_id IS NULL THEN 1 ELSE 0 END
		LIMIT 1`, name, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("FindActive: %w", err)
	}
	return id, true, nil
}

// FindOwnedActive returns the active category with this name owned by
// exactly this user, ignoring system categories.
func (s *Store) FindOwnedActive(ctx context.Context, name, userID string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT category_id
		FROM categories
		WHERE category_name = ? AND user_id = ? AND is_deleted = 0`,
		name, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("FindOwnedActive: %w", err)
	}
	return id, true, nil
}

// InsertCategory creates a user-owned category row. A uniqueness violation
// maps to domain.ErrCategoryExists so the resolver can treat a lost creation
// race as "already exists".
func (s *Store) InsertCategory(ctx context.Context, name, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (category_name, user_id, is_system, is_deleted, create_date)
		VALUES (?, ?, 0, 0, ?)`,
		name, userID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("InsertCategory: %q: %w", name, domain.ErrCategoryExists)
		}
		return 0, fmt.Errorf("InsertCategory: %q: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("InsertCategory: last insert id: %w", err)
	}
	return id, nil
}

// SoftDeleteCategory flags the category deleted. The WHERE clause is the
// protection: own, non-system, not yet deleted. Zero rows affected means the
// target was missing or protected.
func (s *Store) SoftDeleteCategory(ctx context.Context, userID string, categoryID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET is_deleted = 1
		WHERE category_id = ? AND user_id = ? AND is_system = 0 AND is_deleted = 0`,
		categoryID, userID)
	if err != nil {
		return false, fmt.Errorf("SoftDeleteCategory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("SoftDeleteCategory: rows affected: %w", err)
	}
	return n > 0, nil
}

// ListCategoryNamesForUser returns active names owned by the user plus the
// active system-wide names.
func (s *Store) ListCategoryNamesForUser(ctx context.Context, userID string) ([]string, error) {
	return s.listNames(ctx, `
		SELECT category_name
		FROM categories
		WHERE is_deleted = 0 AND (user_id = ? OR user_id IS NULL)
		ORDER BY category_name`, userID)
}

// ListAllCategoryNames returns every active name regardless of owner.
func (s *Store) ListAllCategoryNames(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, `
		SELECT category_name
		FROM categories
		WHERE is_deleted = 0
		ORDER BY category_name`)
}

// ListCategoriesForUser returns the full category rows visible to the user:
// their own active categories plus the active system-wide ones.
func (s *Store) ListCategoriesForUser(ctx context.Context, userID string) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category_id, category_name, user_id, is_system, is_deleted, create_date
		FROM categories
		WHERE is_deleted = 0 AND (user_id = ? OR user_id IS NULL)
		ORDER BY is_system DESC, category_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListCategoriesForUser: %w", err)
	}
	defer rows.Close()

	var cats []domain.Category
	for rows.Next() {
		var (
			c          domain.Category
			owner      sql.NullString
			createDate string
		)
		if err := rows.Scan(&c.CategoryID, &c.CategoryName, &owner, &c.IsSystem, &c.IsDeleted, &createDate); err != nil {
			return nil, fmt.Errorf("ListCategoriesForUser: scan: %w", err)
		}
		if owner.Valid {
			c.UserID = &owner.String
		}
		if ts, err := time.Parse(time.RFC3339, createDate); err == nil {
			c.CreateDate = ts
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (s *Store) listNames(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listNames: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("listNames: scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
