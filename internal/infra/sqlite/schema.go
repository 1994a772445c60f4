package sqlite

import (
	"context"
	"fmt"
	"time"
)

// schema is idempotent: every statement is CREATE IF NOT EXISTS.
var schema = []string{
	// Users are created implicitly on their first committed batch; the id is
	// the opaque value from the X-User-ID header.
	`CREATE TABLE IF NOT EXISTS users (
		user_id    TEXT PRIMARY KEY,
		created_ts TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		category_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		category_name TEXT    NOT NULL,
		user_id       TEXT,
		is_system     INTEGER NOT NULL DEFAULT 0,
		is_deleted    INTEGER NOT NULL DEFAULT 0,
		create_date   TEXT    NOT NULL
	)`,
	// One active category per (name, owner); the system scope (user_id NULL)
	// counts as its own owner. Soft-deleted rows fall out of the index so a
	// name can be re-created after deletion.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_category_name_per_user
		ON categories (category_name, COALESCE(user_id, ''))
		WHERE is_deleted = 0`,
	`CREATE TABLE IF NOT EXISTS transactions (
		transaction_id   TEXT PRIMARY KEY,
		user_id          TEXT    NOT NULL REFERENCES users (user_id),
		date             TEXT    NOT NULL,
		amount           REAL    NOT NULL CHECK (amount >= 0),
		transaction_type TEXT    NOT NULL CHECK (transaction_type IN ('INCOME', 'EXPENSE')),
		category_id      INTEGER NOT NULL REFERENCES categories (category_id),
		to_from          TEXT    NOT NULL DEFAULT '',
		description      TEXT    NOT NULL DEFAULT '',
		created_ts       TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_date
		ON transactions (user_id, date)`,
}

// InitSchema creates the tables and indexes. Safe to call on every startup.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("InitSchema: %w", err)
		}
	}
	return nil
}

// SeedSystemCategories inserts any missing system categories (user_id NULL,
// is_system true) from the given seed list. Existing names are left alone,
// so re-running is harmless.
func (s *Store) SeedSystemCategories(ctx context.Context, names []string) (int, error) {
	created := 0
	now := time.Now().UTC().Format(time.RFC3339)
	for _, name := range names {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO categories (category_name, user_id, is_system, is_deleted, create_date)
			SELECT ?, NULL, 1, 0, ?
			WHERE NOT EXISTS (
				SELECT 1 FROM categories
				WHERE category_name = ? AND user_id IS NULL AND is_deleted = 0
			)`, name, now, name)
		if err != nil {
			return created, fmt.Errorf("SeedSystemCategories: %q: %w", name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return created, fmt.Errorf("SeedSystemCategories: rows affected: %w", err)
		}
		created += int(n)
	}
	return created, nil
}
