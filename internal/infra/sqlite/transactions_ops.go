package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

// InsertTransactionBatch writes all transactions inside one database
// transaction. Either every row commits or none do.
func (s *Store) InsertTransactionBatch(ctx context.Context, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("InsertTransactionBatch: begin: %v: %w", err, domain.ErrPersistence)
	}
	defer dbTx.Rollback()

	// The transactions table references users; create any user rows this
	// batch introduces, inside the same database transaction.
	now := time.Now().UTC().Format(time.RFC3339)
	seen := make(map[string]bool, 1)
	for _, tx := range txs {
		if seen[tx.UserID] {
			continue
		}
		seen[tx.UserID] = true
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO users (user_id, created_ts) VALUES (?, ?)
			ON CONFLICT (user_id) DO NOTHING`, tx.UserID, now)
		if err != nil {
			return fmt.Errorf("InsertTransactionBatch: ensure user %q: %v: %w", tx.UserID, err, domain.ErrPersistence)
		}
	}

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions
			(transaction_id, user_id, date, amount, transaction_type, category_id, to_from, description, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("InsertTransactionBatch: prepare: %v: %w", err, domain.ErrPersistence)
	}
	defer stmt.Close()

	for i, tx := range txs {
		_, err := stmt.ExecContext(ctx,
			tx.TransactionID,
			tx.UserID,
			tx.Date.Format(dateFormat),
			tx.Amount,
			string(tx.Type),
			tx.CategoryID,
			tx.ToFrom,
			tx.Description,
			tx.CreatedTS.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("InsertTransactionBatch: row %d: %v: %w", i, err, domain.ErrPersistence)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("InsertTransactionBatch: commit: %v: %w", err, domain.ErrPersistence)
	}
	return nil
}

// ListTransactions returns one page of the user's transactions, newest
// first, along with the total row count for the user.
func (s *Store) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = ?`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListTransactions: count: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.transaction_id, t.user_id, t.date, t.amount, t.transaction_type,
		       t.category_id, c.category_name, t.to_from, t.description, t.created_ts
		FROM transactions t
		JOIN categories c ON c.category_id = t.category_id
		WHERE t.user_id = ?
		ORDER BY t.date DESC, t.created_ts DESC, t.transaction_id
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListTransactions: query: %w", err)
	}
	defer rows.Close()

	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("ListTransactions: %w", err)
	}
	return txs, total, nil
}

// ListAllTransactionsForUser returns the user's full transaction set, oldest
// first. Used by the Notion export.
func (s *Store) ListAllTransactionsForUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.transaction_id, t.user_id, t.date, t.amount, t.transaction_type,
		       t.category_id, c.category_name, t.to_from, t.description, t.created_ts
		FROM transactions t
		JOIN categories c ON c.category_id = t.category_id
		WHERE t.user_id = ?
		ORDER BY t.date, t.created_ts`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListAllTransactionsForUser: query: %w", err)
	}
	defer rows.Close()

	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("ListAllTransactionsForUser: %w", err)
	}
	return txs, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTransactions(rows rowScanner) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	for rows.Next() {
		var (
			tx        domain.Transaction
			date      string
			txType    string
			createdTS string
		)
		if err := rows.Scan(&tx.TransactionID, &tx.UserID, &date, &tx.Amount, &txType,
			&tx.CategoryID, &tx.CategoryName, &tx.ToFrom, &tx.Description, &createdTS); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		d, err := time.Parse(dateFormat, date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		tx.Date = d
		tx.Type = domain.TransactionType(txType)

		if ts, err := time.Parse(time.RFC3339, createdTS); err == nil {
			tx.CreatedTS = ts
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
