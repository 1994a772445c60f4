package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransactionType says whether money entered or left the account.
type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

// Valid reports whether t is one of the two allowed values.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Candidate is a transaction as extracted from a statement or entered
// manually, before date normalization and category resolution.
// The date is still text here; the category is still a free-text name.
type Candidate struct {
	Date            string  `json:"date"`
	Amount          float64 `json:"amount"`
	TransactionType string  `json:"transaction_type"`
	Category        string  `json:"category"`
	ToFrom          string  `json:"to_from"`
	Description     string  `json:"description"`
}

// Validate checks the fields a candidate must carry before it can enter
// the ingestion pipeline. Date parsing happens later, in normalization.
func (c Candidate) Validate() error {
	if strings.TrimSpace(c.Date) == "" {
		return fmt.Errorf("candidate: missing date")
	}
	if strings.TrimSpace(c.Category) == "" {
		return fmt.Errorf("candidate: missing category")
	}
	if !TransactionType(c.TransactionType).Valid() {
		return fmt.Errorf("candidate: transaction_type %q is not INCOME or EXPENSE", c.TransactionType)
	}
	if c.Amount < 0 {
		return fmt.Errorf("candidate: amount %v is negative", c.Amount)
	}
	return nil
}

// Transaction is one validated, persisted record. Transactions are
// create-only: there is no update path.
type Transaction struct {
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	Date          time.Time       `json:"date"`
	Amount        float64         `json:"amount"`
	Type          TransactionType `json:"transaction_type"`
	CategoryID    int64           `json:"category_id"`
	CategoryName  string          `json:"category_name"`
	ToFrom        string          `json:"to_from,omitempty"`
	Description   string          `json:"description,omitempty"`
	CreatedTS     time.Time       `json:"created_ts"`
}

// Category is a spending category, either system-wide (UserID nil) or owned
// by one user. Deletion is logical only.
type Category struct {
	CategoryID   int64     `json:"category_id"`
	CategoryName string    `json:"category_name"`
	UserID       *string   `json:"user_id,omitempty"`
	IsSystem     bool      `json:"is_system"`
	IsDeleted    bool      `json:"is_deleted"`
	CreateDate   time.Time `json:"create_date"`
}

// MonthlySummary is one row of the per-month breakdown.
type MonthlySummary struct {
	Year         int     `json:"year"`
	Month        int     `json:"month"`
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
}
