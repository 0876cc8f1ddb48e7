package models

import "time"

// TransactionType distinguishes borrow and return events.
type TransactionType string

const (
	TransactionBorrow TransactionType = "borrow"
	TransactionReturn TransactionType = "return"
)

// Transaction is an append-only audit record of a circulation event.
// UserID is always the borrower, not the user who performed the action.
type Transaction struct {
	ID     int64           `db:"id" json:"id"`
	BookID int64           `db:"book_id" json:"book_id"`
	UserID int64           `db:"user_id" json:"user_id"`
	Type   TransactionType `db:"type" json:"type"`
	Date   time.Time       `db:"date" json:"date"`
}
