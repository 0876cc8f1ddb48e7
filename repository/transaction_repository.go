package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"libraryCirculation/models"
)

// TransactionRepository appends and reads circulation audit records.
// Records are never updated or deleted; the schema rejects both.
type TransactionRepository struct {
	q sqlx.ExtContext
}

func NewTransactionRepository(q sqlx.ExtContext) *TransactionRepository {
	return &TransactionRepository{q: q}
}

// Append stores a new record and returns it with its generated ID.
func (r *TransactionRepository) Append(ctx context.Context, t models.Transaction) (*models.Transaction, error) {
	if t.BookID == 0 || t.UserID == 0 {
		return nil, errors.New("transaction requires book and user")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t.Date = t.Date.UTC()
	res, err := r.q.ExecContext(ctx, `INSERT INTO transactions (book_id, user_id, type, date) VALUES (?,?,?,?)`,
		t.BookID, t.UserID, string(t.Type), t.Date)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	t.ID = id
	return &t, nil
}

// ListByBook returns the records of a book in the order they happened.
func (r *TransactionRepository) ListByBook(ctx context.Context, bookID int64) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out := []models.Transaction{}
	if err := sqlx.SelectContext(ctx, r.q, &out,
		`SELECT id, book_id, user_id, type, date FROM transactions WHERE book_id = ? ORDER BY date ASC, id ASC`, bookID); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Date = out[i].Date.UTC()
	}
	return out, nil
}

// CountByBook returns the number of records of a book.
func (r *TransactionRepository) CountByBook(ctx context.Context, bookID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(*) FROM transactions WHERE book_id = ?`, bookID)
	return n, err
}
