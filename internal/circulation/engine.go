// Package circulation implements the borrow/return lifecycle of books. Every
// transition and its audit record are written in one store transaction.
package circulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"libraryCirculation/internal/liberr"
	"libraryCirculation/internal/policy"
	"libraryCirculation/models"
	"libraryCirculation/repository"
)

// LoanPeriod is how long a borrowed book may be kept.
const LoanPeriod = 14 * 24 * time.Hour

// Engine runs circulation transitions against a store.
type Engine struct {
	store  *repository.Store
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger used for transition events.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(store *repository.Store, opts ...Option) *Engine {
	e := &Engine{store: store, now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Borrow lends the book with the given code. Admins may name another user as
// the borrower; for everyone else the caller is the borrower.
func (e *Engine) Borrow(ctx context.Context, caller policy.Caller, code string, requestedBorrower *int64) (*models.Book, error) {
	if code == "" {
		return nil, liberr.InvalidInput("unique_code is required")
	}
	borrower := policy.EffectiveBorrower(caller, requestedBorrower)
	now := e.now().UTC()

	var out *models.Book
	err := e.store.InTx(ctx, func(tx *repository.Tx) error {
		book, err := tx.Books.GetByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("load book: %w", err)
		}
		if book == nil {
			return liberr.NotFound("book not found")
		}
		if book.Status() != models.StatusAvailable {
			return liberr.InvalidState("not available")
		}
		if borrower != caller.ID {
			u, err := tx.Users.GetByID(ctx, borrower)
			if err != nil {
				return fmt.Errorf("load borrower: %w", err)
			}
			if u == nil {
				return liberr.NotFound("user not found")
			}
		}

		next := models.Borrowed(borrower, now.Add(LoanPeriod))
		if err := tx.Books.UpdateCirculation(ctx, book.ID, models.StatusAvailable, next); err != nil {
			return stateErr(err, "not available")
		}
		if _, err := tx.Transactions.Append(ctx, models.Transaction{
			BookID: book.ID, UserID: borrower, Type: models.TransactionBorrow, Date: now,
		}); err != nil {
			return fmt.Errorf("append borrow: %w", err)
		}
		book.Circulation = next
		out = book
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "book borrowed", "code", code, "borrower_id", borrower, "caller_id", caller.ID)
	return out, nil
}

// Return puts a borrowed book back on the shelf. The audit record names the
// borrower, not the caller.
func (e *Engine) Return(ctx context.Context, caller policy.Caller, code string) (*models.Book, error) {
	if code == "" {
		return nil, liberr.InvalidInput("unique_code is required")
	}
	now := e.now().UTC()

	var (
		out      *models.Book
		borrower int64
	)
	err := e.store.InTx(ctx, func(tx *repository.Tx) error {
		book, err := tx.Books.GetByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("load book: %w", err)
		}
		if book == nil {
			return liberr.NotFound("book not found")
		}
		id, _, ok := book.Circulation.Loan()
		if !ok {
			return liberr.InvalidState("not borrowed")
		}
		if err := policy.AuthorizeReturn(caller, book); err != nil {
			return err
		}
		borrower = id

		if err := tx.Books.UpdateCirculation(ctx, book.ID, models.StatusBorrowed, models.Available()); err != nil {
			return stateErr(err, "not borrowed")
		}
		if _, err := tx.Transactions.Append(ctx, models.Transaction{
			BookID: book.ID, UserID: borrower, Type: models.TransactionReturn, Date: now,
		}); err != nil {
			return fmt.Errorf("append return: %w", err)
		}
		book.Circulation = models.Available()
		book.BorrowerName = ""
		out = book
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "book returned", "code", code, "borrower_id", borrower, "caller_id", caller.ID)
	return out, nil
}

// History lists the circulation records of a book, oldest first. Admin only.
func (e *Engine) History(ctx context.Context, caller policy.Caller, code string) ([]models.Transaction, error) {
	if err := policy.AuthorizeAdminOnly(caller); err != nil {
		return nil, err
	}
	book, err := e.store.Books.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load book: %w", err)
	}
	if book == nil {
		return nil, liberr.NotFound("book not found")
	}
	return e.store.Transactions.ListByBook(ctx, book.ID)
}

func stateErr(err error, reason string) error {
	if errors.Is(err, repository.ErrStaleState) {
		return liberr.Wrap(liberr.KindInvalidState, reason, err)
	}
	return fmt.Errorf("update circulation: %w", err)
}
