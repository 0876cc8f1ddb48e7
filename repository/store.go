package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint
// (users.email or books.unique_code).
var ErrDuplicate = errors.New("duplicate key")

// ErrStaleState is returned by conditional updates that matched no row because
// the row no longer has the expected state.
var ErrStaleState = errors.New("row state changed")

// Store bundles the repositories over one database handle and provides the
// transactional primitive used by circulation.
type Store struct {
	db *sqlx.DB

	Users        *UserRepository
	Books        *BookRepository
	Transactions *TransactionRepository
}

// NewStore wraps an open SQLite handle (see internal/db.Open).
func NewStore(d *sql.DB) *Store {
	x := sqlx.NewDb(d, "sqlite3")
	return &Store{
		db:           x,
		Users:        NewUserRepository(x),
		Books:        NewBookRepository(x),
		Transactions: NewTransactionRepository(x),
	}
}

// Tx exposes the repositories bound to a single database transaction.
type Tx struct {
	Users        *UserRepository
	Books        *BookRepository
	Transactions *TransactionRepository
}

// InTx runs fn inside one transaction. The transaction commits when fn returns
// nil and rolls back otherwise, so either all writes of fn become visible or none.
// Transactions start with BEGIN IMMEDIATE (see internal/db.DSN), which serializes
// concurrent writers before their first read.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Tx{
		Users:        NewUserRepository(tx),
		Books:        NewBookRepository(tx),
		Transactions: NewTransactionRepository(tx),
	}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
