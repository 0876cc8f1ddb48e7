package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"libraryCirculation/models"
)

// NewBook carries the catalog fields of a book to insert. New books are
// always available.
type NewBook struct {
	UniqueCode string
	Title      string
	Author     string
	Category   string
}

// BookRepository is the core repository for Book entities.
type BookRepository struct {
	q sqlx.ExtContext
}

// NewBookRepository creates a new BookRepository.
func NewBookRepository(q sqlx.ExtContext) *BookRepository {
	return &BookRepository{q: q}
}

// bookRow mirrors the books columns plus the joined borrower name.
type bookRow struct {
	ID           int64          `db:"id"`
	UniqueCode   string         `db:"unique_code"`
	Title        string         `db:"title"`
	Author       sql.NullString `db:"author"`
	Category     sql.NullString `db:"category"`
	Status       string         `db:"status"`
	BorrowerID   *int64         `db:"borrower_id"`
	DueDate      *time.Time     `db:"due_date"`
	BorrowerName sql.NullString `db:"borrower_name"`
}

func (row bookRow) toModel() (*models.Book, error) {
	c, err := models.CirculationFromColumns(row.Status, row.BorrowerID, row.DueDate)
	if err != nil {
		return nil, fmt.Errorf("book %s: %w", row.UniqueCode, err)
	}
	return &models.Book{
		ID:           row.ID,
		UniqueCode:   row.UniqueCode,
		Title:        row.Title,
		Author:       row.Author.String,
		Category:     row.Category.String,
		Circulation:  c,
		BorrowerName: row.BorrowerName.String,
	}, nil
}

const selectBookSQL = `SELECT b.id, b.unique_code, b.title, b.author, b.category, b.status, b.borrower_id, b.due_date, u.name AS borrower_name
FROM books b
LEFT JOIN users u ON u.id = b.borrower_id`

// Create inserts a book. A taken unique_code yields ErrDuplicate.
func (r *BookRepository) Create(ctx context.Context, nb NewBook) (*models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `INSERT INTO books (unique_code, title, author, category) VALUES (?,?,?,?)`,
		nb.UniqueCode, nb.Title, nullIfEmpty(nb.Author), nullIfEmpty(nb.Category))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Book{
		ID:         id,
		UniqueCode: nb.UniqueCode,
		Title:      nb.Title,
		Author:     nb.Author,
		Category:   nb.Category,
	}, nil
}

// InsertIgnoringDuplicates inserts a book unless its unique_code already exists.
// It reports whether a row was created.
func (r *BookRepository) InsertIgnoringDuplicates(ctx context.Context, nb NewBook) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `INSERT INTO books (unique_code, title, author, category) VALUES (?,?,?,?) ON CONFLICT(unique_code) DO NOTHING`,
		nb.UniqueCode, nb.Title, nullIfEmpty(nb.Author), nullIfEmpty(nb.Category))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetByCode fetches a book by its unique code, or (nil, nil) if none matches.
func (r *BookRepository) GetByCode(ctx context.Context, code string) (*models.Book, error) {
	return r.getOne(ctx, selectBookSQL+` WHERE b.unique_code = ?`, code)
}

// GetByID fetches a book by its ID, or (nil, nil) if none matches.
func (r *BookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	return r.getOne(ctx, selectBookSQL+` WHERE b.id = ?`, id)
}

func (r *BookRepository) getOne(ctx context.Context, query string, args ...any) (*models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var row bookRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel()
}

// UpdateCirculation moves a book from the expected status to next. The update
// only applies if the stored status still equals expected; otherwise it returns
// ErrStaleState and nothing changes.
func (r *BookRepository) UpdateCirculation(ctx context.Context, id int64, expected models.BookStatus, next models.Circulation) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	status, borrower, due := next.Columns()
	res, err := r.q.ExecContext(ctx, `UPDATE books SET status = ?, borrower_id = ?, due_date = ? WHERE id = ? AND status = ?`,
		string(status), borrower, due, id, string(expected))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleState
	}
	return nil
}

// All returns every book ordered by id asc.
func (r *BookRepository) All(ctx context.Context) ([]*models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var rows []bookRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, selectBookSQL+` ORDER BY b.id ASC`); err != nil {
		return nil, err
	}
	return toModels(rows)
}

func toModels(rows []bookRow) ([]*models.Book, error) {
	out := make([]*models.Book, 0, len(rows))
	for _, row := range rows {
		b, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
