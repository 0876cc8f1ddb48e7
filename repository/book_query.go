package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	"github.com/jmoiron/sqlx"

	"libraryCirculation/models"
)

const dialectSQLite = "sqlite3"

// BookFilter narrows book listings. A nil field means "no constraint".
type BookFilter struct {
	BorrowerID *int64
	Status     *models.BookStatus
	Search     string // case-insensitive substring of title or unique_code
	PageSize   int    // 0 means no limit
	AfterID    int64  // keyset cursor: book id
}

// scoped builds the FROM/JOIN/WHERE part shared by listings and stats.
func scoped(f BookFilter) *goqu.SelectDataset {
	ds := goqu.Dialect(dialectSQLite).
		From(goqu.T("books").As("b")).
		LeftJoin(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("b.borrower_id")))).
		Prepared(true)

	if f.BorrowerID != nil {
		ds = ds.Where(goqu.I("b.borrower_id").Eq(*f.BorrowerID))
	}
	if f.Status != nil {
		ds = ds.Where(goqu.I("b.status").Eq(string(*f.Status)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + escapeLike(s) + "%"
		ds = ds.Where(goqu.L(`(b.title LIKE ? ESCAPE '\' OR b.unique_code LIKE ? ESCAPE '\')`, like, like))
	}
	return ds
}

// List returns books matching f ordered by id asc, each joined with its
// borrower's name.
func (r *BookRepository) List(ctx context.Context, f BookFilter) ([]*models.Book, error) {
	ds := scoped(f).
		Select(
			goqu.I("b.id"), goqu.I("b.unique_code"), goqu.I("b.title"), goqu.I("b.author"),
			goqu.I("b.category"), goqu.I("b.status"), goqu.I("b.borrower_id"), goqu.I("b.due_date"),
			goqu.I("u.name").As("borrower_name"),
		).
		Order(goqu.I("b.id").Asc())
	if f.AfterID > 0 {
		ds = ds.Where(goqu.I("b.id").Gt(f.AfterID))
	}
	if f.PageSize > 0 {
		ds = ds.Limit(uint(f.PageSize))
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build book listing: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var rows []bookRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, err
	}
	return toModels(rows)
}

// Counts returns the total, borrowed and overdue (due before now) numbers of
// books matching f.
func (r *BookRepository) Counts(ctx context.Context, f BookFilter, now time.Time) (models.BookCounts, error) {
	query, args, err := scoped(f).
		Select(
			goqu.COUNT(goqu.Star()).As("total"),
			goqu.L(`COALESCE(SUM(b.status = 'borrowed'), 0)`).As("borrowed"),
			goqu.L(`COALESCE(SUM(b.status = 'borrowed' AND b.due_date < ?), 0)`, now.UTC()).As("overdue"),
		).
		ToSQL()
	if err != nil {
		return models.BookCounts{}, fmt.Errorf("build book counts: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var c models.BookCounts
	if err := sqlx.GetContext(ctx, r.q, &c, query, args...); err != nil {
		return models.BookCounts{}, err
	}
	return c, nil
}

// UnreturnedByGrade counts currently borrowed books per borrower grade. Borrowers
// without a grade are left out, and grades without borrowed books do not appear.
func (r *BookRepository) UnreturnedByGrade(ctx context.Context) ([]models.GradeCount, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out := []models.GradeCount{}
	err := sqlx.SelectContext(ctx, r.q, &out, `
SELECT u.grade AS grade, COUNT(b.id) AS count
FROM books b
JOIN users u ON u.id = b.borrower_id
WHERE b.status = 'borrowed' AND u.grade IS NOT NULL
GROUP BY u.grade
ORDER BY u.grade ASC`)
	if err != nil {
		return nil, err
	}
	return out, nil
}
