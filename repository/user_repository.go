package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"libraryCirculation/models"
)

const userColumns = `id, name, email, password_hash, role, campus, grade`

type UserRepository struct {
	q sqlx.ExtContext
}

func NewUserRepository(q sqlx.ExtContext) *UserRepository {
	return &UserRepository{q: q}
}

// Create inserts a new user and returns it with its generated ID.
// A taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if u == nil {
		return nil, errors.New("user is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `INSERT INTO users (name, email, password_hash, role, campus, grade) VALUES (?,?,?,?,?,?)`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), u.Campus, u.Grade)
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
	out := *u
	out.ID = id
	return &out, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// getOne returns (nil, nil) when no row matches.
func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u models.User
	if err := sqlx.GetContext(ctx, r.q, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ListUsersParams filters List.
type ListUsersParams struct {
	Search   string // case-insensitive substring of name or email
	PageSize int
	AfterID  int64
}

// List returns users ordered by id asc with keyset pagination by id.
func (r *UserRepository) List(ctx context.Context, p ListUsersParams) ([]models.User, error) {
	if p.PageSize <= 0 {
		p.PageSize = 100
	}
	if p.PageSize > 500 {
		p.PageSize = 500
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if s := strings.TrimSpace(p.Search); s != "" {
		like := "%" + escapeLike(s) + "%"
		where = append(where, `(name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	if p.AfterID > 0 {
		where = append(where, "id > ?")
		args = append(args, p.AfterID)
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC LIMIT ?"
	args = append(args, p.PageSize)

	var out []models.User
	if err := sqlx.SelectContext(ctx, r.q, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePasswordByEmail sets a new password hash. It returns sql.ErrNoRows when
// no user has the email.
func (r *UserRepository) UpdatePasswordByEmail(ctx context.Context, email, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.q.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE email = ?`, hash, email)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
