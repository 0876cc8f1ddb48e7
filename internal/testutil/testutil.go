package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"libraryCirculation/internal/db"
)

// OpenTestDB opens a migrated SQLite database in a fresh temp directory.
// A file database lets concurrent connections lock each other the way
// production does; shared-cache memory databases do not.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// SeedUser inserts a user with a placeholder password hash and returns its ID.
// grade may be empty for none.
func SeedUser(t *testing.T, d *sql.DB, name, email, role, campus, grade string) int64 {
	t.Helper()
	var g any
	if grade != "" {
		g = grade
	}
	res, err := d.Exec(`INSERT INTO users (name, email, password_hash, role, campus, grade) VALUES (?,?,?,?,?,?)`,
		name, email, "x", role, campus, g)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seed user id: %v", err)
	}
	return id
}

// SeedBook inserts an available book and returns its ID.
func SeedBook(t *testing.T, d *sql.DB, code, title string) int64 {
	t.Helper()
	res, err := d.Exec(`INSERT INTO books (unique_code, title) VALUES (?,?)`, code, title)
	if err != nil {
		t.Fatalf("seed book %s: %v", code, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seed book id: %v", err)
	}
	return id
}

// GenerateJWTHS256 returns a signed session token with the claims the app reads.
// ttl <= 0 produces an already expired token.
func GenerateJWTHS256(t *testing.T, secret string, id int64, name, role, campus string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"id":     id,
		"name":   name,
		"role":   role,
		"campus": campus,
		"exp":    time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}
