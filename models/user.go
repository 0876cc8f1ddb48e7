package models

import "slices"

// Role is the authorization role of a user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Campuses is the fixed list of sites a user can belong to.
var Campuses = []string{
	"Main School",
	"Kamulu",
	"Kindergarden",
	"Diani",
	"International",
}

// Grades lists the grades offered by the front end. Grades are stored as free
// text and only used to group reports.
var Grades = []string{
	"Grade 1", "Grade 2", "Grade 3", "Grade 4", "Grade 5",
	"Grade 6", "Grade 7", "Grade 8", "High School",
}

// ValidCampus reports whether c is one of Campuses.
func ValidCampus(c string) bool {
	return slices.Contains(Campuses, c)
}

// User represents an admin or staff member.
// It maps to the `users` table in SQLite.
type User struct {
	ID           int64   `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	Email        string  `db:"email" json:"email"`
	PasswordHash string  `db:"password_hash" json:"-"`
	Role         Role    `db:"role" json:"role"`
	Campus       string  `db:"campus" json:"campus"`
	Grade        *string `db:"grade" json:"grade,omitempty"` // nullable; admins usually have none
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
