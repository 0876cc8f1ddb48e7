// Package policy decides what a caller may see and do. It holds no state and
// never touches storage; callers pass in the facts it needs.
package policy

import (
	"libraryCirculation/internal/liberr"
	"libraryCirculation/models"
	"libraryCirculation/repository"
)

// Caller is the authenticated identity performing an operation.
type Caller struct {
	ID     int64
	Name   string
	Role   models.Role
	Campus string
}

// IsAdmin reports whether the caller has the admin role.
func (c Caller) IsAdmin() bool { return c.Role == models.RoleAdmin }

// ListScope narrows a book filter to what the caller may list: admins see
// everything, staff see only books currently lent to themselves. The status
// filter is an admin tool and is dropped for staff.
func ListScope(c Caller, f repository.BookFilter) repository.BookFilter {
	if c.IsAdmin() {
		return f
	}
	id := c.ID
	f.BorrowerID = &id
	f.Status = nil
	return f
}

// EffectiveBorrower returns the user a borrow is recorded against. Only admins
// may borrow on behalf of someone else; a staff request naming another user is
// silently recorded against the caller.
func EffectiveBorrower(c Caller, requested *int64) int64 {
	if c.IsAdmin() && requested != nil && *requested != 0 {
		return *requested
	}
	return c.ID
}

// AuthorizeReturn allows admins to return any borrowed book and staff to
// return only books lent to themselves.
func AuthorizeReturn(c Caller, book *models.Book) error {
	if c.IsAdmin() {
		return nil
	}
	if book != nil && book.Circulation.IsBorrowedBy(c.ID) {
		return nil
	}
	return liberr.Forbidden("not the borrower")
}

// AuthorizeAdminOnly rejects non-admin callers.
func AuthorizeAdminOnly(c Caller) error {
	if c.IsAdmin() {
		return nil
	}
	return liberr.Forbidden("admin access required")
}
