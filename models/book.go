package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// BookStatus is the persisted circulation status of a book.
type BookStatus string

const (
	StatusAvailable BookStatus = "available"
	StatusBorrowed  BookStatus = "borrowed"
	StatusLost      BookStatus = "lost"
)

// ParseBookStatus validates a status string.
func ParseBookStatus(s string) (BookStatus, error) {
	switch BookStatus(s) {
	case StatusAvailable, StatusBorrowed, StatusLost:
		return BookStatus(s), nil
	default:
		return "", fmt.Errorf("unknown book status %q", s)
	}
}

type circulationKind uint8

const (
	kindAvailable circulationKind = iota
	kindBorrowed
	kindLost
)

// Circulation is the circulation state of a book: Available, Borrowed by a user
// until a due date, or Lost. The borrower and due date exist only in the
// Borrowed state. The zero value is Available.
type Circulation struct {
	kind     circulationKind
	borrower int64
	due      time.Time
}

// Available returns the state of a book on the shelf.
func Available() Circulation { return Circulation{kind: kindAvailable} }

// Borrowed returns the state of a book lent to borrowerID until due.
func Borrowed(borrowerID int64, due time.Time) Circulation {
	return Circulation{kind: kindBorrowed, borrower: borrowerID, due: due.UTC()}
}

// Lost returns the state of a book marked lost.
func Lost() Circulation { return Circulation{kind: kindLost} }

// Status returns the persisted status for the state.
func (c Circulation) Status() BookStatus {
	switch c.kind {
	case kindBorrowed:
		return StatusBorrowed
	case kindLost:
		return StatusLost
	default:
		return StatusAvailable
	}
}

// Loan returns the borrower and due date when the book is borrowed.
func (c Circulation) Loan() (borrowerID int64, due time.Time, ok bool) {
	if c.kind != kindBorrowed {
		return 0, time.Time{}, false
	}
	return c.borrower, c.due, true
}

// IsBorrowedBy reports whether the book is currently lent to userID.
func (c Circulation) IsBorrowedBy(userID int64) bool {
	return c.kind == kindBorrowed && c.borrower == userID
}

// Columns returns the values of the status, borrower_id and due_date columns.
// borrower and due are nil unless the book is borrowed.
func (c Circulation) Columns() (status BookStatus, borrower any, due any) {
	if b, d, ok := c.Loan(); ok {
		return StatusBorrowed, b, d
	}
	return c.Status(), nil, nil
}

// CirculationFromColumns rebuilds the state from stored columns and rejects
// combinations that break the borrowed/borrower/due-date invariant.
func CirculationFromColumns(status string, borrower *int64, due *time.Time) (Circulation, error) {
	st, err := ParseBookStatus(status)
	if err != nil {
		return Circulation{}, err
	}
	if st == StatusBorrowed {
		if borrower == nil || due == nil {
			return Circulation{}, fmt.Errorf("borrowed book without borrower or due date")
		}
		return Borrowed(*borrower, *due), nil
	}
	if borrower != nil || due != nil {
		return Circulation{}, fmt.Errorf("%s book with borrower or due date set", st)
	}
	if st == StatusLost {
		return Lost(), nil
	}
	return Available(), nil
}

// Book represents a physical circulating item.
type Book struct {
	ID          int64       `json:"id"`
	UniqueCode  string      `json:"unique_code"`
	Title       string      `json:"title"`
	Author      string      `json:"author,omitempty"`
	Category    string      `json:"category,omitempty"`
	Circulation Circulation `json:"-"`
	// BorrowerName is filled by listings that join the borrower.
	BorrowerName string `json:"-"`
}

// Status is a shortcut for b.Circulation.Status().
func (b Book) Status() BookStatus { return b.Circulation.Status() }

// MarshalJSON flattens the circulation state into status, borrower_id and due_date.
func (b Book) MarshalJSON() ([]byte, error) {
	type plain Book
	out := struct {
		plain
		Status       BookStatus `json:"status"`
		BorrowerID   *int64     `json:"borrower_id,omitempty"`
		BorrowerName string     `json:"borrower_name,omitempty"`
		DueDate      *time.Time `json:"due_date,omitempty"`
	}{plain: plain(b), Status: b.Status(), BorrowerName: b.BorrowerName}
	if id, due, ok := b.Circulation.Loan(); ok {
		out.BorrowerID = &id
		out.DueDate = &due
	}
	return json.Marshal(out)
}
