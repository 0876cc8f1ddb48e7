package models

// GradeCount is one row of the unreturned-by-grade report.
type GradeCount struct {
	Grade string `db:"grade" json:"grade"`
	Count int    `db:"count" json:"count"`
}

// BookCounts summarizes a set of books for the dashboard.
type BookCounts struct {
	Total    int `db:"total" json:"total"`
	Borrowed int `db:"borrowed" json:"borrowed"`
	Overdue  int `db:"overdue" json:"overdue"`
}
