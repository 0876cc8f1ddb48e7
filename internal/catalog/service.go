// Package catalog serves role-scoped book listings, reports and catalog
// maintenance (single and bulk creation, CSV import and export).
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"libraryCirculation/internal/liberr"
	"libraryCirculation/internal/policy"
	"libraryCirculation/models"
	"libraryCirculation/repository"
)

type Service struct {
	store  *repository.Store
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store *repository.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ListQuery holds the user-supplied listing filters.
type ListQuery struct {
	Search string
	Status string // empty means any; ignored for staff
}

func (q ListQuery) filter() (repository.BookFilter, error) {
	f := repository.BookFilter{Search: strings.TrimSpace(q.Search)}
	if q.Status != "" {
		st, err := models.ParseBookStatus(q.Status)
		if err != nil {
			return f, liberr.Wrap(liberr.KindInvalidInput, "invalid status", err)
		}
		f.Status = &st
	}
	return f, nil
}

// ListBooks returns the books the caller may see, ordered by id.
func (s *Service) ListBooks(ctx context.Context, caller policy.Caller, q ListQuery) ([]*models.Book, error) {
	f, err := q.filter()
	if err != nil && caller.IsAdmin() {
		return nil, err
	}
	books, err := s.store.Books.List(ctx, policy.ListScope(caller, f))
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// Stats counts the caller's visible books, how many are out and how many are overdue.
func (s *Service) Stats(ctx context.Context, caller policy.Caller) (models.BookCounts, error) {
	c, err := s.store.Books.Counts(ctx, policy.ListScope(caller, repository.BookFilter{}), s.now())
	if err != nil {
		return models.BookCounts{}, fmt.Errorf("count books: %w", err)
	}
	return c, nil
}

// UnreturnedByGrade reports borrowed books per borrower grade. Admin only.
func (s *Service) UnreturnedByGrade(ctx context.Context, caller policy.Caller) ([]models.GradeCount, error) {
	if err := policy.AuthorizeAdminOnly(caller); err != nil {
		return nil, err
	}
	report, err := s.store.Books.UnreturnedByGrade(ctx)
	if err != nil {
		return nil, fmt.Errorf("unreturned report: %w", err)
	}
	return report, nil
}
