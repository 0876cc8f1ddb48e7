package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"libraryCirculation/internal/liberr"
	"libraryCirculation/internal/policy"
	"libraryCirculation/models"
	"libraryCirculation/repository"
)

// MaxBulkCodes bounds the number of codes one bulk request may generate.
const MaxBulkCodes = 10000

// BulkRequest describes a run of sequential codes prefix+NNNN from Start to End
// inclusive. Start and End arrive as text from forms.
type BulkRequest struct {
	Prefix   string `json:"prefix"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Category string `json:"category"`
}

func (r BulkRequest) bounds() (int, int, error) {
	start, err1 := strconv.Atoi(strings.TrimSpace(r.Start))
	end, err2 := strconv.Atoi(strings.TrimSpace(r.End))
	if err1 != nil || err2 != nil || start > end {
		return 0, 0, liberr.InvalidInput("invalid range")
	}
	if end-start+1 > MaxBulkCodes {
		return 0, 0, liberr.InvalidInput(fmt.Sprintf("range exceeds %d codes", MaxBulkCodes))
	}
	return start, end, nil
}

// BulkCode formats the n-th code of a prefix, zero padded to four digits.
func BulkCode(prefix string, n int) string {
	return fmt.Sprintf("%s%04d", prefix, n)
}

// BulkCreate creates every code of the range that does not exist yet, in one
// transaction, and returns how many books were created. Existing codes are
// skipped without error. Admin only.
func (s *Service) BulkCreate(ctx context.Context, caller policy.Caller, req BulkRequest) (int, error) {
	if err := policy.AuthorizeAdminOnly(caller); err != nil {
		return 0, err
	}
	start, end, err := req.bounds()
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return 0, liberr.InvalidInput("title is required")
	}

	created := 0
	err = s.store.InTx(ctx, func(tx *repository.Tx) error {
		for i := start; i <= end; i++ {
			ok, err := tx.Books.InsertIgnoringDuplicates(ctx, repository.NewBook{
				UniqueCode: BulkCode(req.Prefix, i),
				Title:      req.Title,
				Author:     req.Author,
				Category:   req.Category,
			})
			if err != nil {
				return fmt.Errorf("insert %s: %w", BulkCode(req.Prefix, i), err)
			}
			if ok {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "bulk books created", "prefix", req.Prefix, "start", start, "end", end, "created", created)
	return created, nil
}

// CreateBook adds a single available book. Admin only.
func (s *Service) CreateBook(ctx context.Context, caller policy.Caller, nb repository.NewBook) (*models.Book, error) {
	if err := policy.AuthorizeAdminOnly(caller); err != nil {
		return nil, err
	}
	nb.UniqueCode = strings.TrimSpace(nb.UniqueCode)
	nb.Title = strings.TrimSpace(nb.Title)
	if nb.UniqueCode == "" || nb.Title == "" {
		return nil, liberr.InvalidInput("unique_code and title are required")
	}
	b, err := s.store.Books.Create(ctx, nb)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, liberr.Conflict("unique_code already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	return b, nil
}
