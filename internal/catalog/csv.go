package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"libraryCirculation/internal/liberr"
	"libraryCirculation/internal/policy"
	"libraryCirculation/repository"
)

var exportHeader = []string{"unique_code", "title", "author", "category", "status"}

// ImportResult reports how many data rows were read and how many books were created.
type ImportResult struct {
	Count   int `json:"count"`
	Created int `json:"created"`
}

// ImportCSV adds the books of a CSV document with a header row naming at least
// unique_code and title. Header names are matched case-insensitively and extra
// columns are ignored. Rows without a code or title and codes that already exist
// are skipped. Admin only.
func (s *Service) ImportCSV(ctx context.Context, caller policy.Caller, r io.Reader) (ImportResult, error) {
	if err := policy.AuthorizeAdminOnly(caller); err != nil {
		return ImportResult{}, err
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ImportResult{}, liberr.InvalidInput("empty csv")
	}
	if err != nil {
		return ImportResult{}, liberr.Wrap(liberr.KindInvalidInput, "malformed csv", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := col["unique_code"]; !ok {
		return ImportResult{}, liberr.InvalidInput("csv header must contain unique_code")
	}
	if _, ok := col["title"]; !ok {
		return ImportResult{}, liberr.InvalidInput("csv header must contain title")
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var res ImportResult
	err = s.store.InTx(ctx, func(tx *repository.Tx) error {
		for {
			rec, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return liberr.Wrap(liberr.KindInvalidInput, "malformed csv", err)
			}
			res.Count++
			nb := repository.NewBook{
				UniqueCode: field(rec, "unique_code"),
				Title:      field(rec, "title"),
				Author:     field(rec, "author"),
				Category:   field(rec, "category"),
			}
			if nb.UniqueCode == "" || nb.Title == "" {
				continue
			}
			ok, err := tx.Books.InsertIgnoringDuplicates(ctx, nb)
			if err != nil {
				return fmt.Errorf("insert %s: %w", nb.UniqueCode, err)
			}
			if ok {
				res.Created++
			}
		}
	})
	if err != nil {
		return ImportResult{}, err
	}
	s.logger.InfoContext(ctx, "books imported", "rows", res.Count, "created", res.Created)
	return res, nil
}

// ExportCSV writes every book ordered by id with the columns of exportHeader.
// Admin only.
func (s *Service) ExportCSV(ctx context.Context, caller policy.Caller, w io.Writer) error {
	if err := policy.AuthorizeAdminOnly(caller); err != nil {
		return err
	}
	books, err := s.store.Books.All(ctx)
	if err != nil {
		return fmt.Errorf("load books: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, b := range books {
		if err := cw.Write([]string{b.UniqueCode, b.Title, b.Author, b.Category, string(b.Status())}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
