package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"libraryCirculation/internal/testutil"
	"libraryCirculation/models"
)

func TestBookRepository_CreateAndGet(t *testing.T) {
	d := testutil.OpenTestDB(t)
	repo := NewStore(d).Books
	ctx := context.Background()

	b, err := repo.Create(ctx, NewBook{UniqueCode: "D0001", Title: "Algebra", Author: "Noether"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.ID == 0 || b.Status() != models.StatusAvailable {
		t.Fatalf("unexpected created book: %+v", b)
	}

	got, err := repo.GetByCode(ctx, "D0001")
	if err != nil || got == nil || got.ID != b.ID || got.Author != "Noether" || got.Category != "" {
		t.Fatalf("get by code: %v %+v", err, got)
	}
	if _, _, ok := got.Circulation.Loan(); ok {
		t.Fatalf("new book must not have a loan")
	}

	missing, err := repo.GetByCode(ctx, "NOPE")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil), got %+v %v", missing, err)
	}

	if _, err := repo.Create(ctx, NewBook{UniqueCode: "D0001", Title: "Other"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestBookRepository_InsertIgnoringDuplicates(t *testing.T) {
	d := testutil.OpenTestDB(t)
	repo := NewStore(d).Books
	ctx := context.Background()

	created, err := repo.InsertIgnoringDuplicates(ctx, NewBook{UniqueCode: "X1", Title: "T"})
	if err != nil || !created {
		t.Fatalf("first insert: %v created=%v", err, created)
	}
	created, err = repo.InsertIgnoringDuplicates(ctx, NewBook{UniqueCode: "X1", Title: "T2"})
	if err != nil || created {
		t.Fatalf("duplicate insert: %v created=%v", err, created)
	}
	b, _ := repo.GetByCode(ctx, "X1")
	if b.Title != "T" {
		t.Fatalf("duplicate must not overwrite: %+v", b)
	}
}

func TestBookRepository_UpdateCirculation(t *testing.T) {
	d := testutil.OpenTestDB(t)
	repo := NewStore(d).Books
	ctx := context.Background()

	uid := testutil.SeedUser(t, d, "Bob", "bob@school.test", "staff", "Kamulu", "")
	id := testutil.SeedBook(t, d, "D0001", "Algebra")
	due := time.Date(2030, 3, 15, 9, 30, 0, 0, time.UTC)

	if err := repo.UpdateCirculation(ctx, id, models.StatusAvailable, models.Borrowed(uid, due)); err != nil {
		t.Fatalf("borrow update: %v", err)
	}
	b, err := repo.GetByID(ctx, id)
	if err != nil || b == nil {
		t.Fatalf("get: %v", err)
	}
	gotUID, gotDue, ok := b.Circulation.Loan()
	if !ok || gotUID != uid || !gotDue.Equal(due) {
		t.Fatalf("loan mismatch: %d %v %v", gotUID, gotDue, ok)
	}
	if b.BorrowerName != "Bob" {
		t.Fatalf("borrower name not joined: %q", b.BorrowerName)
	}

	// A second writer still expecting "available" must not apply.
	if err := repo.UpdateCirculation(ctx, id, models.StatusAvailable, models.Borrowed(uid, due)); !errors.Is(err, ErrStaleState) {
		t.Fatalf("expected ErrStaleState, got %v", err)
	}

	if err := repo.UpdateCirculation(ctx, id, models.StatusBorrowed, models.Available()); err != nil {
		t.Fatalf("return update: %v", err)
	}
	b, _ = repo.GetByID(ctx, id)
	if b.Status() != models.StatusAvailable || b.BorrowerName != "" {
		t.Fatalf("expected cleared loan: %+v", b)
	}
}

func TestBookRepository_All(t *testing.T) {
	d := testutil.OpenTestDB(t)
	repo := NewStore(d).Books
	ctx := context.Background()

	testutil.SeedBook(t, d, "B", "Second")
	testutil.SeedBook(t, d, "A", "First")
	books, err := repo.All(ctx)
	if err != nil || len(books) != 2 {
		t.Fatalf("all: %v len=%d", err, len(books))
	}
	if books[0].UniqueCode != "B" || books[1].UniqueCode != "A" {
		t.Fatalf("expected id order, got %s,%s", books[0].UniqueCode, books[1].UniqueCode)
	}
}
