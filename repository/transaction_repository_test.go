package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"libraryCirculation/internal/testutil"
	"libraryCirculation/models"
)

func TestTransactionRepository_AppendAndList(t *testing.T) {
	d := testutil.OpenTestDB(t)
	repo := NewStore(d).Transactions
	ctx := context.Background()

	uid := testutil.SeedUser(t, d, "Bob", "bob@school.test", "staff", "Kamulu", "")
	bid := testutil.SeedBook(t, d, "D0001", "Algebra")
	t0 := time.Date(2025, 1, 10, 8, 0, 0, 0, time.FixedZone("EAT", 3*3600))

	ret, err := repo.Append(ctx, models.Transaction{BookID: bid, UserID: uid, Type: models.TransactionReturn, Date: t0.Add(time.Hour)})
	if err != nil {
		t.Fatalf("append return: %v", err)
	}
	bor, err := repo.Append(ctx, models.Transaction{BookID: bid, UserID: uid, Type: models.TransactionBorrow, Date: t0})
	if err != nil {
		t.Fatalf("append borrow: %v", err)
	}
	if bor.ID == 0 || bor.ID == ret.ID {
		t.Fatalf("unexpected ids: %d %d", bor.ID, ret.ID)
	}

	list, err := repo.ListByBook(ctx, bid)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v len=%d", err, len(list))
	}
	// Ordered by date, not by insertion.
	if list[0].Type != models.TransactionBorrow || list[1].Type != models.TransactionReturn {
		t.Fatalf("unexpected order: %+v", list)
	}
	if !list[0].Date.Equal(t0) || list[0].Date.Location() != time.UTC {
		t.Fatalf("date not round-tripped in UTC: %v", list[0].Date)
	}

	n, err := repo.CountByBook(ctx, bid)
	if err != nil || n != 2 {
		t.Fatalf("count: %v n=%d", err, n)
	}
}

func TestTransactionRepository_RequiresBookAndUser(t *testing.T) {
	d := testutil.OpenTestDB(t)
	repo := NewStore(d).Transactions
	if _, err := repo.Append(context.Background(), models.Transaction{Type: models.TransactionBorrow, Date: time.Now()}); err == nil {
		t.Fatalf("expected error for empty transaction")
	}
}

func TestStore_InTxRollsBack(t *testing.T) {
	d := testutil.OpenTestDB(t)
	s := NewStore(d)
	ctx := context.Background()

	uid := testutil.SeedUser(t, d, "Bob", "bob@school.test", "staff", "Kamulu", "")
	bid := testutil.SeedBook(t, d, "D0001", "Algebra")
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx *Tx) error {
		if err := tx.Books.UpdateCirculation(ctx, bid, models.StatusAvailable, models.Borrowed(uid, time.Now().Add(time.Hour))); err != nil {
			return err
		}
		if _, err := tx.Transactions.Append(ctx, models.Transaction{BookID: bid, UserID: uid, Type: models.TransactionBorrow, Date: time.Now()}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	b, _ := s.Books.GetByID(ctx, bid)
	if b.Status() != models.StatusAvailable {
		t.Fatalf("book update must be rolled back: %+v", b)
	}
	if n, _ := s.Transactions.CountByBook(ctx, bid); n != 0 {
		t.Fatalf("transaction row must be rolled back, got %d", n)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
