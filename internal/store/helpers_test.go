package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

func mustBook(t *testing.T, database *sql.DB, title string) *model.Book {
	t.Helper()
	b, err := CreateBook(context.Background(), database, &model.Book{Title: title, Author: "Anon", ISBN: "9780000000000"})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	return b
}

func mustItem(t *testing.T, database *sql.DB, bookID int64, barcode string) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), database, bookID, barcode, "", "")
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return item
}

func mustPatron(t *testing.T, database *sql.DB, name, email string) *model.Patron {
	t.Helper()
	p, err := CreatePatron(context.Background(), database, &model.Patron{Name: name, Email: email})
	if err != nil {
		t.Fatalf("CreatePatron: %v", err)
	}
	return p
}

func mustLoan(t *testing.T, database *sql.DB, patronID int64, item *model.Item, checkout time.Time) int64 {
	t.Helper()
	ctx := context.Background()
	if ok, err := MarkItemStatus(ctx, database, item.ID, model.ItemStatusAvailable, model.ItemStatusCheckedOut); err != nil || !ok {
		t.Fatalf("MarkItemStatus: ok=%v err=%v", ok, err)
	}
	id, err := InsertBorrowing(ctx, database, &model.Borrowing{
		PatronID:     patronID,
		BookID:       item.BookID,
		ItemID:       item.ID,
		CheckoutDate: checkout,
		DueDate:      checkout.AddDate(0, 0, 14),
	})
	if err != nil {
		t.Fatalf("InsertBorrowing: %v", err)
	}
	return id
}
