package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

func TestCreateItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	book := mustBook(t, database, "Dune")
	item, err := CreateItem(ctx, database, book.ID, "B-1", "FIC HER", "A3")
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.CirculationStatus != model.ItemStatusAvailable {
		t.Errorf("expected available, got %q", item.CirculationStatus)
	}
	if item.BookTitle != "Dune" || item.CallNumber != "FIC HER" || item.OnLoan {
		t.Errorf("unexpected item: %+v", item)
	}

	if _, err := CreateItem(ctx, database, book.ID, "B-1", "", ""); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate barcode: expected ErrConflict, got %v", err)
	}
	if _, err := CreateItem(ctx, database, 999, "B-2", "", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing book: expected ErrNotFound, got %v", err)
	}
}

func TestGetItemByBarcode(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	book := mustBook(t, database, "Dune")
	mustItem(t, database, book.ID, "B-1")

	item, err := GetItemByBarcode(ctx, database, "B-1")
	if err != nil {
		t.Fatalf("GetItemByBarcode: %v", err)
	}
	if item == nil || item.BookID != book.ID {
		t.Fatalf("unexpected item: %+v", item)
	}

	missing, _ := GetItemByBarcode(ctx, database, "nope")
	if missing != nil {
		t.Error("expected nil for unknown barcode")
	}
}

func TestFindAvailableItemPicksLowestID(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	book := mustBook(t, database, "Dune")
	first := mustItem(t, database, book.ID, "B-1")
	second := mustItem(t, database, book.ID, "B-2")
	patron := mustPatron(t, database, "Ana", "ana@example.com")

	got, err := FindAvailableItem(ctx, database, book.ID)
	if err != nil {
		t.Fatalf("FindAvailableItem: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("expected item %d, got %d", first.ID, got.ID)
	}

	mustLoan(t, database, patron.ID, first, time.Now())
	got, _ = FindAvailableItem(ctx, database, book.ID)
	if got == nil || got.ID != second.ID {
		t.Fatalf("expected item %d, got %+v", second.ID, got)
	}

	ChangeItemStatus(ctx, database, second.ID, model.ItemStatusLost)
	got, _ = FindAvailableItem(ctx, database, book.ID)
	if got != nil {
		t.Errorf("expected no available item, got %d", got.ID)
	}
}

func TestMarkItemStatusCompareAndSet(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	book := mustBook(t, database, "Dune")
	item := mustItem(t, database, book.ID, "B-1")

	ok, err := MarkItemStatus(ctx, database, item.ID, model.ItemStatusAvailable, model.ItemStatusCheckedOut)
	if err != nil || !ok {
		t.Fatalf("first mark: ok=%v err=%v", ok, err)
	}
	ok, err = MarkItemStatus(ctx, database, item.ID, model.ItemStatusAvailable, model.ItemStatusCheckedOut)
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if ok {
		t.Error("expected second mark to lose")
	}
}

func TestChangeItemStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	book := mustBook(t, database, "Dune")
	item := mustItem(t, database, book.ID, "B-1")
	patron := mustPatron(t, database, "Ana", "ana@example.com")

	if _, err := ChangeItemStatus(ctx, database, item.ID, model.ItemStatusCheckedOut); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("checked_out: expected ErrInvalidStatus, got %v", err)
	}
	if _, err := ChangeItemStatus(ctx, database, item.ID, "shredded"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("unknown status: expected ErrInvalidStatus, got %v", err)
	}
	if _, err := ChangeItemStatus(ctx, database, 999, model.ItemStatusLost); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing item: expected ErrNotFound, got %v", err)
	}

	mustLoan(t, database, patron.ID, item, time.Now())
	if _, err := ChangeItemStatus(ctx, database, item.ID, model.ItemStatusAvailable); !errors.Is(err, ErrItemOnLoan) {
		t.Errorf("available while on loan: expected ErrItemOnLoan, got %v", err)
	}

	got, err := ChangeItemStatus(ctx, database, item.ID, model.ItemStatusLost)
	if err != nil {
		t.Fatalf("ChangeItemStatus(lost): %v", err)
	}
	if got.CirculationStatus != model.ItemStatusLost || !got.OnLoan {
		t.Errorf("unexpected item: %+v", got)
	}
}

func TestDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	book := mustBook(t, database, "Dune")
	onLoan := mustItem(t, database, book.ID, "B-1")
	spare := mustItem(t, database, book.ID, "B-2")
	patron := mustPatron(t, database, "Ana", "ana@example.com")
	mustLoan(t, database, patron.ID, onLoan, time.Now())

	if err := DeleteItem(ctx, database, onLoan.ID); !errors.Is(err, ErrItemOnLoan) {
		t.Errorf("expected ErrItemOnLoan, got %v", err)
	}
	if err := DeleteItem(ctx, database, spare.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if err := DeleteItem(ctx, database, spare.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}

	items, _ := ListItems(ctx, database, book.ID, "")
	if len(items) != 1 {
		t.Errorf("expected 1 live item, got %d", len(items))
	}
}

func TestGetItemHistory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	book := mustBook(t, database, "Dune")
	item := mustItem(t, database, book.ID, "B-1")
	patron := mustPatron(t, database, "Ana", "ana@example.com")

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	first := mustLoan(t, database, patron.ID, item, base)
	CloseBorrowing(ctx, database, first, base.AddDate(0, 0, 3), nil)
	MarkItemStatus(ctx, database, item.ID, model.ItemStatusCheckedOut, model.ItemStatusAvailable)
	second := mustLoan(t, database, patron.ID, item, base.AddDate(0, 0, 5))

	history, err := GetItemHistory(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].ID != second || history[1].ID != first {
		t.Errorf("expected newest first, got %d then %d", history[0].ID, history[1].ID)
	}
}
