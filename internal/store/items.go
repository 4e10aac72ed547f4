package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/model"
)

const itemColumns = `i.id, i.book_id, i.barcode, i.call_number, i.shelf_location, i.circulation_status,
	i.status_changed_at, i.created_at, i.deleted_at, b.title,
	EXISTS (SELECT 1 FROM borrowings br WHERE br.item_id = i.id AND br.status = 'active')`

const itemFrom = ` FROM items i JOIN books b ON b.id = i.book_id`

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	item := &model.Item{}
	var callNumber, shelf sql.NullString
	err := row.Scan(&item.ID, &item.BookID, &item.Barcode, &callNumber, &shelf, &item.CirculationStatus,
		&item.StatusChangedAt, &item.CreatedAt, &item.DeletedAt, &item.BookTitle, &item.OnLoan)
	if err != nil {
		return nil, err
	}
	item.CallNumber = callNumber.String
	item.ShelfLocation = shelf.String
	return item, nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CreateItem registers a new physical copy of a live book. Barcodes are
// unique across all items; a duplicate yields ErrConflict.
func CreateItem(ctx context.Context, db *sql.DB, bookID int64, barcode, callNumber, shelfLocation string) (*model.Item, error) {
	book, err := GetBook(ctx, db, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil || book.DeletedAt != nil {
		return nil, fmt.Errorf("book %d: %w", bookID, ErrNotFound)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (book_id, barcode, call_number, shelf_location) VALUES (?, ?, ?, ?)`,
		bookID, barcode, nullString(callNumber), nullString(shelfLocation),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("barcode %q: %w", barcode, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including soft-deleted ones, or nil.
func GetItem(ctx context.Context, q Querier, id int64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+itemFrom+` WHERE i.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// GetItemByBarcode returns the live item with the given barcode, or nil.
func GetItemByBarcode(ctx context.Context, db *sql.DB, barcode string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+itemFrom+` WHERE i.barcode = ? AND i.deleted_at IS NULL`, barcode))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item by barcode: %w", err)
	}
	return item, nil
}

// ListItems returns live items, optionally filtered by book and status.
func ListItems(ctx context.Context, db *sql.DB, bookID int64, status string) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + itemFrom + ` WHERE i.deleted_at IS NULL`
	var args []any

	if bookID > 0 {
		query += ` AND i.book_id = ?`
		args = append(args, bookID)
	}
	if status != "" {
		query += ` AND i.circulation_status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY i.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// UpdateItem updates a live item's shelving metadata.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, callNumber, shelfLocation string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE items SET call_number = ?, shelf_location = ? WHERE id = ? AND deleted_at IS NULL`,
		nullString(callNumber), nullString(shelfLocation), id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return requireRow(res, "item", id)
}

// ChangeItemStatus is the catalog-side status command. Circulation owns the
// checked_out status, and an item on an active loan cannot be marked
// available.
func ChangeItemStatus(ctx context.Context, db *sql.DB, id int64, status string) (*model.Item, error) {
	if !model.ValidItemStatus(status) || status == model.ItemStatusCheckedOut {
		return nil, fmt.Errorf("item status %q: %w", status, ErrInvalidStatus)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := GetItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if item.OnLoan && status == model.ItemStatusAvailable {
		return nil, fmt.Errorf("item %d: %w", id, ErrItemOnLoan)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET circulation_status = ?, status_changed_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	); err != nil {
		return nil, fmt.Errorf("changing item status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item status: %w", err)
	}
	return GetItem(ctx, db, id)
}

// MarkItemStatus moves an item from one circulation status to another and
// reports whether it did. A false result means another writer changed the
// item first.
func MarkItemStatus(ctx context.Context, q Querier, id int64, from, to string) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE items SET circulation_status = ?, status_changed_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND circulation_status = ? AND deleted_at IS NULL`,
		to, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("marking item status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking item status: %w", err)
	}
	return n == 1, nil
}

// FindAvailableItem returns the lowest-numbered lendable copy of a book,
// or nil when every copy is out or unfit.
func FindAvailableItem(ctx context.Context, q Querier, bookID int64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+itemFrom+` WHERE i.book_id = ? AND `+AvailableItemPredicate+`
		 ORDER BY i.id LIMIT 1`, bookID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding available item: %w", err)
	}
	return item, nil
}

// DeleteItem soft-deletes an item. Items on loan cannot be withdrawn.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL
		   AND NOT EXISTS (SELECT 1 FROM borrowings br WHERE br.item_id = items.id AND br.status = 'active')`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n == 1 {
		return nil
	}

	item, err := GetItem(ctx, db, id)
	if err != nil {
		return err
	}
	if item != nil && item.DeletedAt == nil && item.OnLoan {
		return fmt.Errorf("item %d: %w", id, ErrItemOnLoan)
	}
	return fmt.Errorf("item %d: %w", id, ErrNotFound)
}

// GetItemHistory returns every borrowing of an item, newest first.
func GetItemHistory(ctx context.Context, db *sql.DB, itemID int64) ([]model.Borrowing, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+borrowingColumns+borrowingFrom+` WHERE br.item_id = ? ORDER BY br.checkout_date DESC, br.id DESC`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting item history: %w", err)
	}
	defer rows.Close()

	return scanBorrowings(rows)
}
