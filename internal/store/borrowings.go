package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

const borrowingColumns = `br.id, br.patron_id, br.book_id, br.item_id, br.checkout_date, br.due_date,
	br.renewal_count, br.status, br.return_date, br.notes, br.issued_by, br.returned_by,
	p.name, p.email, COALESCE(p.phone, ''), bk.title, bk.author, bk.isbn, i.barcode`

const borrowingFrom = ` FROM borrowings br
	JOIN patrons p ON p.id = br.patron_id
	JOIN books bk ON bk.id = br.book_id
	JOIN items i ON i.id = br.item_id`

func scanBorrowing(row interface{ Scan(...any) error }) (*model.Borrowing, error) {
	b := &model.Borrowing{}
	var checkout, due string
	var returned, notes sql.NullString
	err := row.Scan(&b.ID, &b.PatronID, &b.BookID, &b.ItemID, &checkout, &due,
		&b.RenewalCount, &b.Status, &returned, &notes, &b.IssuedBy, &b.ReturnedBy,
		&b.PatronName, &b.Email, &b.Phone, &b.Title, &b.Author, &b.ISBN, &b.Barcode)
	if err != nil {
		return nil, err
	}

	if b.CheckoutDate, err = ParseTime(checkout); err != nil {
		return nil, fmt.Errorf("parsing checkout date: %w", err)
	}
	if b.DueDate, err = ParseTime(due); err != nil {
		return nil, fmt.Errorf("parsing due date: %w", err)
	}
	if returned.Valid {
		t, err := ParseTime(returned.String)
		if err != nil {
			return nil, fmt.Errorf("parsing return date: %w", err)
		}
		b.ReturnDate = &t
	}
	b.Notes = notes.String
	return b, nil
}

func scanBorrowings(rows *sql.Rows) ([]model.Borrowing, error) {
	var borrowings []model.Borrowing
	for rows.Next() {
		b, err := scanBorrowing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning borrowing: %w", err)
		}
		borrowings = append(borrowings, *b)
	}
	return borrowings, rows.Err()
}

// InsertBorrowing records a new active loan and returns its ID. A second
// active loan of the same item yields ErrConflict.
func InsertBorrowing(ctx context.Context, q Querier, b *model.Borrowing) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO borrowings (patron_id, book_id, item_id, checkout_date, due_date, renewal_count, status, notes, issued_by)
		 VALUES (?, ?, ?, ?, ?, 0, 'active', ?, ?)`,
		b.PatronID, b.BookID, b.ItemID, FormatTime(b.CheckoutDate), FormatTime(b.DueDate),
		nullString(b.Notes), b.IssuedBy,
	)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("item %d already on loan: %w", b.ItemID, ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("inserting borrowing: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting borrowing id: %w", err)
	}
	return id, nil
}

// GetBorrowing returns a borrowing with patron, book and item details, or nil.
func GetBorrowing(ctx context.Context, q Querier, id int64) (*model.Borrowing, error) {
	b, err := scanBorrowing(q.QueryRowContext(ctx,
		`SELECT `+borrowingColumns+borrowingFrom+` WHERE br.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting borrowing: %w", err)
	}
	return b, nil
}

// RenewBorrowing sets a new due date and bumps the renewal count, provided
// the loan is still active with the renewal count the caller read. It
// reports whether the row was updated.
func RenewBorrowing(ctx context.Context, q Querier, id int64, expectedCount int, newDue time.Time) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE borrowings SET due_date = ?, renewal_count = renewal_count + 1
		 WHERE id = ? AND status = 'active' AND renewal_count = ?`,
		FormatTime(newDue), id, expectedCount,
	)
	if err != nil {
		return false, fmt.Errorf("renewing borrowing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("renewing borrowing: %w", err)
	}
	return n == 1, nil
}

// CloseBorrowing marks an active loan returned. It reports whether the row
// was still active.
func CloseBorrowing(ctx context.Context, q Querier, id int64, returnedAt time.Time, returnedBy *int64) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE borrowings SET status = 'returned', return_date = ?, returned_by = ?
		 WHERE id = ? AND status = 'active'`,
		FormatTime(returnedAt), returnedBy, id,
	)
	if err != nil {
		return false, fmt.Errorf("closing borrowing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("closing borrowing: %w", err)
	}
	return n == 1, nil
}

// ListOverdueBorrowings returns active loans due before now, earliest due first.
func ListOverdueBorrowings(ctx context.Context, q Querier, now time.Time) ([]model.Borrowing, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+borrowingColumns+borrowingFrom+`
		 WHERE br.status = 'active' AND br.due_date < ?
		 ORDER BY br.due_date ASC, br.id ASC`,
		FormatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("listing overdue borrowings: %w", err)
	}
	defer rows.Close()

	return scanBorrowings(rows)
}

// ListPatronBorrowings returns a patron's loans, newest first, optionally
// filtered by status.
func ListPatronBorrowings(ctx context.Context, q Querier, patronID int64, status string) ([]model.Borrowing, error) {
	query := `SELECT ` + borrowingColumns + borrowingFrom + ` WHERE br.patron_id = ?`
	args := []any{patronID}
	if status != "" {
		query += ` AND br.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY br.checkout_date DESC, br.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing patron borrowings: %w", err)
	}
	defer rows.Close()

	return scanBorrowings(rows)
}

// CountActiveBorrowings returns how many loans a patron currently holds.
func CountActiveBorrowings(ctx context.Context, q Querier, patronID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM borrowings WHERE patron_id = ? AND status = 'active'`, patronID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting active borrowings: %w", err)
	}
	return n, nil
}
