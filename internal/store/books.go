package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/model"
)

// AvailableItemPredicate matches a live copy, aliased i, that can be lent
// right now.
const AvailableItemPredicate = `i.deleted_at IS NULL
	AND i.circulation_status = 'available'
	AND NOT EXISTS (SELECT 1 FROM borrowings br WHERE br.item_id = i.id AND br.status = 'active')`

const bookColumns = `b.id, b.title, b.author, b.isbn, b.collection, b.publisher, b.published_year, b.cover_mime,
	(SELECT COUNT(*) FROM items i WHERE i.book_id = b.id AND i.deleted_at IS NULL),
	(SELECT COUNT(*) FROM items i WHERE i.book_id = b.id AND ` + AvailableItemPredicate + `),
	b.created_at, b.updated_at, b.deleted_at`

func scanBook(row interface{ Scan(...any) error }) (*model.Book, error) {
	b := &model.Book{}
	var publisher, coverMime sql.NullString
	var year sql.NullInt64
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Collection, &publisher, &year, &coverMime,
		&b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt)
	if err != nil {
		return nil, err
	}
	b.Publisher = publisher.String
	b.PublishedYear = int(year.Int64)
	b.CoverMime = coverMime.String
	return b, nil
}

// CreateBook adds a catalogue record and returns it with derived counts.
func CreateBook(ctx context.Context, db *sql.DB, in *model.Book) (*model.Book, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO books (title, author, isbn, collection, publisher, published_year)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.Title, in.Author, in.ISBN, in.Collection, nullString(in.Publisher), nullYear(in.PublishedYear),
	)
	if err != nil {
		return nil, fmt.Errorf("creating book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting book id: %w", err)
	}

	return GetBook(ctx, db, id)
}

// GetBook returns a book by ID, including soft-deleted ones, or nil.
func GetBook(ctx context.Context, q Querier, id int64) (*model.Book, error) {
	b, err := scanBook(q.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books b WHERE b.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting book: %w", err)
	}
	return b, nil
}

// ListBooks returns live books, optionally filtered by a free-text query
// over title, author and ISBN and by collection.
func ListBooks(ctx context.Context, db *sql.DB, search, collection string) ([]model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books b WHERE b.deleted_at IS NULL`
	var args []any

	if search != "" {
		p := LikePattern(search)
		query += ` AND (LOWER(b.title) LIKE ? ESCAPE '\' OR LOWER(b.author) LIKE ? ESCAPE '\' OR LOWER(b.isbn) LIKE ? ESCAPE '\')`
		args = append(args, p, p, p)
	}
	if collection != "" {
		query += ` AND b.collection = ?`
		args = append(args, collection)
	}
	query += ` ORDER BY b.title, b.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// UpdateBook replaces a live book's descriptive fields.
func UpdateBook(ctx context.Context, db *sql.DB, id int64, in *model.Book) error {
	res, err := db.ExecContext(ctx,
		`UPDATE books SET title = ?, author = ?, isbn = ?, collection = ?, publisher = ?, published_year = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		in.Title, in.Author, in.ISBN, in.Collection, nullString(in.Publisher), nullYear(in.PublishedYear), id,
	)
	if err != nil {
		return fmt.Errorf("updating book: %w", err)
	}
	return requireRow(res, "book", id)
}

// DeleteBook soft-deletes a book and its copies. It is refused while any
// copy is on loan.
func DeleteBook(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM borrowings WHERE book_id = ? AND status = 'active'`, id,
	).Scan(&active)
	if err != nil {
		return fmt.Errorf("counting active borrowings: %w", err)
	}
	if active > 0 {
		return fmt.Errorf("book %d has %d copies on loan: %w", id, active, ErrHasActiveBorrowings)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE books SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id,
	)
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}
	if err := requireRow(res, "book", id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE book_id = ? AND deleted_at IS NULL`, id,
	); err != nil {
		return fmt.Errorf("deleting book items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing book delete: %w", err)
	}
	return nil
}

// SetBookCover stores a processed cover image.
func SetBookCover(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE books SET cover = ?, cover_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting book cover: %w", err)
	}
	return requireRow(res, "book", id)
}

// GetBookCover returns a book's cover and MIME type. A book without a cover
// yields a nil slice.
func GetBookCover(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT cover, cover_mime FROM books WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting book cover: %w", err)
	}
	return image, mime.String, nil
}

// AvailableCopyCount returns how many copies of a book can be lent now.
func AvailableCopyCount(ctx context.Context, q Querier, bookID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items i WHERE i.book_id = ? AND `+AvailableItemPredicate, bookID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting available copies: %w", err)
	}
	return n, nil
}

func nullYear(y int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(y), Valid: y != 0}
}
