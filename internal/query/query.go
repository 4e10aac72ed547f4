// Package query holds the read side: borrowing search and dashboard
// aggregations. Nothing here writes.
package query

import (
	"database/sql"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

var dialect = goqu.Dialect("sqlite3")

// Reader runs read-only projections over the loan ledger and catalog.
type Reader struct {
	db *sqlx.DB

	// Now is the clock used for overdue cut-offs and trend windows.
	Now func() time.Time
}

// New wraps an open database handle.
func New(db *sql.DB) *Reader {
	return &Reader{db: sqlx.NewDb(db, "sqlite"), Now: time.Now}
}

// borrowingRow is the flat scan target for joined borrowing queries.
type borrowingRow struct {
	ID           int64          `db:"id"`
	PatronID     int64          `db:"patron_id"`
	BookID       int64          `db:"book_id"`
	ItemID       int64          `db:"item_id"`
	CheckoutDate string         `db:"checkout_date"`
	DueDate      string         `db:"due_date"`
	RenewalCount int            `db:"renewal_count"`
	Status       string         `db:"status"`
	ReturnDate   sql.NullString `db:"return_date"`
	Notes        sql.NullString `db:"notes"`
	IssuedBy     sql.NullInt64  `db:"issued_by"`
	ReturnedBy   sql.NullInt64  `db:"returned_by"`
	PatronName   string         `db:"patron_name"`
	Email        string         `db:"email"`
	Phone        sql.NullString `db:"phone"`
	Title        string         `db:"title"`
	Author       string         `db:"author"`
	ISBN         string         `db:"isbn"`
	Barcode      string         `db:"barcode"`
}

func (r borrowingRow) toModel() (model.Borrowing, error) {
	b := model.Borrowing{
		ID:           r.ID,
		PatronID:     r.PatronID,
		BookID:       r.BookID,
		ItemID:       r.ItemID,
		RenewalCount: r.RenewalCount,
		Status:       r.Status,
		Notes:        r.Notes.String,
		PatronName:   r.PatronName,
		Email:        r.Email,
		Phone:        r.Phone.String,
		Title:        r.Title,
		Author:       r.Author,
		ISBN:         r.ISBN,
		Barcode:      r.Barcode,
	}

	var err error
	if b.CheckoutDate, err = store.ParseTime(r.CheckoutDate); err != nil {
		return b, err
	}
	if b.DueDate, err = store.ParseTime(r.DueDate); err != nil {
		return b, err
	}
	if r.ReturnDate.Valid {
		t, err := store.ParseTime(r.ReturnDate.String)
		if err != nil {
			return b, err
		}
		b.ReturnDate = &t
	}
	if r.IssuedBy.Valid {
		b.IssuedBy = &r.IssuedBy.Int64
	}
	if r.ReturnedBy.Valid {
		b.ReturnedBy = &r.ReturnedBy.Int64
	}
	return b, nil
}

func toBorrowings(rows []borrowingRow) ([]model.Borrowing, error) {
	out := make([]model.Borrowing, 0, len(rows))
	for _, r := range rows {
		b, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

var borrowingColumns = aliased(
	"br.id", "br.patron_id", "br.book_id", "br.item_id", "br.checkout_date", "br.due_date",
	"br.renewal_count", "br.status", "br.return_date", "br.notes", "br.issued_by", "br.returned_by",
	"p.name AS patron_name", "p.email", "p.phone",
	"bk.title", "bk.author", "bk.isbn", "i.barcode",
)

// aliased turns "t.col" or "t.col AS name" into selectable expressions whose
// result column names match the db tags of the scan targets.
func aliased(cols ...string) []any {
	out := make([]any, 0, len(cols))
	for _, c := range cols {
		ident, as, ok := strings.Cut(c, " AS ")
		if !ok {
			_, as, _ = strings.Cut(c, ".")
		}
		out = append(out, goqu.I(ident).As(as))
	}
	return out
}

// borrowingsFrom selects joined borrowing rows matching borrowingRow.
func borrowingsFrom() *goqu.SelectDataset {
	return dialect.From(goqu.T("borrowings").As("br")).
		Join(goqu.T("patrons").As("p"), goqu.On(goqu.I("p.id").Eq(goqu.I("br.patron_id")))).
		Join(goqu.T("books").As("bk"), goqu.On(goqu.I("bk.id").Eq(goqu.I("br.book_id")))).
		Join(goqu.T("items").As("i"), goqu.On(goqu.I("i.id").Eq(goqu.I("br.item_id")))).
		Select(borrowingColumns...)
}

// like builds a case-insensitive substring match on a column expression.
func like(column, value string) exp.Expression {
	return goqu.L(`LOWER(`+column+`) LIKE ? ESCAPE '\'`, store.LikePattern(value))
}

// countWhen counts rows for which the SQL condition holds.
func countWhen(cond string, args ...any) exp.LiteralExpression {
	return goqu.L(`COALESCE(SUM(CASE WHEN `+cond+` THEN 1 ELSE 0 END), 0)`, args...)
}
