package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Search types.
const (
	SearchPatron = "patron"
	SearchBook   = "book"
)

// StatusOverdue is a search status filter matching active loans past due.
const StatusOverdue = "overdue"

const (
	DefaultSearchLimit = 100
	MaxSearchLimit     = 500
)

// ErrInvalidSearch is returned for an unknown type, status or an empty value.
var ErrInvalidSearch = errors.New("invalid search")

// BorrowingSearch selects borrowings by patron or book.
type BorrowingSearch struct {
	Type   string
	Value  string
	Status string
	Limit  int
}

func (s *BorrowingSearch) normalize() error {
	s.Value = strings.TrimSpace(s.Value)
	if s.Value == "" {
		return fmt.Errorf("search value is required: %w", ErrInvalidSearch)
	}
	if s.Type != SearchPatron && s.Type != SearchBook {
		return fmt.Errorf("search type must be patron or book: %w", ErrInvalidSearch)
	}
	switch s.Status {
	case "", model.BorrowingStatusActive, model.BorrowingStatusReturned, StatusOverdue:
	default:
		return fmt.Errorf("unknown status %q: %w", s.Status, ErrInvalidSearch)
	}
	if s.Limit <= 0 {
		s.Limit = DefaultSearchLimit
	}
	if s.Limit > MaxSearchLimit {
		s.Limit = MaxSearchLimit
	}
	return nil
}

// SearchBorrowings matches borrowings case-insensitively by patron (id, name,
// email, phone) or by book (title, author, ISBN), most recently issued first.
func (r *Reader) SearchBorrowings(ctx context.Context, s BorrowingSearch) ([]model.Borrowing, error) {
	if err := s.normalize(); err != nil {
		return nil, err
	}

	ds := borrowingsFrom()
	switch s.Type {
	case SearchPatron:
		ds = ds.Where(goqu.Or(
			goqu.L(`CAST(p.id AS TEXT) LIKE ? ESCAPE '\'`, store.LikePattern(s.Value)),
			like("p.name", s.Value),
			like("p.email", s.Value),
			like("COALESCE(p.phone, '')", s.Value),
		))
	case SearchBook:
		ds = ds.Where(goqu.Or(
			like("bk.title", s.Value),
			like("bk.author", s.Value),
			like("bk.isbn", s.Value),
		))
	}

	switch s.Status {
	case "":
	case StatusOverdue:
		ds = ds.Where(
			goqu.I("br.status").Eq(model.BorrowingStatusActive),
			goqu.I("br.due_date").Lt(store.FormatTime(r.Now())),
		)
	default:
		ds = ds.Where(goqu.I("br.status").Eq(s.Status))
	}

	query, args, err := ds.
		Order(goqu.I("br.checkout_date").Desc(), goqu.I("br.id").Desc()).
		Limit(uint(s.Limit)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building borrowing search: %w", err)
	}

	var rows []borrowingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("searching borrowings: %w", err)
	}
	return toBorrowings(rows)
}
