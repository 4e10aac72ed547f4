// Package circulation implements the borrowing lifecycle: issuing copies to
// patrons, renewing and returning loans, and reporting overdue ones.
package circulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/query"
	"github.com/erazemk/izposoja/internal/store"
)

// Service is the only writer of borrowings and of an item's on-loan status.
type Service struct {
	DB     *sql.DB
	Policy Policy
	Reader *query.Reader

	// Now is the clock. Times are truncated to whole seconds in UTC.
	Now func() time.Time
}

// NewService returns a Service using the wall clock. The read side follows
// whatever clock Now is later set to.
func NewService(db *sql.DB, policy Policy) *Service {
	s := &Service{
		DB:     db,
		Policy: policy,
		Reader: query.New(db),
		Now:    time.Now,
	}
	s.Reader.Now = func() time.Time { return s.Now() }
	return s
}

func (s *Service) now() time.Time {
	return s.Now().UTC().Truncate(time.Second)
}

// IssueRequest asks for a copy of a book to be lent to a patron.
type IssueRequest struct {
	PatronID int64
	BookID   int64
	Notes    string
	IssuedBy *int64
}

// Issue lends the lowest-numbered available copy of the book to the patron.
// Checks run in order: patron exists, patron active, book exists, patron
// under limit, copy available.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*model.Borrowing, error) {
	var id int64
	err := retryOnConflict(ctx, "issue", func(ctx context.Context) error {
		var err error
		id, err = s.issue(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	b, err := store.GetBorrowing(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) issue(ctx context.Context, req IssueRequest) (int64, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	patron, err := store.GetPatron(ctx, tx, req.PatronID)
	if err != nil {
		return 0, err
	}
	if patron == nil || patron.DeletedAt != nil {
		return 0, ErrPatronNotFound
	}
	if patron.Status != model.PatronStatusActive {
		return 0, newError(KindPatronNotActive, fmt.Sprintf("patron account is %s", patron.Status))
	}

	book, err := store.GetBook(ctx, tx, req.BookID)
	if err != nil {
		return 0, err
	}
	if book == nil || book.DeletedAt != nil {
		return 0, ErrBookNotFound
	}

	limit, err := store.GetBorrowingLimit(ctx, tx, patron.ID, s.Policy.DefaultBorrowingLimit)
	if err != nil {
		return 0, err
	}
	active, err := store.CountActiveBorrowings(ctx, tx, patron.ID)
	if err != nil {
		return 0, err
	}
	if active >= limit {
		return 0, newError(KindBorrowingLimitReached,
			fmt.Sprintf("patron has reached the borrowing limit of %d", limit))
	}

	item, err := store.FindAvailableItem(ctx, tx, book.ID)
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, ErrNoCopyAvailable
	}

	claimed, err := store.MarkItemStatus(ctx, tx, item.ID, model.ItemStatusAvailable, model.ItemStatusCheckedOut)
	if err != nil {
		return 0, err
	}
	if !claimed {
		return 0, fmt.Errorf("claiming item %d: %w", item.ID, errConflict)
	}

	now := s.now()
	id, err := store.InsertBorrowing(ctx, tx, &model.Borrowing{
		PatronID:     patron.ID,
		BookID:       book.ID,
		ItemID:       item.ID,
		CheckoutDate: now,
		DueDate:      now.AddDate(0, 0, s.Policy.LoanPeriodDays),
		Notes:        req.Notes,
		IssuedBy:     req.IssuedBy,
	})
	if errors.Is(err, store.ErrConflict) {
		return 0, fmt.Errorf("recording loan: %w", errConflict)
	}
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing issue: %w", err)
	}
	return id, nil
}

// Renewal is the result of a successful renewal.
type Renewal struct {
	Borrowing         *model.Borrowing
	RenewalsRemaining int
}

// Renew extends an active loan by the renewal period.
func (s *Service) Renew(ctx context.Context, id int64) (*Renewal, error) {
	err := retryOnConflict(ctx, "renew", func(ctx context.Context) error {
		return s.renew(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	b, err := store.GetBorrowing(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	return &Renewal{Borrowing: b, RenewalsRemaining: max(s.Policy.MaxRenewals-b.RenewalCount, 0)}, nil
}

func (s *Service) renew(ctx context.Context, id int64) error {
	b, err := store.GetBorrowing(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if b == nil {
		return ErrBorrowingNotFound
	}
	if b.Status != model.BorrowingStatusActive {
		return ErrBorrowingNotActive
	}
	if b.RenewalCount >= s.Policy.MaxRenewals {
		return newError(KindRenewalLimitReached,
			fmt.Sprintf("borrowing has already been renewed %d times", b.RenewalCount))
	}
	if !s.Policy.AllowOverdueRenewal && b.IsOverdue(s.now()) {
		return ErrBorrowingOverdue
	}

	newDue := b.DueDate.AddDate(0, 0, s.Policy.RenewalPeriodDays)
	ok, err := store.RenewBorrowing(ctx, s.DB, id, b.RenewalCount, newDue)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("renewing borrowing %d: %w", id, errConflict)
	}
	return nil
}

// Return closes an active loan. The copy goes back on the shelf unless it
// was marked lost, damaged or under repair while out.
func (s *Service) Return(ctx context.Context, id int64, returnedBy *int64) (*model.Borrowing, error) {
	err := retryOnConflict(ctx, "return", func(ctx context.Context) error {
		return s.returnBook(ctx, id, returnedBy)
	})
	if err != nil {
		return nil, err
	}

	b, err := store.GetBorrowing(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) returnBook(ctx context.Context, id int64, returnedBy *int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	b, err := store.GetBorrowing(ctx, tx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return ErrBorrowingNotFound
	}
	if b.Status == model.BorrowingStatusReturned {
		return ErrBorrowingAlreadyReturned
	}

	closed, err := store.CloseBorrowing(ctx, tx, id, s.now(), returnedBy)
	if err != nil {
		return err
	}
	if !closed {
		return fmt.Errorf("closing borrowing %d: %w", id, errConflict)
	}

	// A false result means the copy was marked lost or damaged while out.
	if _, err := store.MarkItemStatus(ctx, tx, b.ItemID, model.ItemStatusCheckedOut, model.ItemStatusAvailable); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing return: %w", err)
	}
	return nil
}

// Overdue returns every active loan past its due date, earliest due first.
func (s *Service) Overdue(ctx context.Context) ([]model.OverdueBorrowing, error) {
	now := s.now()
	loans, err := store.ListOverdueBorrowings(ctx, s.DB, now)
	if err != nil {
		return nil, err
	}

	out := make([]model.OverdueBorrowing, 0, len(loans))
	for _, b := range loans {
		out = append(out, model.OverdueBorrowing{Borrowing: b, DaysOverdue: b.DaysOverdue(now)})
	}
	return out, nil
}

// SearchRequest selects borrowings by patron or by book.
type SearchRequest struct {
	Type   string
	Value  string
	Status string
	Limit  int
}

// Search finds borrowings by patron or book, most recently issued first.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]model.Borrowing, error) {
	res, err := s.Reader.SearchBorrowings(ctx, query.BorrowingSearch{
		Type:   req.Type,
		Value:  req.Value,
		Status: req.Status,
		Limit:  req.Limit,
	})
	if errors.Is(err, query.ErrInvalidSearch) {
		return nil, newError(KindInvalidRequest, err.Error())
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []model.Borrowing{}
	}
	return res, nil
}

// Get returns one borrowing.
func (s *Service) Get(ctx context.Context, id int64) (*model.Borrowing, error) {
	b, err := store.GetBorrowing(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBorrowingNotFound
	}
	return b, nil
}

// ListForPatron returns a patron's loans, newest first.
func (s *Service) ListForPatron(ctx context.Context, patronID int64, status string) ([]model.Borrowing, error) {
	p, err := store.GetPatron(ctx, s.DB, patronID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.DeletedAt != nil {
		return nil, ErrPatronNotFound
	}
	switch status {
	case "", model.BorrowingStatusActive, model.BorrowingStatusReturned:
	default:
		return nil, newError(KindInvalidRequest, fmt.Sprintf("unknown status %q", status))
	}

	res, err := store.ListPatronBorrowings(ctx, s.DB, patronID, status)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []model.Borrowing{}
	}
	return res, nil
}
