package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// BookStats summarises the catalogue.
type BookStats struct {
	TotalBooks      int `db:"total_books" json:"total_books"`
	TotalCopies     int `db:"total_copies" json:"total_copies"`
	AvailableCopies int `db:"available_copies" json:"available_copies"`
	AvailableTitles int `db:"available_titles" json:"available_titles"`
}

// PatronStats counts live patrons by account status.
type PatronStats struct {
	Total    int `db:"total" json:"total_patrons"`
	Active   int `db:"active" json:"active_patrons"`
	Frozen   int `db:"frozen" json:"frozen_patrons"`
	Inactive int `db:"inactive" json:"inactive_patrons"`
	Closed   int `db:"closed" json:"closed_patrons"`
}

// BorrowingStats counts loans.
type BorrowingStats struct {
	TotalActive  int `db:"total_active" json:"total_active"`
	Overdue      int `db:"overdue" json:"overdue"`
	OnTime       int `db:"on_time" json:"on_time"`
	TotalReturns int `db:"total_returns" json:"total_returns"`
}

// Stats is the dashboard counter block.
type Stats struct {
	Books      BookStats      `json:"books"`
	Patrons    PatronStats    `json:"patrons"`
	Borrowings BorrowingStats `json:"borrowings"`
}

// TrendPoint is one day of checkout and return counts.
type TrendPoint struct {
	Date      string `json:"date"`
	Checkouts int    `json:"checkouts"`
	Returns   int    `json:"returns"`
}

// PopularBook is a title ranked by how often it was borrowed.
type PopularBook struct {
	BookID      int64  `db:"book_id" json:"book_id"`
	Title       string `db:"title" json:"title"`
	Author      string `db:"author" json:"author"`
	BorrowCount int    `db:"borrow_count" json:"borrow_count"`
}

// PatronActivity is a patron ranked by borrowing volume.
type PatronActivity struct {
	PatronID      int64  `db:"patron_id" json:"patron_id"`
	PatronName    string `db:"patron_name" json:"patron_name"`
	Email         string `db:"email" json:"email"`
	PlanName      string `db:"plan_name" json:"plan_name,omitempty"`
	TotalBorrows  int    `db:"total_borrows" json:"total_borrows"`
	ActiveBorrows int    `db:"active_borrows" json:"active_borrows"`
	ReturnedBooks int    `db:"returned_books" json:"returned_books"`
	OverdueCount  int    `db:"overdue_count" json:"overdue_count"`
	LastCheckout  string `db:"last_checkout" json:"last_checkout"`
}

const (
	DefaultTrendDays     = 30
	MaxTrendDays         = 365
	DefaultPopularLimit  = 10
	DefaultActivityLimit = 20
	MaxDashboardLimit    = 100
)

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// Stats returns catalogue, patron and loan counters.
func (r *Reader) Stats(ctx context.Context) (*Stats, error) {
	var st Stats

	copies := dialect.From(goqu.T("items").As("i")).
		Select(
			goqu.I("i.book_id"),
			goqu.COUNT("*").As("total"),
			countWhen(store.AvailableItemPredicate).As("available"),
		).
		Where(goqu.I("i.deleted_at").IsNull()).
		GroupBy(goqu.I("i.book_id"))

	books := dialect.From(goqu.T("books").As("b")).
		LeftJoin(copies.As("c"), goqu.On(goqu.I("c.book_id").Eq(goqu.I("b.id")))).
		Where(goqu.I("b.deleted_at").IsNull()).
		Select(
			goqu.COUNT("*").As("total_books"),
			goqu.COALESCE(goqu.SUM(goqu.I("c.total")), 0).As("total_copies"),
			goqu.COALESCE(goqu.SUM(goqu.I("c.available")), 0).As("available_copies"),
			countWhen("c.available > 0").As("available_titles"),
		)
	if err := r.get(ctx, &st.Books, books); err != nil {
		return nil, fmt.Errorf("book stats: %w", err)
	}

	patrons := dialect.From("patrons").
		Where(goqu.C("deleted_at").IsNull()).
		Select(
			goqu.COUNT("*").As("total"),
			countWhen("status = ?", model.PatronStatusActive).As("active"),
			countWhen("status = ?", model.PatronStatusFrozen).As("frozen"),
			countWhen("status = ?", model.PatronStatusInactive).As("inactive"),
			countWhen("status = ?", model.PatronStatusClosed).As("closed"),
		)
	if err := r.get(ctx, &st.Patrons, patrons); err != nil {
		return nil, fmt.Errorf("patron stats: %w", err)
	}

	now := store.FormatTime(r.Now())
	loans := dialect.From("borrowings").
		Select(
			countWhen("status = 'active'").As("total_active"),
			countWhen("status = 'active' AND due_date < ?", now).As("overdue"),
			countWhen("status = 'active' AND due_date >= ?", now).As("on_time"),
			countWhen("status = 'returned'").As("total_returns"),
		)
	if err := r.get(ctx, &st.Borrowings, loans); err != nil {
		return nil, fmt.Errorf("borrowing stats: %w", err)
	}

	return &st, nil
}

type dayCount struct {
	Day string `db:"day"`
	N   int    `db:"n"`
}

// Trends returns per-day checkout and return counts for the last days days,
// oldest first, including days with no activity. Days are UTC calendar days.
func (r *Reader) Trends(ctx context.Context, days int) ([]TrendPoint, error) {
	days = clamp(days, DefaultTrendDays, MaxTrendDays)
	today := r.Now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))
	from := store.FormatTime(start)

	checkouts, err := r.countByDay(ctx, "checkout_date", from)
	if err != nil {
		return nil, fmt.Errorf("checkout trend: %w", err)
	}
	returns, err := r.countByDay(ctx, "return_date", from)
	if err != nil {
		return nil, fmt.Errorf("return trend: %w", err)
	}

	points := make([]TrendPoint, 0, days)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		points = append(points, TrendPoint{Date: key, Checkouts: checkouts[key], Returns: returns[key]})
	}
	return points, nil
}

func (r *Reader) countByDay(ctx context.Context, column, from string) (map[string]int, error) {
	day := goqu.L("substr(" + column + ", 1, 10)")
	ds := dialect.From("borrowings").
		Select(day.As("day"), goqu.COUNT("*").As("n")).
		Where(goqu.C(column).Gte(from)).
		GroupBy(goqu.C("day"))

	var rows []dayCount
	if err := r.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Day] = row.N
	}
	return out, nil
}

// PopularBooks returns the most borrowed live titles.
func (r *Reader) PopularBooks(ctx context.Context, limit int) ([]PopularBook, error) {
	limit = clamp(limit, DefaultPopularLimit, MaxDashboardLimit)
	ds := dialect.From(goqu.T("books").As("b")).
		Join(goqu.T("borrowings").As("br"), goqu.On(goqu.I("br.book_id").Eq(goqu.I("b.id")))).
		Where(goqu.I("b.deleted_at").IsNull()).
		GroupBy(goqu.I("b.id"), goqu.I("b.title"), goqu.I("b.author")).
		Select(
			goqu.I("b.id").As("book_id"),
			goqu.I("b.title").As("title"),
			goqu.I("b.author").As("author"),
			goqu.COUNT(goqu.I("br.id")).As("borrow_count"),
		).
		Order(goqu.C("borrow_count").Desc(), goqu.I("b.id").Asc()).
		Limit(uint(limit))

	out := []PopularBook{}
	if err := r.selectAll(ctx, &out, ds); err != nil {
		return nil, fmt.Errorf("popular books: %w", err)
	}
	return out, nil
}

// PatronActivity returns active patrons ranked by how much they borrow.
func (r *Reader) PatronActivity(ctx context.Context, limit int) ([]PatronActivity, error) {
	limit = clamp(limit, DefaultActivityLimit, MaxDashboardLimit)
	ds := dialect.From(goqu.T("patrons").As("p")).
		LeftJoin(goqu.T("membership_plans").As("mp"), goqu.On(goqu.I("mp.id").Eq(goqu.I("p.plan_id")))).
		Join(goqu.T("borrowings").As("br"), goqu.On(goqu.I("br.patron_id").Eq(goqu.I("p.id")))).
		Where(
			goqu.I("p.deleted_at").IsNull(),
			goqu.I("p.status").Eq(model.PatronStatusActive),
		).
		GroupBy(goqu.I("p.id"), goqu.I("p.name"), goqu.I("p.email"), goqu.I("mp.name")).
		Select(
			goqu.I("p.id").As("patron_id"),
			goqu.I("p.name").As("patron_name"),
			goqu.I("p.email").As("email"),
			goqu.COALESCE(goqu.I("mp.name"), "").As("plan_name"),
			goqu.COUNT(goqu.I("br.id")).As("total_borrows"),
			countWhen("br.status = 'active'").As("active_borrows"),
			countWhen("br.status = 'returned'").As("returned_books"),
			countWhen("br.status = 'active' AND br.due_date < ?", store.FormatTime(r.Now())).As("overdue_count"),
			goqu.MAX(goqu.I("br.checkout_date")).As("last_checkout"),
		).
		Order(goqu.C("total_borrows").Desc(), goqu.I("p.id").Asc()).
		Limit(uint(limit))

	out := []PatronActivity{}
	if err := r.selectAll(ctx, &out, ds); err != nil {
		return nil, fmt.Errorf("patron activity: %w", err)
	}
	return out, nil
}

// RecentActivity returns the latest checkouts, newest first.
func (r *Reader) RecentActivity(ctx context.Context, limit int) ([]model.Borrowing, error) {
	limit = clamp(limit, DefaultActivityLimit, MaxDashboardLimit)
	ds := borrowingsFrom().
		Order(goqu.I("br.checkout_date").Desc(), goqu.I("br.id").Desc()).
		Limit(uint(limit))

	var rows []borrowingRow
	if err := r.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return toBorrowings(rows)
}

// Overview gathers every dashboard section. A failing section is logged and
// left empty so the rest still renders; Partial reports that this happened.
type Overview struct {
	Stats          *Stats            `json:"stats"`
	Trends         []TrendPoint      `json:"trends"`
	PopularBooks   []PopularBook     `json:"popular_books"`
	PatronActivity []PatronActivity  `json:"patron_activity"`
	RecentActivity []model.Borrowing `json:"recent_activity"`
	Partial        bool              `json:"partial,omitempty"`
}

// Overview builds the combined dashboard.
func (r *Reader) Overview(ctx context.Context) *Overview {
	o := &Overview{
		Stats:          &Stats{},
		Trends:         []TrendPoint{},
		PopularBooks:   []PopularBook{},
		PatronActivity: []PatronActivity{},
		RecentActivity: []model.Borrowing{},
	}

	failed := func(section string, err error) {
		slog.Warn("dashboard section failed", "section", section, "error", err)
		o.Partial = true
	}

	if v, err := r.Stats(ctx); err != nil {
		failed("stats", err)
	} else {
		o.Stats = v
	}
	if v, err := r.Trends(ctx, DefaultTrendDays); err != nil {
		failed("trends", err)
	} else {
		o.Trends = v
	}
	if v, err := r.PopularBooks(ctx, DefaultPopularLimit); err != nil {
		failed("popular_books", err)
	} else {
		o.PopularBooks = v
	}
	if v, err := r.PatronActivity(ctx, DefaultActivityLimit); err != nil {
		failed("patron_activity", err)
	} else {
		o.PatronActivity = v
	}
	if v, err := r.RecentActivity(ctx, DefaultActivityLimit); err != nil {
		failed("recent_activity", err)
	} else {
		o.RecentActivity = v
	}

	return o
}

func (r *Reader) get(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	return r.db.GetContext(ctx, dest, query, args...)
}

func (r *Reader) selectAll(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	return r.db.SelectContext(ctx, dest, query, args...)
}
