package model

import "time"

// Borrowing is a single checkout of one Item by one Patron.
type Borrowing struct {
	ID           int64      `json:"id"`
	PatronID     int64      `json:"patron_id"`
	BookID       int64      `json:"book_id"`
	ItemID       int64      `json:"item_id"`
	CheckoutDate time.Time  `json:"checkout_date"`
	DueDate      time.Time  `json:"due_date"`
	RenewalCount int        `json:"renewal_count"`
	Status       string     `json:"status"`
	ReturnDate   *time.Time `json:"return_date"`
	Notes        string     `json:"notes,omitempty"`
	IssuedBy     *int64     `json:"issued_by,omitempty"`
	ReturnedBy   *int64     `json:"returned_by,omitempty"`

	// Joined fields (not always populated).
	PatronName string `json:"patron_name,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Title      string `json:"title,omitempty"`
	Author     string `json:"author,omitempty"`
	ISBN       string `json:"isbn,omitempty"`
	Barcode    string `json:"barcode,omitempty"`
}

// Borrowing statuses.
const (
	BorrowingStatusActive   = "active"
	BorrowingStatusReturned = "returned"
)

// IsOverdue reports whether an active borrowing is past its due date at now.
func (b *Borrowing) IsOverdue(now time.Time) bool {
	return b.Status == BorrowingStatusActive && b.DueDate.Before(now)
}

// DaysOverdue returns the number of whole days now is past the due date,
// or 0 when the borrowing is not overdue.
func (b *Borrowing) DaysOverdue(now time.Time) int {
	if !b.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(b.DueDate) / (24 * time.Hour))
}

// OverdueBorrowing is a Borrowing annotated with how late it is.
type OverdueBorrowing struct {
	Borrowing
	DaysOverdue int `json:"days_overdue"`
}
