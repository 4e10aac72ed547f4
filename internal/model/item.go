package model

import "time"

// Item is a physical, individually barcoded copy of a Book.
type Item struct {
	ID                int64      `json:"id"`
	BookID            int64      `json:"book_id"`
	Barcode           string     `json:"barcode"`
	CallNumber        string     `json:"call_number,omitempty"`
	ShelfLocation     string     `json:"shelf_location,omitempty"`
	CirculationStatus string     `json:"circulation_status"`
	StatusChangedAt   time.Time  `json:"status_changed_at"`
	CreatedAt         time.Time  `json:"created_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	BookTitle string `json:"book_title,omitempty"`
	OnLoan    bool   `json:"on_loan"`
}

// Item circulation statuses.
const (
	ItemStatusAvailable   = "available"
	ItemStatusCheckedOut  = "checked_out"
	ItemStatusLost        = "lost"
	ItemStatusDamaged     = "damaged"
	ItemStatusUnderRepair = "under_repair"
)

// ItemStatuses lists every circulation status in display order.
var ItemStatuses = []string{
	ItemStatusAvailable,
	ItemStatusCheckedOut,
	ItemStatusLost,
	ItemStatusDamaged,
	ItemStatusUnderRepair,
}

// ValidItemStatus reports whether s is a known circulation status.
func ValidItemStatus(s string) bool {
	for _, v := range ItemStatuses {
		if v == s {
			return true
		}
	}
	return false
}
