package model

import "time"

// MembershipPlan defines what a patron's membership allows.
type MembershipPlan struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	DurationMonths int       `json:"duration_months"`
	PriceCents     int64     `json:"price_cents"`
	Description    string    `json:"description,omitempty"`
	BorrowingLimit int       `json:"borrowing_limit"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}
