package model

import (
	"fmt"
	"time"
)

// Patron is a library member who can borrow books.
type Patron struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	Status        string     `json:"status"`
	PlanID        *int64     `json:"plan_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	DeletedReason string     `json:"deleted_reason,omitempty"`

	// Joined fields (not always populated).
	PlanName         string `json:"plan_name,omitempty"`
	BorrowingLimit   int    `json:"borrowing_limit"`
	ActiveBorrowings int    `json:"active_borrowings"`
}

// DefaultLimit fills in def as the borrowing limit of a patron without an
// active plan.
func (p *Patron) DefaultLimit(def int) {
	if p.BorrowingLimit <= 0 {
		p.BorrowingLimit = def
	}
}

// Patron account statuses.
const (
	PatronStatusActive   = "active"
	PatronStatusFrozen   = "frozen"
	PatronStatusInactive = "inactive"
	PatronStatusClosed   = "closed"
)

// Patron status commands.
const (
	PatronActionActivate   = "activate"
	PatronActionFreeze     = "freeze"
	PatronActionDeactivate = "deactivate"
	PatronActionClose      = "close"
)

// patronTransitions maps a command to the statuses it may be applied from.
var patronTransitions = map[string]struct {
	to   string
	from []string
}{
	PatronActionActivate:   {PatronStatusActive, []string{PatronStatusFrozen, PatronStatusInactive}},
	PatronActionFreeze:     {PatronStatusFrozen, []string{PatronStatusActive}},
	PatronActionDeactivate: {PatronStatusInactive, []string{PatronStatusActive, PatronStatusFrozen}},
	PatronActionClose:      {PatronStatusClosed, []string{PatronStatusActive, PatronStatusFrozen, PatronStatusInactive}},
}

// NextPatronStatus returns the status a patron moves to when action is
// applied in status current. Closed accounts accept no further commands.
func NextPatronStatus(current, action string) (string, error) {
	tr, ok := patronTransitions[action]
	if !ok {
		return "", fmt.Errorf("unknown patron action %q", action)
	}
	for _, from := range tr.from {
		if from == current {
			return tr.to, nil
		}
	}
	return "", fmt.Errorf("cannot %s a patron whose account is %s", action, current)
}
