package model

import (
	"testing"
	"time"
)

func TestDaysOverdue(t *testing.T) {
	due := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	b := &Borrowing{Status: BorrowingStatusActive, DueDate: due}

	tests := []struct {
		now  time.Time
		want int
	}{
		{due.Add(-time.Hour), 0},
		{due, 0},
		{due.Add(23 * time.Hour), 0},
		{time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), 5},
		{time.Date(2024, 1, 20, 18, 30, 0, 0, time.UTC), 5},
	}

	for _, tt := range tests {
		if got := b.DaysOverdue(tt.now); got != tt.want {
			t.Errorf("DaysOverdue(%v) = %d, want %d", tt.now, got, tt.want)
		}
	}

	returned := &Borrowing{Status: BorrowingStatusReturned, DueDate: due}
	if returned.IsOverdue(due.AddDate(0, 1, 0)) {
		t.Error("returned borrowing must never be overdue")
	}
}

func TestValidItemStatus(t *testing.T) {
	for _, s := range ItemStatuses {
		if !ValidItemStatus(s) {
			t.Errorf("ValidItemStatus(%q) = false", s)
		}
	}
	if ValidItemStatus("withdrawn") {
		t.Error("ValidItemStatus(withdrawn) = true")
	}
}
