package model

import "testing"

func TestNextPatronStatus(t *testing.T) {
	tests := []struct {
		current string
		action  string
		want    string
		wantErr bool
	}{
		{PatronStatusActive, PatronActionFreeze, PatronStatusFrozen, false},
		{PatronStatusFrozen, PatronActionActivate, PatronStatusActive, false},
		{PatronStatusInactive, PatronActionActivate, PatronStatusActive, false},
		{PatronStatusActive, PatronActionDeactivate, PatronStatusInactive, false},
		{PatronStatusFrozen, PatronActionClose, PatronStatusClosed, false},
		{PatronStatusActive, PatronActionActivate, "", true},
		{PatronStatusFrozen, PatronActionFreeze, "", true},
		{PatronStatusClosed, PatronActionActivate, "", true},
		{PatronStatusClosed, PatronActionClose, "", true},
		{PatronStatusActive, "delete", "", true},
	}

	for _, tt := range tests {
		got, err := NextPatronStatus(tt.current, tt.action)
		if (err != nil) != tt.wantErr {
			t.Errorf("NextPatronStatus(%q, %q) error = %v, wantErr %v", tt.current, tt.action, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NextPatronStatus(%q, %q) = %q, want %q", tt.current, tt.action, got, tt.want)
		}
	}
}

func TestPatronDefaultLimit(t *testing.T) {
	planless := Patron{}
	planless.DefaultLimit(3)
	if planless.BorrowingLimit != 3 {
		t.Errorf("planless: expected 3, got %d", planless.BorrowingLimit)
	}

	member := Patron{BorrowingLimit: 10}
	member.DefaultLimit(3)
	if member.BorrowingLimit != 10 {
		t.Errorf("plan limit overwritten: got %d", member.BorrowingLimit)
	}
}
