package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

func TestPlanCRUD(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	plan, err := CreatePlan(ctx, database, &model.MembershipPlan{
		Name: "Basic", DurationMonths: 12, PriceCents: 1500, Description: "Yearly", BorrowingLimit: 3, IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if !plan.IsActive || plan.PriceCents != 1500 {
		t.Errorf("unexpected plan: %+v", plan)
	}

	if _, err := CreatePlan(ctx, database, &model.MembershipPlan{Name: "Basic", DurationMonths: 1, BorrowingLimit: 1}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate name: expected ErrConflict, got %v", err)
	}

	plan.IsActive = false
	plan.BorrowingLimit = 5
	if err := UpdatePlan(ctx, database, plan.ID, plan); err != nil {
		t.Fatalf("UpdatePlan: %v", err)
	}

	active, _ := ListPlans(ctx, database, true)
	if len(active) != 0 {
		t.Errorf("expected no active plans, got %d", len(active))
	}
	all, _ := ListPlans(ctx, database, false)
	if len(all) != 1 || all[0].BorrowingLimit != 5 {
		t.Errorf("unexpected plans: %+v", all)
	}
}

func TestDeletePlanInUse(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	plan, _ := CreatePlan(ctx, database, &model.MembershipPlan{Name: "Basic", DurationMonths: 12, BorrowingLimit: 3, IsActive: true})
	p, _ := CreatePatron(ctx, database, &model.Patron{Name: "Ana", Email: "ana@example.com", PlanID: &plan.ID})

	if err := DeletePlan(ctx, database, plan.ID); !errors.Is(err, ErrPlanInUse) {
		t.Fatalf("expected ErrPlanInUse, got %v", err)
	}

	if _, err := ChangePatronStatus(ctx, database, p.ID, model.PatronActionClose); err != nil {
		t.Fatalf("closing patron: %v", err)
	}
	if err := DeletePlan(ctx, database, plan.ID); err != nil {
		t.Fatalf("DeletePlan: %v", err)
	}
	if err := DeletePlan(ctx, database, plan.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}
