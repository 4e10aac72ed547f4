package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/model"
)

const planColumns = `id, name, duration_months, price_cents, description, borrowing_limit, is_active, created_at`

func scanPlan(row interface{ Scan(...any) error }) (*model.MembershipPlan, error) {
	p := &model.MembershipPlan{}
	var description sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.DurationMonths, &p.PriceCents, &description,
		&p.BorrowingLimit, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	return p, nil
}

// CreatePlan adds a membership plan. Plan names are unique.
func CreatePlan(ctx context.Context, db *sql.DB, in *model.MembershipPlan) (*model.MembershipPlan, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO membership_plans (name, duration_months, price_cents, description, borrowing_limit, is_active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.Name, in.DurationMonths, in.PriceCents, nullString(in.Description), in.BorrowingLimit, in.IsActive,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("plan %q: %w", in.Name, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("creating plan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting plan id: %w", err)
	}

	return GetPlan(ctx, db, id)
}

// GetPlan returns a membership plan by ID, or nil.
func GetPlan(ctx context.Context, q Querier, id int64) (*model.MembershipPlan, error) {
	p, err := scanPlan(q.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM membership_plans WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting plan: %w", err)
	}
	return p, nil
}

// ListPlans returns membership plans ordered by name.
func ListPlans(ctx context.Context, db *sql.DB, activeOnly bool) ([]model.MembershipPlan, error) {
	query := `SELECT ` + planColumns + ` FROM membership_plans`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var plans []model.MembershipPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// UpdatePlan replaces a plan's fields.
func UpdatePlan(ctx context.Context, db *sql.DB, id int64, in *model.MembershipPlan) error {
	res, err := db.ExecContext(ctx,
		`UPDATE membership_plans
		 SET name = ?, duration_months = ?, price_cents = ?, description = ?, borrowing_limit = ?, is_active = ?
		 WHERE id = ?`,
		in.Name, in.DurationMonths, in.PriceCents, nullString(in.Description), in.BorrowingLimit, in.IsActive, id,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("plan %q: %w", in.Name, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("updating plan: %w", err)
	}
	return requireRow(res, "plan", id)
}

// DeletePlan removes a plan that no live, non-closed patron holds.
func DeletePlan(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var holders int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM patrons WHERE plan_id = ? AND deleted_at IS NULL AND status <> 'closed'`, id,
	).Scan(&holders)
	if err != nil {
		return fmt.Errorf("counting plan holders: %w", err)
	}
	if holders > 0 {
		return fmt.Errorf("plan %d held by %d patrons: %w", id, holders, ErrPlanInUse)
	}

	// Detach closed or deleted patrons so the foreign key does not block.
	if _, err := tx.ExecContext(ctx, `UPDATE patrons SET plan_id = NULL WHERE plan_id = ?`, id); err != nil {
		return fmt.Errorf("detaching plan: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM membership_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}
	if err := requireRow(res, "plan", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing plan delete: %w", err)
	}
	return nil
}
