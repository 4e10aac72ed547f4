package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/model"
)

// The joined borrowing limit is zero when the patron has no plan or the
// plan has been deactivated. GetBorrowingLimit resolves the default.
const patronColumns = `p.id, p.name, p.email, p.phone, p.status, p.plan_id, p.created_at, p.updated_at,
	p.deleted_at, p.deleted_reason, COALESCE(mp.name, ''),
	CASE WHEN mp.is_active = 1 THEN mp.borrowing_limit ELSE 0 END,
	(SELECT COUNT(*) FROM borrowings br WHERE br.patron_id = p.id AND br.status = 'active')`

const patronFrom = ` FROM patrons p LEFT JOIN membership_plans mp ON mp.id = p.plan_id`

func scanPatron(row interface{ Scan(...any) error }) (*model.Patron, error) {
	p := &model.Patron{}
	var phone, reason sql.NullString
	var limit sql.NullInt64
	err := row.Scan(&p.ID, &p.Name, &p.Email, &phone, &p.Status, &p.PlanID, &p.CreatedAt, &p.UpdatedAt,
		&p.DeletedAt, &reason, &p.PlanName, &limit, &p.ActiveBorrowings)
	if err != nil {
		return nil, err
	}
	p.Phone = phone.String
	p.DeletedReason = reason.String
	p.BorrowingLimit = int(limit.Int64)
	return p, nil
}

// checkPlan rejects a plan reference that does not exist.
func checkPlan(ctx context.Context, q Querier, planID *int64) error {
	if planID == nil {
		return nil
	}
	plan, err := GetPlan(ctx, q, *planID)
	if err != nil {
		return err
	}
	if plan == nil {
		return fmt.Errorf("plan %d: %w", *planID, ErrNotFound)
	}
	return nil
}

// CreatePatron registers an active patron. Emails are unique among live
// patrons.
func CreatePatron(ctx context.Context, db *sql.DB, in *model.Patron) (*model.Patron, error) {
	if err := checkPlan(ctx, db, in.PlanID); err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO patrons (name, email, phone, plan_id) VALUES (?, ?, ?, ?)`,
		in.Name, in.Email, nullString(in.Phone), in.PlanID,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("patron email %q: %w", in.Email, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("creating patron: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting patron id: %w", err)
	}

	return GetPatron(ctx, db, id)
}

// GetPatron returns a patron by ID, including soft-deleted ones, or nil.
func GetPatron(ctx context.Context, q Querier, id int64) (*model.Patron, error) {
	p, err := scanPatron(q.QueryRowContext(ctx,
		`SELECT `+patronColumns+patronFrom+` WHERE p.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting patron: %w", err)
	}
	return p, nil
}

// GetBorrowingLimit returns how many books the patron may hold at once: the
// limit of their plan while it is active, otherwise def.
func GetBorrowingLimit(ctx context.Context, q Querier, patronID int64, def int) (int, error) {
	var limit sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT CASE WHEN mp.is_active = 1 THEN mp.borrowing_limit END`+patronFrom+` WHERE p.id = ?`,
		patronID,
	).Scan(&limit)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("patron %d: %w", patronID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("getting borrowing limit: %w", err)
	}
	if !limit.Valid || limit.Int64 <= 0 {
		return def, nil
	}
	return int(limit.Int64), nil
}

// ListPatrons returns live patrons, optionally filtered by status and by a
// free-text query over name, email and phone.
func ListPatrons(ctx context.Context, db *sql.DB, status, search string) ([]model.Patron, error) {
	query := `SELECT ` + patronColumns + patronFrom + ` WHERE p.deleted_at IS NULL`
	var args []any

	if status != "" {
		query += ` AND p.status = ?`
		args = append(args, status)
	}
	if search != "" {
		s := LikePattern(search)
		query += ` AND (LOWER(p.name) LIKE ? ESCAPE '\' OR LOWER(p.email) LIKE ? ESCAPE '\' OR LOWER(COALESCE(p.phone, '')) LIKE ? ESCAPE '\')`
		args = append(args, s, s, s)
	}
	query += ` ORDER BY p.name, p.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing patrons: %w", err)
	}
	defer rows.Close()

	var patrons []model.Patron
	for rows.Next() {
		p, err := scanPatron(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning patron: %w", err)
		}
		patrons = append(patrons, *p)
	}
	return patrons, rows.Err()
}

// UpdatePatron replaces a live patron's contact details and plan.
func UpdatePatron(ctx context.Context, db *sql.DB, id int64, in *model.Patron) error {
	if err := checkPlan(ctx, db, in.PlanID); err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		`UPDATE patrons SET name = ?, email = ?, phone = ?, plan_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		in.Name, in.Email, nullString(in.Phone), in.PlanID, id,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("patron email %q: %w", in.Email, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("updating patron: %w", err)
	}
	return requireRow(res, "patron", id)
}

// ChangePatronStatus applies a status command (activate, freeze, deactivate,
// close). Closing is refused while the patron still holds loans.
func ChangePatronStatus(ctx context.Context, db *sql.DB, id int64, action string) (*model.Patron, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := GetPatron(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.DeletedAt != nil {
		return nil, fmt.Errorf("patron %d: %w", id, ErrNotFound)
	}

	next, err := model.NextPatronStatus(p.Status, action)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidStatus)
	}
	if next == model.PatronStatusClosed && p.ActiveBorrowings > 0 {
		return nil, fmt.Errorf("patron %d: %w", id, ErrHasActiveBorrowings)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE patrons SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, next, id,
	); err != nil {
		return nil, fmt.Errorf("changing patron status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing patron status: %w", err)
	}
	return GetPatron(ctx, db, id)
}

// DeletePatron soft-deletes a patron, recording why. Patrons holding loans
// cannot be deleted.
func DeletePatron(ctx context.Context, db *sql.DB, id int64, reason string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	active, err := CountActiveBorrowings(ctx, tx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("patron %d holds %d loans: %w", id, active, ErrHasActiveBorrowings)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE patrons SET deleted_at = CURRENT_TIMESTAMP, deleted_reason = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		reason, id,
	)
	if err != nil {
		return fmt.Errorf("deleting patron: %w", err)
	}
	if err := requireRow(res, "patron", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing patron delete: %w", err)
	}
	return nil
}
