package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Repository persists settlements and their expense links in postgres
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new settlement repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetSettlement retrieves a settlement by its ID; returns (nil, nil) when missing
func (r *Repository) GetSettlement(ctx context.Context, id uuid.UUID) (*Settlement, error) {
	query := `
		SELECT id, trip_id, created_by_user_id, status, paid_at, created_at
		FROM settlements
		WHERE id = $1
	`

	stl := &Settlement{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&stl.ID, &stl.TripID, &stl.CreatedBy, &stl.Status, &stl.PaidAt, &stl.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return stl, nil
}

// GetExpenseIDs retrieves the expense IDs linked to a settlement
func (r *Repository) GetExpenseIDs(ctx context.Context, settlementID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT expense_id FROM settlement_expenses
		WHERE settlement_id = $1
		ORDER BY created_at, expense_id
	`

	rows, err := r.db.QueryContext(ctx, query, settlementID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement expenses: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan settlement expense: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByTrip retrieves a trip's settlements, newest first
func (r *Repository) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]*Settlement, error) {
	query := `
		SELECT id, trip_id, created_by_user_id, status, paid_at, created_at
		FROM settlements
		WHERE trip_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*Settlement
	for rows.Next() {
		stl := &Settlement{}
		if err := rows.Scan(&stl.ID, &stl.TripID, &stl.CreatedBy, &stl.Status, &stl.PaidAt, &stl.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, stl)
	}
	return settlements, rows.Err()
}

// CreateSettlement inserts the settlement and its expense links in one transaction
func (r *Repository) CreateSettlement(ctx context.Context, s *Settlement, expenseIDs []uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO settlements (id, trip_id, created_by_user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, insert, s.ID, s.TripID, s.CreatedBy, s.Status, s.CreatedAt); err != nil {
		return fmt.Errorf("failed to create settlement: %w", err)
	}

	link := `
		INSERT INTO settlement_expenses (id, settlement_id, expense_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	for _, expenseID := range expenseIDs {
		if _, err := tx.ExecContext(ctx, link, uuid.New(), s.ID, expenseID, s.CreatedAt); err != nil {
			return fmt.Errorf("failed to link expense: %w", err)
		}
	}

	return tx.Commit()
}

// MarkPaid flips the settlement to PAID and locks every linked expense as one
// atomic unit. Linked expenses are read under FOR UPDATE so a concurrent edit
// or void serializes against the lock; every expense is validated before any
// row is written, and any failure rolls the whole transaction back.
func (r *Repository) MarkPaid(ctx context.Context, settlementID uuid.UUID, paidAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT e.id, e.is_locked
		FROM expenses e
		JOIN settlement_expenses se ON se.expense_id = e.id
		WHERE se.settlement_id = $1
		FOR UPDATE OF e
	`, settlementID)
	if err != nil {
		return fmt.Errorf("failed to read linked expenses: %w", err)
	}

	var expenseIDs []uuid.UUID
	var lockedIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		var locked bool
		if err := rows.Scan(&id, &locked); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan linked expense: %w", err)
		}
		expenseIDs = append(expenseIDs, id)
		if locked {
			lockedIDs = append(lockedIDs, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(expenseIDs) == 0 {
		return ErrNoLinkedExpenses
	}

	// An already-locked expense is only acceptable if its lock does not come
	// from a different PAID settlement (no double settling).
	for _, id := range lockedIDs {
		var exists bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM settlement_expenses se
				JOIN settlements s ON s.id = se.settlement_id
				WHERE se.expense_id = $1 AND s.id <> $2 AND s.status = 'PAID'
			)
		`, id, settlementID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check expense settlement: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrExpenseAlreadySettled, id)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE settlements SET status = 'PAID', paid_at = $2
		WHERE id = $1 AND status = 'PENDING'
	`, settlementID, paidAt)
	if err != nil {
		return fmt.Errorf("failed to mark settlement paid: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrAlreadyPaid
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE expenses SET is_locked = TRUE, updated_at = $2
		WHERE id = ANY($1)
	`, pq.Array(expenseIDs), paidAt); err != nil {
		return fmt.Errorf("failed to lock expenses: %w", err)
	}

	return tx.Commit()
}
