package expense

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Repository persists expenses, splits and audit entries in postgres
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new expense repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const expenseColumns = `id, trip_id, created_by_user_id, payer_user_id, amount_cents, description,
		type, adjusts_expense_id, status, voided_at, voided_by_user_id, is_locked, created_at, updated_at`

// GetExpense retrieves an expense by its ID; returns (nil, nil) when missing
func (r *Repository) GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`

	exp := &Expense{}
	err := scanExpense(r.db.QueryRowContext(ctx, query, id), exp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return exp, nil
}

// GetSplits retrieves the splits of an expense in stable creation order
func (r *Repository) GetSplits(ctx context.Context, expenseID uuid.UUID) ([]*Split, error) {
	query := `
		SELECT id, expense_id, user_id, share_cents, created_at
		FROM expense_splits
		WHERE expense_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	var splits []*Split
	for rows.Next() {
		sp := &Split{}
		if err := rows.Scan(&sp.ID, &sp.ExpenseID, &sp.UserID, &sp.ShareCents, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, sp)
	}
	return splits, rows.Err()
}

// ListByTrip retrieves a trip's expenses, newest first
func (r *Repository) ListByTrip(ctx context.Context, tripID uuid.UUID, includeVoid bool) ([]*Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE trip_id = $1`
	if !includeVoid {
		query += ` AND status = 'ACTIVE'`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*Expense
	for rows.Next() {
		exp := &Expense{}
		if err := scanExpense(rows, exp); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, exp)
	}
	return expenses, rows.Err()
}

// ListAudit retrieves the audit trail of an expense, oldest first
func (r *Repository) ListAudit(ctx context.Context, expenseID uuid.UUID) ([]*AuditEntry, error) {
	query := `
		SELECT id, expense_id, actor_user_id, action, old_values, new_values, reason, created_at
		FROM expense_audit_logs
		WHERE expense_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		entry := &AuditEntry{}
		var oldRaw, newRaw []byte
		if err := rows.Scan(&entry.ID, &entry.ExpenseID, &entry.ActorID, &entry.Action,
			&oldRaw, &newRaw, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if oldRaw != nil {
			if err := json.Unmarshal(oldRaw, &entry.OldValues); err != nil {
				return nil, fmt.Errorf("failed to decode audit old values: %w", err)
			}
		}
		if newRaw != nil {
			if err := json.Unmarshal(newRaw, &entry.NewValues); err != nil {
				return nil, fmt.Errorf("failed to decode audit new values: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CreateExpense inserts the expense, its splits and the audit entry in one transaction
func (r *Repository) CreateExpense(ctx context.Context, e *Expense, splits []*Split, audit *AuditEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertExpense := `
		INSERT INTO expenses (id, trip_id, created_by_user_id, payer_user_id, amount_cents, description,
			type, adjusts_expense_id, status, is_locked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if _, err := tx.ExecContext(ctx, insertExpense,
		e.ID, e.TripID, e.CreatedBy, e.PayerID, e.AmountCents, e.Description,
		e.Type, e.AdjustsExpenseID, e.Status, e.IsLocked, e.CreatedAt, e.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}

	if err := upsertSplits(ctx, tx, splits); err != nil {
		return err
	}
	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateExpense updates the expense row, reconciles splits (nil leaves them
// untouched) and appends the audit entry, all in one transaction. The update
// is guarded so a concurrently locked or voided expense is never modified.
func (r *Repository) UpdateExpense(ctx context.Context, e *Expense, splits []*Split, audit *AuditEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	update := `
		UPDATE expenses
		SET payer_user_id = $2, amount_cents = $3, description = $4, updated_at = $5
		WHERE id = $1 AND is_locked = FALSE AND status = 'ACTIVE'
	`
	res, err := tx.ExecContext(ctx, update, e.ID, e.PayerID, e.AmountCents, e.Description, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrExpenseLocked
	}

	if splits != nil {
		if err := upsertSplits(ctx, tx, splits); err != nil {
			return err
		}

		keep := make([]uuid.UUID, len(splits))
		for i, sp := range splits {
			keep[i] = sp.UserID
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM expense_splits WHERE expense_id = $1 AND user_id <> ALL($2)`,
			e.ID, pq.Array(keep),
		); err != nil {
			return fmt.Errorf("failed to prune splits: %w", err)
		}
	}

	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	return tx.Commit()
}

// VoidExpense flips the expense to VOID and appends the audit entry in one
// transaction, guarded against concurrent locking.
func (r *Repository) VoidExpense(ctx context.Context, e *Expense, audit *AuditEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	update := `
		UPDATE expenses
		SET status = $2, voided_at = $3, voided_by_user_id = $4, updated_at = $5
		WHERE id = $1 AND is_locked = FALSE AND status = 'ACTIVE'
	`
	res, err := tx.ExecContext(ctx, update, e.ID, e.Status, e.VoidedAt, e.VoidedBy, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to void expense: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrExpenseLocked
	}

	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	return tx.Commit()
}

func upsertSplits(ctx context.Context, tx *sql.Tx, splits []*Split) error {
	query := `
		INSERT INTO expense_splits (id, expense_id, user_id, share_cents, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (expense_id, user_id) DO UPDATE SET share_cents = EXCLUDED.share_cents
	`
	for _, sp := range splits {
		if _, err := tx.ExecContext(ctx, query, sp.ID, sp.ExpenseID, sp.UserID, sp.ShareCents, sp.CreatedAt); err != nil {
			return fmt.Errorf("failed to upsert split: %w", err)
		}
	}
	return nil
}

func insertAudit(ctx context.Context, tx *sql.Tx, audit *AuditEntry) error {
	oldRaw, err := marshalValues(audit.OldValues)
	if err != nil {
		return err
	}
	newRaw, err := marshalValues(audit.NewValues)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO expense_audit_logs (id, expense_id, actor_user_id, action, old_values, new_values, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.ExecContext(ctx, query,
		audit.ID, audit.ExpenseID, audit.ActorID, audit.Action, oldRaw, newRaw, audit.Reason, audit.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func marshalValues(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit values: %w", err)
	}
	return raw, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner, e *Expense) error {
	return row.Scan(
		&e.ID, &e.TripID, &e.CreatedBy, &e.PayerID, &e.AmountCents, &e.Description,
		&e.Type, &e.AdjustsExpenseID, &e.Status, &e.VoidedAt, &e.VoidedBy, &e.IsLocked,
		&e.CreatedAt, &e.UpdatedAt,
	)
}
