package expense

import (
	"time"

	"github.com/google/uuid"
)

// Type distinguishes regular expenses from corrections of earlier ones
type Type string

const (
	TypeNormal     Type = "NORMAL"
	TypeAdjustment Type = "ADJUSTMENT"
)

// Status represents the lifecycle state of an expense
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusVoid   Status = "VOID"
)

// AuditAction identifies what kind of mutation an audit entry records
type AuditAction string

const (
	AuditExpenseCreated AuditAction = "EXPENSE_CREATED"
	AuditExpenseEdited  AuditAction = "EXPENSE_EDITED"
	AuditExpenseVoided  AuditAction = "EXPENSE_VOIDED"
)

// Expense represents a shared trip expense. Money is integer cents only;
// once IsLocked is set by a paid settlement no field may change again.
type Expense struct {
	ID               uuid.UUID  `json:"id"`
	TripID           uuid.UUID  `json:"trip_id"`
	CreatedBy        uuid.UUID  `json:"created_by_user_id"`
	PayerID          uuid.UUID  `json:"payer_user_id"`
	AmountCents      int64      `json:"amount_cents"`
	Description      *string    `json:"description,omitempty"`
	Type             Type       `json:"type"`
	AdjustsExpenseID *uuid.UUID `json:"adjusts_expense_id,omitempty"`
	Status           Status     `json:"status"`
	VoidedAt         *time.Time `json:"voided_at,omitempty"`
	VoidedBy         *uuid.UUID `json:"voided_by_user_id,omitempty"`
	IsLocked         bool       `json:"is_locked"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Split is one participant's owed share of an expense, in cents.
// For an ACTIVE expense the shares always sum to the expense amount.
type Split struct {
	ID         uuid.UUID `json:"id"`
	ExpenseID  uuid.UUID `json:"expense_id"`
	UserID     uuid.UUID `json:"user_id"`
	ShareCents int64     `json:"share_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditEntry is one append-only record of who changed an expense and how.
// Old/new values are opaque snapshots; the tracked fields vary by action.
type AuditEntry struct {
	ID        uuid.UUID      `json:"id"`
	ExpenseID uuid.UUID      `json:"expense_id"`
	ActorID   uuid.UUID      `json:"actor_user_id"`
	Action    AuditAction    `json:"action"`
	OldValues map[string]any `json:"old_values,omitempty"`
	NewValues map[string]any `json:"new_values,omitempty"`
	Reason    *string        `json:"reason,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ExpenseWithSplits combines an expense with its splits
type ExpenseWithSplits struct {
	Expense *Expense
	Splits  []*Split
}
