package expense

import (
	"time"

	"github.com/google/uuid"
)

// CreateExpenseRequest is the request to create an expense. The amount is a
// decimal string; numeric JSON values fail to decode by design.
type CreateExpenseRequest struct {
	TripID           string   `json:"trip_id"`
	PayerUserID      string   `json:"payer_user_id"`
	ParticipantIDs   []string `json:"participant_user_ids"`
	Amount           string   `json:"amount"`
	Description      *string  `json:"description,omitempty"`
	Type             string   `json:"type,omitempty"`
	AdjustsExpenseID *string  `json:"adjusts_expense_id,omitempty"`
}

// UpdateExpenseRequest is a partial patch; omitted fields are left untouched
type UpdateExpenseRequest struct {
	Amount         *string  `json:"amount,omitempty"`
	Description    *string  `json:"description,omitempty"`
	PayerUserID    *string  `json:"payer_user_id,omitempty"`
	ParticipantIDs []string `json:"participant_user_ids,omitempty"`
	Reason         *string  `json:"reason,omitempty"`
}

// ExpenseResponse represents the response for an expense
type ExpenseResponse struct {
	ID               uuid.UUID        `json:"id"`
	TripID           uuid.UUID        `json:"trip_id"`
	CreatedBy        uuid.UUID        `json:"created_by_user_id"`
	PayerUserID      uuid.UUID        `json:"payer_user_id"`
	Amount           string           `json:"amount"`
	AmountCents      int64            `json:"amount_cents"`
	Description      *string          `json:"description,omitempty"`
	Type             Type             `json:"type"`
	AdjustsExpenseID *uuid.UUID       `json:"adjusts_expense_id,omitempty"`
	Status           Status           `json:"status"`
	VoidedAt         *time.Time       `json:"voided_at,omitempty"`
	VoidedBy         *uuid.UUID       `json:"voided_by_user_id,omitempty"`
	IsLocked         bool             `json:"is_locked"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Splits           []*SplitResponse `json:"splits,omitempty"`
}

// SplitResponse represents the response for a split
type SplitResponse struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Share      string    `json:"share"`
	ShareCents int64     `json:"share_cents"`
}

// AuditEntryResponse represents the response for an audit log entry
type AuditEntryResponse struct {
	ID        uuid.UUID      `json:"id"`
	ActorID   uuid.UUID      `json:"actor_user_id"`
	Action    AuditAction    `json:"action"`
	OldValues map[string]any `json:"old_values,omitempty"`
	NewValues map[string]any `json:"new_values,omitempty"`
	Reason    *string        `json:"reason,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToResponse converts an Expense model to an ExpenseResponse DTO
func (e *Expense) ToResponse() *ExpenseResponse {
	return &ExpenseResponse{
		ID:               e.ID,
		TripID:           e.TripID,
		CreatedBy:        e.CreatedBy,
		PayerUserID:      e.PayerID,
		Amount:           FormatCents(e.AmountCents),
		AmountCents:      e.AmountCents,
		Description:      e.Description,
		Type:             e.Type,
		AdjustsExpenseID: e.AdjustsExpenseID,
		Status:           e.Status,
		VoidedAt:         e.VoidedAt,
		VoidedBy:         e.VoidedBy,
		IsLocked:         e.IsLocked,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// ToResponse converts a Split model to a SplitResponse DTO
func (s *Split) ToResponse() *SplitResponse {
	return &SplitResponse{
		ID:         s.ID,
		UserID:     s.UserID,
		Share:      FormatCents(s.ShareCents),
		ShareCents: s.ShareCents,
	}
}

// ToResponse converts an AuditEntry model to an AuditEntryResponse DTO
func (a *AuditEntry) ToResponse() *AuditEntryResponse {
	return &AuditEntryResponse{
		ID:        a.ID,
		ActorID:   a.ActorID,
		Action:    a.Action,
		OldValues: a.OldValues,
		NewValues: a.NewValues,
		Reason:    a.Reason,
		CreatedAt: a.CreatedAt,
	}
}
