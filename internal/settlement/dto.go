package settlement

import (
	"time"

	"github.com/google/uuid"
)

// CreateSettlementRequest is the request to create a settlement
type CreateSettlementRequest struct {
	ExpenseIDs []string `json:"expense_ids"`
}

// SettlementResponse represents the response for a settlement
type SettlementResponse struct {
	ID         uuid.UUID   `json:"id"`
	TripID     uuid.UUID   `json:"trip_id"`
	CreatedBy  uuid.UUID   `json:"created_by_user_id"`
	Status     Status      `json:"status"`
	PaidAt     *time.Time  `json:"paid_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	ExpenseIDs []uuid.UUID `json:"expense_ids"`
}

// ToResponse converts a settlement and its expense links to a response DTO
func (s *SettlementWithExpenses) ToResponse() *SettlementResponse {
	return &SettlementResponse{
		ID:         s.Settlement.ID,
		TripID:     s.Settlement.TripID,
		CreatedBy:  s.Settlement.CreatedBy,
		Status:     s.Settlement.Status,
		PaidAt:     s.Settlement.PaidAt,
		CreatedAt:  s.Settlement.CreatedAt,
		ExpenseIDs: s.ExpenseIDs,
	}
}
