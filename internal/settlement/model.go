package settlement

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a settlement
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
)

// Settlement is a batch of trip expenses marked as paid together. Marking it
// PAID is terminal and locks every linked expense.
type Settlement struct {
	ID        uuid.UUID  `json:"id"`
	TripID    uuid.UUID  `json:"trip_id"`
	CreatedBy uuid.UUID  `json:"created_by_user_id"`
	Status    Status     `json:"status"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SettlementWithExpenses combines a settlement with its linked expense IDs
type SettlementWithExpenses struct {
	Settlement *Settlement
	ExpenseIDs []uuid.UUID
}
