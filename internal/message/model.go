package message

import (
	"time"

	"github.com/google/uuid"
)

// Message is either trip-scoped (TripID set) or a 1:1 direct message
// (RecipientID set); exactly one of the two is non-nil.
type Message struct {
	ID          uuid.UUID  `json:"id"`
	SenderID    uuid.UUID  `json:"sender_id"`
	TripID      *uuid.UUID `json:"trip_id,omitempty"`
	RecipientID *uuid.UUID `json:"recipient_id,omitempty"`
	Body        string     `json:"body"`
	CreatedAt   time.Time  `json:"created_at"`
}
