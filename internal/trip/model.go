package trip

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a trip
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Role of a user within a trip
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// ParticipantStatus tracks an invitation's state
type ParticipantStatus string

const (
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantAccepted ParticipantStatus = "accepted"
	ParticipantDeclined ParticipantStatus = "declined"
)

// Trip represents a planned trip
type Trip struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Participant links a user to a trip
type Participant struct {
	ID        uuid.UUID         `json:"id"`
	TripID    uuid.UUID         `json:"trip_id"`
	UserID    uuid.UUID         `json:"user_id"`
	Role      Role              `json:"role"`
	Status    ParticipantStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ValidStatus reports whether s is a known trip status
func ValidStatus(s Status) bool {
	switch s {
	case StatusPlanning, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
