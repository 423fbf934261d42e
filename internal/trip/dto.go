package trip

import "time"

// CreateTripRequest is the request to create a trip
type CreateTripRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// UpdateTripRequest is a partial patch; nil fields are left untouched
type UpdateTripRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Status      *Status    `json:"status,omitempty"`
}

// InviteRequest invites a user to a trip
type InviteRequest struct {
	UserID string `json:"user_id"`
}
