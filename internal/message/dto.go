package message

// SendMessageRequest posts a message to a trip or to a single recipient;
// exactly one of trip_id and recipient_id must be set.
type SendMessageRequest struct {
	TripID      *string `json:"trip_id,omitempty"`
	RecipientID *string `json:"recipient_id,omitempty"`
	Body        string  `json:"body"`
}
