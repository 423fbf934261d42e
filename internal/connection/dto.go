package connection

// RequestConnectionRequest asks another user for a connection
type RequestConnectionRequest struct {
	UserID string `json:"user_id"`
}
