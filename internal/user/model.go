package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. PasswordHash never crosses the API
// boundary; responses go through ToResponse.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
