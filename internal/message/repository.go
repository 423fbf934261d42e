package message

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const messageColumns = `id, sender_id, trip_id, recipient_id, body, created_at`

// Repository persists messages in postgres
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new message repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateMessage inserts a new message
func (r *Repository) CreateMessage(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.SenderID, m.TripID, m.RecipientID, m.Body, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListTrip retrieves a trip's conversation, oldest first
func (r *Repository) ListTrip(ctx context.Context, tripID uuid.UUID, limit, offset int) ([]*Message, error) {
	query := `
		SELECT ` + messageColumns + ` FROM messages
		WHERE trip_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, tripID, limit, offset)
}

// ListDirect retrieves the 1:1 conversation between two users, oldest first
func (r *Repository) ListDirect(ctx context.Context, a, b uuid.UUID, limit, offset int) ([]*Message, error) {
	query := `
		SELECT ` + messageColumns + ` FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at, id
		LIMIT $3 OFFSET $4
	`
	return r.list(ctx, query, a, b, limit, offset)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.SenderID, &m.TripID, &m.RecipientID,
			&m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
