package connection

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const connectionColumns = `id, requester_id, addressee_id, status, created_at, updated_at`

// Repository persists connections in postgres. It also answers the message
// service's AreConnected lookups.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new connection repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetConnection retrieves a connection by ID; returns (nil, nil) when missing
func (r *Repository) GetConnection(ctx context.Context, id uuid.UUID) (*Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetBetween finds a connection between two users in either direction
func (r *Repository) GetBetween(ctx context.Context, a, b uuid.UUID) (*Connection, error) {
	query := `
		SELECT ` + connectionColumns + ` FROM connections
		WHERE (requester_id = $1 AND addressee_id = $2)
		   OR (requester_id = $2 AND addressee_id = $1)
	`
	return r.getOne(ctx, query, a, b)
}

// ListForUser retrieves a user's connections, newest first
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Connection, error) {
	query := `
		SELECT ` + connectionColumns + ` FROM connections
		WHERE requester_id = $1 OR addressee_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var connections []*Connection
	for rows.Next() {
		c := &Connection{}
		if err := rows.Scan(&c.ID, &c.RequesterID, &c.AddresseeID, &c.Status,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		connections = append(connections, c)
	}
	return connections, rows.Err()
}

// Create inserts a new connection
func (r *Repository) Create(ctx context.Context, c *Connection) error {
	query := `
		INSERT INTO connections (` + connectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.RequesterID, c.AddresseeID, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create connection: %w", err)
	}
	return nil
}

// Update persists a connection's direction and status
func (r *Repository) Update(ctx context.Context, c *Connection) error {
	query := `
		UPDATE connections
		SET requester_id = $2, addressee_id = $3, status = $4, updated_at = $5
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.RequesterID, c.AddresseeID, c.Status, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update connection: %w", err)
	}
	return nil
}

// Delete removes a connection
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM connections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	return nil
}

// AreConnected reports whether two users share an accepted connection
func (r *Repository) AreConnected(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM connections
			WHERE status = 'accepted'
			  AND ((requester_id = $1 AND addressee_id = $2)
			    OR (requester_id = $2 AND addressee_id = $1))
		)
	`, a, b).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check connection: %w", err)
	}
	return exists, nil
}

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (*Connection, error) {
	c := &Connection{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&c.ID, &c.RequesterID, &c.AddresseeID, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return c, nil
}
