package trip

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const tripColumns = `id, owner_id, title, description, start_date, end_date, status, created_at, updated_at`

const participantColumns = `id, trip_id, user_id, role, status, created_at, updated_at`

// Repository persists trips and participants in postgres. It also serves as
// the trip directory for the expense and settlement services.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new trip repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetTrip retrieves a trip by ID; returns (nil, nil) when missing
func (r *Repository) GetTrip(ctx context.Context, id uuid.UUID) (*Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	t := &Trip{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.StartDate, &t.EndDate,
		&t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return t, nil
}

// ListByUser retrieves the trips a user participates in, newest first
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Trip, error) {
	query := `
		SELECT t.id, t.owner_id, t.title, t.description, t.start_date, t.end_date,
		       t.status, t.created_at, t.updated_at
		FROM trips t
		JOIN trip_participants p ON p.trip_id = t.id
		WHERE p.user_id = $1
		ORDER BY t.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []*Trip
	for rows.Next() {
		t := &Trip{}
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.StartDate,
			&t.EndDate, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// CreateTrip inserts the trip and its owner participant in one transaction
func (r *Repository) CreateTrip(ctx context.Context, t *Trip, owner *Participant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertTrip := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := tx.ExecContext(ctx, insertTrip,
		t.ID, t.OwnerID, t.Title, t.Description, t.StartDate, t.EndDate,
		t.Status, t.CreatedAt, t.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}

	insertOwner := `
		INSERT INTO trip_participants (` + participantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, insertOwner,
		owner.ID, owner.TripID, owner.UserID, owner.Role, owner.Status,
		owner.CreatedAt, owner.UpdatedAt); err != nil {
		return fmt.Errorf("failed to add owner participant: %w", err)
	}

	return tx.Commit()
}

// UpdateTrip persists trip field changes
func (r *Repository) UpdateTrip(ctx context.Context, t *Trip) error {
	query := `
		UPDATE trips
		SET title = $2, description = $3, start_date = $4, end_date = $5,
		    status = $6, updated_at = $7
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Title, t.Description, t.StartDate, t.EndDate, t.Status, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}
	return nil
}

// DeleteTrip removes a trip; dependent rows cascade via foreign keys
func (r *Repository) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	return nil
}

// GetParticipant retrieves a trip participant; returns (nil, nil) when missing
func (r *Repository) GetParticipant(ctx context.Context, tripID, userID uuid.UUID) (*Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM trip_participants WHERE trip_id = $1 AND user_id = $2`

	p := &Participant{}
	err := r.db.QueryRowContext(ctx, query, tripID, userID).Scan(
		&p.ID, &p.TripID, &p.UserID, &p.Role, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// ListParticipants retrieves a trip's participants, oldest first
func (r *Repository) ListParticipants(ctx context.Context, tripID uuid.UUID) ([]*Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM trip_participants WHERE trip_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*Participant
	for rows.Next() {
		p := &Participant{}
		if err := rows.Scan(&p.ID, &p.TripID, &p.UserID, &p.Role, &p.Status,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// AddParticipant inserts a new trip participant
func (r *Repository) AddParticipant(ctx context.Context, p *Participant) error {
	query := `
		INSERT INTO trip_participants (` + participantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.TripID, p.UserID, p.Role, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// UpdateParticipant persists a participant's status change
func (r *Repository) UpdateParticipant(ctx context.Context, p *Participant) error {
	query := `
		UPDATE trip_participants
		SET role = $3, status = $4, updated_at = $5
		WHERE trip_id = $1 AND user_id = $2
	`
	_, err := r.db.ExecContext(ctx, query, p.TripID, p.UserID, p.Role, p.Status, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return nil
}

// TripExists reports whether a trip exists
func (r *Repository) TripExists(ctx context.Context, tripID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1)`, tripID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check trip: %w", err)
	}
	return exists, nil
}

// IsOwner reports whether the user owns the trip
func (r *Repository) IsOwner(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1 AND owner_id = $2)`,
		tripID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check trip owner: %w", err)
	}
	return exists, nil
}

// IsAcceptedParticipant reports whether the user has accepted a spot on the trip
func (r *Repository) IsAcceptedParticipant(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM trip_participants
			WHERE trip_id = $1 AND user_id = $2 AND status = 'accepted'
		)
	`, tripID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return exists, nil
}

// IsMember reports whether the user has any participant row on the trip.
// Pending invitees count as members for read access.
func (r *Repository) IsMember(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM trip_participants
			WHERE trip_id = $1 AND user_id = $2
		)
	`, tripID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}
