package trip

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTripNotFound = errors.New("trip not found")
	ErrUserNotFound = errors.New("user not found")

	// validation
	ErrTitleRequired = errors.New("title is required")
	ErrInvalidStatus = errors.New("status must be planning, active, completed or cancelled")
	ErrInvalidDates  = errors.New("end_date must not be before start_date")

	// authorization
	ErrNotTripOwner  = errors.New("only the trip owner can perform this action")
	ErrNotTripMember = errors.New("you must be a trip participant to view this trip")

	// state conflicts
	ErrAlreadyParticipant = errors.New("user is already a trip participant")
	ErrNoPendingInvite    = errors.New("no pending invitation for this trip")
)

// Store is the persistence port for trips and their participants.
// CreateTrip persists the trip and its owner participant as one transaction.
type Store interface {
	GetTrip(ctx context.Context, id uuid.UUID) (*Trip, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Trip, error)
	CreateTrip(ctx context.Context, t *Trip, owner *Participant) error
	UpdateTrip(ctx context.Context, t *Trip) error
	DeleteTrip(ctx context.Context, id uuid.UUID) error

	GetParticipant(ctx context.Context, tripID, userID uuid.UUID) (*Participant, error)
	ListParticipants(ctx context.Context, tripID uuid.UUID) ([]*Participant, error)
	AddParticipant(ctx context.Context, p *Participant) error
	UpdateParticipant(ctx context.Context, p *Participant) error
}

// UserDirectory checks invitees exist
type UserDirectory interface {
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service handles trip business logic
type Service struct {
	store Store
	users UserDirectory
	now   func() time.Time
}

// NewService creates a new trip service
func NewService(store Store, users UserDirectory) *Service {
	return &Service{store: store, users: users, now: time.Now}
}

// Create persists a trip in planning status and records the creator as an
// accepted owner participant.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, req *CreateTripRequest) (*Trip, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, ErrInvalidDates
	}

	now := s.now()
	t := &Trip{
		ID:          uuid.New(),
		OwnerID:     actor,
		Title:       title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      StatusPlanning,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	owner := &Participant{
		ID:        uuid.New(),
		TripID:    t.ID,
		UserID:    actor,
		Role:      RoleOwner,
		Status:    ParticipantAccepted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateTrip(ctx, t, owner); err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID retrieves a trip; the actor must be a participant
func (s *Service) GetByID(ctx context.Context, tripID, actor uuid.UUID) (*Trip, error) {
	t, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTripNotFound
	}
	if err := s.requireMembership(ctx, t, actor); err != nil {
		return nil, err
	}
	return t, nil
}

// ListMine retrieves the trips the actor participates in, newest first
func (s *Service) ListMine(ctx context.Context, actor uuid.UUID) ([]*Trip, error) {
	return s.store.ListByUser(ctx, actor)
}

// Update applies a partial patch to a trip. Owner only.
func (s *Service) Update(ctx context.Context, tripID, actor uuid.UUID, req *UpdateTripRequest) (*Trip, error) {
	t, err := s.requireOwner(ctx, tripID, actor)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		t.Title = title
	}
	if req.Description != nil {
		t.Description = req.Description
	}
	if req.StartDate != nil {
		t.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		t.EndDate = req.EndDate
	}
	if t.StartDate != nil && t.EndDate != nil && t.EndDate.Before(*t.StartDate) {
		return nil, ErrInvalidDates
	}
	if req.Status != nil {
		if !ValidStatus(*req.Status) {
			return nil, ErrInvalidStatus
		}
		t.Status = *req.Status
	}
	t.UpdatedAt = s.now()

	if err := s.store.UpdateTrip(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a trip and everything hanging off it. Owner only.
func (s *Service) Delete(ctx context.Context, tripID, actor uuid.UUID) error {
	if _, err := s.requireOwner(ctx, tripID, actor); err != nil {
		return err
	}
	return s.store.DeleteTrip(ctx, tripID)
}

// Invite adds a pending participant. Owner only; the invitee must exist and
// not already be on the trip.
func (s *Service) Invite(ctx context.Context, tripID, actor, inviteeID uuid.UUID) (*Participant, error) {
	if _, err := s.requireOwner(ctx, tripID, actor); err != nil {
		return nil, err
	}

	exists, err := s.users.UserExists(ctx, inviteeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	existing, err := s.store.GetParticipant(ctx, tripID, inviteeID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status != ParticipantDeclined {
		return nil, ErrAlreadyParticipant
	}

	now := s.now()
	if existing != nil {
		// re-invite after a decline
		existing.Status = ParticipantPending
		existing.UpdatedAt = now
		if err := s.store.UpdateParticipant(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	p := &Participant{
		ID:        uuid.New(),
		TripID:    tripID,
		UserID:    inviteeID,
		Role:      RoleMember,
		Status:    ParticipantPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.AddParticipant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Accept marks the actor's pending invitation as accepted
func (s *Service) Accept(ctx context.Context, tripID, actor uuid.UUID) (*Participant, error) {
	return s.respond(ctx, tripID, actor, ParticipantAccepted)
}

// Decline marks the actor's pending invitation as declined
func (s *Service) Decline(ctx context.Context, tripID, actor uuid.UUID) (*Participant, error) {
	return s.respond(ctx, tripID, actor, ParticipantDeclined)
}

func (s *Service) respond(ctx context.Context, tripID, actor uuid.UUID, status ParticipantStatus) (*Participant, error) {
	t, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTripNotFound
	}

	p, err := s.store.GetParticipant(ctx, tripID, actor)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Status != ParticipantPending {
		return nil, ErrNoPendingInvite
	}

	p.Status = status
	p.UpdatedAt = s.now()
	if err := s.store.UpdateParticipant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Participants lists a trip's participants; the actor must be one of them
func (s *Service) Participants(ctx context.Context, tripID, actor uuid.UUID) ([]*Participant, error) {
	t, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTripNotFound
	}
	if err := s.requireMembership(ctx, t, actor); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(ctx, tripID)
}

func (s *Service) requireOwner(ctx context.Context, tripID, actor uuid.UUID) (*Trip, error) {
	t, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTripNotFound
	}
	if t.OwnerID != actor {
		return nil, ErrNotTripOwner
	}
	return t, nil
}

func (s *Service) requireMembership(ctx context.Context, t *Trip, actor uuid.UUID) error {
	if t.OwnerID == actor {
		return nil
	}
	p, err := s.store.GetParticipant(ctx, t.ID, actor)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotTripMember
	}
	return nil
}
