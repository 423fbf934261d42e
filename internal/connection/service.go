package connection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrUserNotFound       = errors.New("user not found")

	// validation
	ErrSelfConnection = errors.New("you cannot connect with yourself")

	// authorization
	ErrNotAddressee = errors.New("only the addressee can respond to a connection request")
	ErrNotInvolved  = errors.New("you are not part of this connection")

	// state conflicts
	ErrAlreadyConnected = errors.New("a pending or accepted connection already exists")
	ErrNotPending       = errors.New("connection request is not pending")
)

// Store is the persistence port for connections
type Store interface {
	GetConnection(ctx context.Context, id uuid.UUID) (*Connection, error)
	// GetBetween finds a connection in either direction
	GetBetween(ctx context.Context, a, b uuid.UUID) (*Connection, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Connection, error)
	Create(ctx context.Context, c *Connection) error
	Update(ctx context.Context, c *Connection) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserDirectory checks addressees exist
type UserDirectory interface {
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service handles connection business logic
type Service struct {
	store Store
	users UserDirectory
	now   func() time.Time
}

// NewService creates a new connection service
func NewService(store Store, users UserDirectory) *Service {
	return &Service{store: store, users: users, now: time.Now}
}

// Request creates a pending connection from the actor to another user.
// A declined connection may be re-requested; pending or accepted may not.
func (s *Service) Request(ctx context.Context, actor, addressee uuid.UUID) (*Connection, error) {
	if actor == addressee {
		return nil, ErrSelfConnection
	}

	exists, err := s.users.UserExists(ctx, addressee)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	existing, err := s.store.GetBetween(ctx, actor, addressee)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if existing != nil {
		if existing.Status != StatusDeclined {
			return nil, ErrAlreadyConnected
		}
		existing.RequesterID = actor
		existing.AddresseeID = addressee
		existing.Status = StatusPending
		existing.UpdatedAt = now
		if err := s.store.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	c := &Connection{
		ID:          uuid.New(),
		RequesterID: actor,
		AddresseeID: addressee,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Accept marks a pending request as accepted. Addressee only.
func (s *Service) Accept(ctx context.Context, connectionID, actor uuid.UUID) (*Connection, error) {
	return s.respond(ctx, connectionID, actor, StatusAccepted)
}

// Decline marks a pending request as declined. Addressee only.
func (s *Service) Decline(ctx context.Context, connectionID, actor uuid.UUID) (*Connection, error) {
	return s.respond(ctx, connectionID, actor, StatusDeclined)
}

func (s *Service) respond(ctx context.Context, connectionID, actor uuid.UUID, status Status) (*Connection, error) {
	c, err := s.store.GetConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrConnectionNotFound
	}
	if c.AddresseeID != actor {
		return nil, ErrNotAddressee
	}
	if c.Status != StatusPending {
		return nil, ErrNotPending
	}

	c.Status = status
	c.UpdatedAt = s.now()
	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List retrieves the actor's connections, newest first
func (s *Service) List(ctx context.Context, actor uuid.UUID) ([]*Connection, error) {
	return s.store.ListForUser(ctx, actor)
}

// Remove deletes a connection the actor is part of
func (s *Service) Remove(ctx context.Context, connectionID, actor uuid.UUID) error {
	c, err := s.store.GetConnection(ctx, connectionID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrConnectionNotFound
	}
	if c.RequesterID != actor && c.AddresseeID != actor {
		return ErrNotInvolved
	}
	return s.store.Delete(ctx, connectionID)
}
