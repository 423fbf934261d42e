package message

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

	// validation
	ErrBodyRequired = errors.New("message body is required")
	ErrBodyTooLong  = errors.New("message body exceeds the maximum length")
	ErrBadTarget    = errors.New("exactly one of trip_id and recipient_id must be set")
	ErrSelfMessage  = errors.New("you cannot message yourself")

	// authorization
	ErrNotTripParticipant = errors.New("you must be an accepted participant to message a trip")
	ErrNotConnected       = errors.New("direct messages require an accepted connection")
)

// MaxBodyLength caps a single message
const MaxBodyLength = 4000

// Store is the persistence port for messages. Listings are oldest first so
// clients render conversations top to bottom.
type Store interface {
	CreateMessage(ctx context.Context, m *Message) error
	ListTrip(ctx context.Context, tripID uuid.UUID, limit, offset int) ([]*Message, error)
	ListDirect(ctx context.Context, a, b uuid.UUID, limit, offset int) ([]*Message, error)
}

// TripDirectory answers membership questions about trips
type TripDirectory interface {
	TripExists(ctx context.Context, tripID uuid.UUID) (bool, error)
	IsAcceptedParticipant(ctx context.Context, tripID, userID uuid.UUID) (bool, error)
}

// ConnectionDirectory answers whether two users share an accepted connection
type ConnectionDirectory interface {
	AreConnected(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// Service handles messaging business logic
type Service struct {
	store       Store
	trips       TripDirectory
	connections ConnectionDirectory
	now         func() time.Time
}

// NewService creates a new message service
func NewService(store Store, trips TripDirectory, connections ConnectionDirectory) *Service {
	return &Service{store: store, trips: trips, connections: connections, now: time.Now}
}

// SendToTrip posts a message to a trip's conversation. Accepted participants only.
func (s *Service) SendToTrip(ctx context.Context, actor, tripID uuid.UUID, body string) (*Message, error) {
	body, err := validateBody(body)
	if err != nil {
		return nil, err
	}

	exists, err := s.trips.TripExists(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrTripNotFound
	}
	accepted, err := s.trips.IsAcceptedParticipant(ctx, tripID, actor)
	if err != nil {
		return nil, err
	}
	if !accepted {
		return nil, ErrNotTripParticipant
	}

	m := &Message{
		ID:        uuid.New(),
		SenderID:  actor,
		TripID:    &tripID,
		Body:      body,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// SendDirect posts a 1:1 message. The two users must share an accepted connection.
func (s *Service) SendDirect(ctx context.Context, actor, recipient uuid.UUID, body string) (*Message, error) {
	body, err := validateBody(body)
	if err != nil {
		return nil, err
	}
	if actor == recipient {
		return nil, ErrSelfMessage
	}

	connected, err := s.connections.AreConnected(ctx, actor, recipient)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, ErrNotConnected
	}

	m := &Message{
		ID:          uuid.New(),
		SenderID:    actor,
		RecipientID: &recipient,
		Body:        body,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListTrip retrieves a trip's conversation, oldest first. Accepted participants only.
func (s *Service) ListTrip(ctx context.Context, actor, tripID uuid.UUID, page, perPage int) ([]*Message, error) {
	exists, err := s.trips.TripExists(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrTripNotFound
	}
	accepted, err := s.trips.IsAcceptedParticipant(ctx, tripID, actor)
	if err != nil {
		return nil, err
	}
	if !accepted {
		return nil, ErrNotTripParticipant
	}

	limit, offset := paging(page, perPage)
	return s.store.ListTrip(ctx, tripID, limit, offset)
}

// ListDirect retrieves the 1:1 conversation between the actor and another
// user, oldest first.
func (s *Service) ListDirect(ctx context.Context, actor, other uuid.UUID, page, perPage int) ([]*Message, error) {
	connected, err := s.connections.AreConnected(ctx, actor, other)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, ErrNotConnected
	}

	limit, offset := paging(page, perPage)
	return s.store.ListDirect(ctx, actor, other, limit, offset)
}

func validateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrBodyRequired
	}
	if len(body) > MaxBodyLength {
		return "", ErrBodyTooLong
	}
	return body, nil
}

func paging(page, perPage int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}
	return perPage, (page - 1) * perPage
}
