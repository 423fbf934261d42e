package message

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	messages []*Message
}

func (s *fakeStore) CreateMessage(ctx context.Context, m *Message) error {
	cp := *m
	s.messages = append(s.messages, &cp)
	return nil
}

func (s *fakeStore) ListTrip(ctx context.Context, tripID uuid.UUID, limit, offset int) ([]*Message, error) {
	var out []*Message
	for _, m := range s.messages {
		if m.TripID != nil && *m.TripID == tripID {
			out = append(out, m)
		}
	}
	return window(out, limit, offset), nil
}

func (s *fakeStore) ListDirect(ctx context.Context, a, b uuid.UUID, limit, offset int) ([]*Message, error) {
	var out []*Message
	for _, m := range s.messages {
		if m.RecipientID == nil {
			continue
		}
		if (m.SenderID == a && *m.RecipientID == b) || (m.SenderID == b && *m.RecipientID == a) {
			out = append(out, m)
		}
	}
	return window(out, limit, offset), nil
}

func window(msgs []*Message, limit, offset int) []*Message {
	if offset >= len(msgs) {
		return nil
	}
	msgs = msgs[offset:]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs
}

type fakeTrips struct {
	tripID   uuid.UUID
	accepted map[uuid.UUID]bool
}

func (f *fakeTrips) TripExists(ctx context.Context, tripID uuid.UUID) (bool, error) {
	return tripID == f.tripID, nil
}

func (f *fakeTrips) IsAcceptedParticipant(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	return tripID == f.tripID && f.accepted[userID], nil
}

type fakeConnections struct {
	pairs map[[2]uuid.UUID]bool
}

func (f *fakeConnections) connect(a, b uuid.UUID) {
	f.pairs[[2]uuid.UUID{a, b}] = true
	f.pairs[[2]uuid.UUID{b, a}] = true
}

func (f *fakeConnections) AreConnected(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return f.pairs[[2]uuid.UUID{a, b}], nil
}

type fixture struct {
	svc     *Service
	conns   *fakeConnections
	tripID  uuid.UUID
	alice   uuid.UUID
	bob     uuid.UUID
	outside uuid.UUID
}

func newFixture() *fixture {
	tripID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()
	trips := &fakeTrips{tripID: tripID, accepted: map[uuid.UUID]bool{alice: true, bob: true}}
	conns := &fakeConnections{pairs: make(map[[2]uuid.UUID]bool)}
	return &fixture{
		svc:     NewService(&fakeStore{}, trips, conns),
		conns:   conns,
		tripID:  tripID,
		alice:   alice,
		bob:     bob,
		outside: uuid.New(),
	}
}

func TestTripMessaging(t *testing.T) {
	f := newFixture()

	m, err := f.svc.SendToTrip(context.Background(), f.alice, f.tripID, "  anyone up for dinner?  ")
	require.NoError(t, err)
	assert.Equal(t, "anyone up for dinner?", m.Body)
	require.NotNil(t, m.TripID)
	assert.Equal(t, f.tripID, *m.TripID)

	_, err = f.svc.SendToTrip(context.Background(), f.bob, f.tripID, "yes!")
	require.NoError(t, err)

	msgs, err := f.svc.ListTrip(context.Background(), f.alice, f.tripID, 1, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "anyone up for dinner?", msgs[0].Body)
	assert.Equal(t, "yes!", msgs[1].Body)
}

func TestTripMessagingRules(t *testing.T) {
	f := newFixture()

	_, err := f.svc.SendToTrip(context.Background(), f.alice, uuid.New(), "hello")
	assert.ErrorIs(t, err, ErrTripNotFound)

	_, err = f.svc.SendToTrip(context.Background(), f.outside, f.tripID, "hello")
	assert.ErrorIs(t, err, ErrNotTripParticipant)

	_, err = f.svc.SendToTrip(context.Background(), f.alice, f.tripID, "   ")
	assert.ErrorIs(t, err, ErrBodyRequired)

	_, err = f.svc.SendToTrip(context.Background(), f.alice, f.tripID, strings.Repeat("x", MaxBodyLength+1))
	assert.ErrorIs(t, err, ErrBodyTooLong)

	_, err = f.svc.ListTrip(context.Background(), f.outside, f.tripID, 1, 50)
	assert.ErrorIs(t, err, ErrNotTripParticipant)
}

func TestDirectMessaging(t *testing.T) {
	f := newFixture()

	// no accepted connection yet
	_, err := f.svc.SendDirect(context.Background(), f.alice, f.bob, "hi")
	assert.ErrorIs(t, err, ErrNotConnected)

	f.conns.connect(f.alice, f.bob)

	m, err := f.svc.SendDirect(context.Background(), f.alice, f.bob, "hi")
	require.NoError(t, err)
	require.NotNil(t, m.RecipientID)
	assert.Equal(t, f.bob, *m.RecipientID)

	_, err = f.svc.SendDirect(context.Background(), f.bob, f.alice, "hey")
	require.NoError(t, err)

	// both directions land in the same conversation
	msgs, err := f.svc.ListDirect(context.Background(), f.bob, f.alice, 1, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, f.alice, msgs[0].SenderID)
	assert.Equal(t, f.bob, msgs[1].SenderID)

	_, err = f.svc.SendDirect(context.Background(), f.alice, f.alice, "note to self")
	assert.ErrorIs(t, err, ErrSelfMessage)
}

func TestMessagePaging(t *testing.T) {
	f := newFixture()

	for _, body := range []string{"one", "two", "three"} {
		_, err := f.svc.SendToTrip(context.Background(), f.alice, f.tripID, body)
		require.NoError(t, err)
	}

	page2, err := f.svc.ListTrip(context.Background(), f.alice, f.tripID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "three", page2[0].Body)
}
