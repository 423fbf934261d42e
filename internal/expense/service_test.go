package expense

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store honoring the lock/active write guards
type fakeStore struct {
	expenses map[uuid.UUID]*Expense
	splits   map[uuid.UUID][]*Split
	audits   map[uuid.UUID][]*AuditEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		expenses: make(map[uuid.UUID]*Expense),
		splits:   make(map[uuid.UUID][]*Split),
		audits:   make(map[uuid.UUID][]*AuditEntry),
	}
}

func (f *fakeStore) GetExpense(_ context.Context, id uuid.UUID) (*Expense, error) {
	e, ok := f.expenses[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) GetSplits(_ context.Context, expenseID uuid.UUID) ([]*Split, error) {
	return f.splits[expenseID], nil
}

func (f *fakeStore) ListByTrip(_ context.Context, tripID uuid.UUID, includeVoid bool) ([]*Expense, error) {
	var out []*Expense
	for _, e := range f.expenses {
		if e.TripID != tripID {
			continue
		}
		if !includeVoid && e.Status != StatusActive {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) ListAudit(_ context.Context, expenseID uuid.UUID) ([]*AuditEntry, error) {
	return f.audits[expenseID], nil
}

func (f *fakeStore) CreateExpense(_ context.Context, e *Expense, splits []*Split, audit *AuditEntry) error {
	cp := *e
	f.expenses[e.ID] = &cp
	f.splits[e.ID] = splits
	f.audits[e.ID] = append(f.audits[e.ID], audit)
	return nil
}

func (f *fakeStore) UpdateExpense(_ context.Context, e *Expense, splits []*Split, audit *AuditEntry) error {
	cur, ok := f.expenses[e.ID]
	if !ok || cur.IsLocked || cur.Status != StatusActive {
		return ErrExpenseLocked
	}
	cp := *e
	f.expenses[e.ID] = &cp
	if splits != nil {
		f.splits[e.ID] = splits
	}
	f.audits[e.ID] = append(f.audits[e.ID], audit)
	return nil
}

func (f *fakeStore) VoidExpense(_ context.Context, e *Expense, audit *AuditEntry) error {
	cur, ok := f.expenses[e.ID]
	if !ok || cur.IsLocked || cur.Status != StatusActive {
		return ErrExpenseLocked
	}
	cp := *e
	f.expenses[e.ID] = &cp
	f.audits[e.ID] = append(f.audits[e.ID], audit)
	return nil
}

// fakeDirectory answers trip membership questions from fixed sets
type fakeDirectory struct {
	owner    uuid.UUID
	tripID   uuid.UUID
	accepted map[uuid.UUID]bool
	members  map[uuid.UUID]bool
}

func (f *fakeDirectory) TripExists(_ context.Context, tripID uuid.UUID) (bool, error) {
	return tripID == f.tripID, nil
}

func (f *fakeDirectory) IsOwner(_ context.Context, tripID, userID uuid.UUID) (bool, error) {
	return tripID == f.tripID && userID == f.owner, nil
}

func (f *fakeDirectory) IsAcceptedParticipant(_ context.Context, tripID, userID uuid.UUID) (bool, error) {
	return tripID == f.tripID && f.accepted[userID], nil
}

func (f *fakeDirectory) IsMember(_ context.Context, tripID, userID uuid.UUID) (bool, error) {
	return tripID == f.tripID && f.members[userID], nil
}

type fixture struct {
	svc     *Service
	store   *fakeStore
	tripID  uuid.UUID
	owner   uuid.UUID
	payer   uuid.UUID
	alice   uuid.UUID
	bob     uuid.UUID
	outside uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		store:   newFakeStore(),
		tripID:  uuid.New(),
		owner:   uuid.New(),
		payer:   uuid.New(),
		alice:   uuid.New(),
		bob:     uuid.New(),
		outside: uuid.New(),
	}
	dir := &fakeDirectory{
		owner:  f.owner,
		tripID: f.tripID,
		accepted: map[uuid.UUID]bool{
			f.owner: true, f.payer: true, f.alice: true, f.bob: true,
		},
		members: map[uuid.UUID]bool{
			f.owner: true, f.payer: true, f.alice: true, f.bob: true,
		},
	}
	f.svc = NewService(f.store, dir)
	return f
}

func (f *fixture) create(t *testing.T, amount string, participants ...uuid.UUID) *ExpenseWithSplits {
	t.Helper()
	res, err := f.svc.Create(context.Background(), f.payer, CreateInput{
		TripID:         f.tripID,
		PayerID:        f.payer,
		ParticipantIDs: participants,
		Amount:         amount,
	})
	require.NoError(t, err)
	return res
}

func TestCreateExpense(t *testing.T) {
	f := newFixture()

	res := f.create(t, "12.50", f.payer, f.alice, f.bob)

	assert.Equal(t, int64(1250), res.Expense.AmountCents)
	assert.Equal(t, StatusActive, res.Expense.Status)
	assert.False(t, res.Expense.IsLocked)
	assert.Equal(t, TypeNormal, res.Expense.Type)

	// 1250 / 3 = 416 rem 2; remainder lands on the payer at index 0
	require.Len(t, res.Splits, 3)
	assert.Equal(t, int64(418), res.Splits[0].ShareCents)
	assert.Equal(t, int64(416), res.Splits[1].ShareCents)
	assert.Equal(t, int64(416), res.Splits[2].ShareCents)

	var sum int64
	for _, sp := range res.Splits {
		sum += sp.ShareCents
	}
	assert.Equal(t, res.Expense.AmountCents, sum)

	audits := f.store.audits[res.Expense.ID]
	require.Len(t, audits, 1)
	assert.Equal(t, AuditExpenseCreated, audits[0].Action)
	assert.Equal(t, int64(1250), audits[0].NewValues["amount_cents"])
}

func TestCreateExpensePayerMidList(t *testing.T) {
	f := newFixture()

	res := f.create(t, "1.00", f.alice, f.payer, f.bob)

	require.Len(t, res.Splits, 3)
	assert.Equal(t, int64(33), res.Splits[0].ShareCents)
	assert.Equal(t, int64(34), res.Splits[1].ShareCents)
	assert.Equal(t, int64(33), res.Splits[2].ShareCents)
}

func TestCreateExpenseValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.payer, CreateInput{
		TripID: uuid.New(), PayerID: f.payer, ParticipantIDs: []uuid.UUID{f.payer}, Amount: "5.00",
	})
	assert.ErrorIs(t, err, ErrTripNotFound)

	_, err = f.svc.Create(ctx, f.outside, CreateInput{
		TripID: f.tripID, PayerID: f.payer, ParticipantIDs: []uuid.UUID{f.payer}, Amount: "5.00",
	})
	assert.ErrorIs(t, err, ErrNotTripParticipant)

	_, err = f.svc.Create(ctx, f.payer, CreateInput{
		TripID: f.tripID, PayerID: f.outside, ParticipantIDs: []uuid.UUID{f.outside}, Amount: "5.00",
	})
	assert.ErrorIs(t, err, ErrPayerNotAccepted)

	_, err = f.svc.Create(ctx, f.payer, CreateInput{
		TripID: f.tripID, PayerID: f.payer, ParticipantIDs: []uuid.UUID{f.payer, f.outside}, Amount: "5.00",
	})
	assert.ErrorIs(t, err, ErrParticipantNotAccepted)

	_, err = f.svc.Create(ctx, f.payer, CreateInput{
		TripID: f.tripID, PayerID: f.payer, ParticipantIDs: []uuid.UUID{f.alice, f.bob}, Amount: "5.00",
	})
	assert.ErrorIs(t, err, ErrPayerNotInParticipants)

	_, err = f.svc.Create(ctx, f.payer, CreateInput{
		TripID: f.tripID, PayerID: f.payer, ParticipantIDs: []uuid.UUID{f.payer, f.payer}, Amount: "5.00",
	})
	assert.ErrorIs(t, err, ErrDuplicateParticipant)

	_, err = f.svc.Create(ctx, f.payer, CreateInput{
		TripID: f.tripID, PayerID: f.payer, ParticipantIDs: []uuid.UUID{f.payer}, Amount: "19.999",
	})
	assert.ErrorIs(t, err, ErrAmountTooPrecise)

	_, err = f.svc.Create(ctx, f.payer, CreateInput{
		TripID: f.tripID, PayerID: f.payer, ParticipantIDs: []uuid.UUID{f.payer}, Amount: "5.00", Type: "WEIRD",
	})
	assert.ErrorIs(t, err, ErrInvalidExpenseType)
}

func TestEditDescriptionOnly(t *testing.T) {
	f := newFixture()
	res := f.create(t, "12.50", f.payer, f.alice, f.bob)

	before := make([]int64, len(res.Splits))
	for i, sp := range res.Splits {
		before[i] = sp.ShareCents
	}

	desc := "dinner at the harbor"
	updated, err := f.svc.Edit(context.Background(), res.Expense.ID, f.payer, EditInput{Description: &desc})
	require.NoError(t, err)

	assert.Equal(t, int64(1250), updated.Expense.AmountCents)
	require.NotNil(t, updated.Expense.Description)
	assert.Equal(t, desc, *updated.Expense.Description)

	// splits untouched, cent for cent
	require.Len(t, updated.Splits, len(before))
	for i, sp := range updated.Splits {
		assert.Equal(t, before[i], sp.ShareCents)
	}

	audits := f.store.audits[res.Expense.ID]
	require.Len(t, audits, 2)
	assert.Equal(t, AuditExpenseEdited, audits[1].Action)
}

func TestEditAmountRecalculatesSplits(t *testing.T) {
	f := newFixture()
	res := f.create(t, "12.50", f.payer, f.alice, f.bob)

	amount := "30.01"
	updated, err := f.svc.Edit(context.Background(), res.Expense.ID, f.payer, EditInput{Amount: &amount})
	require.NoError(t, err)

	assert.Equal(t, int64(3001), updated.Expense.AmountCents)
	require.Len(t, updated.Splits, 3)

	var sum int64
	for _, sp := range updated.Splits {
		sum += sp.ShareCents
	}
	assert.Equal(t, int64(3001), sum)
	// payer was first in the original ordering, so the remainder cent is theirs
	assert.Equal(t, int64(1001), updated.Splits[0].ShareCents)
}

func TestEditParticipantsReshapesSplits(t *testing.T) {
	f := newFixture()
	res := f.create(t, "10.00", f.payer, f.alice, f.bob)

	updated, err := f.svc.Edit(context.Background(), res.Expense.ID, f.payer, EditInput{
		ParticipantIDs: []uuid.UUID{f.payer, f.alice},
	})
	require.NoError(t, err)

	require.Len(t, updated.Splits, 2)
	assert.Equal(t, int64(500), updated.Splits[0].ShareCents)
	assert.Equal(t, int64(500), updated.Splits[1].ShareCents)
}

func TestEditPermissions(t *testing.T) {
	f := newFixture()
	res := f.create(t, "10.00", f.payer, f.alice)
	ctx := context.Background()
	desc := "new"

	_, err := f.svc.Edit(ctx, res.Expense.ID, f.alice, EditInput{Description: &desc})
	assert.ErrorIs(t, err, ErrEditForbidden)

	// trip owner may edit anyone's expense
	_, err = f.svc.Edit(ctx, res.Expense.ID, f.owner, EditInput{Description: &desc})
	assert.NoError(t, err)
}

func TestEditConflicts(t *testing.T) {
	f := newFixture()
	res := f.create(t, "10.00", f.payer, f.alice)
	ctx := context.Background()
	desc := "new"

	f.store.expenses[res.Expense.ID].IsLocked = true
	_, err := f.svc.Edit(ctx, res.Expense.ID, f.payer, EditInput{Description: &desc})
	assert.ErrorIs(t, err, ErrExpenseLocked)

	f.store.expenses[res.Expense.ID].IsLocked = false
	f.store.expenses[res.Expense.ID].Status = StatusVoid
	_, err = f.svc.Edit(ctx, res.Expense.ID, f.payer, EditInput{Description: &desc})
	assert.ErrorIs(t, err, ErrExpenseNotActive)
}

func TestVoidWindow(t *testing.T) {
	f := newFixture()
	res := f.create(t, "10.00", f.payer, f.alice)
	ctx := context.Background()
	created := res.Expense.CreatedAt

	// creator inside the window
	f.svc.now = func() time.Time { return created.Add(14*time.Minute + 59*time.Second) }
	voided, err := f.svc.Void(ctx, res.Expense.ID, f.payer)
	require.NoError(t, err)
	assert.Equal(t, StatusVoid, voided.Status)
	require.NotNil(t, voided.VoidedBy)
	assert.Equal(t, f.payer, *voided.VoidedBy)

	// creator one second past the window
	res2 := f.create(t, "10.00", f.payer, f.alice)
	f.svc.now = func() time.Time { return res2.Expense.CreatedAt.Add(15*time.Minute + time.Second) }
	_, err = f.svc.Void(ctx, res2.Expense.ID, f.payer)
	assert.ErrorIs(t, err, ErrVoidWindowExpired)

	// trip owner is not bound by the window
	_, err = f.svc.Void(ctx, res2.Expense.ID, f.owner)
	assert.NoError(t, err)

	// a stranger who is neither creator nor owner can never void
	res3 := f.create(t, "10.00", f.payer, f.alice)
	f.svc.now = time.Now
	_, err = f.svc.Void(ctx, res3.Expense.ID, f.alice)
	assert.ErrorIs(t, err, ErrVoidForbidden)
}

func TestVoidConflicts(t *testing.T) {
	f := newFixture()
	res := f.create(t, "10.00", f.payer, f.alice)
	ctx := context.Background()

	f.store.expenses[res.Expense.ID].IsLocked = true
	_, err := f.svc.Void(ctx, res.Expense.ID, f.owner)
	assert.ErrorIs(t, err, ErrExpenseLocked)

	f.store.expenses[res.Expense.ID].IsLocked = false
	f.store.expenses[res.Expense.ID].Status = StatusVoid
	_, err = f.svc.Void(ctx, res.Expense.ID, f.owner)
	assert.ErrorIs(t, err, ErrExpenseNotActive)
}

func TestListByTripExcludesVoidByDefault(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res1 := f.create(t, "10.00", f.payer, f.alice)
	f.create(t, "20.00", f.payer, f.alice)

	_, err := f.svc.Void(ctx, res1.Expense.ID, f.owner)
	require.NoError(t, err)

	active, err := f.svc.ListByTrip(ctx, f.tripID, f.alice, false)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := f.svc.ListByTrip(ctx, f.tripID, f.alice, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.ListByTrip(ctx, f.tripID, f.outside, false)
	assert.ErrorIs(t, err, ErrNotTripMember)
}

func TestVoidRecordsAudit(t *testing.T) {
	f := newFixture()
	res := f.create(t, "10.00", f.payer, f.alice)

	_, err := f.svc.Void(context.Background(), res.Expense.ID, f.owner)
	require.NoError(t, err)

	audits := f.store.audits[res.Expense.ID]
	require.Len(t, audits, 2)
	assert.Equal(t, AuditExpenseVoided, audits[1].Action)
	assert.Equal(t, string(StatusActive), audits[1].OldValues["status"])
	assert.Equal(t, string(StatusVoid), audits[1].NewValues["status"])
}
