package settlement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderly/tripmate/internal/expense"
)

// world is shared in-memory state for expense and settlement fakes so tests
// can exercise the full settle-then-lock flow across both services.
type world struct {
	mu          sync.Mutex
	expenses    map[uuid.UUID]*expense.Expense
	splits      map[uuid.UUID][]*expense.Split
	audits      map[uuid.UUID][]*expense.AuditEntry
	settlements map[uuid.UUID]*Settlement
	links       map[uuid.UUID][]uuid.UUID
}

func newWorld() *world {
	return &world{
		expenses:    make(map[uuid.UUID]*expense.Expense),
		splits:      make(map[uuid.UUID][]*expense.Split),
		audits:      make(map[uuid.UUID][]*expense.AuditEntry),
		settlements: make(map[uuid.UUID]*Settlement),
		links:       make(map[uuid.UUID][]uuid.UUID),
	}
}

type expenseStore struct{ w *world }

func (s *expenseStore) GetExpense(ctx context.Context, id uuid.UUID) (*expense.Expense, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	exp, ok := s.w.expenses[id]
	if !ok {
		return nil, nil
	}
	cp := *exp
	return &cp, nil
}

func (s *expenseStore) GetSplits(ctx context.Context, expenseID uuid.UUID) ([]*expense.Split, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	return append([]*expense.Split(nil), s.w.splits[expenseID]...), nil
}

func (s *expenseStore) ListByTrip(ctx context.Context, tripID uuid.UUID, includeVoid bool) ([]*expense.Expense, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var out []*expense.Expense
	for _, exp := range s.w.expenses {
		if exp.TripID != tripID {
			continue
		}
		if !includeVoid && exp.Status != expense.StatusActive {
			continue
		}
		cp := *exp
		out = append(out, &cp)
	}
	return out, nil
}

func (s *expenseStore) ListAudit(ctx context.Context, expenseID uuid.UUID) ([]*expense.AuditEntry, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	return append([]*expense.AuditEntry(nil), s.w.audits[expenseID]...), nil
}

func (s *expenseStore) CreateExpense(ctx context.Context, e *expense.Expense, splits []*expense.Split, audit *expense.AuditEntry) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	cp := *e
	s.w.expenses[e.ID] = &cp
	s.w.splits[e.ID] = splits
	s.w.audits[e.ID] = append(s.w.audits[e.ID], audit)
	return nil
}

func (s *expenseStore) UpdateExpense(ctx context.Context, e *expense.Expense, splits []*expense.Split, audit *expense.AuditEntry) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	stored, ok := s.w.expenses[e.ID]
	if !ok || stored.IsLocked || stored.Status != expense.StatusActive {
		return expense.ErrExpenseLocked
	}
	cp := *e
	s.w.expenses[e.ID] = &cp
	if splits != nil {
		s.w.splits[e.ID] = splits
	}
	s.w.audits[e.ID] = append(s.w.audits[e.ID], audit)
	return nil
}

func (s *expenseStore) VoidExpense(ctx context.Context, e *expense.Expense, audit *expense.AuditEntry) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	stored, ok := s.w.expenses[e.ID]
	if !ok || stored.IsLocked || stored.Status != expense.StatusActive {
		return expense.ErrExpenseLocked
	}
	cp := *e
	s.w.expenses[e.ID] = &cp
	s.w.audits[e.ID] = append(s.w.audits[e.ID], audit)
	return nil
}

type settlementStore struct{ w *world }

func (s *settlementStore) GetSettlement(ctx context.Context, id uuid.UUID) (*Settlement, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	stl, ok := s.w.settlements[id]
	if !ok {
		return nil, nil
	}
	cp := *stl
	return &cp, nil
}

func (s *settlementStore) GetExpenseIDs(ctx context.Context, settlementID uuid.UUID) ([]uuid.UUID, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	return append([]uuid.UUID(nil), s.w.links[settlementID]...), nil
}

func (s *settlementStore) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]*Settlement, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var out []*Settlement
	for _, stl := range s.w.settlements {
		if stl.TripID == tripID {
			cp := *stl
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *settlementStore) CreateSettlement(ctx context.Context, stl *Settlement, expenseIDs []uuid.UUID) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	cp := *stl
	s.w.settlements[stl.ID] = &cp
	s.w.links[stl.ID] = append([]uuid.UUID(nil), expenseIDs...)
	return nil
}

// MarkPaid mirrors the repository contract: validate every linked expense
// first, then flip the settlement and lock all expenses, or change nothing.
func (s *settlementStore) MarkPaid(ctx context.Context, settlementID uuid.UUID, paidAt time.Time) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()

	ids := s.w.links[settlementID]
	if len(ids) == 0 {
		return ErrNoLinkedExpenses
	}
	for _, id := range ids {
		exp, ok := s.w.expenses[id]
		if !ok {
			return ErrExpenseNotFound
		}
		if exp.IsLocked && s.lockedByOtherPaid(id, settlementID) {
			return ErrExpenseAlreadySettled
		}
	}

	stl, ok := s.w.settlements[settlementID]
	if !ok || stl.Status != StatusPending {
		return ErrAlreadyPaid
	}
	stl.Status = StatusPaid
	stl.PaidAt = &paidAt
	for _, id := range ids {
		s.w.expenses[id].IsLocked = true
	}
	return nil
}

func (s *settlementStore) lockedByOtherPaid(expenseID, settlementID uuid.UUID) bool {
	for otherID, otherExpenses := range s.w.links {
		if otherID == settlementID || s.w.settlements[otherID].Status != StatusPaid {
			continue
		}
		for _, id := range otherExpenses {
			if id == expenseID {
				return true
			}
		}
	}
	return false
}

type fakeDirectory struct {
	tripID   uuid.UUID
	owner    uuid.UUID
	accepted map[uuid.UUID]bool
	members  map[uuid.UUID]bool
}

func (d *fakeDirectory) TripExists(ctx context.Context, tripID uuid.UUID) (bool, error) {
	return tripID == d.tripID, nil
}

func (d *fakeDirectory) IsOwner(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	return tripID == d.tripID && userID == d.owner, nil
}

func (d *fakeDirectory) IsAcceptedParticipant(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	return tripID == d.tripID && d.accepted[userID], nil
}

func (d *fakeDirectory) IsMember(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	return tripID == d.tripID && d.members[userID], nil
}

type fixture struct {
	w       *world
	exps    *expense.Service
	svc     *Service
	tripID  uuid.UUID
	owner   uuid.UUID
	alice   uuid.UUID
	bob     uuid.UUID
	outside uuid.UUID
}

func newFixture() *fixture {
	w := newWorld()
	tripID := uuid.New()
	owner := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	dir := &fakeDirectory{
		tripID:   tripID,
		owner:    owner,
		accepted: map[uuid.UUID]bool{owner: true, alice: true, bob: true},
		members:  map[uuid.UUID]bool{owner: true, alice: true, bob: true},
	}
	es := &expenseStore{w: w}

	return &fixture{
		w:       w,
		exps:    expense.NewService(es, dir),
		svc:     NewService(&settlementStore{w: w}, es, dir),
		tripID:  tripID,
		owner:   owner,
		alice:   alice,
		bob:     bob,
		outside: uuid.New(),
	}
}

func (f *fixture) createExpense(t *testing.T, amount string) *expense.ExpenseWithSplits {
	t.Helper()
	res, err := f.exps.Create(context.Background(), f.alice, expense.CreateInput{
		TripID:         f.tripID,
		PayerID:        f.alice,
		ParticipantIDs: []uuid.UUID{f.alice, f.bob},
		Amount:         amount,
	})
	require.NoError(t, err)
	return res
}

func TestCreateSettlement(t *testing.T) {
	f := newFixture()
	e1 := f.createExpense(t, "12.50")
	e2 := f.createExpense(t, "8")

	res, err := f.svc.Create(context.Background(), f.alice, []uuid.UUID{e1.Expense.ID, e2.Expense.ID})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, res.Settlement.Status)
	assert.Equal(t, f.tripID, res.Settlement.TripID)
	assert.Equal(t, f.alice, res.Settlement.CreatedBy)
	assert.Nil(t, res.Settlement.PaidAt)
	assert.Equal(t, []uuid.UUID{e1.Expense.ID, e2.Expense.ID}, res.ExpenseIDs)
}

func TestCreateSettlementValidation(t *testing.T) {
	f := newFixture()
	e1 := f.createExpense(t, "10.00")

	t.Run("empty expense list", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), f.alice, nil)
		assert.ErrorIs(t, err, ErrNoExpenses)
	})

	t.Run("unknown expense", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), f.alice, []uuid.UUID{uuid.New()})
		assert.ErrorIs(t, err, ErrExpenseNotFound)
	})

	t.Run("voided expense", func(t *testing.T) {
		voided := f.createExpense(t, "3.00")
		_, err := f.exps.Void(context.Background(), voided.Expense.ID, f.alice)
		require.NoError(t, err)

		_, err = f.svc.Create(context.Background(), f.alice, []uuid.UUID{voided.Expense.ID})
		assert.ErrorIs(t, err, ErrExpenseNotActive)
	})

	t.Run("actor not accepted", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), f.outside, []uuid.UUID{e1.Expense.ID})
		assert.ErrorIs(t, err, ErrNotTripParticipant)
	})
}

func TestMarkPaidLocksExpenses(t *testing.T) {
	f := newFixture()
	exp := f.createExpense(t, "12.50")

	stl, err := f.svc.Create(context.Background(), f.alice, []uuid.UUID{exp.Expense.ID})
	require.NoError(t, err)

	paid, err := f.svc.MarkPaid(context.Background(), stl.Settlement.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Settlement.Status)
	require.NotNil(t, paid.Settlement.PaidAt)
	assert.Equal(t, []uuid.UUID{exp.Expense.ID}, paid.ExpenseIDs)

	// the locked expense can no longer be edited or voided, not even by the owner
	newAmount := "20.00"
	_, err = f.exps.Edit(context.Background(), exp.Expense.ID, f.alice, expense.EditInput{Amount: &newAmount})
	assert.ErrorIs(t, err, expense.ErrExpenseLocked)

	_, err = f.exps.Void(context.Background(), exp.Expense.ID, f.owner)
	assert.ErrorIs(t, err, expense.ErrExpenseLocked)
}

func TestMarkPaidPermissions(t *testing.T) {
	f := newFixture()
	exp := f.createExpense(t, "5.00")
	stl, err := f.svc.Create(context.Background(), f.alice, []uuid.UUID{exp.Expense.ID})
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(context.Background(), stl.Settlement.ID, f.alice)
	assert.ErrorIs(t, err, ErrNotTripOwner)

	_, err = f.svc.MarkPaid(context.Background(), stl.Settlement.ID, f.owner)
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(context.Background(), stl.Settlement.ID, f.owner)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestMarkPaidAllOrNothing(t *testing.T) {
	f := newFixture()
	shared := f.createExpense(t, "10.00")
	other := f.createExpense(t, "4.00")

	first, err := f.svc.Create(context.Background(), f.alice, []uuid.UUID{shared.Expense.ID})
	require.NoError(t, err)
	second, err := f.svc.Create(context.Background(), f.bob, []uuid.UUID{shared.Expense.ID, other.Expense.ID})
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(context.Background(), first.Settlement.ID, f.owner)
	require.NoError(t, err)

	// the shared expense is already settled, so the second mark-paid must
	// fail without flipping the settlement or locking the other expense
	_, err = f.svc.MarkPaid(context.Background(), second.Settlement.ID, f.owner)
	assert.ErrorIs(t, err, ErrExpenseAlreadySettled)

	got, err := f.svc.GetByID(context.Background(), second.Settlement.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Settlement.Status)

	otherExp, err := f.exps.GetByID(context.Background(), other.Expense.ID, f.owner)
	require.NoError(t, err)
	assert.False(t, otherExp.Expense.IsLocked)
}

func TestSettlementVisibility(t *testing.T) {
	f := newFixture()
	exp := f.createExpense(t, "6.00")
	stl, err := f.svc.Create(context.Background(), f.alice, []uuid.UUID{exp.Expense.ID})
	require.NoError(t, err)

	t.Run("members can read", func(t *testing.T) {
		got, err := f.svc.GetByID(context.Background(), stl.Settlement.ID, f.bob)
		require.NoError(t, err)
		assert.Equal(t, stl.Settlement.ID, got.Settlement.ID)

		list, err := f.svc.ListByTrip(context.Background(), f.tripID, f.owner)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("outsiders cannot", func(t *testing.T) {
		_, err := f.svc.GetByID(context.Background(), stl.Settlement.ID, f.outside)
		assert.ErrorIs(t, err, ErrNotTripMember)

		_, err = f.svc.ListByTrip(context.Background(), f.tripID, f.outside)
		assert.ErrorIs(t, err, ErrNotTripMember)
	})

	t.Run("unknown settlement", func(t *testing.T) {
		_, err := f.svc.GetByID(context.Background(), uuid.New(), f.owner)
		assert.ErrorIs(t, err, ErrSettlementNotFound)
	})
}
