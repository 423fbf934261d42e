package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wanderly/tripmate/internal/expense"
)

// Common errors
var (
	ErrSettlementNotFound = errors.New("settlement not found")
	ErrExpenseNotFound    = errors.New("expense not found")
	ErrTripNotFound       = errors.New("trip not found")

	// validation
	ErrNoExpenses   = errors.New("at least one expense ID is required")
	ErrTripMismatch = errors.New("all expenses must belong to the same trip")

	// authorization
	ErrNotTripParticipant = errors.New("you must be an accepted participant to create settlements")
	ErrNotTripMember      = errors.New("you must be a trip participant to view settlements")
	ErrNotTripOwner       = errors.New("only the trip owner can mark settlements as paid")

	// state conflicts
	ErrExpenseNotActive      = errors.New("all expenses must be active")
	ErrAlreadyPaid           = errors.New("settlement is already marked as paid")
	ErrNoLinkedExpenses      = errors.New("settlement has no linked expenses")
	ErrExpenseAlreadySettled = errors.New("expense is already locked in another paid settlement")
)

// Store is the persistence port for settlements. MarkPaid performs the
// validate-then-lock sequence as one atomic transaction: it re-validates
// every linked expense under row locks, flips the settlement to PAID and
// locks all linked expenses, or changes nothing at all.
type Store interface {
	GetSettlement(ctx context.Context, id uuid.UUID) (*Settlement, error)
	GetExpenseIDs(ctx context.Context, settlementID uuid.UUID) ([]uuid.UUID, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]*Settlement, error)
	CreateSettlement(ctx context.Context, s *Settlement, expenseIDs []uuid.UUID) error
	MarkPaid(ctx context.Context, settlementID uuid.UUID, paidAt time.Time) error
}

// ExpenseReader reads expenses for settlement validation
type ExpenseReader interface {
	GetExpense(ctx context.Context, id uuid.UUID) (*expense.Expense, error)
}

// TripDirectory answers membership questions about trips
type TripDirectory interface {
	IsOwner(ctx context.Context, tripID, userID uuid.UUID) (bool, error)
	IsAcceptedParticipant(ctx context.Context, tripID, userID uuid.UUID) (bool, error)
	IsMember(ctx context.Context, tripID, userID uuid.UUID) (bool, error)
}

// Service handles settlement business logic
type Service struct {
	store    Store
	expenses ExpenseReader
	trips    TripDirectory
	now      func() time.Time
}

// NewService creates a new settlement service
func NewService(store Store, expenses ExpenseReader, trips TripDirectory) *Service {
	return &Service{
		store:    store,
		expenses: expenses,
		trips:    trips,
		now:      time.Now,
	}
}

// Create validates the expense set and persists a PENDING settlement linking
// them. All expenses must exist, be ACTIVE and belong to one trip; the actor
// must be an accepted participant of that trip.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, expenseIDs []uuid.UUID) (*SettlementWithExpenses, error) {
	if len(expenseIDs) == 0 {
		return nil, ErrNoExpenses
	}

	var tripID uuid.UUID
	for i, id := range expenseIDs {
		exp, err := s.expenses.GetExpense(ctx, id)
		if err != nil {
			return nil, err
		}
		if exp == nil {
			return nil, fmt.Errorf("%w: %s", ErrExpenseNotFound, id)
		}
		if i == 0 {
			tripID = exp.TripID
		} else if exp.TripID != tripID {
			return nil, ErrTripMismatch
		}
		if exp.Status != expense.StatusActive {
			return nil, fmt.Errorf("%w: %s", ErrExpenseNotActive, id)
		}
	}

	accepted, err := s.trips.IsAcceptedParticipant(ctx, tripID, actor)
	if err != nil {
		return nil, err
	}
	if !accepted {
		return nil, ErrNotTripParticipant
	}

	stl := &Settlement{
		ID:        uuid.New(),
		TripID:    tripID,
		CreatedBy: actor,
		Status:    StatusPending,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateSettlement(ctx, stl, expenseIDs); err != nil {
		return nil, err
	}

	return &SettlementWithExpenses{Settlement: stl, ExpenseIDs: expenseIDs}, nil
}

// MarkPaid transitions a PENDING settlement to PAID and locks every linked
// expense as one all-or-nothing unit. Only the trip owner may do this.
func (s *Service) MarkPaid(ctx context.Context, settlementID, actor uuid.UUID) (*SettlementWithExpenses, error) {
	stl, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if stl == nil {
		return nil, ErrSettlementNotFound
	}
	if stl.Status != StatusPending {
		return nil, ErrAlreadyPaid
	}

	isOwner, err := s.trips.IsOwner(ctx, stl.TripID, actor)
	if err != nil {
		return nil, err
	}
	if !isOwner {
		return nil, ErrNotTripOwner
	}

	paidAt := s.now()
	if err := s.store.MarkPaid(ctx, settlementID, paidAt); err != nil {
		return nil, err
	}

	stl.Status = StatusPaid
	stl.PaidAt = &paidAt

	expenseIDs, err := s.store.GetExpenseIDs(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	return &SettlementWithExpenses{Settlement: stl, ExpenseIDs: expenseIDs}, nil
}

// GetByID retrieves a settlement with its linked expense IDs
func (s *Service) GetByID(ctx context.Context, settlementID, actor uuid.UUID) (*SettlementWithExpenses, error) {
	stl, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if stl == nil {
		return nil, ErrSettlementNotFound
	}
	if err := s.requireMembership(ctx, stl.TripID, actor); err != nil {
		return nil, err
	}

	expenseIDs, err := s.store.GetExpenseIDs(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	return &SettlementWithExpenses{Settlement: stl, ExpenseIDs: expenseIDs}, nil
}

// ListByTrip retrieves a trip's settlements, newest first
func (s *Service) ListByTrip(ctx context.Context, tripID, actor uuid.UUID) ([]*SettlementWithExpenses, error) {
	if err := s.requireMembership(ctx, tripID, actor); err != nil {
		return nil, err
	}

	settlements, err := s.store.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	result := make([]*SettlementWithExpenses, len(settlements))
	for i, stl := range settlements {
		expenseIDs, err := s.store.GetExpenseIDs(ctx, stl.ID)
		if err != nil {
			return nil, err
		}
		result[i] = &SettlementWithExpenses{Settlement: stl, ExpenseIDs: expenseIDs}
	}
	return result, nil
}

func (s *Service) requireMembership(ctx context.Context, tripID, actor uuid.UUID) error {
	isOwner, err := s.trips.IsOwner(ctx, tripID, actor)
	if err != nil {
		return err
	}
	if isOwner {
		return nil
	}
	member, err := s.trips.IsMember(ctx, tripID, actor)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotTripMember
	}
	return nil
}
