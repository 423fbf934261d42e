package expense

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wanderly/tripmate/internal/expense/split"
)

// VoidWindow is how long the creator of an expense may void it themselves.
// The trip owner is not bound by it.
const VoidWindow = 15 * time.Minute

// Common errors
var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrTripNotFound    = errors.New("trip not found")

	// authorization
	ErrNotTripParticipant = errors.New("you must be an accepted participant or the trip owner")
	ErrNotTripMember      = errors.New("you must be a trip participant to view expenses")
	ErrEditForbidden      = errors.New("you don't have permission to edit this expense")
	ErrVoidForbidden      = errors.New("you don't have permission to void this expense")
	ErrVoidWindowExpired  = errors.New("the void window for this expense has expired")

	// validation
	ErrPayerNotAccepted       = errors.New("payer must be an accepted trip participant")
	ErrParticipantNotAccepted = errors.New("user is not an accepted trip participant")
	ErrDuplicateParticipant   = errors.New("participant list contains duplicates")
	ErrPayerNotInParticipants = errors.New("payer_user_id must be included in participant_user_ids")
	ErrInvalidExpenseType     = errors.New("type must be NORMAL or ADJUSTMENT")
	ErrAdjustsNotFound        = errors.New("adjusted expense not found")
	ErrAdjustsTripMismatch    = errors.New("adjusted expense must belong to the same trip")

	// state conflicts
	ErrExpenseLocked    = errors.New("expense is locked by a paid settlement")
	ErrExpenseNotActive = errors.New("expense is not active")

	// internal invariant violations; never shown to clients as their fault
	ErrSplitSumMismatch = errors.New("split calculation error: shares don't sum to total")
)

// Store is the persistence port for expenses. Mutating methods persist the
// expense, its splits and the audit entry as one transaction.
type Store interface {
	GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error)
	GetSplits(ctx context.Context, expenseID uuid.UUID) ([]*Split, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID, includeVoid bool) ([]*Expense, error)
	ListAudit(ctx context.Context, expenseID uuid.UUID) ([]*AuditEntry, error)

	CreateExpense(ctx context.Context, e *Expense, splits []*Split, audit *AuditEntry) error
	// UpdateExpense reconciles stored splits against the given set; a nil
	// splits slice leaves the existing rows untouched.
	UpdateExpense(ctx context.Context, e *Expense, splits []*Split, audit *AuditEntry) error
	VoidExpense(ctx context.Context, e *Expense, audit *AuditEntry) error
}

// TripDirectory answers membership questions about trips
type TripDirectory interface {
	TripExists(ctx context.Context, tripID uuid.UUID) (bool, error)
	IsOwner(ctx context.Context, tripID, userID uuid.UUID) (bool, error)
	IsAcceptedParticipant(ctx context.Context, tripID, userID uuid.UUID) (bool, error)
	IsMember(ctx context.Context, tripID, userID uuid.UUID) (bool, error)
}

// Service handles expense business logic
type Service struct {
	store Store
	trips TripDirectory
	now   func() time.Time
}

// NewService creates a new expense service with dependencies injected
func NewService(store Store, trips TripDirectory) *Service {
	return &Service{
		store: store,
		trips: trips,
		now:   time.Now,
	}
}

// CreateInput carries a validated create request into the service
type CreateInput struct {
	TripID           uuid.UUID
	PayerID          uuid.UUID
	ParticipantIDs   []uuid.UUID
	Amount           string
	Description      *string
	Type             Type
	AdjustsExpenseID *uuid.UUID
}

// EditInput is a partial patch; nil fields are left untouched
type EditInput struct {
	Amount         *string
	Description    *string
	PayerID        *uuid.UUID
	ParticipantIDs []uuid.UUID
	Reason         *string
}

// Create validates and persists a new expense with equal splits and an
// EXPENSE_CREATED audit entry.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, in CreateInput) (*ExpenseWithSplits, error) {
	exists, err := s.trips.TripExists(ctx, in.TripID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrTripNotFound
	}

	if err := s.requireOwnerOrAccepted(ctx, in.TripID, actor); err != nil {
		return nil, err
	}

	if in.Type == "" {
		in.Type = TypeNormal
	}
	if in.Type != TypeNormal && in.Type != TypeAdjustment {
		return nil, ErrInvalidExpenseType
	}

	payerIndex, err := s.validateParticipants(ctx, in.TripID, in.PayerID, in.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	amountCents, err := ParseAmount(in.Amount)
	if err != nil {
		return nil, err
	}

	if in.AdjustsExpenseID != nil {
		adjusted, err := s.store.GetExpense(ctx, *in.AdjustsExpenseID)
		if err != nil {
			return nil, err
		}
		if adjusted == nil {
			return nil, ErrAdjustsNotFound
		}
		if adjusted.TripID != in.TripID {
			return nil, ErrAdjustsTripMismatch
		}
	}

	shares, err := split.Equal(amountCents, len(in.ParticipantIDs), payerIndex)
	if err != nil {
		return nil, err
	}
	if err := verifyShareSum(shares, amountCents); err != nil {
		return nil, err
	}

	now := s.now()
	exp := &Expense{
		ID:               uuid.New(),
		TripID:           in.TripID,
		CreatedBy:        actor,
		PayerID:          in.PayerID,
		AmountCents:      amountCents,
		Description:      in.Description,
		Type:             in.Type,
		AdjustsExpenseID: in.AdjustsExpenseID,
		Status:           StatusActive,
		IsLocked:         false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	splits := make([]*Split, len(in.ParticipantIDs))
	for i, userID := range in.ParticipantIDs {
		splits[i] = &Split{
			ID:         uuid.New(),
			ExpenseID:  exp.ID,
			UserID:     userID,
			ShareCents: shares[i],
			CreatedAt:  now,
		}
	}

	audit := &AuditEntry{
		ID:        uuid.New(),
		ExpenseID: exp.ID,
		ActorID:   actor,
		Action:    AuditExpenseCreated,
		NewValues: snapshot(exp, in.ParticipantIDs),
		CreatedAt: now,
	}

	if err := s.store.CreateExpense(ctx, exp, splits, audit); err != nil {
		return nil, err
	}

	return &ExpenseWithSplits{Expense: exp, Splits: splits}, nil
}

// Edit applies a partial patch to an unlocked ACTIVE expense. Shares are
// recomputed whenever amount, payer or participants change so that the
// sum(share_cents) == amount_cents invariant holds; a description-only edit
// touches neither the amount nor the splits.
func (s *Service) Edit(ctx context.Context, expenseID, actor uuid.UUID, in EditInput) (*ExpenseWithSplits, error) {
	exp, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, ErrExpenseNotFound
	}
	if exp.IsLocked {
		return nil, ErrExpenseLocked
	}
	if exp.Status != StatusActive {
		return nil, ErrExpenseNotActive
	}

	isOwner, err := s.trips.IsOwner(ctx, exp.TripID, actor)
	if err != nil {
		return nil, err
	}
	if actor != exp.CreatedBy && !isOwner {
		return nil, ErrEditForbidden
	}

	oldSplits, err := s.store.GetSplits(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	oldParticipants := make([]uuid.UUID, len(oldSplits))
	for i, sp := range oldSplits {
		oldParticipants[i] = sp.UserID
	}
	oldValues := snapshot(exp, oldParticipants)

	recalc := false
	if in.Amount != nil {
		amountCents, err := ParseAmount(*in.Amount)
		if err != nil {
			return nil, err
		}
		exp.AmountCents = amountCents
		recalc = true
	}
	if in.Description != nil {
		exp.Description = in.Description
	}
	if in.PayerID != nil {
		accepted, err := s.trips.IsAcceptedParticipant(ctx, exp.TripID, *in.PayerID)
		if err != nil {
			return nil, err
		}
		if !accepted {
			return nil, ErrPayerNotAccepted
		}
		exp.PayerID = *in.PayerID
		recalc = true
	}

	participants := oldParticipants
	if in.ParticipantIDs != nil {
		if _, err := s.validateParticipants(ctx, exp.TripID, exp.PayerID, in.ParticipantIDs); err != nil {
			return nil, err
		}
		participants = in.ParticipantIDs
		recalc = true
	}

	var newSplits []*Split
	if recalc {
		payerIndex := indexOf(participants, exp.PayerID)
		if payerIndex < 0 {
			return nil, ErrPayerNotInParticipants
		}
		shares, err := split.Equal(exp.AmountCents, len(participants), payerIndex)
		if err != nil {
			return nil, err
		}
		if err := verifyShareSum(shares, exp.AmountCents); err != nil {
			return nil, err
		}

		now := s.now()
		newSplits = make([]*Split, len(participants))
		for i, userID := range participants {
			newSplits[i] = &Split{
				ID:         uuid.New(),
				ExpenseID:  exp.ID,
				UserID:     userID,
				ShareCents: shares[i],
				CreatedAt:  now,
			}
		}
	}

	exp.UpdatedAt = s.now()

	audit := &AuditEntry{
		ID:        uuid.New(),
		ExpenseID: exp.ID,
		ActorID:   actor,
		Action:    AuditExpenseEdited,
		OldValues: oldValues,
		NewValues: snapshot(exp, participants),
		Reason:    in.Reason,
		CreatedAt: exp.UpdatedAt,
	}

	if err := s.store.UpdateExpense(ctx, exp, newSplits, audit); err != nil {
		return nil, err
	}

	splits := newSplits
	if splits == nil {
		splits = oldSplits
	}
	return &ExpenseWithSplits{Expense: exp, Splits: splits}, nil
}

// Void marks an ACTIVE, unlocked expense as VOID. The trip owner may void at
// any time; the creator only within VoidWindow of creation.
func (s *Service) Void(ctx context.Context, expenseID, actor uuid.UUID) (*Expense, error) {
	exp, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, ErrExpenseNotFound
	}
	if exp.IsLocked {
		return nil, ErrExpenseLocked
	}
	if exp.Status != StatusActive {
		return nil, ErrExpenseNotActive
	}

	now := s.now()
	isOwner, err := s.trips.IsOwner(ctx, exp.TripID, actor)
	if err != nil {
		return nil, err
	}
	if !isOwner {
		if actor != exp.CreatedBy {
			return nil, ErrVoidForbidden
		}
		if now.Sub(exp.CreatedAt) > VoidWindow {
			return nil, ErrVoidWindowExpired
		}
	}

	exp.Status = StatusVoid
	exp.VoidedAt = &now
	exp.VoidedBy = &actor
	exp.UpdatedAt = now

	audit := &AuditEntry{
		ID:        uuid.New(),
		ExpenseID: exp.ID,
		ActorID:   actor,
		Action:    AuditExpenseVoided,
		OldValues: map[string]any{"status": string(StatusActive)},
		NewValues: map[string]any{"status": string(StatusVoid)},
		CreatedAt: now,
	}

	if err := s.store.VoidExpense(ctx, exp, audit); err != nil {
		return nil, err
	}
	return exp, nil
}

// GetByID retrieves an expense with its splits; the actor must belong to the trip
func (s *Service) GetByID(ctx context.Context, expenseID, actor uuid.UUID) (*ExpenseWithSplits, error) {
	exp, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, ErrExpenseNotFound
	}
	if err := s.requireMembership(ctx, exp.TripID, actor); err != nil {
		return nil, err
	}

	splits, err := s.store.GetSplits(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	return &ExpenseWithSplits{Expense: exp, Splits: splits}, nil
}

// ListByTrip retrieves a trip's expenses, newest first. Voided expenses are
// excluded unless includeVoid is set.
func (s *Service) ListByTrip(ctx context.Context, tripID, actor uuid.UUID, includeVoid bool) ([]*ExpenseWithSplits, error) {
	exists, err := s.trips.TripExists(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrTripNotFound
	}
	if err := s.requireMembership(ctx, tripID, actor); err != nil {
		return nil, err
	}

	expenses, err := s.store.ListByTrip(ctx, tripID, includeVoid)
	if err != nil {
		return nil, err
	}

	result := make([]*ExpenseWithSplits, len(expenses))
	for i, exp := range expenses {
		splits, err := s.store.GetSplits(ctx, exp.ID)
		if err != nil {
			return nil, err
		}
		result[i] = &ExpenseWithSplits{Expense: exp, Splits: splits}
	}
	return result, nil
}

// ListAudit returns the append-only audit trail of an expense
func (s *Service) ListAudit(ctx context.Context, expenseID, actor uuid.UUID) ([]*AuditEntry, error) {
	exp, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, ErrExpenseNotFound
	}
	if err := s.requireMembership(ctx, exp.TripID, actor); err != nil {
		return nil, err
	}
	return s.store.ListAudit(ctx, expenseID)
}

// requireOwnerOrAccepted checks the actor may transact on the trip
func (s *Service) requireOwnerOrAccepted(ctx context.Context, tripID, actor uuid.UUID) error {
	isOwner, err := s.trips.IsOwner(ctx, tripID, actor)
	if err != nil {
		return err
	}
	if isOwner {
		return nil
	}
	accepted, err := s.trips.IsAcceptedParticipant(ctx, tripID, actor)
	if err != nil {
		return err
	}
	if !accepted {
		return ErrNotTripParticipant
	}
	return nil
}

// requireMembership checks the actor may view the trip's expenses
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

// validateParticipants checks payer and every participant are accepted trip
// participants, rejects duplicates, and returns the payer's position.
func (s *Service) validateParticipants(ctx context.Context, tripID, payerID uuid.UUID, participants []uuid.UUID) (int, error) {
	accepted, err := s.trips.IsAcceptedParticipant(ctx, tripID, payerID)
	if err != nil {
		return 0, err
	}
	if !accepted {
		return 0, ErrPayerNotAccepted
	}

	seen := make(map[uuid.UUID]struct{}, len(participants))
	for _, userID := range participants {
		if _, dup := seen[userID]; dup {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateParticipant, userID)
		}
		seen[userID] = struct{}{}

		ok, err := s.trips.IsAcceptedParticipant(ctx, tripID, userID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrParticipantNotAccepted, userID)
		}
	}

	payerIndex := indexOf(participants, payerID)
	if payerIndex < 0 {
		return 0, ErrPayerNotInParticipants
	}
	return payerIndex, nil
}

// snapshot captures the audited fields of an expense as an opaque map
func snapshot(e *Expense, participants []uuid.UUID) map[string]any {
	ids := make([]string, len(participants))
	for i, id := range participants {
		ids[i] = id.String()
	}
	m := map[string]any{
		"amount_cents":         e.AmountCents,
		"payer_user_id":        e.PayerID.String(),
		"participant_user_ids": ids,
	}
	if e.Description != nil {
		m["description"] = *e.Description
	}
	return m
}

func verifyShareSum(shares []int64, amountCents int64) error {
	var sum int64
	for _, s := range shares {
		sum += s
	}
	if sum != amountCents {
		return fmt.Errorf("%w: got %d, want %d", ErrSplitSumMismatch, sum, amountCents)
	}
	return nil
}

func indexOf(ids []uuid.UUID, target uuid.UUID) int {
	for i, id := range ids {
		if id == target {
			return i
		}
	}
	return -1
}
