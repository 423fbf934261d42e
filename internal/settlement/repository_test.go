package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryMarkPaidCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	settlementID := uuid.New()
	expenseID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT e.id, e.is_locked`).
		WithArgs(settlementID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_locked"}).AddRow(expenseID, false))
	mock.ExpectExec(`UPDATE settlements SET status = 'PAID'`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE expenses SET is_locked = TRUE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.MarkPaid(context.Background(), settlementID, time.Now())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryMarkPaidRejectsEmptySettlement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	settlementID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT e.id, e.is_locked`).
		WithArgs(settlementID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_locked"}))
	mock.ExpectRollback()

	err = repo.MarkPaid(context.Background(), settlementID, time.Now())
	assert.ErrorIs(t, err, ErrNoLinkedExpenses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryMarkPaidRejectsDoubleSettle(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	settlementID := uuid.New()
	expenseID := uuid.New()

	// the linked expense is locked and another PAID settlement claims it,
	// so nothing may be written
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT e.id, e.is_locked`).
		WithArgs(settlementID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_locked"}).AddRow(expenseID, true))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(expenseID, settlementID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err = repo.MarkPaid(context.Background(), settlementID, time.Now())
	assert.ErrorIs(t, err, ErrExpenseAlreadySettled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryMarkPaidRejectsNonPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	settlementID := uuid.New()
	expenseID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT e.id, e.is_locked`).
		WithArgs(settlementID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_locked"}).AddRow(expenseID, false))
	mock.ExpectExec(`UPDATE settlements SET status = 'PAID'`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = repo.MarkPaid(context.Background(), settlementID, time.Now())
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateSettlementCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	stl := &Settlement{
		ID:        uuid.New(),
		TripID:    uuid.New(),
		CreatedBy: uuid.New(),
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	expenseIDs := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO settlements`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO settlement_expenses`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO settlement_expenses`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.CreateSettlement(context.Background(), stl, expenseIDs)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
