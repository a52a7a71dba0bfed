package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestBalanceRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBalanceRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"student", "amount", "updated_at"}).AddRow("alice", int64(150), now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student, amount, updated_at FROM reward_balances WHERE student = $1")).
		WithArgs("alice").
		WillReturnRows(rows)

	b, err := repo.Get(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, int64(150), b.Amount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepositoryGetMissingRowIsZero(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBalanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT student, amount, updated_at FROM reward_balances WHERE student = $1")).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"student", "amount", "updated_at"}))

	b, err := repo.Get(context.Background(), "bob")
	require.NoError(t, err)
	require.Zero(t, b.Amount)
	require.Equal(t, "bob", b.Student)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepositoryCredit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBalanceRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reward_balances")).
		WithArgs("alice", int64(100), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Credit(context.Background(), db, "alice", 100, now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepositoryDebit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBalanceRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reward_balances SET amount = amount - $2, updated_at = $3 WHERE student = $1 AND amount >= $2")).
		WithArgs("alice", int64(100), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Debit(context.Background(), db, "alice", 100, now))

	// An uncovered debit leaves the row untouched.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reward_balances SET amount = amount - $2")).
		WithArgs("alice", int64(9999), now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Debit(context.Background(), db, "alice", 9999, now)
	require.ErrorIs(t, err, ErrBalanceInsufficient)
	require.NoError(t, mock.ExpectationsWereMet())
}
