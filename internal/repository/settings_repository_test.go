package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"min_passing_grade", "paused", "updated_at"}).AddRow(70, false, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT min_passing_grade, paused, updated_at FROM ledger_settings WHERE id = 1")).
		WillReturnRows(rows)

	s, err := repo.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 70, s.MinPassingGrade)
	require.False(t, s.Paused)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositorySetMinPassingGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ledger_settings SET min_passing_grade = $1, updated_at = $2 WHERE id = 1")).
		WithArgs(85, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetMinPassingGrade(context.Background(), db, 85, now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositorySetPaused(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ledger_settings SET paused = $1, updated_at = $2 WHERE id = 1")).
		WithArgs(true, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetPaused(context.Background(), db, true, now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositoryEnsureSeed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_settings")).
		WithArgs(70, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSeed(context.Background(), 70, now))
	require.NoError(t, mock.ExpectationsWereMet())
}
