package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var assignmentRows = []string{"id", "title", "description", "content_ref", "instructor", "deadline", "reward_amount", "capacity", "submission_count", "active", "kind", "created_at"}

func TestAssignmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now().UTC()
	a := &models.Assignment{
		Title:        "Problem set",
		ContentRef:   "ipfs://QmProblemSet",
		Instructor:   "prof",
		Deadline:     now.Add(48 * time.Hour),
		RewardAmount: 100,
		Capacity:     30,
		Kind:         models.AssignmentKindCode,
		CreatedAt:    now,
	}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO assignments")).
		WithArgs(a.Title, a.Description, a.ContentRef, a.Instructor, a.Deadline, a.RewardAmount, a.Capacity, a.Kind, a.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	require.NoError(t, repo.Create(context.Background(), db, a))
	require.Equal(t, int64(7), a.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(assignmentRows).
		AddRow(int64(7), "Problem set", "", "ipfs://QmProblemSet", "prof", now.Add(time.Hour), int64(100), 30, 3, true, models.AssignmentKindCode, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, content_ref, instructor, deadline, reward_amount, capacity, submission_count, active, kind, created_at FROM assignments WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	a, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "Problem set", a.Title)
	require.Equal(t, 3, a.SubmissionCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryIncrementSubmissionCount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments SET submission_count = submission_count + 1 WHERE id = $1 AND submission_count < capacity")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.IncrementSubmissionCount(context.Background(), db, 7))

	// The guarded update touching zero rows means the assignment is full.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments SET submission_count = submission_count + 1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.IncrementSubmissionCount(context.Background(), db, 7)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments SET active = FALSE WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Deactivate(context.Background(), db, 7))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now().UTC()
	active := true
	rows := sqlmock.NewRows(assignmentRows).
		AddRow(int64(1), "Problem set", "", "ipfs://QmA", "prof", now.Add(time.Hour), int64(100), 30, 0, true, models.AssignmentKindCode, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments WHERE 1=1 AND instructor = $1 AND active = $2 ORDER BY id ASC LIMIT 20 OFFSET 0")).
		WithArgs("prof", true).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM assignments WHERE 1=1 AND instructor = $1 AND active = $2")).
		WithArgs("prof", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	assignments, total, err := repo.List(context.Background(), models.AssignmentFilter{Instructor: "prof", Active: &active})
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
