package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
)

var submissionRows = []string{"assignment_id", "student", "content_ref", "submitted_at", "graded", "grade", "passed", "feedback_ref", "graded_at", "reward_claimed", "claimed_at"}

func TestSubmissionRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WithArgs(int64(1), "alice", "ipfs://QmAnswer", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := &models.Submission{AssignmentID: 1, Student: "alice", ContentRef: "ipfs://QmAnswer", SubmittedAt: now}
	require.NoError(t, repo.Insert(context.Background(), db, s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryFindByPair(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(submissionRows).
		AddRow(int64(1), "alice", "ipfs://QmAnswer", now, true, 85, true, nil, now, false, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE assignment_id = $1 AND student = $2")).
		WithArgs(int64(1), "alice").
		WillReturnRows(rows)

	s, err := repo.FindByPair(context.Background(), 1, "alice")
	require.NoError(t, err)
	require.True(t, s.Graded)
	require.Equal(t, 85, s.Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM submissions WHERE assignment_id = $1 AND student = $2")).
		WithArgs(int64(1), "alice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), db, 1, "alice")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositorySetGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET graded = TRUE")).
		WithArgs(int64(1), "alice", 85, true, "looks good", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetGrade(context.Background(), db, 1, "alice", 85, true, "looks good", now))

	// An already-graded row is untouched and reported as an error.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET graded = TRUE")).
		WithArgs(int64(1), "alice", 90, true, "", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.Error(t, repo.SetGrade(context.Background(), db, 1, "alice", 90, true, "", now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryMarkClaimed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET reward_claimed = TRUE")).
		WithArgs(int64(1), "alice", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkClaimed(context.Background(), db, 1, "alice", now))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET reward_claimed = TRUE")).
		WithArgs(int64(1), "alice", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.Error(t, repo.MarkClaimed(context.Background(), db, 1, "alice", now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListAssignmentIDsByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := sqlmock.NewRows([]string{"assignment_id"}).AddRow(int64(2)).AddRow(int64(5))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT assignment_id FROM submissions WHERE student = $1 ORDER BY submitted_at ASC")).
		WithArgs("alice").
		WillReturnRows(rows)

	ids, err := repo.ListAssignmentIDsByStudent(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, []int64{2, 5}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListForExport(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"assignment_id", "title", "student", "submitted_at", "graded", "grade", "passed", "reward_claimed", "graded_at"}).
		AddRow(int64(1), "Problem set", "alice", now, true, 85, true, false, now)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN assignments a ON a.id = s.assignment_id")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	assignmentID := int64(1)
	exported, err := repo.ListForExport(context.Background(), &assignmentID)
	require.NoError(t, err)
	require.Len(t, exported, 1)
	require.Equal(t, "Problem set", exported[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}
