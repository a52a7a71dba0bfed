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

func TestEventRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	now := time.Now().UTC()
	assignmentID := int64(1)
	student := "alice"
	event := &models.LedgerEvent{
		ID:           "evt-1",
		Kind:         models.EventSubmissionCreated,
		Actor:        "alice",
		AssignmentID: &assignmentID,
		Student:      &student,
		CreatedAt:    now,
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_events")).
		WithArgs(event.ID, event.Kind, event.Actor, event.AssignmentID, event.Student, nil, nil, nil, nil, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), db, event))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "kind", "actor", "assignment_id", "student", "amount", "grade", "passed", "note", "created_at"}).
		AddRow("evt-2", models.EventSubmissionGraded, "grader", int64(1), "alice", nil, 85, true, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM ledger_events WHERE 1=1 AND kind = $1 AND student = $2 ORDER BY created_at DESC LIMIT 50 OFFSET 0")).
		WithArgs(models.EventSubmissionGraded, "alice").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ledger_events WHERE 1=1 AND kind = $1 AND student = $2")).
		WithArgs(models.EventSubmissionGraded, "alice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	events, total, err := repo.List(context.Background(), models.EventFilter{Kind: models.EventSubmissionGraded, Student: "alice"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
