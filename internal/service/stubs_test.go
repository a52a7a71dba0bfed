package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	"github.com/noah-isme/coursework-ledger-api/internal/repository"
)

// Shared stubs for the service tests. RunInTx invokes the function with a
// nil transaction; the repository stubs ignore the executor entirely.

type txStub struct {
	err error
}

func (s *txStub) RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(nil)
}

type eventSinkStub struct {
	events []*models.LedgerEvent
	err    error
}

func (s *eventSinkStub) Insert(ctx context.Context, exec sqlx.ExtContext, event *models.LedgerEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *eventSinkStub) kinds() []models.EventKind {
	kinds := make([]models.EventKind, 0, len(s.events))
	for _, e := range s.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type rolesStub struct {
	caps map[string][]models.Capability
	err  error
}

func (s *rolesStub) Has(ctx context.Context, address string, capability models.Capability) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	for _, held := range s.caps[address] {
		if held == capability {
			return true, nil
		}
	}
	return false, nil
}

type assignmentStoreStub struct {
	assignments map[int64]*models.Assignment
	err         error
}

func newAssignmentStoreStub(assignments ...*models.Assignment) *assignmentStoreStub {
	stub := &assignmentStoreStub{assignments: map[int64]*models.Assignment{}}
	for _, a := range assignments {
		stub.assignments[a.ID] = a
	}
	return stub
}

func (s *assignmentStoreStub) find(id int64) (*models.Assignment, error) {
	if s.err != nil {
		return nil, s.err
	}
	a, ok := s.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *a
	return &copied, nil
}

func (s *assignmentStoreStub) FindByID(ctx context.Context, id int64) (*models.Assignment, error) {
	return s.find(id)
}

func (s *assignmentStoreStub) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Assignment, error) {
	return s.find(id)
}

func (s *assignmentStoreStub) IncrementSubmissionCount(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	if s.err != nil {
		return s.err
	}
	a, ok := s.assignments[id]
	if !ok || a.SubmissionCount >= a.Capacity {
		return sql.ErrNoRows
	}
	a.SubmissionCount++
	return nil
}

type submissionPair struct {
	assignmentID int64
	student      string
}

type submissionStoreStub struct {
	submissions map[submissionPair]*models.Submission
	err         error
}

func newSubmissionStoreStub(submissions ...*models.Submission) *submissionStoreStub {
	stub := &submissionStoreStub{submissions: map[submissionPair]*models.Submission{}}
	for _, sub := range submissions {
		stub.submissions[submissionPair{sub.AssignmentID, sub.Student}] = sub
	}
	return stub
}

func (s *submissionStoreStub) Insert(ctx context.Context, exec sqlx.ExtContext, sub *models.Submission) error {
	if s.err != nil {
		return s.err
	}
	copied := *sub
	s.submissions[submissionPair{sub.AssignmentID, sub.Student}] = &copied
	return nil
}

func (s *submissionStoreStub) find(assignmentID int64, student string) (*models.Submission, error) {
	if s.err != nil {
		return nil, s.err
	}
	sub, ok := s.submissions[submissionPair{assignmentID, student}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *sub
	return &copied, nil
}

func (s *submissionStoreStub) FindByPair(ctx context.Context, assignmentID int64, student string) (*models.Submission, error) {
	return s.find(assignmentID, student)
}

func (s *submissionStoreStub) FindByPairForUpdate(ctx context.Context, exec sqlx.ExtContext, assignmentID int64, student string) (*models.Submission, error) {
	return s.find(assignmentID, student)
}

func (s *submissionStoreStub) Exists(ctx context.Context, exec sqlx.ExtContext, assignmentID int64, student string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.submissions[submissionPair{assignmentID, student}]
	return ok, nil
}

func (s *submissionStoreStub) SetGrade(ctx context.Context, exec sqlx.ExtContext, assignmentID int64, student string, grade int, passed bool, feedbackRef string, gradedAt time.Time) error {
	if s.err != nil {
		return s.err
	}
	sub, ok := s.submissions[submissionPair{assignmentID, student}]
	if !ok || sub.Graded {
		return sql.ErrNoRows
	}
	sub.Graded = true
	sub.Grade = grade
	sub.Passed = passed
	if feedbackRef != "" {
		sub.FeedbackRef = &feedbackRef
	}
	sub.GradedAt = &gradedAt
	return nil
}

func (s *submissionStoreStub) MarkClaimed(ctx context.Context, exec sqlx.ExtContext, assignmentID int64, student string, claimedAt time.Time) error {
	if s.err != nil {
		return s.err
	}
	sub, ok := s.submissions[submissionPair{assignmentID, student}]
	if !ok || sub.RewardClaimed {
		return sql.ErrNoRows
	}
	sub.RewardClaimed = true
	sub.ClaimedAt = &claimedAt
	return nil
}

func (s *submissionStoreStub) ListAssignmentIDsByStudent(ctx context.Context, student string) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	var ids []int64
	for pair := range s.submissions {
		if pair.student == student {
			ids = append(ids, pair.assignmentID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type balanceStoreStub struct {
	balances  map[string]int64
	creditErr error
	debitErr  error
}

func newBalanceStoreStub() *balanceStoreStub {
	return &balanceStoreStub{balances: map[string]int64{}}
}

func (s *balanceStoreStub) Get(ctx context.Context, student string) (*models.RewardBalance, error) {
	return &models.RewardBalance{Student: student, Amount: s.balances[student]}, nil
}

func (s *balanceStoreStub) Credit(ctx context.Context, exec sqlx.ExtContext, student string, amount int64, now time.Time) error {
	if s.creditErr != nil {
		return s.creditErr
	}
	s.balances[student] += amount
	return nil
}

func (s *balanceStoreStub) Debit(ctx context.Context, exec sqlx.ExtContext, student string, amount int64, now time.Time) error {
	if s.debitErr != nil {
		return s.debitErr
	}
	if s.balances[student] < amount {
		return repository.ErrBalanceInsufficient
	}
	s.balances[student] -= amount
	return nil
}

type tokenMoverStub struct {
	balances map[string]int64
	err      error
	moves    int
}

func newTokenMoverStub(balances map[string]int64) *tokenMoverStub {
	if balances == nil {
		balances = map[string]int64{}
	}
	return &tokenMoverStub{balances: balances}
}

func (s *tokenMoverStub) Move(ctx context.Context, exec sqlx.ExtContext, from, to string, amount int64, now time.Time) error {
	if s.err != nil {
		return s.err
	}
	if s.balances[from] < amount {
		return repository.ErrTokenInsufficient
	}
	s.balances[from] -= amount
	s.balances[to] += amount
	s.moves++
	return nil
}

type settingsStub struct {
	settings models.LedgerSettings
	err      error
}

func (s *settingsStub) GetTx(ctx context.Context, exec sqlx.ExtContext) (*models.LedgerSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	copied := s.settings
	return &copied, nil
}
