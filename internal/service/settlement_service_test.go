package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	"github.com/noah-isme/coursework-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
)

const testTreasury = "treasury"

type settlementFixture struct {
	svc         *SettlementService
	assignments *assignmentStoreStub
	submissions *submissionStoreStub
	balances    *balanceStoreStub
	token       *tokenMoverStub
	settings    *settingsStub
	events      *eventSinkStub
}

func newSettlementFixture(treasuryBalance int64) *settlementFixture {
	f := &settlementFixture{
		assignments: newAssignmentStoreStub(),
		submissions: newSubmissionStoreStub(),
		balances:    newBalanceStoreStub(),
		token:       newTokenMoverStub(map[string]int64{testTreasury: treasuryBalance}),
		settings:    &settingsStub{settings: models.LedgerSettings{MinPassingGrade: 70}},
		events:      &eventSinkStub{},
	}
	roles := &rolesStub{caps: map[string][]models.Capability{"root": {models.CapabilityOwner}}}
	f.svc = NewSettlementService(f.submissions, f.assignments, f.balances, f.settings, roles, f.token, &txStub{}, f.events, testTreasury, nil, nil)
	return f
}

// addClaimable seeds a passed, unclaimed submission plus its assignment and
// the matching internal balance.
func (f *settlementFixture) addClaimable(assignmentID int64, student string, reward int64) {
	gradedAt := time.Now().Add(-time.Hour)
	f.assignments.assignments[assignmentID] = &models.Assignment{
		ID:           assignmentID,
		RewardAmount: reward,
		Capacity:     10,
		Active:       true,
	}
	f.submissions.submissions[submissionPair{assignmentID, student}] = &models.Submission{
		AssignmentID: assignmentID,
		Student:      student,
		Graded:       true,
		Grade:        90,
		Passed:       true,
		GradedAt:     &gradedAt,
	}
	f.balances.balances[student] += reward
}

func TestSettlementServiceClaim(t *testing.T) {
	f := newSettlementFixture(1000)
	f.addClaimable(1, "alice", 100)

	amount, err := f.svc.Claim(context.Background(), 1, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), amount)

	assert.Zero(t, f.balances.balances["alice"])
	assert.Equal(t, int64(900), f.token.balances[testTreasury])
	assert.Equal(t, int64(100), f.token.balances["alice"])
	assert.True(t, f.submissions.submissions[submissionPair{1, "alice"}].RewardClaimed)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventRewardClaimed, f.events.events[0].Kind)
}

func TestSettlementServiceClaimTwice(t *testing.T) {
	f := newSettlementFixture(1000)
	f.addClaimable(1, "alice", 100)

	_, err := f.svc.Claim(context.Background(), 1, "alice")
	require.NoError(t, err)

	_, err = f.svc.Claim(context.Background(), 1, "alice")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, f.token.moves)
}

func TestSettlementServiceClaimIneligibleStates(t *testing.T) {
	f := newSettlementFixture(1000)
	f.addClaimable(1, "alice", 100)

	ungraded := f.submissions.submissions[submissionPair{1, "alice"}]
	ungraded.Graded = false
	_, err := f.svc.Claim(context.Background(), 1, "alice")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)

	ungraded.Graded = true
	ungraded.Passed = false
	_, err = f.svc.Claim(context.Background(), 1, "alice")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Claim(context.Background(), 1, "nobody")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)

	assert.Zero(t, f.token.moves)
}

func TestSettlementServiceClaimWhilePaused(t *testing.T) {
	f := newSettlementFixture(1000)
	f.addClaimable(1, "alice", 100)
	f.settings.settings.Paused = true

	_, err := f.svc.Claim(context.Background(), 1, "alice")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLedgerPaused.Code, appErrors.FromError(err).Code)
}

func TestSettlementServiceClaimInsufficientBalance(t *testing.T) {
	f := newSettlementFixture(1000)
	f.addClaimable(1, "alice", 100)
	f.balances.balances["alice"] = 40

	_, err := f.svc.Claim(context.Background(), 1, "alice")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInsufficientBalance.Code, appErrors.FromError(err).Code)
	assert.Zero(t, f.token.moves)
}

func TestSettlementServiceClaimTransferRefused(t *testing.T) {
	f := newSettlementFixture(10)
	f.addClaimable(1, "alice", 100)

	_, err := f.svc.Claim(context.Background(), 1, "alice")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTransferFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.events.events)
}

// A refused treasury transfer must abort the enclosing transaction so the
// claimed flag and the internal debit never reach the database. This test
// drives a claim through a real TxRunner and the real repositories against
// sqlmock: the token debit touches no rows, and the transaction is rolled
// back with no further statement issued.
func TestSettlementServiceClaimTransferRefusedRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	events := &eventSinkStub{}
	svc := NewSettlementService(
		repository.NewSubmissionRepository(sqlxDB),
		repository.NewAssignmentRepository(sqlxDB),
		repository.NewBalanceRepository(sqlxDB),
		repository.NewSettingsRepository(sqlxDB),
		&rolesStub{},
		repository.NewTokenRepository(sqlxDB),
		repository.NewTxRunner(sqlxDB),
		events,
		testTreasury,
		nil, nil,
	)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT min_passing_grade, paused, updated_at FROM ledger_settings WHERE id = 1")).
		WillReturnRows(sqlmock.NewRows([]string{"min_passing_grade", "paused", "updated_at"}).
			AddRow(70, false, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE assignment_id = $1 AND student = $2 FOR UPDATE")).
		WithArgs(int64(1), "alice").
		WillReturnRows(sqlmock.NewRows([]string{"assignment_id", "student", "content_ref", "submitted_at", "graded", "grade", "passed", "feedback_ref", "graded_at", "reward_claimed", "claimed_at"}).
			AddRow(int64(1), "alice", "ipfs://QmA", now, true, 90, true, nil, now, false, nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "content_ref", "instructor", "deadline", "reward_amount", "capacity", "submission_count", "active", "kind", "created_at"}).
			AddRow(int64(1), "Problem set", "", "ipfs://QmProblemSet", "prof", now.Add(time.Hour), int64(100), 10, 1, true, "CODE", now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET reward_claimed = TRUE")).
		WithArgs(int64(1), "alice", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reward_balances SET amount = amount - $2")).
		WithArgs("alice", int64(100), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The treasury cannot cover the claim: the guarded debit touches no rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE token_accounts SET balance = balance - $2")).
		WithArgs(testTreasury, int64(100), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = svc.Claim(context.Background(), 1, "alice")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTransferFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, events.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlementServiceClaimZeroReward(t *testing.T) {
	f := newSettlementFixture(1000)
	f.addClaimable(1, "alice", 0)

	amount, err := f.svc.Claim(context.Background(), 1, "alice")
	require.NoError(t, err)
	assert.Zero(t, amount)

	// A zero reward flips the claimed flag without touching either ledger.
	assert.True(t, f.submissions.submissions[submissionPair{1, "alice"}].RewardClaimed)
	assert.Zero(t, f.token.moves)
}

func TestSettlementServiceClaimBatch(t *testing.T) {
	f := newSettlementFixture(1000)
	f.addClaimable(1, "alice", 100)
	f.addClaimable(2, "alice", 50)
	f.addClaimable(3, "alice", 25)
	// Assignment 3 was already settled; 9 does not exist.
	f.submissions.submissions[submissionPair{3, "alice"}].RewardClaimed = true
	f.balances.balances["alice"] = 150

	total, claimed, err := f.svc.ClaimBatch(context.Background(), []int64{1, 2, 3, 9}, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(150), total)
	assert.Equal(t, []int64{1, 2}, claimed)

	assert.Zero(t, f.balances.balances["alice"])
	assert.Equal(t, int64(150), f.token.balances["alice"])
	assert.Equal(t, 1, f.token.moves)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventRewardBatchClaimed, f.events.events[0].Kind)
	require.NotNil(t, f.events.events[0].Note)
	assert.Equal(t, "1,2", *f.events.events[0].Note)
}

func TestSettlementServiceClaimBatchNothingEligible(t *testing.T) {
	f := newSettlementFixture(1000)
	f.addClaimable(1, "alice", 100)
	f.submissions.submissions[submissionPair{1, "alice"}].RewardClaimed = true

	_, _, err := f.svc.ClaimBatch(context.Background(), []int64{1, 2}, "alice")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)

	_, _, err = f.svc.ClaimBatch(context.Background(), nil, "alice")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSettlementServiceClaimBatchTransferRefused(t *testing.T) {
	f := newSettlementFixture(50)
	f.addClaimable(1, "alice", 100)

	_, _, err := f.svc.ClaimBatch(context.Background(), []int64{1}, "alice")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTransferFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.events.events)
}

func TestSettlementServiceDeposit(t *testing.T) {
	f := newSettlementFixture(0)
	f.token.balances["root"] = 500

	require.NoError(t, f.svc.Deposit(context.Background(), 200, "root"))
	assert.Equal(t, int64(200), f.token.balances[testTreasury])
	assert.Equal(t, int64(300), f.token.balances["root"])

	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventTreasuryDeposited, f.events.events[0].Kind)
}

func TestSettlementServiceDepositGuards(t *testing.T) {
	f := newSettlementFixture(0)
	f.token.balances["root"] = 500

	err := f.svc.Deposit(context.Background(), 0, "root")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = f.svc.Deposit(context.Background(), 100, "stranger")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = f.svc.Deposit(context.Background(), 9999, "root")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTransferFailed.Code, appErrors.FromError(err).Code)
}

func TestSettlementServiceEmergencyWithdraw(t *testing.T) {
	f := newSettlementFixture(500)
	// Withdrawal stays available while paused.
	f.settings.settings.Paused = true

	require.NoError(t, f.svc.EmergencyWithdraw(context.Background(), 200, "root"))
	assert.Equal(t, int64(300), f.token.balances[testTreasury])
	assert.Equal(t, int64(200), f.token.balances["root"])

	err := f.svc.EmergencyWithdraw(context.Background(), 1000, "root")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTransferFailed.Code, appErrors.FromError(err).Code)
}
