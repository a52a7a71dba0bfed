package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	"github.com/noah-isme/coursework-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
)

type settlementSubmissionRepository interface {
	FindByPairForUpdate(ctx context.Context, exec sqlx.ExtContext, assignmentID int64, student string) (*models.Submission, error)
	MarkClaimed(ctx context.Context, exec sqlx.ExtContext, assignmentID int64, student string, claimedAt time.Time) error
}

type settlementAssignmentRepository interface {
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Assignment, error)
}

type settlementBalanceRepository interface {
	Debit(ctx context.Context, exec sqlx.ExtContext, student string, amount int64, now time.Time) error
}

type settlementSettingsRepository interface {
	GetTx(ctx context.Context, exec sqlx.ExtContext) (*models.LedgerSettings, error)
}

// tokenMover is the narrow slice of the external token ledger the settlement
// path needs. The move runs through the claim's own transaction executor so a
// refused transfer aborts the whole claim.
type tokenMover interface {
	Move(ctx context.Context, exec sqlx.ExtContext, from, to string, amount int64, now time.Time) error
}

// SettlementService converts accrued internal reward balances into token
// transfers from the treasury. The internal ledger is always debited and the
// claimed flag set strictly before the token ledger is asked to move value:
// any call re-entering the claim path mid-operation observes the already-
// claimed state and fails its preconditions.
type SettlementService struct {
	submissions settlementSubmissionRepository
	assignments settlementAssignmentRepository
	balances    settlementBalanceRepository
	settings    settlementSettingsRepository
	roles       capabilityChecker
	token       tokenMover
	tx          txRunner
	events      eventWriter
	treasury    string
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewSettlementService constructs a SettlementService.
func NewSettlementService(submissions settlementSubmissionRepository, assignments settlementAssignmentRepository, balances settlementBalanceRepository, settings settlementSettingsRepository, roles capabilityChecker, token tokenMover, tx txRunner, events eventWriter, treasury string, metrics *MetricsService, logger *zap.Logger) *SettlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementService{
		submissions: submissions,
		assignments: assignments,
		balances:    balances,
		settings:    settings,
		roles:       roles,
		token:       token,
		tx:          tx,
		events:      events,
		treasury:    treasury,
		metrics:     metrics,
		logger:      logger,
	}
}

// Claim settles the reward for a single graded, passing, unclaimed
// submission. Hard-fails on any ineligible state.
func (s *SettlementService) Claim(ctx context.Context, assignmentID int64, student string) (int64, error) {
	amount, err := s.claim(ctx, assignmentID, student)
	s.metrics.ObserveLedgerOperation("reward_claim", err)
	return amount, err
}

func (s *SettlementService) claim(ctx context.Context, assignmentID int64, student string) (int64, error) {
	var amount int64
	err := s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		settings, err := s.settings.GetTx(ctx, tx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read ledger settings")
		}
		if settings.Paused {
			return appErrors.ErrLedgerPaused
		}

		submission, err := s.submissions.FindByPairForUpdate(ctx, tx, assignmentID, student)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrStateConflict, "no submission to claim")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch submission")
		}
		if !submission.Graded {
			return appErrors.Clone(appErrors.ErrStateConflict, "submission is not graded")
		}
		if !submission.Passed {
			return appErrors.Clone(appErrors.ErrStateConflict, "grade did not meet the passing threshold")
		}
		if submission.RewardClaimed {
			return appErrors.Clone(appErrors.ErrStateConflict, "reward already claimed")
		}

		assignment, err := s.assignments.FindByIDForUpdate(ctx, tx, assignmentID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch assignment")
		}
		amount = assignment.RewardAmount

		now := time.Now().UTC()
		if err := s.settle(ctx, tx, student, amount, now, []claimedPair{{assignmentID, student}}); err != nil {
			return err
		}

		event := newEvent(models.EventRewardClaimed, student)
		event.AssignmentID = int64Ptr(assignmentID)
		event.Student = stringPtr(student)
		event.Amount = int64Ptr(amount)
		return s.events.Insert(ctx, tx, event)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("reward claimed",
		zap.Int64("assignment_id", assignmentID),
		zap.String("student", student),
		zap.Int64("amount", amount),
	)
	return amount, nil
}

// ClaimBatch settles every eligible submission in the given list with one
// aggregate debit and one aggregate transfer. Ineligible ids are skipped
// silently; the call fails only when nothing was eligible or the transfer
// was refused, in which case every mark set during the call rolls back.
func (s *SettlementService) ClaimBatch(ctx context.Context, assignmentIDs []int64, student string) (int64, []int64, error) {
	total, claimed, err := s.claimBatch(ctx, assignmentIDs, student)
	s.metrics.ObserveLedgerOperation("reward_claim_batch", err)
	return total, claimed, err
}

func (s *SettlementService) claimBatch(ctx context.Context, assignmentIDs []int64, student string) (int64, []int64, error) {
	if len(assignmentIDs) == 0 {
		return 0, nil, appErrors.Clone(appErrors.ErrValidation, "assignment_ids must be non-empty")
	}

	var total int64
	var claimed []int64
	err := s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		total = 0
		claimed = nil

		settings, err := s.settings.GetTx(ctx, tx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read ledger settings")
		}
		if settings.Paused {
			return appErrors.ErrLedgerPaused
		}

		now := time.Now().UTC()
		var pairs []claimedPair
		for _, assignmentID := range assignmentIDs {
			submission, err := s.submissions.FindByPairForUpdate(ctx, tx, assignmentID, student)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					continue
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch submission")
			}
			if !submission.Claimable() {
				continue
			}

			assignment, err := s.assignments.FindByIDForUpdate(ctx, tx, assignmentID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch assignment")
			}

			if err := s.submissions.MarkClaimed(ctx, tx, assignmentID, student, now); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark reward claimed")
			}
			total += assignment.RewardAmount
			claimed = append(claimed, assignmentID)
			pairs = append(pairs, claimedPair{assignmentID, student})
		}

		if total == 0 {
			return appErrors.Clone(appErrors.ErrStateConflict, "no claimable rewards in the batch")
		}

		if err := s.balances.Debit(ctx, tx, student, total, now); err != nil {
			if errors.Is(err, repository.ErrBalanceInsufficient) {
				return appErrors.Clone(appErrors.ErrInsufficientBalance, "reward balance does not cover the batch")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to debit reward balance")
		}
		if err := s.token.Move(ctx, tx, s.treasury, student, total, now); err != nil {
			if errors.Is(err, repository.ErrTokenInsufficient) {
				return appErrors.Clone(appErrors.ErrTransferFailed, "treasury cannot cover the batch")
			}
			return appErrors.Wrap(err, appErrors.ErrTransferFailed.Code, appErrors.ErrTransferFailed.Status, "token transfer failed")
		}

		event := newEvent(models.EventRewardBatchClaimed, student)
		event.Student = stringPtr(student)
		event.Amount = int64Ptr(total)
		event.Note = stringPtr(formatIDList(claimed))
		return s.events.Insert(ctx, tx, event)
	})
	if err != nil {
		return 0, nil, err
	}

	s.logger.Info("reward batch claimed",
		zap.String("student", student),
		zap.Int64("total", total),
		zap.Int("claimed", len(claimed)),
	)
	return total, claimed, nil
}

// Deposit pulls token value from the owner into the treasury float.
func (s *SettlementService) Deposit(ctx context.Context, amount int64, actor string) error {
	err := s.treasuryMove(ctx, amount, actor, models.EventTreasuryDeposited, func(tx *sqlx.Tx, now time.Time) error {
		return s.token.Move(ctx, tx, actor, s.treasury, amount, now)
	})
	s.metrics.ObserveLedgerOperation("treasury_deposit", err)
	return err
}

// EmergencyWithdraw moves token value from the treasury back to the owner.
// Administrative: available while paused.
func (s *SettlementService) EmergencyWithdraw(ctx context.Context, amount int64, actor string) error {
	err := s.treasuryMove(ctx, amount, actor, models.EventTreasuryWithdrawn, func(tx *sqlx.Tx, now time.Time) error {
		return s.token.Move(ctx, tx, s.treasury, actor, amount, now)
	})
	s.metrics.ObserveLedgerOperation("treasury_withdraw", err)
	return err
}

func (s *SettlementService) treasuryMove(ctx context.Context, amount int64, actor string, kind models.EventKind, move func(tx *sqlx.Tx, now time.Time) error) error {
	if amount <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}
	held, err := s.roles.Has(ctx, actor, models.CapabilityOwner)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check owner capability")
	}
	if !held {
		return appErrors.Clone(appErrors.ErrForbidden, "owner capability required")
	}

	return s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		if err := move(tx, now); err != nil {
			if errors.Is(err, repository.ErrTokenInsufficient) {
				return appErrors.Clone(appErrors.ErrTransferFailed, "token balance cannot cover the move")
			}
			return appErrors.Wrap(err, appErrors.ErrTransferFailed.Code, appErrors.ErrTransferFailed.Status, "token transfer failed")
		}
		event := newEvent(kind, actor)
		event.Amount = int64Ptr(amount)
		return s.events.Insert(ctx, tx, event)
	})
}

type claimedPair struct {
	assignmentID int64
	student      string
}

// settle marks the submissions claimed, debits the internal balance, then
// requests the token transfer, in that order.
func (s *SettlementService) settle(ctx context.Context, tx *sqlx.Tx, student string, amount int64, now time.Time, pairs []claimedPair) error {
	for _, pair := range pairs {
		if err := s.submissions.MarkClaimed(ctx, tx, pair.assignmentID, pair.student, now); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark reward claimed")
		}
	}
	if amount == 0 {
		return nil
	}
	if err := s.balances.Debit(ctx, tx, student, amount, now); err != nil {
		if errors.Is(err, repository.ErrBalanceInsufficient) {
			return appErrors.Clone(appErrors.ErrInsufficientBalance, "reward balance does not cover the claim")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to debit reward balance")
	}
	if err := s.token.Move(ctx, tx, s.treasury, student, amount, now); err != nil {
		if errors.Is(err, repository.ErrTokenInsufficient) {
			return appErrors.Clone(appErrors.ErrTransferFailed, "treasury cannot cover the claim")
		}
		return appErrors.Wrap(err, appErrors.ErrTransferFailed.Code, appErrors.ErrTransferFailed.Status, "token transfer failed")
	}
	return nil
}

func formatIDList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}
