package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
)

type submissionRepository interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, s *models.Submission) error
	FindByPair(ctx context.Context, assignmentID int64, student string) (*models.Submission, error)
	FindByPairForUpdate(ctx context.Context, exec sqlx.ExtContext, assignmentID int64, student string) (*models.Submission, error)
	Exists(ctx context.Context, exec sqlx.ExtContext, assignmentID int64, student string) (bool, error)
	SetGrade(ctx context.Context, exec sqlx.ExtContext, assignmentID int64, student string, grade int, passed bool, feedbackRef string, gradedAt time.Time) error
	ListAssignmentIDsByStudent(ctx context.Context, student string) ([]int64, error)
}

type submissionAssignmentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Assignment, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Assignment, error)
	IncrementSubmissionCount(ctx context.Context, exec sqlx.ExtContext, id int64) error
}

type submissionBalanceRepository interface {
	Credit(ctx context.Context, exec sqlx.ExtContext, student string, amount int64, now time.Time) error
	Get(ctx context.Context, student string) (*models.RewardBalance, error)
}

type submissionSettingsRepository interface {
	GetTx(ctx context.Context, exec sqlx.ExtContext) (*models.LedgerSettings, error)
}

type assignmentCacheInvalidator interface {
	InvalidateCache(ctx context.Context, id int64)
}

// SubmissionService owns submission records, the grading transition, and
// reward-balance accrual. Every mutation is final: there is no resubmission
// and no regrade.
type SubmissionService struct {
	submissions submissionRepository
	assignments submissionAssignmentRepository
	balances    submissionBalanceRepository
	settings    submissionSettingsRepository
	roles       capabilityChecker
	tx          txRunner
	events      eventWriter
	catalog     assignmentCacheInvalidator
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(submissions submissionRepository, assignments submissionAssignmentRepository, balances submissionBalanceRepository, settings submissionSettingsRepository, roles capabilityChecker, tx txRunner, events eventWriter, catalog assignmentCacheInvalidator, metrics *MetricsService, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		submissions: submissions,
		assignments: assignments,
		balances:    balances,
		settings:    settings,
		roles:       roles,
		tx:          tx,
		events:      events,
		catalog:     catalog,
		metrics:     metrics,
		logger:      logger,
	}
}

// Submit records a student's one-time submission against an open assignment.
// The submission insert and the catalog's counter increment share one
// transaction: both commit or neither does.
func (s *SubmissionService) Submit(ctx context.Context, assignmentID int64, contentRef, student string) (*models.Submission, error) {
	submission, err := s.submit(ctx, assignmentID, contentRef, student)
	s.metrics.ObserveLedgerOperation("submission_submit", err)
	return submission, err
}

func (s *SubmissionService) submit(ctx context.Context, assignmentID int64, contentRef, student string) (*models.Submission, error) {
	if assignmentID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignment id must be positive")
	}
	if strings.TrimSpace(contentRef) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content_ref must be non-empty")
	}

	submission := &models.Submission{
		AssignmentID: assignmentID,
		Student:      student,
		ContentRef:   contentRef,
	}

	err := s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		settings, err := s.settings.GetTx(ctx, tx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read ledger settings")
		}
		if settings.Paused {
			return appErrors.ErrLedgerPaused
		}

		now := time.Now().UTC()
		assignment, err := s.assignments.FindByIDForUpdate(ctx, tx, assignmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrStateConflict, "assignment does not accept submissions")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch assignment")
		}
		if !assignment.Active {
			return appErrors.Clone(appErrors.ErrStateConflict, "assignment does not accept submissions")
		}
		if now.After(assignment.Deadline) {
			return appErrors.Clone(appErrors.ErrStateConflict, "assignment deadline has passed")
		}
		if assignment.SubmissionCount >= assignment.Capacity {
			return appErrors.Clone(appErrors.ErrStateConflict, "assignment submission capacity reached")
		}

		exists, err := s.submissions.Exists(ctx, tx, assignmentID, student)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing submission")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrStateConflict, "submission already exists for this assignment")
		}

		submission.SubmittedAt = now
		if err := s.submissions.Insert(ctx, tx, submission); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
		}
		if err := s.assignments.IncrementSubmissionCount(ctx, tx, assignmentID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record submission")
		}

		event := newEvent(models.EventSubmissionCreated, student)
		event.AssignmentID = int64Ptr(assignmentID)
		event.Student = stringPtr(student)
		return s.events.Insert(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	if s.catalog != nil {
		s.catalog.InvalidateCache(ctx, assignmentID)
	}
	s.logger.Info("submission recorded",
		zap.Int64("assignment_id", assignmentID),
		zap.String("student", student),
	)
	return submission, nil
}

// Grade records the oracle's verdict for a submission exactly once. The
// pass/fail outcome is evaluated against the minimum passing grade in force
// now and persisted with the grade; later threshold changes never affect it.
// A passing grade credits the student's reward balance by the assignment's
// reward amount.
func (s *SubmissionService) Grade(ctx context.Context, assignmentID int64, student string, grade int, feedbackRef, oracle string) (*models.Submission, error) {
	submission, err := s.grade(ctx, assignmentID, student, grade, feedbackRef, oracle)
	s.metrics.ObserveLedgerOperation("submission_grade", err)
	return submission, err
}

func (s *SubmissionService) grade(ctx context.Context, assignmentID int64, student string, grade int, feedbackRef, oracle string) (*models.Submission, error) {
	if grade < 0 || grade > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade must be between 0 and 100")
	}

	held, err := s.roles.Has(ctx, oracle, models.CapabilityOracle)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check oracle capability")
	}
	if !held {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "oracle capability required")
	}

	var graded *models.Submission
	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		settings, err := s.settings.GetTx(ctx, tx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read ledger settings")
		}
		if settings.Paused {
			return appErrors.ErrLedgerPaused
		}

		assignment, err := s.assignments.FindByIDForUpdate(ctx, tx, assignmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrStateConflict, "assignment is not gradable")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch assignment")
		}
		if !assignment.Active {
			return appErrors.Clone(appErrors.ErrStateConflict, "assignment is not gradable")
		}

		submission, err := s.submissions.FindByPairForUpdate(ctx, tx, assignmentID, student)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrStateConflict, "no submission to grade")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch submission")
		}
		if submission.Graded {
			return appErrors.Clone(appErrors.ErrStateConflict, "submission is already graded")
		}

		now := time.Now().UTC()
		passed := grade >= settings.MinPassingGrade
		if err := s.submissions.SetGrade(ctx, tx, assignmentID, student, grade, passed, feedbackRef, now); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grade")
		}

		if passed && assignment.RewardAmount > 0 {
			if err := s.balances.Credit(ctx, tx, student, assignment.RewardAmount, now); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to credit reward balance")
			}
		}

		submission.Graded = true
		submission.Grade = grade
		submission.Passed = passed
		submission.GradedAt = &now
		if feedbackRef != "" {
			submission.FeedbackRef = &feedbackRef
		}
		graded = submission

		event := newEvent(models.EventSubmissionGraded, oracle)
		event.AssignmentID = int64Ptr(assignmentID)
		event.Student = stringPtr(student)
		event.Grade = intPtr(grade)
		event.Passed = boolPtr(passed)
		if passed {
			event.Amount = int64Ptr(assignment.RewardAmount)
		}
		return s.events.Insert(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("submission graded",
		zap.Int64("assignment_id", assignmentID),
		zap.String("student", student),
		zap.Int("grade", graded.Grade),
		zap.Bool("passed", graded.Passed),
	)
	return graded, nil
}

// Get fetches the submission for (assignment, student).
func (s *SubmissionService) Get(ctx context.Context, assignmentID int64, student string) (*models.Submission, error) {
	submission, err := s.submissions.FindByPair(ctx, assignmentID, student)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch submission")
	}
	return submission, nil
}

// ListStudentAssignments returns the ids of assignments the student has
// submitted to, in submission order.
func (s *SubmissionService) ListStudentAssignments(ctx context.Context, student string) ([]int64, error) {
	ids, err := s.submissions.ListAssignmentIDsByStudent(ctx, student)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student submissions")
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// Eligibility reports where the submission sits in the reward flow.
func (s *SubmissionService) Eligibility(ctx context.Context, assignmentID int64, student string) (*models.RewardEligibility, error) {
	submission, err := s.Get(ctx, assignmentID, student)
	if err != nil {
		return nil, err
	}
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch assignment")
	}
	return &models.RewardEligibility{
		AssignmentID: assignmentID,
		Student:      student,
		Graded:       submission.Graded,
		Grade:        submission.Grade,
		Passed:       submission.Passed,
		Claimed:      submission.RewardClaimed,
		RewardAmount: assignment.RewardAmount,
		Eligible:     submission.Claimable(),
	}, nil
}

// Balance returns the student's accrued-but-unclaimed reward balance.
func (s *SubmissionService) Balance(ctx context.Context, student string) (*models.RewardBalance, error) {
	balance, err := s.balances.Get(ctx, student)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch reward balance")
	}
	return balance, nil
}
