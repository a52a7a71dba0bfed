package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
)

type catalogAssignmentRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, a *models.Assignment) error
	FindByID(ctx context.Context, id int64) (*models.Assignment, error)
	Deactivate(ctx context.Context, exec sqlx.ExtContext, id int64) error
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error)
}

type catalogSettingsRepository interface {
	GetTx(ctx context.Context, exec sqlx.ExtContext) (*models.LedgerSettings, error)
}

// CreateAssignmentRequest is the payload for publishing an assignment.
type CreateAssignmentRequest struct {
	Title        string                `json:"title" validate:"required"`
	Description  string                `json:"description"`
	ContentRef   string                `json:"content_ref" validate:"required"`
	Deadline     time.Time             `json:"deadline" validate:"required"`
	RewardAmount int64                 `json:"reward_amount" validate:"gte=0"`
	Capacity     int                   `json:"capacity" validate:"gte=1"`
	Kind         models.AssignmentKind `json:"kind" validate:"required"`
}

// CatalogService owns assignment records and their lifecycle.
type CatalogService struct {
	assignments catalogAssignmentRepository
	settings    catalogSettingsRepository
	roles       capabilityChecker
	tx          txRunner
	events      eventWriter
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(assignments catalogAssignmentRepository, settings catalogSettingsRepository, roles capabilityChecker, tx txRunner, events eventWriter, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		assignments: assignments,
		settings:    settings,
		roles:       roles,
		tx:          tx,
		events:      events,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Create publishes a new assignment. Instructor-gated; the deadline must be
// strictly in the future and the capacity at least one. The id is allocated
// by the catalog and is strictly increasing across its lifetime.
func (s *CatalogService) Create(ctx context.Context, req CreateAssignmentRequest, actor string) (*models.Assignment, error) {
	assignment, err := s.create(ctx, req, actor)
	s.metrics.ObserveLedgerOperation("assignment_create", err)
	return assignment, err
}

func (s *CatalogService) create(ctx context.Context, req CreateAssignmentRequest, actor string) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.ContentRef) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title and content_ref must be non-empty")
	}
	if !models.ValidAssignmentKind(req.Kind) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assignment kind")
	}

	now := time.Now().UTC()
	if !req.Deadline.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "deadline must be in the future")
	}

	held, err := s.roles.Has(ctx, actor, models.CapabilityInstructor)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check instructor capability")
	}
	if !held {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "instructor capability required")
	}

	assignment := &models.Assignment{
		Title:        req.Title,
		Description:  req.Description,
		ContentRef:   req.ContentRef,
		Instructor:   actor,
		Deadline:     req.Deadline.UTC(),
		RewardAmount: req.RewardAmount,
		Capacity:     req.Capacity,
		Active:       true,
		Kind:         req.Kind,
		CreatedAt:    now,
	}

	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		settings, err := s.settings.GetTx(ctx, tx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read ledger settings")
		}
		if settings.Paused {
			return appErrors.ErrLedgerPaused
		}
		if err := s.assignments.Create(ctx, tx, assignment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
		}
		event := newEvent(models.EventAssignmentCreated, actor)
		event.AssignmentID = int64Ptr(assignment.ID)
		event.Amount = int64Ptr(assignment.RewardAmount)
		event.Note = stringPtr(assignment.Deadline.Format(time.RFC3339))
		return s.events.Insert(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment created",
		zap.Int64("assignment_id", assignment.ID),
		zap.String("instructor", actor),
		zap.Int64("reward_amount", assignment.RewardAmount),
		zap.Time("deadline", assignment.Deadline),
	)
	return assignment, nil
}

// Deactivate turns an assignment off. Owner-gated, one-way, and a silent
// no-op for unknown or already-inactive ids.
func (s *CatalogService) Deactivate(ctx context.Context, id int64, actor string) error {
	err := s.deactivate(ctx, id, actor)
	s.metrics.ObserveLedgerOperation("assignment_deactivate", err)
	return err
}

func (s *CatalogService) deactivate(ctx context.Context, id int64, actor string) error {
	held, err := s.roles.Has(ctx, actor, models.CapabilityOwner)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check owner capability")
	}
	if !held {
		return appErrors.Clone(appErrors.ErrForbidden, "owner capability required")
	}

	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.assignments.Deactivate(ctx, tx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate assignment")
		}
		event := newEvent(models.EventAssignmentDeactivated, actor)
		event.AssignmentID = int64Ptr(id)
		return s.events.Insert(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	s.invalidateCache(ctx, id)
	return nil
}

// Get fetches an assignment by id, serving hot reads from cache.
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Assignment, error) {
	key := assignmentCacheKey(id)
	if s.cache.Enabled() {
		var cached models.Assignment
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, nil
		}
	}

	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch assignment")
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, assignment, 0)
	}
	return assignment, nil
}

// List returns assignments matching the filter.
func (s *CatalogService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	assignments, total, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return assignments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// SubmissionCount returns the raw submission counter for an assignment.
// Aggregate grading statistics are deliberately not computed here.
func (s *CatalogService) SubmissionCount(ctx context.Context, id int64) (int, error) {
	assignment, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return assignment.SubmissionCount, nil
}

// InvalidateCache drops the cached copy of an assignment after a mutation
// performed by another service (submission counting).
func (s *CatalogService) InvalidateCache(ctx context.Context, id int64) {
	s.invalidateCache(ctx, id)
}

func (s *CatalogService) invalidateCache(ctx context.Context, id int64) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, assignmentCacheKey(id)); err != nil {
		s.logger.Warn("assignment cache invalidation failed", zap.Int64("assignment_id", id), zap.Error(err))
	}
}

func assignmentCacheKey(id int64) string {
	return fmt.Sprintf("assignments:%d", id)
}
