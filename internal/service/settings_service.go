package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
)

type settingsRepository interface {
	Get(ctx context.Context) (*models.LedgerSettings, error)
	SetMinPassingGrade(ctx context.Context, exec sqlx.ExtContext, grade int, now time.Time) error
	SetPaused(ctx context.Context, exec sqlx.ExtContext, paused bool, now time.Time) error
}

// SettingsService owns the global parameter record: the minimum passing
// grade and the pause flag. Both are owner-mutable and read by the other
// services at call time.
type SettingsService struct {
	settings settingsRepository
	roles    capabilityChecker
	tx       txRunner
	events   eventWriter
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(settings settingsRepository, roles capabilityChecker, tx txRunner, events eventWriter, metrics *MetricsService, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{settings: settings, roles: roles, tx: tx, events: events, metrics: metrics, logger: logger}
}

// Get returns the current global parameters.
func (s *SettingsService) Get(ctx context.Context) (*models.LedgerSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read ledger settings")
	}
	return settings, nil
}

// UpdateMinPassingGrade changes the threshold applied to future gradings.
// Already-graded submissions keep the pass/fail outcome recorded at grading
// time.
func (s *SettingsService) UpdateMinPassingGrade(ctx context.Context, grade int, actor string) error {
	err := s.updateMinPassingGrade(ctx, grade, actor)
	s.metrics.ObserveLedgerOperation("settings_min_grade", err)
	return err
}

func (s *SettingsService) updateMinPassingGrade(ctx context.Context, grade int, actor string) error {
	if grade < 0 || grade > 100 {
		return appErrors.Clone(appErrors.ErrValidation, "minimum passing grade must be between 0 and 100")
	}
	if err := s.requireOwner(ctx, actor); err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		if err := s.settings.SetMinPassingGrade(ctx, tx, grade, now); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update minimum passing grade")
		}
		event := newEvent(models.EventMinGradeUpdated, actor)
		event.Grade = intPtr(grade)
		return s.events.Insert(ctx, tx, event)
	})
}

// Pause gates all student/instructor/oracle mutations. Administrative
// operations stay available.
func (s *SettingsService) Pause(ctx context.Context, actor string) error {
	err := s.setPaused(ctx, true, actor, models.EventLedgerPaused)
	s.metrics.ObserveLedgerOperation("ledger_pause", err)
	return err
}

// Unpause re-enables mutations.
func (s *SettingsService) Unpause(ctx context.Context, actor string) error {
	err := s.setPaused(ctx, false, actor, models.EventLedgerUnpaused)
	s.metrics.ObserveLedgerOperation("ledger_unpause", err)
	return err
}

func (s *SettingsService) setPaused(ctx context.Context, paused bool, actor string, kind models.EventKind) error {
	if err := s.requireOwner(ctx, actor); err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		if err := s.settings.SetPaused(ctx, tx, paused, now); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update pause flag")
		}
		return s.events.Insert(ctx, tx, newEvent(kind, actor))
	})
}

func (s *SettingsService) requireOwner(ctx context.Context, actor string) error {
	held, err := s.roles.Has(ctx, actor, models.CapabilityOwner)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check owner capability")
	}
	if !held {
		return appErrors.Clone(appErrors.ErrForbidden, "owner capability required")
	}
	return nil
}
