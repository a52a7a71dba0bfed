package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
)

// txRunner scopes a mutation to one database transaction. Shared by every
// mutating service in this package.
type txRunner interface {
	RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

// eventWriter appends a ledger event inside the mutation's transaction.
type eventWriter interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, event *models.LedgerEvent) error
}

// capabilityChecker consults the access registry at call time.
type capabilityChecker interface {
	Has(ctx context.Context, address string, capability models.Capability) (bool, error)
}

func newEvent(kind models.EventKind, actor string) *models.LedgerEvent {
	return &models.LedgerEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Actor:     actor,
		CreatedAt: time.Now().UTC(),
	}
}

func int64Ptr(v int64) *int64    { return &v }
func intPtr(v int) *int          { return &v }
func boolPtr(v bool) *bool       { return &v }
func stringPtr(v string) *string { return &v }

type eventListRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.LedgerEvent, int, error)
}

// EventService exposes the ledger event feed.
type EventService struct {
	repo   eventListRepository
	logger *zap.Logger
}

// NewEventService constructs an EventService.
func NewEventService(repo eventListRepository, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, logger: logger}
}

// List returns events matching the filter, newest first.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.LedgerEvent, *models.Pagination, error) {
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ledger events")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	return events, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
