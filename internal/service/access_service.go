package service

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
)

type accessRoleRepository interface {
	Grant(ctx context.Context, exec sqlx.ExtContext, grant models.RoleGrant) error
	Revoke(ctx context.Context, exec sqlx.ExtContext, address string, capability models.Capability) error
	Has(ctx context.Context, address string, capability models.Capability) (bool, error)
	List(ctx context.Context, capability models.Capability) ([]models.RoleGrant, error)
}

// AccessService maintains the owner, instructor and oracle capability sets
// and gates every privileged mutation in the ledger. The sets are independent
// and overlapping; holding owner does not imply instructor or oracle.
type AccessService struct {
	roles   accessRoleRepository
	tx      txRunner
	events  eventWriter
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAccessService constructs an AccessService.
func NewAccessService(roles accessRoleRepository, tx txRunner, events eventWriter, metrics *MetricsService, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{roles: roles, tx: tx, events: events, metrics: metrics, logger: logger}
}

// Check reports whether the address holds the capability.
func (s *AccessService) Check(ctx context.Context, capability models.Capability, address string) (bool, error) {
	if !models.ValidCapability(capability) {
		return false, appErrors.Clone(appErrors.ErrValidation, "unknown capability")
	}
	held, err := s.roles.Has(ctx, address, capability)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check capability")
	}
	return held, nil
}

// Grant adds an address to the instructor or oracle set. Owner-gated; the
// owner capability itself moves only through TransferOwnership.
func (s *AccessService) Grant(ctx context.Context, capability models.Capability, address, actor string) error {
	err := s.mutate(ctx, capability, address, actor, models.EventRoleGranted, func(tx *sqlx.Tx, now time.Time) error {
		return s.roles.Grant(ctx, tx, models.RoleGrant{Address: address, Capability: capability, GrantedBy: actor, GrantedAt: now})
	})
	s.metrics.ObserveLedgerOperation("role_grant", err)
	return err
}

// Revoke removes an address from the instructor or oracle set. Revoking an
// identity that never held the capability succeeds silently.
func (s *AccessService) Revoke(ctx context.Context, capability models.Capability, address, actor string) error {
	err := s.mutate(ctx, capability, address, actor, models.EventRoleRevoked, func(tx *sqlx.Tx, now time.Time) error {
		return s.roles.Revoke(ctx, tx, address, capability)
	})
	s.metrics.ObserveLedgerOperation("role_revoke", err)
	return err
}

// TransferOwnership hands the owner capability to a new address. A distinct
// single-owner handoff: the caller loses owner, the target gains it.
func (s *AccessService) TransferOwnership(ctx context.Context, newOwner, actor string) error {
	newOwner = strings.TrimSpace(newOwner)
	if newOwner == "" {
		return appErrors.Clone(appErrors.ErrValidation, "new owner address is required")
	}
	if newOwner == actor {
		return appErrors.Clone(appErrors.ErrValidation, "new owner must differ from the current owner")
	}
	if err := s.requireOwner(ctx, actor); err != nil {
		return err
	}

	err := s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		if err := s.roles.Revoke(ctx, tx, actor, models.CapabilityOwner); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release ownership")
		}
		if err := s.roles.Grant(ctx, tx, models.RoleGrant{Address: newOwner, Capability: models.CapabilityOwner, GrantedBy: actor, GrantedAt: now}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign ownership")
		}
		event := newEvent(models.EventOwnershipTransferred, actor)
		event.Note = stringPtr(newOwner)
		return s.events.Insert(ctx, tx, event)
	})
	s.metrics.ObserveLedgerOperation("ownership_transfer", err)
	if err == nil {
		s.logger.Info("ownership transferred", zap.String("from", actor), zap.String("to", newOwner))
	}
	return err
}

// List returns the members of a capability set.
func (s *AccessService) List(ctx context.Context, capability models.Capability) ([]models.RoleGrant, error) {
	if !models.ValidCapability(capability) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown capability")
	}
	grants, err := s.roles.List(ctx, capability)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list capability members")
	}
	return grants, nil
}

func (s *AccessService) mutate(ctx context.Context, capability models.Capability, address, actor string, kind models.EventKind, apply func(tx *sqlx.Tx, now time.Time) error) error {
	if !models.GrantableCapability(capability) {
		return appErrors.Clone(appErrors.ErrValidation, "capability must be instructor or oracle")
	}
	if strings.TrimSpace(address) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "address is required")
	}
	if err := s.requireOwner(ctx, actor); err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		if err := apply(tx, now); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update capability set")
		}
		event := newEvent(kind, actor)
		event.Student = stringPtr(address)
		event.Note = stringPtr(string(capability))
		return s.events.Insert(ctx, tx, event)
	})
}

func (s *AccessService) requireOwner(ctx context.Context, actor string) error {
	held, err := s.roles.Has(ctx, actor, models.CapabilityOwner)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check owner capability")
	}
	if !held {
		return appErrors.Clone(appErrors.ErrForbidden, "owner capability required")
	}
	return nil
}
