package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
)

type accessRolesStub struct {
	grants map[string][]models.Capability
	err    error
}

func newAccessRolesStub(grants map[string][]models.Capability) *accessRolesStub {
	if grants == nil {
		grants = map[string][]models.Capability{}
	}
	return &accessRolesStub{grants: grants}
}

func (s *accessRolesStub) Grant(ctx context.Context, exec sqlx.ExtContext, grant models.RoleGrant) error {
	if s.err != nil {
		return s.err
	}
	for _, held := range s.grants[grant.Address] {
		if held == grant.Capability {
			return nil
		}
	}
	s.grants[grant.Address] = append(s.grants[grant.Address], grant.Capability)
	return nil
}

func (s *accessRolesStub) Revoke(ctx context.Context, exec sqlx.ExtContext, address string, capability models.Capability) error {
	if s.err != nil {
		return s.err
	}
	kept := s.grants[address][:0]
	for _, held := range s.grants[address] {
		if held != capability {
			kept = append(kept, held)
		}
	}
	s.grants[address] = kept
	return nil
}

func (s *accessRolesStub) Has(ctx context.Context, address string, capability models.Capability) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	for _, held := range s.grants[address] {
		if held == capability {
			return true, nil
		}
	}
	return false, nil
}

func (s *accessRolesStub) List(ctx context.Context, capability models.Capability) ([]models.RoleGrant, error) {
	if s.err != nil {
		return nil, s.err
	}
	var grants []models.RoleGrant
	for address, caps := range s.grants {
		for _, held := range caps {
			if held == capability {
				grants = append(grants, models.RoleGrant{Address: address, Capability: capability, GrantedAt: time.Now()})
			}
		}
	}
	return grants, nil
}

func newAccessService(roles *accessRolesStub, events *eventSinkStub) *AccessService {
	return NewAccessService(roles, &txStub{}, events, nil, nil)
}

func TestAccessServiceGrantRequiresOwner(t *testing.T) {
	roles := newAccessRolesStub(map[string][]models.Capability{
		"alice": {models.CapabilityInstructor},
	})
	svc := newAccessService(roles, &eventSinkStub{})

	err := svc.Grant(context.Background(), models.CapabilityOracle, "bob", "alice")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAccessServiceGrantOwnerCapabilityRejected(t *testing.T) {
	roles := newAccessRolesStub(map[string][]models.Capability{
		"root": {models.CapabilityOwner},
	})
	svc := newAccessService(roles, &eventSinkStub{})

	err := svc.Grant(context.Background(), models.CapabilityOwner, "bob", "root")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAccessServiceGrantAndRevoke(t *testing.T) {
	roles := newAccessRolesStub(map[string][]models.Capability{
		"root": {models.CapabilityOwner},
	})
	events := &eventSinkStub{}
	svc := newAccessService(roles, events)

	require.NoError(t, svc.Grant(context.Background(), models.CapabilityOracle, "bob", "root"))
	held, err := svc.Check(context.Background(), models.CapabilityOracle, "bob")
	require.NoError(t, err)
	assert.True(t, held)

	// Granting twice stays a no-op.
	require.NoError(t, svc.Grant(context.Background(), models.CapabilityOracle, "bob", "root"))

	require.NoError(t, svc.Revoke(context.Background(), models.CapabilityOracle, "bob", "root"))
	held, err = svc.Check(context.Background(), models.CapabilityOracle, "bob")
	require.NoError(t, err)
	assert.False(t, held)

	// Revoking an address that never held the capability succeeds silently.
	require.NoError(t, svc.Revoke(context.Background(), models.CapabilityOracle, "carol", "root"))

	assert.Equal(t, []models.EventKind{
		models.EventRoleGranted,
		models.EventRoleGranted,
		models.EventRoleRevoked,
		models.EventRoleRevoked,
	}, events.kinds())
}

func TestAccessServiceTransferOwnership(t *testing.T) {
	roles := newAccessRolesStub(map[string][]models.Capability{
		"root": {models.CapabilityOwner, models.CapabilityInstructor},
	})
	events := &eventSinkStub{}
	svc := newAccessService(roles, events)

	require.NoError(t, svc.TransferOwnership(context.Background(), "heir", "root"))

	oldOwner, err := svc.Check(context.Background(), models.CapabilityOwner, "root")
	require.NoError(t, err)
	assert.False(t, oldOwner)
	newOwner, err := svc.Check(context.Background(), models.CapabilityOwner, "heir")
	require.NoError(t, err)
	assert.True(t, newOwner)

	// The other capability sets are untouched by the handoff.
	instructor, err := svc.Check(context.Background(), models.CapabilityInstructor, "root")
	require.NoError(t, err)
	assert.True(t, instructor)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventOwnershipTransferred, events.events[0].Kind)
}

func TestAccessServiceTransferOwnershipValidation(t *testing.T) {
	roles := newAccessRolesStub(map[string][]models.Capability{
		"root": {models.CapabilityOwner},
	})
	svc := newAccessService(roles, &eventSinkStub{})

	err := svc.TransferOwnership(context.Background(), "", "root")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = svc.TransferOwnership(context.Background(), "root", "root")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = svc.TransferOwnership(context.Background(), "heir", "stranger")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAccessServiceCheckUnknownCapability(t *testing.T) {
	svc := newAccessService(newAccessRolesStub(nil), &eventSinkStub{})

	_, err := svc.Check(context.Background(), models.Capability("superuser"), "bob")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
