package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
)

// RoleRepository manages the capability sets (owner, instructor, oracle).
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository constructs a RoleRepository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Grant adds an address to a capability set. Granting an already-held
// capability is a no-op.
func (r *RoleRepository) Grant(ctx context.Context, exec sqlx.ExtContext, grant models.RoleGrant) error {
	query := `INSERT INTO role_grants (address, capability, granted_by, granted_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (address, capability) DO NOTHING`
	if _, err := exec.ExecContext(ctx, query, grant.Address, grant.Capability, grant.GrantedBy, grant.GrantedAt); err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}

// Revoke removes an address from a capability set. Revoking an identity that
// never held the capability succeeds silently.
func (r *RoleRepository) Revoke(ctx context.Context, exec sqlx.ExtContext, address string, capability models.Capability) error {
	if _, err := exec.ExecContext(ctx, "DELETE FROM role_grants WHERE address = $1 AND capability = $2", address, capability); err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	return nil
}

// Has reports whether the address holds the capability.
func (r *RoleRepository) Has(ctx context.Context, address string, capability models.Capability) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM role_grants WHERE address = $1 AND capability = $2", address, capability); err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return count > 0, nil
}

// EnsureSeed grants the deployer-analogue address all three capabilities.
// Existing grants are left untouched, so a transferred ownership survives
// restarts.
func (r *RoleRepository) EnsureSeed(ctx context.Context, owner string, now time.Time) error {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM role_grants WHERE capability = $1", models.CapabilityOwner); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, capability := range []models.Capability{models.CapabilityOwner, models.CapabilityInstructor, models.CapabilityOracle} {
		grant := models.RoleGrant{Address: owner, Capability: capability, GrantedBy: owner, GrantedAt: now}
		if err := r.Grant(ctx, r.db, grant); err != nil {
			return err
		}
	}
	return nil
}

// List returns all grants for a capability set.
func (r *RoleRepository) List(ctx context.Context, capability models.Capability) ([]models.RoleGrant, error) {
	var grants []models.RoleGrant
	query := "SELECT address, capability, granted_by, granted_at FROM role_grants WHERE capability = $1 ORDER BY granted_at ASC"
	if err := r.db.SelectContext(ctx, &grants, query, capability); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return grants, nil
}
