package models

import "time"

// Capability names a role set an address may belong to. The three sets are
// independent and overlapping: owner does not imply instructor or oracle.
type Capability string

const (
	CapabilityOwner      Capability = "owner"
	CapabilityInstructor Capability = "instructor"
	CapabilityOracle     Capability = "oracle"
)

// ValidCapability reports whether the capability is known.
func ValidCapability(c Capability) bool {
	switch c {
	case CapabilityOwner, CapabilityInstructor, CapabilityOracle:
		return true
	}
	return false
}

// GrantableCapability reports whether the capability may be granted or
// revoked through the registry. Ownership moves only through the dedicated
// single-owner handoff.
func GrantableCapability(c Capability) bool {
	return c == CapabilityInstructor || c == CapabilityOracle
}

// RoleGrant records membership of an address in a capability set.
type RoleGrant struct {
	Address    string     `db:"address" json:"address"`
	Capability Capability `db:"capability" json:"capability"`
	GrantedBy  string     `db:"granted_by" json:"granted_by"`
	GrantedAt  time.Time  `db:"granted_at" json:"granted_at"`
}
