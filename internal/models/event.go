package models

import "time"

// EventKind identifies the mutation a ledger event records.
type EventKind string

const (
	EventAssignmentCreated     EventKind = "assignment.created"
	EventAssignmentDeactivated EventKind = "assignment.deactivated"
	EventSubmissionCreated     EventKind = "submission.created"
	EventSubmissionGraded      EventKind = "submission.graded"
	EventRewardClaimed         EventKind = "reward.claimed"
	EventRewardBatchClaimed    EventKind = "reward.batch_claimed"
	EventRoleGranted           EventKind = "role.granted"
	EventRoleRevoked           EventKind = "role.revoked"
	EventOwnershipTransferred  EventKind = "ownership.transferred"
	EventMinGradeUpdated       EventKind = "settings.min_grade_updated"
	EventLedgerPaused          EventKind = "ledger.paused"
	EventLedgerUnpaused        EventKind = "ledger.unpaused"
	EventTreasuryDeposited     EventKind = "treasury.deposited"
	EventTreasuryWithdrawn     EventKind = "treasury.withdrawn"
	EventTokenMinted           EventKind = "token.minted"
	EventTokenBurned           EventKind = "token.burned"
)

// LedgerEvent is the structured notification emitted by every successful
// mutating operation. Events are inserted in the same transaction as the
// mutation they describe, so a rolled-back operation leaves no event behind.
type LedgerEvent struct {
	ID           string    `db:"id" json:"id"`
	Kind         EventKind `db:"kind" json:"kind"`
	Actor        string    `db:"actor" json:"actor"`
	AssignmentID *int64    `db:"assignment_id" json:"assignment_id,omitempty"`
	Student      *string   `db:"student" json:"student,omitempty"`
	Amount       *int64    `db:"amount" json:"amount,omitempty"`
	Grade        *int      `db:"grade" json:"grade,omitempty"`
	Passed       *bool     `db:"passed" json:"passed,omitempty"`
	Note         *string   `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// EventFilter narrows event listings.
type EventFilter struct {
	Kind         EventKind
	AssignmentID *int64
	Student      string
	Page         int
	PageSize     int
}
