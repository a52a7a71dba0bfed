package models

import "time"

// Submission is a student's one-time response to an assignment, identified by
// the (assignment id, student address) pair. The submitted_at timestamp is the
// existence marker: a row is only ever inserted with it set, and it is never
// updated afterwards.
type Submission struct {
	AssignmentID  int64      `db:"assignment_id" json:"assignment_id"`
	Student       string     `db:"student" json:"student"`
	ContentRef    string     `db:"content_ref" json:"content_ref"`
	SubmittedAt   time.Time  `db:"submitted_at" json:"submitted_at"`
	Graded        bool       `db:"graded" json:"graded"`
	Grade         int        `db:"grade" json:"grade"`
	Passed        bool       `db:"passed" json:"passed"`
	FeedbackRef   *string    `db:"feedback_ref" json:"feedback_ref,omitempty"`
	GradedAt      *time.Time `db:"graded_at" json:"graded_at,omitempty"`
	RewardClaimed bool       `db:"reward_claimed" json:"reward_claimed"`
	ClaimedAt     *time.Time `db:"claimed_at" json:"claimed_at,omitempty"`
}

// Claimable reports whether the submission can still produce a reward payout.
// Pass/fail was decided once at grading time and is read from the stored flag.
func (s Submission) Claimable() bool {
	return s.Graded && s.Passed && !s.RewardClaimed
}

// RewardEligibility summarises a submission's position in the reward flow.
type RewardEligibility struct {
	AssignmentID int64  `json:"assignment_id"`
	Student      string `json:"student"`
	Graded       bool   `json:"graded"`
	Grade        int    `json:"grade"`
	Passed       bool   `json:"passed"`
	Claimed      bool   `json:"claimed"`
	RewardAmount int64  `json:"reward_amount"`
	Eligible     bool   `json:"eligible"`
}

// SubmissionExportRow flattens a submission for CSV/PDF export.
type SubmissionExportRow struct {
	AssignmentID int64      `db:"assignment_id"`
	Title        string     `db:"title"`
	Student      string     `db:"student"`
	SubmittedAt  time.Time  `db:"submitted_at"`
	Graded       bool       `db:"graded"`
	Grade        int        `db:"grade"`
	Passed       bool       `db:"passed"`
	Claimed      bool       `db:"reward_claimed"`
	GradedAt     *time.Time `db:"graded_at"`
}
