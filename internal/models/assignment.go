package models

import "time"

// AssignmentKind classifies the expected submission format.
type AssignmentKind string

const (
	AssignmentKindDocument     AssignmentKind = "DOCUMENT"
	AssignmentKindCode         AssignmentKind = "CODE"
	AssignmentKindQuiz         AssignmentKind = "QUIZ"
	AssignmentKindPresentation AssignmentKind = "PRESENTATION"
)

// ValidAssignmentKind reports whether the tag belongs to the closed enumeration.
func ValidAssignmentKind(kind AssignmentKind) bool {
	switch kind {
	case AssignmentKindDocument, AssignmentKindCode, AssignmentKindQuiz, AssignmentKindPresentation:
		return true
	}
	return false
}

// Assignment is a task definition with deadline, reward and capacity.
// IDs are allocated by the database sequence: positive, strictly increasing,
// never reused, even across deactivated assignments.
type Assignment struct {
	ID              int64          `db:"id" json:"id"`
	Title           string         `db:"title" json:"title"`
	Description     string         `db:"description" json:"description"`
	ContentRef      string         `db:"content_ref" json:"content_ref"`
	Instructor      string         `db:"instructor" json:"instructor"`
	Deadline        time.Time      `db:"deadline" json:"deadline"`
	RewardAmount    int64          `db:"reward_amount" json:"reward_amount"`
	Capacity        int            `db:"capacity" json:"capacity"`
	SubmissionCount int            `db:"submission_count" json:"submission_count"`
	Active          bool           `db:"active" json:"active"`
	Kind            AssignmentKind `db:"kind" json:"kind"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// AcceptsSubmissions reports whether the assignment can take another
// submission at the given reference time.
func (a Assignment) AcceptsSubmissions(now time.Time) bool {
	return a.Active && !now.After(a.Deadline) && a.SubmissionCount < a.Capacity
}

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	Instructor string
	Active     *bool
	Kind       AssignmentKind
	Page       int
	PageSize   int
}
