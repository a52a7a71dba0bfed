package models

import "time"

// LedgerSettings is the single process-wide parameter record. It is read at
// call time by every operation that needs it, never cached.
type LedgerSettings struct {
	MinPassingGrade int       `db:"min_passing_grade" json:"min_passing_grade"`
	Paused          bool      `db:"paused" json:"paused"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
