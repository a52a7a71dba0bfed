package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
)

// SubmissionRepository manages persistence for submission records.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = "assignment_id, student, content_ref, submitted_at, graded, grade, passed, feedback_ref, graded_at, reward_claimed, claimed_at"

// Insert creates a submission record. The (assignment_id, student) primary
// key makes a resubmission fail at the database even if the service-level
// existence check were ever bypassed.
func (r *SubmissionRepository) Insert(ctx context.Context, exec sqlx.ExtContext, s *models.Submission) error {
	query := `INSERT INTO submissions (assignment_id, student, content_ref, submitted_at, graded, grade, passed, reward_claimed)
        VALUES ($1, $2, $3, $4, FALSE, 0, FALSE, FALSE)`
	if _, err := exec.ExecContext(ctx, query, s.AssignmentID, s.Student, s.ContentRef, s.SubmittedAt); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// FindByPair fetches the submission for (assignment, student).
func (r *SubmissionRepository) FindByPair(ctx context.Context, assignmentID int64, student string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE assignment_id = $1 AND student = $2", submissionColumns)
	var s models.Submission
	if err := r.db.GetContext(ctx, &s, query, assignmentID, student); err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByPairForUpdate fetches the submission inside a transaction with a row
// lock held until the operation commits or rolls back.
func (r *SubmissionRepository) FindByPairForUpdate(ctx context.Context, exec sqlx.ExtContext, assignmentID int64, student string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE assignment_id = $1 AND student = $2 FOR UPDATE", submissionColumns)
	var s models.Submission
	if err := sqlx.GetContext(ctx, exec, &s, query, assignmentID, student); err != nil {
		return nil, err
	}
	return &s, nil
}

// Exists reports whether a submission exists for the pair.
func (r *SubmissionRepository) Exists(ctx context.Context, exec sqlx.ExtContext, assignmentID int64, student string) (bool, error) {
	var count int
	if err := sqlx.GetContext(ctx, exec, &count, "SELECT COUNT(*) FROM submissions WHERE assignment_id = $1 AND student = $2", assignmentID, student); err != nil {
		return false, fmt.Errorf("check submission: %w", err)
	}
	return count > 0, nil
}

// SetGrade stores the grading outcome. Grade, pass flag and feedback ref are
// written once and never updated again.
func (r *SubmissionRepository) SetGrade(ctx context.Context, exec sqlx.ExtContext, assignmentID int64, student string, grade int, passed bool, feedbackRef string, gradedAt time.Time) error {
	query := `UPDATE submissions SET graded = TRUE, grade = $3, passed = $4, feedback_ref = $5, graded_at = $6
        WHERE assignment_id = $1 AND student = $2 AND graded = FALSE`
	res, err := exec.ExecContext(ctx, query, assignmentID, student, grade, passed, feedbackRef, gradedAt)
	if err != nil {
		return fmt.Errorf("set grade: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set grade: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set grade: no ungraded submission for assignment %d student %s", assignmentID, student)
	}
	return nil
}

// MarkClaimed flips the reward-claimed flag. The guard on the current flag
// value keeps the transition one-way.
func (r *SubmissionRepository) MarkClaimed(ctx context.Context, exec sqlx.ExtContext, assignmentID int64, student string, claimedAt time.Time) error {
	query := `UPDATE submissions SET reward_claimed = TRUE, claimed_at = $3
        WHERE assignment_id = $1 AND student = $2 AND reward_claimed = FALSE`
	res, err := exec.ExecContext(ctx, query, assignmentID, student, claimedAt)
	if err != nil {
		return fmt.Errorf("mark claimed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark claimed: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark claimed: no unclaimed submission for assignment %d student %s", assignmentID, student)
	}
	return nil
}

// ListAssignmentIDsByStudent returns the ids of assignments the student has
// submitted to, in submission order. This is the student's append-only
// submission history: rows are only ever inserted, never removed.
func (r *SubmissionRepository) ListAssignmentIDsByStudent(ctx context.Context, student string) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, "SELECT assignment_id FROM submissions WHERE student = $1 ORDER BY submitted_at ASC", student); err != nil {
		return nil, fmt.Errorf("list student submissions: %w", err)
	}
	return ids, nil
}

// ListForExport flattens submissions joined with assignment titles for
// ledger exports.
func (r *SubmissionRepository) ListForExport(ctx context.Context, assignmentID *int64) ([]models.SubmissionExportRow, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if assignmentID != nil {
		conditions = append(conditions, fmt.Sprintf("s.assignment_id = $%d", len(args)+1))
		args = append(args, *assignmentID)
	}
	query := fmt.Sprintf(`SELECT s.assignment_id, a.title, s.student, s.submitted_at, s.graded, s.grade, s.passed, s.reward_claimed, s.graded_at
        FROM submissions s
        JOIN assignments a ON a.id = s.assignment_id
        WHERE %s
        ORDER BY s.assignment_id ASC, s.submitted_at ASC`, strings.Join(conditions, " AND "))
	var rows []models.SubmissionExportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list submissions for export: %w", err)
	}
	return rows, nil
}
