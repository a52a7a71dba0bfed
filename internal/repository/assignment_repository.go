package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
)

// AssignmentRepository manages persistence for assignment records.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = "id, title, description, content_ref, instructor, deadline, reward_amount, capacity, submission_count, active, kind, created_at"

// Create inserts the assignment and fills in its sequence-allocated id.
func (r *AssignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, a *models.Assignment) error {
	query := `INSERT INTO assignments (title, description, content_ref, instructor, deadline, reward_amount, capacity, submission_count, active, kind, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 0, TRUE, $8, $9)
        RETURNING id`
	row := exec.QueryRowxContext(ctx, query, a.Title, a.Description, a.ContentRef, a.Instructor, a.Deadline, a.RewardAmount, a.Capacity, a.Kind, a.CreatedAt)
	if err := row.Scan(&a.ID); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// FindByID fetches an assignment by id.
func (r *AssignmentRepository) FindByID(ctx context.Context, id int64) (*models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments WHERE id = $1", assignmentColumns)
	var a models.Assignment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByIDForUpdate fetches an assignment inside a transaction, locking the
// row for the remainder of the operation.
func (r *AssignmentRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments WHERE id = $1 FOR UPDATE", assignmentColumns)
	var a models.Assignment
	if err := sqlx.GetContext(ctx, exec, &a, query, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// IncrementSubmissionCount bumps the submission counter. This is the sole
// mutation path for submission_count and always runs in the same transaction
// as the submission insert.
func (r *AssignmentRepository) IncrementSubmissionCount(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	res, err := exec.ExecContext(ctx, "UPDATE assignments SET submission_count = submission_count + 1 WHERE id = $1 AND submission_count < capacity", id)
	if err != nil {
		return fmt.Errorf("increment submission count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment submission count: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Deactivate flips the active flag off. It is a one-way transition and a
// silent no-op for ids that do not exist or are already inactive.
func (r *AssignmentRepository) Deactivate(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	if _, err := exec.ExecContext(ctx, "UPDATE assignments SET active = FALSE WHERE id = $1", id); err != nil {
		return fmt.Errorf("deactivate assignment: %w", err)
	}
	return nil
}

// List returns assignments matching the provided filters.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Instructor != "" {
		conditions = append(conditions, fmt.Sprintf("instructor = $%d", len(args)+1))
		args = append(args, filter.Instructor)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}

	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM assignments WHERE %s ORDER BY id ASC LIMIT %d OFFSET %d", assignmentColumns, where, size, offset)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM assignments WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	return assignments, total, nil
}
