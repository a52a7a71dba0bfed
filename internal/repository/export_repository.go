package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
)

// ExportRepository persists export job metadata.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs an ExportRepository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

const exportColumns = "id, assignment_id, format, status, result_url, created_by, created_at, finished_at, error_message"

// Create inserts a queued export job.
func (r *ExportRepository) Create(ctx context.Context, job *models.ExportJob) error {
	query := `INSERT INTO export_jobs (id, assignment_id, format, status, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, job.ID, job.AssignmentID, job.Format, job.Status, job.CreatedBy, job.CreatedAt); err != nil {
		return fmt.Errorf("insert export job: %w", err)
	}
	return nil
}

// FindByID fetches a job by id.
func (r *ExportRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	query := fmt.Sprintf("SELECT %s FROM export_jobs WHERE id = $1", exportColumns)
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateStatus transitions the job lifecycle state.
func (r *ExportRepository) UpdateStatus(ctx context.Context, id string, status models.ExportStatus) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE export_jobs SET status = $2 WHERE id = $1", id, status); err != nil {
		return fmt.Errorf("update export status: %w", err)
	}
	return nil
}

// MarkFinished records the result URL and completion time.
func (r *ExportRepository) MarkFinished(ctx context.Context, id, resultURL string, finishedAt time.Time) error {
	query := "UPDATE export_jobs SET status = $2, result_url = $3, finished_at = $4 WHERE id = $1"
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportStatusFinished, resultURL, finishedAt); err != nil {
		return fmt.Errorf("mark export finished: %w", err)
	}
	return nil
}

// MarkFailed records the failure reason and completion time.
func (r *ExportRepository) MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error {
	query := "UPDATE export_jobs SET status = $2, error_message = $3, finished_at = $4 WHERE id = $1"
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportStatusFailed, message, finishedAt); err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}
	return nil
}
