package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	"github.com/noah-isme/coursework-ledger-api/pkg/errors"
	"github.com/noah-isme/coursework-ledger-api/pkg/export"
	"github.com/noah-isme/coursework-ledger-api/pkg/jobs"
	"github.com/noah-isme/coursework-ledger-api/pkg/storage"
)

type exportSubmissionReader interface {
	ListForExport(ctx context.Context, assignmentID *int64) ([]models.SubmissionExportRow, error)
}

type exportJobRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	UpdateStatus(ctx context.Context, id string, status models.ExportStatus) error
	MarkFinished(ctx context.Context, id, resultURL string, finishedAt time.Time) error
	MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportRequest describes a requested submission-ledger export.
type ExportRequest struct {
	AssignmentID *int64
	Format       models.ExportFormat
}

// ExportService renders the submission ledger into downloadable CSV/PDF
// files through a background job queue. Requesting an export is gated to
// owner or instructor capability holders.
type ExportService struct {
	submissions exportSubmissionReader
	repo        exportJobRepository
	roles       capabilityChecker
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	queue       jobEnqueuer
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService. The queue is attached later
// via SetQueue because the queue handler closes over the service itself.
func NewExportService(submissions exportSubmissionReader, repo exportJobRepository, roles capabilityChecker, fileStore fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		submissions: submissions,
		repo:        repo,
		roles:       roles,
		storage:     fileStore,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// SetQueue wires the background queue used for asynchronous processing.
func (s *ExportService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Enqueue records a QUEUED job and pushes it onto the worker queue.
func (s *ExportService) Enqueue(ctx context.Context, req ExportRequest, actor string) (*models.ExportJob, error) {
	if req.Format != models.ExportFormatCSV && req.Format != models.ExportFormatPDF {
		return nil, errors.Clone(errors.ErrValidation, "format must be csv or pdf")
	}
	allowed, err := s.canExport(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errors.Clone(errors.ErrForbidden, "owner or instructor capability required")
	}
	if s.queue == nil {
		return nil, errors.Clone(errors.ErrStateConflict, "exports are disabled")
	}

	job := &models.ExportJob{
		ID:           uuid.NewString(),
		AssignmentID: req.AssignmentID,
		Format:       req.Format,
		Status:       models.ExportStatusQueued,
		CreatedBy:    actor,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, errors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "ledger_export", Payload: job.ID}); err != nil {
		now := time.Now().UTC()
		if markErr := s.repo.MarkFailed(ctx, job.ID, "enqueue failed", now); markErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, errors.Wrap(err, errors.ErrInternal.Code, errors.ErrInternal.Status, "failed to enqueue export job")
	}
	s.logger.Info("export job queued", zap.String("job_id", job.ID), zap.String("format", string(job.Format)))
	return job, nil
}

// HandleJob is the queue handler. It renders the dataset, stores the file
// and records the signed download URL on the job row.
func (s *ExportService) HandleJob(ctx context.Context, job jobs.Job) error {
	jobID, ok := job.Payload.(string)
	if !ok || jobID == "" {
		jobID = job.ID
	}
	record, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", jobID, err)
	}
	if record.Status == models.ExportStatusFinished {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, record.ID, models.ExportStatusProcessing); err != nil {
		return fmt.Errorf("transition export job %s: %w", record.ID, err)
	}

	url, err := s.generate(ctx, record)
	now := time.Now().UTC()
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, record.ID, err.Error(), now); markErr != nil {
			s.logger.Error("failed to mark export job failed", zap.String("job_id", record.ID), zap.Error(markErr))
		}
		return err
	}
	if err := s.repo.MarkFinished(ctx, record.ID, url, now); err != nil {
		return fmt.Errorf("finish export job %s: %w", record.ID, err)
	}
	s.logger.Info("export job finished", zap.String("job_id", record.ID))
	return nil
}

// Get returns an export job, visible to its creator and to owners.
func (s *ExportService) Get(ctx context.Context, id, actor string) (*models.ExportJob, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Clone(errors.ErrNotFound, "export job not found")
	}
	if job.CreatedBy != actor {
		isOwner, err := s.roles.Has(ctx, actor, models.CapabilityOwner)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal.Code, errors.ErrInternal.Status, "failed to check owner capability")
		}
		if !isOwner {
			return nil, errors.Clone(errors.ErrForbidden, "export job belongs to another requester")
		}
	}
	return job, nil
}

// ParseToken validates a signed download token.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to a stored export file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes rendered files older than ttl (defaults to ResultTTL).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) canExport(ctx context.Context, actor string) (bool, error) {
	for _, cap := range []models.Capability{models.CapabilityOwner, models.CapabilityInstructor} {
		held, err := s.roles.Has(ctx, actor, cap)
		if err != nil {
			return false, errors.Wrap(err, errors.ErrInternal.Code, errors.ErrInternal.Status, "failed to check capability")
		}
		if held {
			return true, nil
		}
	}
	return false, nil
}

func (s *ExportService) generate(ctx context.Context, job *models.ExportJob) (string, error) {
	rows, err := s.submissions.ListForExport(ctx, job.AssignmentID)
	if err != nil {
		return "", fmt.Errorf("load submissions: %w", err)
	}
	dataset := buildSubmissionDataset(rows)
	title := "Submission Ledger"
	if job.AssignmentID != nil {
		title = fmt.Sprintf("Submission Ledger - Assignment %d", *job.AssignmentID)
	}

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("submissions_%s_%s.%s", time.Now().UTC().Format("20060102_150405"), job.ID[:8], job.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return "", err
	}

	token, _, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return "", err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/exports/download/%s", prefix, token), nil
}

func buildSubmissionDataset(rows []models.SubmissionExportRow) export.Dataset {
	headers := []string{"Assignment ID", "Title", "Student", "Submitted At", "Graded", "Grade", "Passed", "Claimed"}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		grade := ""
		passed := ""
		if row.Graded {
			grade = fmt.Sprintf("%d", row.Grade)
			passed = fmt.Sprintf("%t", row.Passed)
		}
		dataRows = append(dataRows, map[string]string{
			"Assignment ID": fmt.Sprintf("%d", row.AssignmentID),
			"Title":         row.Title,
			"Student":       row.Student,
			"Submitted At":  row.SubmittedAt.UTC().Format(time.RFC3339),
			"Graded":        fmt.Sprintf("%t", row.Graded),
			"Grade":         grade,
			"Passed":        passed,
			"Claimed":       fmt.Sprintf("%t", row.Claimed),
		})
	}
	return export.Dataset{Headers: headers, Rows: dataRows}
}
