package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
)

// EventRepository persists structured ledger event notifications.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert writes the event through the provided executor so it shares the
// fate of the mutation it describes.
func (r *EventRepository) Insert(ctx context.Context, exec sqlx.ExtContext, event *models.LedgerEvent) error {
	query := `INSERT INTO ledger_events (id, kind, actor, assignment_id, student, amount, grade, passed, note, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := exec.ExecContext(ctx, query, event.ID, event.Kind, event.Actor, event.AssignmentID, event.Student, event.Amount, event.Grade, event.Passed, event.Note, event.CreatedAt); err != nil {
		return fmt.Errorf("insert ledger event: %w", err)
	}
	return nil
}

// List returns events matching the provided filters, newest first.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.LedgerEvent, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}
	if filter.AssignmentID != nil {
		conditions = append(conditions, fmt.Sprintf("assignment_id = $%d", len(args)+1))
		args = append(args, *filter.AssignmentID)
	}
	if filter.Student != "" {
		conditions = append(conditions, fmt.Sprintf("student = $%d", len(args)+1))
		args = append(args, filter.Student)
	}

	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, kind, actor, assignment_id, student, amount, grade, passed, note, created_at
        FROM ledger_events WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, size, offset)
	var events []models.LedgerEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list ledger events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM ledger_events WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count ledger events: %w", err)
	}
	return events, total, nil
}
