package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
)

// SettingsRepository manages the single-row global parameter record.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs a SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get reads the settings row.
func (r *SettingsRepository) Get(ctx context.Context) (*models.LedgerSettings, error) {
	var s models.LedgerSettings
	if err := r.db.GetContext(ctx, &s, "SELECT min_passing_grade, paused, updated_at FROM ledger_settings WHERE id = 1"); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// GetTx reads the settings row through the provided executor so grading
// operations see the value committed at their own transaction's snapshot.
func (r *SettingsRepository) GetTx(ctx context.Context, exec sqlx.ExtContext) (*models.LedgerSettings, error) {
	var s models.LedgerSettings
	if err := sqlx.GetContext(ctx, exec, &s, "SELECT min_passing_grade, paused, updated_at FROM ledger_settings WHERE id = 1"); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// SetMinPassingGrade updates the passing threshold for future gradings.
func (r *SettingsRepository) SetMinPassingGrade(ctx context.Context, exec sqlx.ExtContext, grade int, now time.Time) error {
	if _, err := exec.ExecContext(ctx, "UPDATE ledger_settings SET min_passing_grade = $1, updated_at = $2 WHERE id = 1", grade, now); err != nil {
		return fmt.Errorf("set min passing grade: %w", err)
	}
	return nil
}

// SetPaused toggles the global pause flag.
func (r *SettingsRepository) SetPaused(ctx context.Context, exec sqlx.ExtContext, paused bool, now time.Time) error {
	if _, err := exec.ExecContext(ctx, "UPDATE ledger_settings SET paused = $1, updated_at = $2 WHERE id = 1", paused, now); err != nil {
		return fmt.Errorf("set paused: %w", err)
	}
	return nil
}

// EnsureSeed inserts the settings row when absent, leaving an existing row
// untouched.
func (r *SettingsRepository) EnsureSeed(ctx context.Context, minPassingGrade int, now time.Time) error {
	query := `INSERT INTO ledger_settings (id, min_passing_grade, paused, updated_at)
        VALUES (1, $1, FALSE, $2)
        ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, minPassingGrade, now); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}
