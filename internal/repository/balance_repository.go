package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
)

// ErrBalanceInsufficient is returned when a debit would drive a reward
// balance negative. The guarded UPDATE makes a negative balance impossible.
var ErrBalanceInsufficient = errors.New("reward balance insufficient")

// BalanceRepository manages the internal reward-balance ledger.
type BalanceRepository struct {
	db *sqlx.DB
}

// NewBalanceRepository constructs a BalanceRepository.
func NewBalanceRepository(db *sqlx.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// Get fetches a student's accrued balance. Students without a row have a
// zero balance.
func (r *BalanceRepository) Get(ctx context.Context, student string) (*models.RewardBalance, error) {
	var b models.RewardBalance
	err := r.db.GetContext(ctx, &b, "SELECT student, amount, updated_at FROM reward_balances WHERE student = $1", student)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.RewardBalance{Student: student, Amount: 0}, nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &b, nil
}

// Credit adds amount to the student's balance, creating the row on first
// credit. Credits are additive across passing assignments.
func (r *BalanceRepository) Credit(ctx context.Context, exec sqlx.ExtContext, student string, amount int64, now time.Time) error {
	query := `INSERT INTO reward_balances (student, amount, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (student) DO UPDATE SET amount = reward_balances.amount + EXCLUDED.amount, updated_at = EXCLUDED.updated_at`
	if _, err := exec.ExecContext(ctx, query, student, amount, now); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}

// Debit subtracts amount from the student's balance. The WHERE guard rejects
// the debit atomically when the balance cannot cover it.
func (r *BalanceRepository) Debit(ctx context.Context, exec sqlx.ExtContext, student string, amount int64, now time.Time) error {
	query := "UPDATE reward_balances SET amount = amount - $2, updated_at = $3 WHERE student = $1 AND amount >= $2"
	res, err := exec.ExecContext(ctx, query, student, amount, now)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if affected == 0 {
		return ErrBalanceInsufficient
	}
	return nil
}
