package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrTokenInsufficient is returned when a transfer or burn exceeds the
// source account's token balance.
var ErrTokenInsufficient = errors.New("token balance insufficient")

// TokenRepository backs the fungible token ledger with a plain accounts
// table. All movements are guarded UPDATEs so no account ever goes negative.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository constructs a TokenRepository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// BalanceOf returns the token balance of an address, zero for unknown ones.
func (r *TokenRepository) BalanceOf(ctx context.Context, address string) (int64, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance, "SELECT balance FROM token_accounts WHERE address = $1", address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("token balance: %w", err)
	}
	return balance, nil
}

// Move debits `from` and credits `to` within the caller's transaction.
func (r *TokenRepository) Move(ctx context.Context, exec sqlx.ExtContext, from, to string, amount int64, now time.Time) error {
	if err := r.debit(ctx, exec, from, amount, now); err != nil {
		return err
	}
	return r.credit(ctx, exec, to, amount, now)
}

// Mint creates new supply on the target account.
func (r *TokenRepository) Mint(ctx context.Context, exec sqlx.ExtContext, to string, amount int64, now time.Time) error {
	return r.credit(ctx, exec, to, amount, now)
}

// Burn destroys supply held by the target account.
func (r *TokenRepository) Burn(ctx context.Context, exec sqlx.ExtContext, from string, amount int64, now time.Time) error {
	return r.debit(ctx, exec, from, amount, now)
}

// TotalSupply sums all account balances.
func (r *TokenRepository) TotalSupply(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COALESCE(SUM(balance), 0) FROM token_accounts"); err != nil {
		return 0, fmt.Errorf("token total supply: %w", err)
	}
	return total, nil
}

func (r *TokenRepository) credit(ctx context.Context, exec sqlx.ExtContext, address string, amount int64, now time.Time) error {
	query := `INSERT INTO token_accounts (address, balance, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (address) DO UPDATE SET balance = token_accounts.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at`
	if _, err := exec.ExecContext(ctx, query, address, amount, now); err != nil {
		return fmt.Errorf("token credit: %w", err)
	}
	return nil
}

func (r *TokenRepository) debit(ctx context.Context, exec sqlx.ExtContext, address string, amount int64, now time.Time) error {
	query := "UPDATE token_accounts SET balance = balance - $2, updated_at = $3 WHERE address = $1 AND balance >= $2"
	res, err := exec.ExecContext(ctx, query, address, amount, now)
	if err != nil {
		return fmt.Errorf("token debit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("token debit: %w", err)
	}
	if affected == 0 {
		return ErrTokenInsufficient
	}
	return nil
}
