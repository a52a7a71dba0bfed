package service

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	"github.com/noah-isme/coursework-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
)

type tokenAccountRepository interface {
	BalanceOf(ctx context.Context, address string) (int64, error)
	Move(ctx context.Context, exec sqlx.ExtContext, from, to string, amount int64, now time.Time) error
	Mint(ctx context.Context, exec sqlx.ExtContext, to string, amount int64, now time.Time) error
	Burn(ctx context.Context, exec sqlx.ExtContext, from string, amount int64, now time.Time) error
	TotalSupply(ctx context.Context) (int64, error)
}

// TokenService is the fungible token ledger the settlement path transfers
// through. The core treats it as an external collaborator behind the
// tokenMover interface; mint and burn are owner-gated supply operations for
// replenishing the reward float.
type TokenService struct {
	accounts tokenAccountRepository
	roles    capabilityChecker
	tx       txRunner
	events   eventWriter
	treasury string
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewTokenService constructs a TokenService.
func NewTokenService(accounts tokenAccountRepository, roles capabilityChecker, tx txRunner, events eventWriter, treasury string, metrics *MetricsService, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{accounts: accounts, roles: roles, tx: tx, events: events, treasury: treasury, metrics: metrics, logger: logger}
}

// Move transfers value between accounts inside the caller's transaction.
// Satisfies the settlement path's tokenMover interface.
func (s *TokenService) Move(ctx context.Context, exec sqlx.ExtContext, from, to string, amount int64, now time.Time) error {
	return s.accounts.Move(ctx, exec, from, to, amount, now)
}

// BalanceOf returns an address's token balance.
func (s *TokenService) BalanceOf(ctx context.Context, address string) (int64, error) {
	balance, err := s.accounts.BalanceOf(ctx, address)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch token balance")
	}
	return balance, nil
}

// TotalSupply returns the sum of all token balances.
func (s *TokenService) TotalSupply(ctx context.Context) (int64, error) {
	total, err := s.accounts.TotalSupply(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute total supply")
	}
	return total, nil
}

// Mint creates new supply on the treasury account. Owner-gated.
func (s *TokenService) Mint(ctx context.Context, amount int64, actor string) error {
	err := s.supplyOp(ctx, amount, actor, models.EventTokenMinted, func(tx *sqlx.Tx, now time.Time) error {
		return s.accounts.Mint(ctx, tx, s.treasury, amount, now)
	})
	s.metrics.ObserveLedgerOperation("token_mint", err)
	return err
}

// Burn destroys supply held by the treasury account. Owner-gated.
func (s *TokenService) Burn(ctx context.Context, amount int64, actor string) error {
	err := s.supplyOp(ctx, amount, actor, models.EventTokenBurned, func(tx *sqlx.Tx, now time.Time) error {
		return s.accounts.Burn(ctx, tx, s.treasury, amount, now)
	})
	s.metrics.ObserveLedgerOperation("token_burn", err)
	return err
}

func (s *TokenService) supplyOp(ctx context.Context, amount int64, actor string, kind models.EventKind, apply func(tx *sqlx.Tx, now time.Time) error) error {
	if amount <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}
	held, err := s.roles.Has(ctx, actor, models.CapabilityOwner)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check owner capability")
	}
	if !held {
		return appErrors.Clone(appErrors.ErrForbidden, "owner capability required")
	}

	return s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		if err := apply(tx, now); err != nil {
			if errors.Is(err, repository.ErrTokenInsufficient) {
				return appErrors.Clone(appErrors.ErrStateConflict, "treasury balance cannot cover the burn")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply supply operation")
		}
		event := newEvent(kind, actor)
		event.Amount = int64Ptr(amount)
		return s.events.Insert(ctx, tx, event)
	})
}
