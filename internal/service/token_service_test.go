package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	"github.com/noah-isme/coursework-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
)

type tokenAccountStub struct {
	balances map[string]int64
	err      error
}

func newTokenAccountStub() *tokenAccountStub {
	return &tokenAccountStub{balances: map[string]int64{}}
}

func (s *tokenAccountStub) BalanceOf(ctx context.Context, address string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.balances[address], nil
}

func (s *tokenAccountStub) Move(ctx context.Context, exec sqlx.ExtContext, from, to string, amount int64, now time.Time) error {
	if s.err != nil {
		return s.err
	}
	if s.balances[from] < amount {
		return repository.ErrTokenInsufficient
	}
	s.balances[from] -= amount
	s.balances[to] += amount
	return nil
}

func (s *tokenAccountStub) Mint(ctx context.Context, exec sqlx.ExtContext, to string, amount int64, now time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.balances[to] += amount
	return nil
}

func (s *tokenAccountStub) Burn(ctx context.Context, exec sqlx.ExtContext, from string, amount int64, now time.Time) error {
	if s.err != nil {
		return s.err
	}
	if s.balances[from] < amount {
		return repository.ErrTokenInsufficient
	}
	s.balances[from] -= amount
	return nil
}

func (s *tokenAccountStub) TotalSupply(ctx context.Context) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	var total int64
	for _, balance := range s.balances {
		total += balance
	}
	return total, nil
}

func newTokenService(accounts *tokenAccountStub, events *eventSinkStub) *TokenService {
	roles := &rolesStub{caps: map[string][]models.Capability{"root": {models.CapabilityOwner}}}
	return NewTokenService(accounts, roles, &txStub{}, events, testTreasury, nil, nil)
}

func TestTokenServiceMint(t *testing.T) {
	accounts := newTokenAccountStub()
	events := &eventSinkStub{}
	svc := newTokenService(accounts, events)

	require.NoError(t, svc.Mint(context.Background(), 1000, "root"))

	balance, err := svc.BalanceOf(context.Background(), testTreasury)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	supply, err := svc.TotalSupply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), supply)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventTokenMinted, events.events[0].Kind)
}

func TestTokenServiceBurn(t *testing.T) {
	accounts := newTokenAccountStub()
	accounts.balances[testTreasury] = 500
	events := &eventSinkStub{}
	svc := newTokenService(accounts, events)

	require.NoError(t, svc.Burn(context.Background(), 200, "root"))
	assert.Equal(t, int64(300), accounts.balances[testTreasury])

	// Burning past the treasury balance is refused.
	err := svc.Burn(context.Background(), 9999, "root")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, int64(300), accounts.balances[testTreasury])
}

func TestTokenServiceSupplyGuards(t *testing.T) {
	svc := newTokenService(newTokenAccountStub(), &eventSinkStub{})

	err := svc.Mint(context.Background(), 0, "root")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = svc.Mint(context.Background(), 100, "stranger")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.Burn(context.Background(), -5, "root")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceMove(t *testing.T) {
	accounts := newTokenAccountStub()
	accounts.balances["alice"] = 50
	svc := newTokenService(accounts, &eventSinkStub{})

	now := time.Now().UTC()
	require.NoError(t, svc.Move(context.Background(), nil, "alice", "bob", 30, now))
	assert.Equal(t, int64(20), accounts.balances["alice"])
	assert.Equal(t, int64(30), accounts.balances["bob"])

	err := svc.Move(context.Background(), nil, "alice", "bob", 100, now)
	assert.ErrorIs(t, err, repository.ErrTokenInsufficient)
}
