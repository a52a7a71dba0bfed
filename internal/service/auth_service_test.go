package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
)

func newAuthService(t *testing.T, expiration time.Duration) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("let-me-in"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService(nil, nil, AuthConfig{
		Secret:          "test-secret",
		Expiration:      expiration,
		Issuer:          "coursework-ledger",
		AdminAPIKeyHash: string(hash),
	})
}

func TestAuthServiceTokenRoundTrip(t *testing.T) {
	svc := newAuthService(t, time.Hour)

	resp, err := svc.IssueToken(models.TokenRequest{Address: "alice", APIKey: "let-me-in"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Address)
	assert.Equal(t, "coursework-ledger", claims.Issuer)
}

func TestAuthServiceIssueTokenBadKey(t *testing.T) {
	svc := newAuthService(t, time.Hour)

	_, err := svc.IssueToken(models.TokenRequest{Address: "alice", APIKey: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceIssueTokenValidation(t *testing.T) {
	svc := newAuthService(t, time.Hour)

	_, err := svc.IssueToken(models.TokenRequest{APIKey: "let-me-in"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceIssueTokenUnconfigured(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{Secret: "test-secret", Expiration: time.Hour})

	_, err := svc.IssueToken(models.TokenRequest{Address: "alice", APIKey: "anything"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := newAuthService(t, time.Hour)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	// A token signed with a different secret is rejected.
	other := NewAuthService(nil, nil, AuthConfig{Secret: "other-secret", Expiration: time.Hour, AdminAPIKeyHash: svc.config.AdminAPIKeyHash})
	resp, err := other.IssueToken(models.TokenRequest{Address: "alice", APIKey: "let-me-in"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(resp.AccessToken)
	require.Error(t, err)

	// Expired tokens are rejected.
	expired := newAuthService(t, -time.Minute)
	resp, err = expired.IssueToken(models.TokenRequest{Address: "alice", APIKey: "let-me-in"})
	require.NoError(t, err)
	_, err = expired.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
