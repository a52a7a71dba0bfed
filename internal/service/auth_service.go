package service

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/coursework-ledger-api/internal/models"
	appErrors "github.com/noah-isme/coursework-ledger-api/pkg/errors"
)

// AuthConfig defines configuration for token issuance and validation.
type AuthConfig struct {
	Secret          string
	Expiration      time.Duration
	Issuer          string
	AdminAPIKeyHash string
}

// AuthService issues and validates the bearer tokens that carry the caller's
// participant address. The host environment is assumed to authenticate
// callers; this mint exists so deployments without an external identity
// provider can still hand out tokens, guarded by an operator API key.
type AuthService struct {
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService.
func NewAuthService(validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{validator: validate, logger: logger, config: config}
}

// IssueToken mints an access token for the given address after verifying the
// operator API key.
func (s *AuthService) IssueToken(req models.TokenRequest) (*models.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid token payload")
	}
	if s.config.AdminAPIKeyHash == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mint is not configured")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminAPIKeyHash), []byte(req.APIKey)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid api key")
	}

	now := time.Now().UTC()
	claims := &models.JWTClaims{
		Address: req.Address,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.Address,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.Expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}

	s.logger.Info("access token issued", zap.String("address", req.Address))
	return &models.TokenResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.config.Expiration.Seconds()),
		IssuedAt:    now,
	}, nil
}

// ValidateToken parses and verifies an access token, returning its claims.
func (s *AuthService) ValidateToken(raw string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	if claims.Address == "" {
		claims.Address = claims.Subject
	}
	if claims.Address == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token carries no address")
	}
	return claims, nil
}
