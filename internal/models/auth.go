package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims is the access-token payload. The participant address doubles as
// the token subject; capabilities are deliberately not embedded because role
// membership is dynamic and consulted by the core at call time.
type JWTClaims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// TokenRequest asks the development token mint for an access token.
type TokenRequest struct {
	Address string `json:"address" validate:"required"`
	APIKey  string `json:"api_key" validate:"required"`
}

// TokenResponse returns the issued access token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
