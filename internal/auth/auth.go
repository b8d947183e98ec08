package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// OwnerSubject is the only identity on a single-device ledger.
	OwnerSubject = "owner"
	issuer       = "credify"
)

// TokenGenerator creates and validates access tokens.
type TokenGenerator interface {
	GenerateAccessToken(subject string) (token string, expiresAt time.Time, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// ServiceAPI is what the HTTP layer needs from the auth service.
type ServiceAPI interface {
	Enabled() bool
	Authenticate(dto LoginDTO) (*TokenResponse, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
}

type Claims struct {
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	Secret []byte
	TTL    time.Duration
	now    func() time.Time
}
