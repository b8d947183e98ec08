package auth

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/credify/internal"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Service checks the ledger passcode and issues access tokens. With no passcode
// hash configured the API is open and Enabled reports false.
type Service struct {
	passcodeHash   []byte
	tokenGenerator TokenGenerator
	logger         *slog.Logger
}

func NewService(passcodeHash string, tokenGen TokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		passcodeHash:   []byte(passcodeHash),
		tokenGenerator: tokenGen,
		logger:         logger,
	}
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		Secret: []byte(secret),
		TTL:    ttl,
		now:    time.Now,
	}
}

func (s *Service) Enabled() bool {
	return len(s.passcodeHash) > 0
}

func (s *Service) Authenticate(dto LoginDTO) (*TokenResponse, error) {
	if !s.Enabled() {
		return nil, errors.NewConflictError("Passcode lock is not enabled", errors.ErrCodeInvalidCredentials)
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(s.passcodeHash, []byte(dto.Passcode)); err != nil {
		if !stderrors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Error("stored passcode hash is unusable", "error", err)
		}
		return nil, errors.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokenGenerator.GenerateAccessToken(OwnerSubject)
	if err != nil {
		return nil, errors.NewInternalError("Failed to issue token", err)
	}

	s.logger.Info("passcode accepted", "expires_at", expiresAt)
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

func (j *JWTTokenGenerator) GenerateAccessToken(subject string) (string, time.Time, error) {
	now := j.now()
	expiresAt := now.Add(j.TTL)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(j.now))

	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.ErrInvalidToken
}

// HashPasscode creates the bcrypt hash stored in security.passcode_hash.
func HashPasscode(passcode string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if err := (LoginDTO{Passcode: passcode}).Validate(); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
