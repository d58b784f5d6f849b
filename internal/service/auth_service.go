package service

import (
	"errors"
	"fmt"
	"time"

	"AlcoMonitorAPI/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const operatorSubject = "operator"

// AuthService issues and checks bearer tokens for the single operator account.
type AuthService struct {
	enabled      bool
	secret       []byte
	passwordHash []byte
	ttl          time.Duration
	now          func() time.Time
}

func NewAuthService(cfg config.SecurityConfig) *AuthService {
	ttl := time.Duration(cfg.JWTExpirationHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		enabled:      cfg.AuthEnabled,
		secret:       []byte(cfg.JWTSecret),
		passwordHash: []byte(cfg.AdminPasswordHash),
		ttl:          ttl,
		now:          time.Now,
	}
}

func (s *AuthService) Enabled() bool {
	return s.enabled
}

// Login checks the operator password and returns a signed token.
func (s *AuthService) Login(password string) (string, time.Time, error) {
	if !s.enabled {
		return "", time.Time{}, ErrAuthDisabled
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", time.Time{}, ErrUnauthorized
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   operatorSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return token, expiresAt, nil
}

// Validate returns ErrUnauthorized for any token that is malformed, expired
// or signed with another key.
func (s *AuthService) Validate(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithSubject(operatorSubject),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrUnauthorized, err)
	}

	return claims, nil
}
