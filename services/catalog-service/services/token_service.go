package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/dailykart/dailykart/services/common/auth"
	"github.com/golang-jwt/jwt/v4"
)

// AdminTokenType is the "typ" claim of admin session tokens.
const AdminTokenType = "admin"

// DefaultTokenTTL bounds an admin session.
const DefaultTokenTTL = 12 * time.Hour

// TokenService issues and validates admin session tokens (HS256 JWTs).
type TokenService struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secretKey: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Generate signs a token for username.
func (s *TokenService) Generate(username string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": username,
		"typ": AdminTokenType,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate returns the subject of a valid admin token.
func (s *TokenService) Validate(token string) (string, error) {
	claims, err := auth.ParseAndValidateToken(s.secretKey, token, AdminTokenType)
	if err != nil {
		return "", err
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}
