package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("Invalid credentials")

// AuthService authenticates the single admin account.
type AuthService struct {
	username     string
	passwordHash []byte
	tokens       *TokenService
}

func NewAuthService(username string, passwordHash []byte, tokens *TokenService) *AuthService {
	return &AuthService{username: username, passwordHash: passwordHash, tokens: tokens}
}

// HashPassword returns the bcrypt hash stored for the admin password.
func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// Login checks the credentials and issues a session token.
func (s *AuthService) Login(_ context.Context, username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	// The hash is compared even for unknown usernames.
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		zap.L().Warn("Admin login rejected", zap.String("username", username))
		return "", ErrInvalidCredentials
	}
	return s.tokens.Generate(username)
}

// ValidateSession reports whether token is a live admin token.
func (s *AuthService) ValidateSession(_ context.Context, token string) bool {
	_, err := s.tokens.Validate(token)
	return err == nil
}
