// Package auth covers registration, login and password reset for dashboard
// users, backed by the active store.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"stationsync/internal/models"
	"stationsync/internal/store"
)

var (
	// ErrUsernameTaken is returned when registering a duplicate username.
	ErrUsernameTaken = errors.New("auth: username already registered")
	// ErrInvalidCredentials represents login failure.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrResetTokenInvalid covers unknown and expired reset tokens.
	ErrResetTokenInvalid = errors.New("auth: invalid or expired reset token")
)

const resetTokenTTL = time.Hour

// Service contains registration, login and password-reset logic.
type Service struct {
	store     store.Store
	hasher    Hasher
	tokenizer *TokenService
	logger    *zap.Logger
}

// NewService builds the auth service.
func NewService(st store.Store, hasher Hasher, tokenizer *TokenService, logger *zap.Logger) *Service {
	return &Service{store: st, hasher: hasher, tokenizer: tokenizer, logger: logger}
}

// Register creates a new user with a freshly generated id.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &store.ValidationError{Field: "username", Reason: "required"}
	}
	if password == "" {
		return nil, &store.ValidationError{Field: "password", Reason: "required"}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           models.NewUserID(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    models.NowISO(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.logger.Info("user registered", zap.String("username", user.Username))
	return user, nil
}

// Login authenticates a user and produces a JWT.
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.store.FindUser(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokenizer.GenerateToken(user.Username)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// ValidateToken verifies a bearer token and returns its claims.
func (s *Service) ValidateToken(token string) (*Claims, error) {
	return s.tokenizer.ValidateToken(token)
}

// IssueResetToken stores a one-hour reset token for the user and returns it.
func (s *Service) IssueResetToken(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", &store.ValidationError{Field: "username", Reason: "required"}
	}

	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	expiry := time.Now().UTC().Add(resetTokenTTL).Format(time.RFC3339)

	if err := s.store.SetResetToken(ctx, username, token, expiry); err != nil {
		return "", err
	}
	s.logger.Info("password reset token issued", zap.String("username", username))
	return token, nil
}

// ResetPassword consumes a reset token and replaces the user's password.
// The stored token and expiry are cleared by the password update.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return &store.ValidationError{Field: "password", Reason: "required"}
	}

	user, err := s.store.FindUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}

	expiry, err := time.Parse(time.RFC3339, user.ResetTokenExpiry)
	if err != nil || time.Now().UTC().After(expiry) {
		return ErrResetTokenInvalid
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserPassword(ctx, user.Username, hash); err != nil {
		return err
	}

	s.logger.Info("password reset completed", zap.String("username", user.Username))
	return nil
}
