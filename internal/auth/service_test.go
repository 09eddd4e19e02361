package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"stationsync/internal/store/flatfile"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := flatfile.Open(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	tokens := NewTokenService("test-secret", time.Hour)
	return NewService(st, NewBcryptHasher(4), tokens, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "admin", "swordfish")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == 0 || user.CreatedAt == "" {
		t.Fatalf("expected generated id and createdAt, got %+v", user)
	}
	if user.PasswordHash == "swordfish" {
		t.Fatal("password must be stored hashed")
	}

	if _, err := svc.Register(ctx, "admin", "other"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	token, logged, err := svc.Login(ctx, "admin", "swordfish")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.Username != "admin" || token == "" {
		t.Fatalf("unexpected login result: %q %+v", token, logged)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Username != "admin" {
		t.Fatalf("expected username claim admin, got %q", claims.Username)
	}

	if _, _, err := svc.Login(ctx, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "ghost", "swordfish"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestTokenValidation(t *testing.T) {
	tokens := NewTokenService("secret-a", time.Hour)

	token, err := tokens.GenerateToken("admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := tokens.ValidateToken(token); err != nil {
		t.Fatalf("validate: %v", err)
	}

	other := NewTokenService("secret-b", time.Hour)
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret must not validate")
	}

	shortLived := NewTokenService("secret-a", time.Nanosecond)
	tok, err := shortLived.GenerateToken("admin")
	if err != nil {
		t.Fatalf("generate short-lived: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := tokens.ValidateToken(tok); err == nil {
		t.Fatal("expired token must not validate")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "admin", "old-pass"); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := svc.IssueResetToken(ctx, "admin")
	if err != nil {
		t.Fatalf("issue reset token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty reset token")
	}

	if err := svc.ResetPassword(ctx, token, "new-pass"); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	if _, _, err := svc.Login(ctx, "admin", "old-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "admin", "new-pass"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	// The token is consumed by the reset.
	if err := svc.ResetPassword(ctx, token, "again"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid on reuse, got %v", err)
	}
}

func TestResetTokenUnknown(t *testing.T) {
	svc := newTestService(t)
	if err := svc.ResetPassword(context.Background(), "bogus", "pass"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}
