package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
	"github.com/mzaitsev/policy-assistant/internal/core/ports"
)

// AuthUseCase owns web sessions: login verifies credentials and creates a
// session token, logout deletes it, resolution maps a presented token back
// to a user id. Bad credentials and bad tokens surface the same
// unauthenticated kind.
type AuthUseCase struct {
	users      ports.UserStore
	sessions   ports.SessionStore
	sessionTTL time.Duration
}

func NewAuthUseCase(users ports.UserStore, sessions ports.SessionStore, sessionTTL time.Duration) *AuthUseCase {
	return &AuthUseCase{users: users, sessions: sessions, sessionTTL: sessionTTL}
}

func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", domain.WrapError(domain.ErrUnauthenticated, "login", fmt.Errorf("missing credentials"))
	}

	user, err := uc.users.GetUserByEmail(ctx, email)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return "", domain.WrapError(domain.ErrUnauthenticated, "login", fmt.Errorf("unknown user"))
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.WrapError(domain.ErrUnauthenticated, "login", fmt.Errorf("password mismatch"))
	}

	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	if err := uc.sessions.CreateSession(ctx, token, user.ID, uc.sessionTTL); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

func (uc *AuthUseCase) Logout(ctx context.Context, sessionToken string) error {
	if strings.TrimSpace(sessionToken) == "" {
		return nil
	}
	if err := uc.sessions.DeleteSession(ctx, sessionToken); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (uc *AuthUseCase) ResolveSessionToken(ctx context.Context, sessionToken string) (string, error) {
	sessionToken = strings.TrimSpace(sessionToken)
	if sessionToken == "" {
		return "", domain.WrapError(domain.ErrUnauthenticated, "resolve session", fmt.Errorf("missing session"))
	}
	userID, err := uc.sessions.ResolveSession(ctx, sessionToken)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return "", domain.WrapError(domain.ErrUnauthenticated, "resolve session", fmt.Errorf("unknown session"))
		}
		return "", fmt.Errorf("resolve session: %w", err)
	}
	return userID, nil
}

func newSessionToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
