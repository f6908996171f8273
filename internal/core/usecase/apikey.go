package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
	"github.com/mzaitsev/policy-assistant/internal/core/ports"
)

const apiKeyPrefix = "pa_"

// APIKeyUseCase issues and resolves extension keys. Each user has at most
// one active key; issuing a new one replaces the previous value. Resolution
// failures are uniform: unknown, rotated-out, malformed and over-age keys
// all come back as the same unauthenticated error so key probing learns
// nothing.
type APIKeyUseCase struct {
	store  ports.APIKeyStore
	maxAge time.Duration
}

// NewAPIKeyUseCase builds the key lifecycle service. maxAge of zero disables
// age-based expiry.
func NewAPIKeyUseCase(store ports.APIKeyStore, maxAge time.Duration) *APIKeyUseCase {
	return &APIKeyUseCase{store: store, maxAge: maxAge}
}

func (uc *APIKeyUseCase) GenerateKey(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "generate key", fmt.Errorf("user id is empty"))
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("generate key material: %w", err)
	}
	plaintext := apiKeyPrefix + hex.EncodeToString(secret)

	key := domain.APIKey{
		KeyHash:  hashKey(plaintext),
		UserID:   userID,
		IssuedAt: time.Now().UTC(),
	}
	if err := uc.store.UpsertKey(ctx, key); err != nil {
		return "", fmt.Errorf("store key: %w", err)
	}
	return plaintext, nil
}

func (uc *APIKeyUseCase) ResolveKey(ctx context.Context, presented string) (string, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" || !strings.HasPrefix(presented, apiKeyPrefix) {
		return "", domain.WrapError(domain.ErrUnauthenticated, "resolve key", fmt.Errorf("malformed key"))
	}

	key, err := uc.store.ResolveKeyHash(ctx, hashKey(presented))
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return "", domain.WrapError(domain.ErrUnauthenticated, "resolve key", fmt.Errorf("unknown key"))
		}
		return "", fmt.Errorf("resolve key: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(hashKey(presented))) != 1 {
		return "", domain.WrapError(domain.ErrUnauthenticated, "resolve key", fmt.Errorf("unknown key"))
	}
	if uc.maxAge > 0 && time.Since(key.IssuedAt) > uc.maxAge {
		return "", domain.WrapError(domain.ErrUnauthenticated, "resolve key", fmt.Errorf("key over max age"))
	}
	return key.UserID, nil
}

func hashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
