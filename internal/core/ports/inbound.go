package ports

import (
	"context"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
)

// PolicySearcher is the inbound contract for the query-to-answer pipeline.
type PolicySearcher interface {
	Search(ctx context.Context, queryText, userID string) (*domain.AnswerResult, error)
}

// KeyIssuer generates or replaces the single active extension key of a user.
type KeyIssuer interface {
	GenerateKey(ctx context.Context, userID string) (string, error)
}

// APIKeyResolver maps a presented extension key to its owning user.
type APIKeyResolver interface {
	ResolveKey(ctx context.Context, key string) (string, error)
}

// Authenticator owns the web login/logout session lifecycle.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, sessionToken string) error
	ResolveSessionToken(ctx context.Context, sessionToken string) (string, error)
}
