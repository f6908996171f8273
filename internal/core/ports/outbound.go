package ports

import (
	"context"
	"time"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
)

// PolicyCorpus is the read-only source of policy documents.
type PolicyCorpus interface {
	ListPolicies(ctx context.Context) ([]domain.Policy, error)
}

// ModelInvoker sends a query plus its candidate context to an external
// language model and returns the raw, untrusted output string.
type ModelInvoker interface {
	Invoke(ctx context.Context, query string, candidates []domain.Candidate) (string, error)
}

// SearchLog persists query/result pairs append-only.
type SearchLog interface {
	RecordSearch(ctx context.Context, record domain.SearchRecord) error
}

// ActivityLog records audit entries for user-visible actions.
type ActivityLog interface {
	RecordActivity(ctx context.Context, userID, action, resourceType, details string) error
}

// ActivityPublisher fans activity events out to interested consumers.
// Publishing is best-effort; failures never affect the search result.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, userID, action, resourceType string) error
}

// APIKeyStore holds at most one active key hash per user.
type APIKeyStore interface {
	UpsertKey(ctx context.Context, key domain.APIKey) error
	ResolveKeyHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
}

// SessionStore maps opaque session tokens to user identities.
type SessionStore interface {
	CreateSession(ctx context.Context, token, userID string, ttl time.Duration) error
	ResolveSession(ctx context.Context, token string) (string, error)
	DeleteSession(ctx context.Context, token string) error
}

// UserStore reads login credentials.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}
