package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
)

// APIKeyRepository holds one key hash per user. Issuing a new key upserts
// the row, so the previous key stops resolving immediately.
type APIKeyRepository struct {
	db *sql.DB
}

func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) UpsertKey(ctx context.Context, key domain.APIKey) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO api_keys (user_id, key_hash, issued_at)
VALUES ($1,$2,$3)
ON CONFLICT (user_id) DO UPDATE SET key_hash = EXCLUDED.key_hash, issued_at = EXCLUDED.issued_at
`, key.UserID, key.KeyHash, key.IssuedAt)
	if err != nil {
		return fmt.Errorf("upsert api key: %w", err)
	}
	return nil
}

func (r *APIKeyRepository) ResolveKeyHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT user_id, key_hash, issued_at
FROM api_keys
WHERE key_hash = $1
`, keyHash)

	var key domain.APIKey
	err := row.Scan(&key.UserID, &key.KeyHash, &key.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "resolve api key", err)
		}
		return nil, fmt.Errorf("scan api key: %w", err)
	}
	return &key, nil
}
