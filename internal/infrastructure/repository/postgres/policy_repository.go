package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
)

// PolicyRepository reads the policy corpus maintained by the management app.
type PolicyRepository struct {
	db *sql.DB
}

func NewPolicyRepository(db *sql.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

func (r *PolicyRepository) ListPolicies(ctx context.Context) ([]domain.Policy, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, content, category_id, updated_at
FROM policies
ORDER BY updated_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Policy, 0)
	for rows.Next() {
		var policy domain.Policy
		if err := rows.Scan(&policy.ID, &policy.Title, &policy.Content, &policy.CategoryID, &policy.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		out = append(out, policy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}
	return out, nil
}
