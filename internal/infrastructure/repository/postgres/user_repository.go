package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
)

// UserRepository reads login credentials from the user table owned by the
// management app.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, email, password_hash
FROM users
WHERE email = $1
`, email)

	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get user by email", err)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
