package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
)

// SearchRepository appends query/result pairs. Records are write-once; there
// is no update or delete path.
type SearchRepository struct {
	db *sql.DB
}

func NewSearchRepository(db *sql.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

func (r *SearchRepository) RecordSearch(ctx context.Context, record domain.SearchRecord) error {
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO searches (id, query_id, query_text, user_id, issued_at, result, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		record.ID, record.Query.ID, record.Query.Text, record.Query.UserID,
		record.Query.IssuedAt, resultJSON, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert search record: %w", err)
	}
	return nil
}

// ActivityRepository appends audit rows for user-visible actions.
type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) RecordActivity(ctx context.Context, userID, action, resourceType, details string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO activity_logs (user_id, action, resource_type, details, created_at)
VALUES ($1,$2,$3,$4,$5)
`, userID, action, resourceType, details, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}
