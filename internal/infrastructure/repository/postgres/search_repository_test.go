package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
)

func TestSearchRepositoryRecordSearchInsertsSerializedResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewSearchRepository(db)
	policyID := int64(7)
	record := domain.SearchRecord{
		ID: "s-1",
		Query: domain.Query{
			ID:       "q-1",
			Text:     "What is the remote work policy?",
			UserID:   "u-1",
			IssuedAt: time.Now().UTC(),
		},
		Result: domain.AnswerResult{
			AnswerText:         "Up to 3 days per week.",
			MatchedPolicyID:    &policyID,
			MatchedPolicyTitle: "Remote Work Policy",
			Confidence:         0.92,
		},
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO searches").
		WithArgs(record.ID, record.Query.ID, record.Query.Text, record.Query.UserID,
			record.Query.IssuedAt, sqlmock.AnyArg(), record.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.RecordSearch(context.Background(), record); err != nil {
		t.Fatalf("RecordSearch() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestActivityRepositoryRecordActivity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewActivityRepository(db)
	mock.ExpectExec("INSERT INTO activity_logs").
		WithArgs("u-1", "searched", "policy", "query=\"x\"", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.RecordActivity(context.Background(), "u-1", "searched", "policy", "query=\"x\""); err != nil {
		t.Fatalf("RecordActivity() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
