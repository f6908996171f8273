package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
	"github.com/mzaitsev/policy-assistant/internal/core/ports"
)

// SearchMetrics receives the outcome of every finished pipeline run.
type SearchMetrics interface {
	ObserveSearch(outcome string, candidates int, confidence float64, duration time.Duration)
}

// SearchUseCase composes candidate selection, model invocation and response
// normalization into the query-to-answer pipeline, then persists the outcome.
type SearchUseCase struct {
	corpus    ports.PolicyCorpus
	model     ports.ModelInvoker
	searches  ports.SearchLog
	activity  ports.ActivityLog
	publisher ports.ActivityPublisher
	metrics   SearchMetrics

	candidateLimit int
	excerptBudget  int
}

func NewSearchUseCase(
	corpus ports.PolicyCorpus,
	model ports.ModelInvoker,
	searches ports.SearchLog,
	activity ports.ActivityLog,
	publisher ports.ActivityPublisher,
	metrics SearchMetrics,
	candidateLimit int,
	excerptBudget int,
) *SearchUseCase {
	return &SearchUseCase{
		corpus:         corpus,
		model:          model,
		searches:       searches,
		activity:       activity,
		publisher:      publisher,
		metrics:        metrics,
		candidateLimit: candidateLimit,
		excerptBudget:  excerptBudget,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, queryText, userID string) (*domain.AnswerResult, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("query text is empty"))
	}
	if userID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("user id is empty"))
	}

	started := time.Now()
	query := domain.Query{
		ID:       uuid.NewString(),
		Text:     queryText,
		UserID:   userID,
		IssuedAt: started.UTC(),
	}

	policies, err := uc.corpus.ListPolicies(ctx)
	if err != nil {
		uc.observe("corpus_unavailable", 0, 0, started)
		return nil, domain.WrapError(domain.ErrCorpusUnavailable, "list policies", err)
	}

	candidates := selectCandidates(query.Text, policies, uc.candidateLimit, uc.excerptBudget)

	var result domain.AnswerResult
	if len(candidates) == 0 {
		// Nothing to ground an answer on: skip the model call and answer
		// with an honest zero-confidence result.
		result = domain.AnswerResult{AnswerText: noAnswerText, Confidence: 0}
	} else {
		raw, err := uc.model.Invoke(ctx, query.Text, candidates)
		if err != nil {
			uc.observe("model_unavailable", len(candidates), 0, started)
			return nil, fmt.Errorf("invoke model: %w", err)
		}
		result = normalizeAnswer(raw, candidates)
	}

	uc.persist(ctx, query, result, len(candidates))
	uc.observe("ok", len(candidates), result.Confidence, started)
	return &result, nil
}

func (uc *SearchUseCase) observe(outcome string, candidates int, confidence float64, started time.Time) {
	if uc.metrics != nil {
		uc.metrics.ObserveSearch(outcome, candidates, confidence, time.Since(started))
	}
}

// persist writes the search record and activity trail. A result has already
// been produced at this point; audit failures are logged, not surfaced.
func (uc *SearchUseCase) persist(ctx context.Context, query domain.Query, result domain.AnswerResult, candidateCount int) {
	record := domain.SearchRecord{
		ID:        uuid.NewString(),
		Query:     query,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.searches.RecordSearch(ctx, record); err != nil {
		slog.Error("search_record_write_failed", "query_id", query.ID, "error", err)
	}

	details := fmt.Sprintf("query=%q candidates=%d confidence=%.2f", query.Text, candidateCount, result.Confidence)
	if err := uc.activity.RecordActivity(ctx, query.UserID, "searched", "policy", details); err != nil {
		slog.Error("activity_write_failed", "query_id", query.ID, "error", err)
	}

	if uc.publisher != nil {
		if err := uc.publisher.PublishActivity(ctx, query.UserID, "searched", "policy"); err != nil {
			slog.Warn("activity_publish_failed", "query_id", query.ID, "error", err)
		}
	}
}
