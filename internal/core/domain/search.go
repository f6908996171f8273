package domain

import "time"

// Query is one user question, immutable once created.
type Query struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	UserID   string    `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// Candidate is a policy provisionally relevant to a query. Candidates live
// only for the duration of one search call and are never persisted.
type Candidate struct {
	PolicyID int64   `json:"policy_id"`
	Title    string  `json:"title"`
	Score    float64 `json:"score"`
	Excerpt  string  `json:"excerpt"`
}

// AnswerResult is the canonical outcome of one query. Confidence is always
// within [0,1]; zero confidence marks a degraded but valid result.
type AnswerResult struct {
	AnswerText         string  `json:"answer"`
	MatchedPolicyID    *int64  `json:"policy_id,omitempty"`
	MatchedPolicyTitle string  `json:"policy_title,omitempty"`
	Confidence         float64 `json:"confidence"`
}

// SearchRecord is the append-only audit row pairing a query with its result.
type SearchRecord struct {
	ID        string
	Query     Query
	Result    AnswerResult
	CreatedAt time.Time
}

// ClampConfidence forces a model-reported confidence into [0,1]. NaN is
// treated as no signal.
func ClampConfidence(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
