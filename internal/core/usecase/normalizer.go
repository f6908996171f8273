package usecase

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
)

const noAnswerText = "Could not extract an answer from the policy corpus."

// normalizeAnswer turns raw model output into a canonical AnswerResult. The
// model is an untrusted boundary: the output may be malformed JSON, plain
// text, or structured with fields of the wrong type. Normalization never
// fails; anything unusable degrades to a zero-confidence result. Every field
// is looked up and validated individually, nothing is cast on trust.
func normalizeAnswer(raw string, candidates []domain.Candidate) domain.AnswerResult {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.AnswerResult{AnswerText: noAnswerText, Confidence: 0}
	}

	fields, ok := parseObject(raw)
	if !ok {
		// Unstructured output: the whole text is the answer, with no
		// confidence signal.
		return domain.AnswerResult{AnswerText: raw, Confidence: 0}
	}

	result := domain.AnswerResult{
		AnswerText: noAnswerText,
		Confidence: 0,
	}
	if answer, ok := stringField(fields, "answer"); ok {
		result.AnswerText = answer
	}
	if confidence, ok := numberField(fields, "confidence"); ok {
		result.Confidence = domain.ClampConfidence(confidence)
	}

	policyID, ok := policyIDField(fields)
	if !ok {
		return result
	}
	// A policy reference is only trusted when it points at a candidate that
	// was actually sent to the model for this query.
	for _, candidate := range candidates {
		if candidate.PolicyID == policyID {
			result.MatchedPolicyID = &policyID
			result.MatchedPolicyTitle = candidate.Title
			break
		}
	}
	return result
}

func parseObject(raw string) (map[string]any, bool) {
	object := extractJSONObject(raw)
	decoder := json.NewDecoder(strings.NewReader(object))
	decoder.UseNumber()

	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return nil, false
	}
	return fields, true
}

// extractJSONObject pulls the outermost {...} span out of model output that
// may wrap JSON in prose or markdown fences.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func stringField(fields map[string]any, key string) (string, bool) {
	value, ok := fields[key]
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

func numberField(fields map[string]any, key string) (float64, bool) {
	value, ok := fields[key]
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// policyIDField accepts the reference under either naming the model tends to
// produce, as a JSON number or a numeric string.
func policyIDField(fields map[string]any) (int64, bool) {
	for _, key := range []string{"policy_id", "policyId"} {
		value, ok := fields[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case json.Number:
			id, err := v.Int64()
			if err != nil {
				return 0, false
			}
			return id, true
		case string:
			id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return 0, false
			}
			return id, true
		default:
			return 0, false
		}
	}
	return 0, false
}
