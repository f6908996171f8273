package usecase

import (
	"testing"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
)

var normalizerCandidates = []domain.Candidate{
	{PolicyID: 7, Title: "Remote Work Policy", Score: 0.9},
	{PolicyID: 3, Title: "Travel Policy", Score: 0.4},
}

func TestNormalizeAnswerStructuredOutput(t *testing.T) {
	raw := `{"answer":"Up to 3 days per week.","policy_id":7,"confidence":0.92}`
	result := normalizeAnswer(raw, normalizerCandidates)

	if result.AnswerText != "Up to 3 days per week." {
		t.Fatalf("unexpected answer: %q", result.AnswerText)
	}
	if result.MatchedPolicyID == nil || *result.MatchedPolicyID != 7 {
		t.Fatalf("expected matched policy 7, got %v", result.MatchedPolicyID)
	}
	if result.MatchedPolicyTitle != "Remote Work Policy" {
		t.Fatalf("expected denormalized title, got %q", result.MatchedPolicyTitle)
	}
	if result.Confidence != 0.92 {
		t.Fatalf("expected confidence 0.92, got %f", result.Confidence)
	}
}

func TestNormalizeAnswerGarbageDegradesToZeroConfidence(t *testing.T) {
	for _, raw := range []string{
		`{"answer": "truncated`,
		`[1,2,3]`,
		`plain text answer without json`,
	} {
		result := normalizeAnswer(raw, normalizerCandidates)
		if result.Confidence != 0 {
			t.Fatalf("raw %q: expected confidence 0, got %f", raw, result.Confidence)
		}
		if result.AnswerText == "" {
			t.Fatalf("raw %q: expected non-empty answer text", raw)
		}
		if result.MatchedPolicyID != nil {
			t.Fatalf("raw %q: expected no policy reference", raw)
		}
	}
}

func TestNormalizeAnswerEmptyOutputUsesGenericText(t *testing.T) {
	result := normalizeAnswer("   ", normalizerCandidates)
	if result.AnswerText != noAnswerText {
		t.Fatalf("expected generic answer text, got %q", result.AnswerText)
	}
	if result.Confidence != 0 {
		t.Fatalf("expected confidence 0, got %f", result.Confidence)
	}
}

func TestNormalizeAnswerClampsConfidence(t *testing.T) {
	cases := map[string]float64{
		`{"answer":"a","confidence":1.7}`:    1,
		`{"answer":"a","confidence":-0.4}`:   0,
		`{"answer":"a","confidence":"0.55"}`: 0.55,
		`{"answer":"a","confidence":"bad"}`:  0,
	}
	for raw, want := range cases {
		result := normalizeAnswer(raw, normalizerCandidates)
		if result.Confidence != want {
			t.Fatalf("raw %s: expected confidence %f, got %f", raw, want, result.Confidence)
		}
	}
}

func TestNormalizeAnswerDropsDanglingPolicyReference(t *testing.T) {
	raw := `{"answer":"See the retention policy.","policy_id":99,"confidence":0.8}`
	result := normalizeAnswer(raw, normalizerCandidates)

	if result.MatchedPolicyID != nil {
		t.Fatalf("expected dangling reference dropped, got %d", *result.MatchedPolicyID)
	}
	if result.MatchedPolicyTitle != "" {
		t.Fatalf("expected no title, got %q", result.MatchedPolicyTitle)
	}
	if result.Confidence != 0.8 {
		t.Fatalf("dropping the reference must not change confidence, got %f", result.Confidence)
	}
}

func TestNormalizeAnswerAcceptsStringPolicyID(t *testing.T) {
	raw := `{"answer":"a","policy_id":"3","confidence":0.5}`
	result := normalizeAnswer(raw, normalizerCandidates)
	if result.MatchedPolicyID == nil || *result.MatchedPolicyID != 3 {
		t.Fatalf("expected matched policy 3, got %v", result.MatchedPolicyID)
	}
}

func TestNormalizeAnswerJSONWrappedInProse(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"answer\":\"ok\",\"confidence\":0.3}\n```"
	result := normalizeAnswer(raw, normalizerCandidates)
	if result.AnswerText != "ok" {
		t.Fatalf("expected extracted answer, got %q", result.AnswerText)
	}
	if result.Confidence != 0.3 {
		t.Fatalf("expected confidence 0.3, got %f", result.Confidence)
	}
}

func TestNormalizeAnswerWrongFieldTypesIgnored(t *testing.T) {
	raw := `{"answer":42,"policy_id":true,"confidence":[1]}`
	result := normalizeAnswer(raw, normalizerCandidates)
	if result.AnswerText != noAnswerText {
		t.Fatalf("expected generic text for non-string answer, got %q", result.AnswerText)
	}
	if result.Confidence != 0 || result.MatchedPolicyID != nil {
		t.Fatalf("expected fully degraded result, got %+v", result)
	}
}
