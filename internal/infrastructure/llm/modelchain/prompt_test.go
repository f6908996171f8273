package modelchain

import (
	"strings"
	"testing"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
)

func TestBuildUserPromptIncludesAllCandidatesWithinBudget(t *testing.T) {
	candidates := []domain.Candidate{
		{PolicyID: 1, Title: "First", Excerpt: "aaaa"},
		{PolicyID: 2, Title: "Second", Excerpt: "bbbb"},
	}

	prompt := buildUserPrompt("question", candidates, 100)
	if !strings.Contains(prompt, "policy_id=1") || !strings.Contains(prompt, "policy_id=2") {
		t.Fatalf("expected both candidates in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "aaaa") || !strings.Contains(prompt, "bbbb") {
		t.Fatalf("expected both excerpts in prompt:\n%s", prompt)
	}
}

func TestBuildUserPromptTruncatesLowestRankedFirst(t *testing.T) {
	candidates := []domain.Candidate{
		{PolicyID: 1, Title: "Top", Excerpt: strings.Repeat("a", 40)},
		{PolicyID: 2, Title: "Mid", Excerpt: strings.Repeat("b", 40)},
		{PolicyID: 3, Title: "Low", Excerpt: strings.Repeat("c", 40)},
	}

	prompt := buildUserPrompt("q", candidates, 60)
	if !strings.Contains(prompt, strings.Repeat("a", 40)) {
		t.Fatalf("top candidate must stay intact:\n%s", prompt)
	}
	if !strings.Contains(prompt, strings.Repeat("b", 20)) || strings.Contains(prompt, strings.Repeat("b", 21)) {
		t.Fatalf("middle candidate must be trimmed to the remaining budget:\n%s", prompt)
	}
	if strings.Contains(prompt, "policy_id=3") || strings.Contains(prompt, "cccc") {
		t.Fatalf("lowest-ranked candidate must be dropped:\n%s", prompt)
	}
}

func TestBuildUserPromptZeroBudgetDisablesBound(t *testing.T) {
	candidates := []domain.Candidate{
		{PolicyID: 1, Title: "Only", Excerpt: strings.Repeat("x", 5000)},
	}
	prompt := buildUserPrompt("q", candidates, 0)
	if !strings.Contains(prompt, strings.Repeat("x", 5000)) {
		t.Fatalf("zero budget must keep the full excerpt")
	}
}

func TestTrimToRuneBoundary(t *testing.T) {
	s := strings.Repeat("й", 10)
	trimmed := trimToRuneBoundary(s, 7)
	if len(trimmed) > 7 {
		t.Fatalf("trim over budget: %d bytes", len(trimmed))
	}
	for _, r := range trimmed {
		if r != 'й' {
			t.Fatalf("trim broke a rune: %q", trimmed)
		}
	}
}
