package modelchain

import (
	"fmt"
	"strings"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
)

const answerSystemPrompt = `You are a company policy assistant.
Answer the user question only from the policy excerpts below.
Return a strict JSON object with keys:
answer (string), policy_id (number, id of the single most relevant policy, omit if none), confidence (number from 0 to 1).
No markdown, no extra keys.
If the excerpts do not contain the answer, say so in the answer field and set confidence to 0.`

// buildUserPrompt renders the question plus candidate excerpts, keeping the
// total excerpt volume within contextBudget bytes. Candidates arrive in rank
// order; when the budget runs out the lowest-ranked candidates are truncated
// or dropped first.
func buildUserPrompt(query string, candidates []domain.Candidate, contextBudget int) string {
	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(query)
	b.WriteString("\n\nPolicy excerpts:\n")

	remaining := contextBudget
	for idx, candidate := range candidates {
		if contextBudget > 0 && remaining <= 0 {
			break
		}
		excerpt := candidate.Excerpt
		if contextBudget > 0 && len(excerpt) > remaining {
			excerpt = trimToRuneBoundary(excerpt, remaining)
		}
		b.WriteString(fmt.Sprintf("[%d] policy_id=%d title=%q\n%s\n\n", idx+1, candidate.PolicyID, candidate.Title, excerpt))
		if contextBudget > 0 {
			remaining -= len(excerpt)
		}
	}
	return b.String()
}

func trimToRuneBoundary(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
