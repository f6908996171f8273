package usecase

import (
	"sort"
	"strings"
	"unicode"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
)

const (
	defaultCandidateLimit = 5
	titleMatchWeight      = 0.6
	contentMatchWeight    = 0.4
)

// selectCandidates ranks corpus policies by lexical overlap with the query
// and returns at most limit candidates. An empty result is a valid outcome,
// not an error. Ranking is deterministic for a fixed corpus snapshot: ties
// on score go to the most recently updated policy, then the lower id.
func selectCandidates(query string, policies []domain.Policy, limit, excerptBudget int) []domain.Candidate {
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	queryTokens := toTokenSet(query)
	if len(queryTokens) == 0 {
		return nil
	}

	type scored struct {
		policy domain.Policy
		score  float64
	}
	matches := make([]scored, 0, len(policies))
	for _, policy := range policies {
		titleOverlap := tokenOverlap(queryTokens, toTokenSet(policy.Title))
		contentOverlap := tokenOverlap(queryTokens, toTokenSet(policy.Content))
		score := titleMatchWeight*titleOverlap + contentMatchWeight*contentOverlap
		if score <= 0 {
			continue
		}
		matches = append(matches, scored{policy: policy, score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		if !matches[i].policy.UpdatedAt.Equal(matches[j].policy.UpdatedAt) {
			return matches[i].policy.UpdatedAt.After(matches[j].policy.UpdatedAt)
		}
		return matches[i].policy.ID < matches[j].policy.ID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]domain.Candidate, 0, len(matches))
	for _, match := range matches {
		out = append(out, domain.Candidate{
			PolicyID: match.policy.ID,
			Title:    match.policy.Title,
			Score:    match.score,
			Excerpt:  boundExcerpt(match.policy.Content, excerptBudget),
		})
	}
	return out
}

// boundExcerpt trims content to at most budget bytes, cutting on a rune
// boundary so the excerpt stays valid UTF-8.
func boundExcerpt(content string, budget int) string {
	if budget <= 0 || len(content) <= budget {
		return content
	}
	cut := budget
	for cut > 0 && !isRuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func tokenOverlap(query, doc map[string]struct{}) float64 {
	if len(query) == 0 || len(doc) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := doc[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
