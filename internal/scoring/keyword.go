package scoring

import (
	"strconv"
	"strings"

	"github.com/govbizai/matchcore/pkg/types"
)

type keywordMatchingScorer struct{}

func (keywordMatchingScorer) Name() string { return "keyword_matching" }

// Score computes a TF-IDF-flavored token overlap between the
// opportunity text and the company's capability statement/past
// performance, normalized by the shorter document's length (spec.md
// §4.3 keyword_matching).
func (keywordMatchingScorer) Score(opp *types.Opportunity, company *types.CompanyProfile, ctx *Context) types.ComponentResult {
	oppText := opp.Title + " " + opp.Description
	companyText := company.CapabilityStatement
	for _, pp := range company.PastPerformance {
		companyText += " " + pp.Description
	}

	oppTokens := tokenizeKeywords(oppText, ctx.Stopwords)
	companyTokens := tokenizeKeywords(companyText, ctx.Stopwords)

	if len(oppTokens) == 0 || len(companyTokens) == 0 {
		return types.ComponentResult{Score: 0.0, Status: "ok", Detail: map[string]interface{}{"reason": "empty_text"}}
	}

	companySet := make(map[string]int, len(companyTokens))
	for _, tok := range companyTokens {
		companySet[tok]++
	}

	overlap := 0
	for _, tok := range oppTokens {
		if companySet[tok] > 0 {
			overlap++
		}
	}

	shorter := len(oppTokens)
	if len(companyTokens) < shorter {
		shorter = len(companyTokens)
	}

	score := float64(overlap) / float64(shorter)

	return types.ComponentResult{
		Score:  clamp01(score),
		Status: "ok",
		Detail: map[string]interface{}{
			"overlap_count": overlap,
			"opp_tokens":    len(oppTokens),
			"company_tokens": len(companyTokens),
		},
	}
}

// tokenizeKeywords lowercases, strips punctuation, drops stopwords and
// purely numeric tokens (NAICS codes), per spec.md §4.3.
func tokenizeKeywords(text string, stopwords map[string]bool) []string {
	var tokens []string
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		tok := strings.Trim(raw, ".,;:()\"'!?")
		if tok == "" {
			continue
		}
		if stopwords[tok] {
			continue
		}
		if _, err := strconv.Atoi(tok); err == nil {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}
