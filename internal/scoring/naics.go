package scoring

import (
	"github.com/govbizai/matchcore/pkg/types"
)

type naicsAlignmentScorer struct{}

func (naicsAlignmentScorer) Name() string { return "naics_alignment" }

// Score runs a hierarchical NAICS-prefix comparison across every
// company NAICS code and keeps the maximum, with a small bonus for the
// company's primary code. Missing opportunity NAICS falls back to a
// keyword-based industry inference capped at 0.5 (spec.md §4.3
// naics_alignment).
func (naicsAlignmentScorer) Score(opp *types.Opportunity, company *types.CompanyProfile, ctx *Context) types.ComponentResult {
	if opp.NAICSCode == "" {
		score := keywordIndustryInference(opp, company, ctx)
		return types.ComponentResult{
			Score:  clamp01(score),
			Status: "ok",
			Detail: map[string]interface{}{"reason": "missing_opportunity_naics"},
		}
	}

	if len(company.NAICSCodes) == 0 {
		return types.ComponentResult{Score: 0.0, Status: "ok", Detail: map[string]interface{}{"reason": "missing_company_naics"}}
	}

	best := 0.0
	var bestCode string
	for _, code := range company.NAICSCodes {
		s := naicsPairScore(opp.NAICSCode, code)
		if s > best {
			best = s
			bestCode = code
		}
	}

	if bestCode != "" && bestCode == company.PrimaryNAICS() {
		best += 0.05
	}

	return types.ComponentResult{
		Score:  clamp01(best),
		Status: "ok",
		Detail: map[string]interface{}{"matched_naics": bestCode},
	}
}

// naicsPairScore scores a single opportunity/company NAICS pair by
// shared-prefix length: exact=1.0, 4-digit=0.7, 3-digit=0.4,
// 2-digit=0.2, none=0.0.
func naicsPairScore(oppCode, companyCode string) float64 {
	if oppCode == companyCode {
		return 1.0
	}
	switch {
	case sharesPrefix(oppCode, companyCode, 4):
		return 0.7
	case sharesPrefix(oppCode, companyCode, 3):
		return 0.4
	case sharesPrefix(oppCode, companyCode, 2):
		return 0.2
	default:
		return 0.0
	}
}

func sharesPrefix(a, b string, n int) bool {
	if len(a) < n || len(b) < n {
		return false
	}
	return a[:n] == b[:n]
}

// keywordIndustryInference is a weak fallback when the opportunity has
// no NAICS code: token overlap between the description/title and the
// company's capability statement, capped at 0.5.
func keywordIndustryInference(opp *types.Opportunity, company *types.CompanyProfile, ctx *Context) float64 {
	oppTokens := tokenizeKeywords(opp.Title+" "+opp.Description, ctx.Stopwords)
	companyTokens := tokenizeKeywords(company.CapabilityStatement, ctx.Stopwords)
	if len(oppTokens) == 0 || len(companyTokens) == 0 {
		return 0.0
	}

	companySet := make(map[string]bool, len(companyTokens))
	for _, tok := range companyTokens {
		companySet[tok] = true
	}

	overlap := 0
	for _, tok := range oppTokens {
		if companySet[tok] {
			overlap++
		}
	}

	shorter := len(oppTokens)
	if len(companyTokens) < shorter {
		shorter = len(companyTokens)
	}

	ratio := float64(overlap) / float64(shorter)
	if ratio > 0.5 {
		ratio = 0.5
	}
	return ratio
}
