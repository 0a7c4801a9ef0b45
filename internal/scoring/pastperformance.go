package scoring

import (
	"strings"

	"github.com/govbizai/matchcore/pkg/types"
)

type pastPerformanceScorer struct{}

func (pastPerformanceScorer) Name() string { return "past_performance" }

// Score tiers by record count and adds an agency-match bonus (spec.md
// §4.3 past_performance).
func (pastPerformanceScorer) Score(opp *types.Opportunity, company *types.CompanyProfile, ctx *Context) types.ComponentResult {
	count := len(company.PastPerformance)

	var base float64
	switch {
	case count >= 5:
		base = 0.9
	case count >= 3:
		base = 0.7
	case count >= 1:
		base = 0.5
	default:
		base = 0.0
	}

	agencyField := strings.ToLower(opp.Department + " " + opp.Office)
	bonus := 0.0
	var matchedAgency string
	if agencyField != "" {
		for _, pp := range company.PastPerformance {
			token := strings.ToLower(strings.TrimSpace(pp.Agency))
			if token == "" {
				continue
			}
			if strings.Contains(agencyField, token) {
				bonus = 0.1
				matchedAgency = pp.Agency
				break
			}
		}
	}

	detail := map[string]interface{}{"record_count": count}
	if matchedAgency != "" {
		detail["agency_bonus_matched"] = matchedAgency
	}

	return types.ComponentResult{
		Score:  clamp01(base + bonus),
		Status: "ok",
		Detail: detail,
	}
}
