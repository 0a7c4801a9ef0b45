package scoring

import "github.com/govbizai/matchcore/pkg/types"

type recencyFactorScorer struct{}

func (recencyFactorScorer) Name() string { return "recency_factor" }

// Score counts past-performance records within the last 3 years
// (spec.md §4.3 recency_factor).
func (recencyFactorScorer) Score(opp *types.Opportunity, company *types.CompanyProfile, ctx *Context) types.ComponentResult {
	cutoffYear := ctx.Now.Year() - 3

	recent := 0
	for _, pp := range company.PastPerformance {
		if pp.Year >= cutoffYear {
			recent++
		}
	}

	var score float64
	switch {
	case recent >= 3:
		score = 1.0
	case recent >= 1:
		score = 0.7
	default:
		score = 0.5
	}

	return types.ComponentResult{
		Score:  score,
		Status: "ok",
		Detail: map[string]interface{}{"recent_record_count": recent},
	}
}
