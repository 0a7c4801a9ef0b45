package scoring

import (
	"strings"

	"github.com/govbizai/matchcore/pkg/types"
)

type geographicMatchScorer struct{}

func (geographicMatchScorer) Name() string { return "geographic_match" }

// Score rewards a same-state match, gives 0.7 for an adjacent state, and
// defaults to a 0.4 baseline otherwise since remote work is still possible
// (spec.md §4.3 geographic_match).
func (geographicMatchScorer) Score(opp *types.Opportunity, company *types.CompanyProfile, ctx *Context) types.ComponentResult {
	state := strings.ToUpper(opp.PlaceOfPerformance.State)
	if state == "" {
		return types.ComponentResult{Score: 1.0, Status: "ok", Detail: map[string]interface{}{"reason": "no_place_of_performance"}}
	}

	for _, loc := range company.Locations {
		if strings.EqualFold(loc.State, state) {
			return types.ComponentResult{Score: 1.0, Status: "ok", Detail: map[string]interface{}{"matched_state": loc.State}}
		}
	}

	adjacent := ctx.GeoAdjacency[state]
	for _, loc := range company.Locations {
		for _, adj := range adjacent {
			if strings.EqualFold(loc.State, adj) {
				return types.ComponentResult{Score: 0.7, Status: "ok", Detail: map[string]interface{}{"adjacent_state": loc.State}}
			}
		}
	}

	return types.ComponentResult{Score: 0.4, Status: "ok", Detail: map[string]interface{}{"reason": "no_state_or_adjacency_match"}}
}
