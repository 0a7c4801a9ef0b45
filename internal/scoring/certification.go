package scoring

import (
	"strings"

	"github.com/govbizai/matchcore/pkg/types"
)

type certificationBonusScorer struct{}

func (certificationBonusScorer) Name() string { return "certification_bonus" }

// exactCertifications maps a set-aside to the certification tokens
// that fully satisfy it.
var exactCertifications = map[string][]string{
	types.SetAsideSDVOSB:        {types.SetAsideSDVOSB},
	types.SetAsideVOSB:          {types.SetAsideVOSB},
	types.SetAsideWOSB:          {types.SetAsideWOSB},
	types.SetAside8A:            {types.SetAside8A},
	types.SetAsideHUBZone:       {types.SetAsideHUBZone},
	types.SetAsideSmallBusiness: {types.SetAsideSmallBusiness},
}

// adjacentCertifications maps a set-aside to certification tokens that
// are a partial/adjacent match — e.g. SDVOSB when the set-aside is
// VOSB (spec.md §4.3 certification_bonus).
var adjacentCertifications = map[string][]string{
	types.SetAsideVOSB:          {types.SetAsideSDVOSB},
	types.SetAsideSDVOSB:        {types.SetAsideVOSB},
	types.SetAsideSmallBusiness: {types.SetAsideSDVOSB, types.SetAsideVOSB, types.SetAsideWOSB, types.SetAside8A, types.SetAsideHUBZone},
}

// Score rewards a certification matching the opportunity's set-aside,
// half credit for an adjacent certification, and 0.0 for open
// solicitations (spec.md §4.3 certification_bonus).
func (certificationBonusScorer) Score(opp *types.Opportunity, company *types.CompanyProfile, ctx *Context) types.ComponentResult {
	if opp.SetAside == "" {
		return types.ComponentResult{Score: 0.0, Status: "ok", Detail: map[string]interface{}{"reason": "open_solicitation"}}
	}

	setAside := strings.ToUpper(opp.SetAside)

	for _, cert := range exactCertifications[setAside] {
		if company.HasCertification(cert) {
			return types.ComponentResult{Score: 1.0, Status: "ok", Detail: map[string]interface{}{"matched_certification": cert, "match_type": "exact"}}
		}
	}

	for _, cert := range adjacentCertifications[setAside] {
		if company.HasCertification(cert) {
			return types.ComponentResult{Score: 0.5, Status: "ok", Detail: map[string]interface{}{"matched_certification": cert, "match_type": "adjacent"}}
		}
	}

	return types.ComponentResult{Score: 0.0, Status: "ok"}
}
