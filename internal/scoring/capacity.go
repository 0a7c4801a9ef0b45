package scoring

import "github.com/govbizai/matchcore/pkg/types"

type capacityFitScorer struct{}

func (capacityFitScorer) Name() string { return "capacity_fit" }

// Score flags extreme value/headcount mismatches, defaulting to 0.8
// otherwise (spec.md §4.3 capacity_fit). Thresholds come from
// ctx.Capacity, which the orchestrator fills from
// types.Config.CapacityThresholds, so the same table used by the quick
// filter drives this scorer too.
func (capacityFitScorer) Score(opp *types.Opportunity, company *types.CompanyProfile, ctx *Context) types.ComponentResult {
	thresholds := ctx.Capacity

	if opp.ContractValue == nil || !company.EmployeeBucket.Known() {
		return types.ComponentResult{Score: 0.8, Status: "ok", Detail: map[string]interface{}{"reason": "unparseable"}}
	}

	value := *opp.ContractValue
	maxEmp := company.EmployeeBucket.MaxEmployees()

	switch {
	case value > thresholds.LargeContractValue && maxEmp <= thresholds.SmallCompanyMaxEmp:
		return types.ComponentResult{Score: 0.3, Status: "ok", Detail: map[string]interface{}{"reason": "value_exceeds_capacity"}}
	case value < thresholds.SmallContractValue && maxEmp > thresholds.LargeCompanyMinEmp:
		return types.ComponentResult{Score: 0.6, Status: "ok", Detail: map[string]interface{}{"reason": "value_below_scale"}}
	default:
		return types.ComponentResult{Score: 0.8, Status: "ok"}
	}
}
