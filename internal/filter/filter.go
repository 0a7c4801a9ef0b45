// Package filter implements the quick filter (spec.md §4.2): a cheap
// pre-scoring pass that rejects obvious non-matches in well under the
// 10ms budget without invoking any of the 8 scorers.
package filter

import (
	"strings"
	"time"

	"github.com/govbizai/matchcore/pkg/types"
)

// Config carries the tenant-tunable knobs the filter needs so that
// industry vocabulary and capacity cutoffs aren't baked in as magic
// constants (spec.md §9 open questions).
type Config struct {
	// IndustryTokens maps a free-text industry token to the NAICS
	// 2-digit prefixes it corresponds to, used when the opportunity
	// description must be matched against a company's textual
	// capability statement rather than a NAICS code.
	IndustryTokens map[string][]string

	// AdjacentStates has the same shape as the geographic scorer's
	// adjacency table in internal/scoring. No check in this package
	// reads it: geographyCheck passes any non-matching state at 0.4,
	// whether or not it borders the place of performance.
	AdjacentStates map[string][]string

	Capacity types.CapacityThresholds

	// MinChecksPassed is spec.md §6.5's quick_filter_pass_threshold:
	// the minimum number of the 5 checks that must pass for
	// is_potential_match to be true. Zero means the spec default --
	// all mandatory checks must pass.
	MinChecksPassed int
}

// DefaultConfig returns sensible defaults: an empty industry-token
// table (callers wire in their own vocabulary), spec.md §4.5's
// default capacity thresholds, and quick_filter_pass_threshold set to
// "all checks must pass" (spec.md §6.5 default).
func DefaultConfig() Config {
	return Config{
		IndustryTokens:  map[string][]string{},
		AdjacentStates:  map[string][]string{},
		Capacity:        types.DefaultConfig().CapacityThresholds,
		MinChecksPassed: len(checkOrder),
	}
}

// CheckResult is the per-check outcome (spec.md §4.2: checks.<name>).
type CheckResult struct {
	Passed bool                   `json:"passed"`
	Score  float64                `json:"score"`
	Detail map[string]interface{} `json:"detail,omitempty"`
}

// Result is the Quick Filter's output (spec.md §4.2).
type Result struct {
	IsPotentialMatch bool                   `json:"is_potential_match"`
	FilterScore      float64                `json:"filter_score"`
	PassReasons      []string               `json:"pass_reasons"`
	FailReasons      []string               `json:"fail_reasons"`
	Checks           map[string]CheckResult `json:"checks"`
}

const (
	checkIndustry  = "industry"
	checkSetAside  = "set_aside"
	checkGeography = "geography"
	checkActive    = "active"
	checkCapacity  = "capacity_sanity"
)

// checkOrder fixes iteration/report order for deterministic output.
var checkOrder = []string{checkIndustry, checkSetAside, checkGeography, checkActive, checkCapacity}

// setAsideCertifications maps a restricted set-aside code to the
// certification tokens that satisfy it (spec.md §4.2 check 2).
var setAsideCertifications = map[string][]string{
	types.SetAsideSDVOSB:        {types.SetAsideSDVOSB},
	types.SetAsideVOSB:          {types.SetAsideVOSB, types.SetAsideSDVOSB},
	types.SetAsideWOSB:          {types.SetAsideWOSB},
	types.SetAside8A:            {types.SetAside8A},
	types.SetAsideHUBZone:       {types.SetAsideHUBZone},
	types.SetAsideSmallBusiness: {types.SetAsideSmallBusiness, types.SetAsideSDVOSB, types.SetAsideVOSB, types.SetAsideWOSB, types.SetAside8A, types.SetAsideHUBZone},
}

// Run executes the quick filter against opp/company using cfg
// (spec.md §4.2).
func Run(opp *types.Opportunity, company *types.CompanyProfile, cfg Config) Result {
	checks := make(map[string]CheckResult, len(checkOrder))

	checks[checkIndustry] = industryCheck(opp, company, cfg)
	checks[checkSetAside] = setAsideCheck(opp, company)
	checks[checkGeography] = geographyCheck(opp, company)
	checks[checkActive] = activeCheck(opp)
	checks[checkCapacity] = capacityCheck(opp, company, cfg)

	var sum float64
	passed := 0
	var passReasons, failReasons []string

	for _, name := range checkOrder {
		c := checks[name]
		sum += c.Score
		if c.Passed {
			passed++
			passReasons = append(passReasons, passReason(name, c))
		} else {
			failReasons = append(failReasons, failReason(name, c))
		}
	}

	threshold := cfg.MinChecksPassed
	if threshold <= 0 {
		threshold = len(checkOrder)
	}

	return Result{
		IsPotentialMatch: passed >= threshold,
		FilterScore:      sum / float64(len(checkOrder)),
		PassReasons:      passReasons,
		FailReasons:      failReasons,
		Checks:           checks,
	}
}

func passReason(name string, c CheckResult) string {
	switch name {
	case checkIndustry:
		return "industry alignment plausible"
	case checkSetAside:
		return "set-aside eligibility satisfied"
	case checkGeography:
		return "geography compatible"
	case checkActive:
		return "opportunity is active"
	case checkCapacity:
		return "contract value fits company capacity"
	default:
		return name + " passed"
	}
}

func failReason(name string, c CheckResult) string {
	switch name {
	case checkIndustry:
		return "industry mismatch"
	case checkSetAside:
		return "company lacks required set-aside certification"
	case checkGeography:
		return "geography mismatch"
	case checkActive:
		return "opportunity is archived"
	case checkCapacity:
		return "contract value outside company capacity"
	default:
		return name + " failed"
	}
}

func industryCheck(opp *types.Opportunity, company *types.CompanyProfile, cfg Config) CheckResult {
	if opp.NAICSCode == "" || len(company.NAICSCodes) == 0 {
		if overlapsIndustryVocabulary(opp, company, cfg) {
			return CheckResult{Passed: true, Score: 1.0, Detail: map[string]interface{}{"reason": "vocabulary_overlap"}}
		}
		return CheckResult{Passed: true, Score: 0.5, Detail: map[string]interface{}{"reason": "missing_data"}}
	}

	oppPrefix := naicsPrefix(opp.NAICSCode, 2)
	for _, code := range company.NAICSCodes {
		if naicsPrefix(code, 2) == oppPrefix {
			return CheckResult{Passed: true, Score: 1.0, Detail: map[string]interface{}{"naics_code": code}}
		}
	}

	if overlapsIndustryVocabulary(opp, company, cfg) {
		return CheckResult{Passed: true, Score: 1.0, Detail: map[string]interface{}{"reason": "vocabulary_overlap"}}
	}

	return CheckResult{Passed: false, Score: 0.0}
}

func overlapsIndustryVocabulary(opp *types.Opportunity, company *types.CompanyProfile, cfg Config) bool {
	if len(cfg.IndustryTokens) == 0 {
		return false
	}
	descTokens := tokenize(opp.Description + " " + opp.Title)
	capTokens := tokenize(company.CapabilityStatement)

	for token := range cfg.IndustryTokens {
		if descTokens[token] && capTokens[token] {
			return true
		}
	}
	return false
}

func naicsPrefix(code string, n int) string {
	if len(code) < n {
		return code
	}
	return code[:n]
}

func tokenize(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:()\"'")
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}

func setAsideCheck(opp *types.Opportunity, company *types.CompanyProfile) CheckResult {
	if opp.SetAside == "" {
		return CheckResult{Passed: true, Score: 1.0, Detail: map[string]interface{}{"reason": "open_solicitation"}}
	}

	required, restricted := setAsideCertifications[strings.ToUpper(opp.SetAside)]
	if !restricted {
		return CheckResult{Passed: true, Score: 1.0, Detail: map[string]interface{}{"reason": "unrecognized_set_aside"}}
	}

	for _, cert := range required {
		if company.HasCertification(cert) {
			return CheckResult{Passed: true, Score: 1.0, Detail: map[string]interface{}{"certification": cert}}
		}
	}

	return CheckResult{Passed: false, Score: 0.0, Detail: map[string]interface{}{"required": required}}
}

var nationwideTokens = []string{"remote", "nationwide"}

func geographyCheck(opp *types.Opportunity, company *types.CompanyProfile) CheckResult {
	state := opp.PlaceOfPerformance.State
	if state == "" || len(company.Locations) == 0 {
		return CheckResult{Passed: true, Score: 0.4, Detail: map[string]interface{}{"reason": "missing_data"}}
	}

	descLower := strings.ToLower(opp.Description)
	for _, tok := range nationwideTokens {
		if strings.Contains(descLower, tok) {
			return CheckResult{Passed: true, Score: 1.0, Detail: map[string]interface{}{"reason": tok}}
		}
	}

	for _, loc := range company.Locations {
		if strings.EqualFold(loc.State, state) {
			return CheckResult{Passed: true, Score: 1.0, Detail: map[string]interface{}{"matched_state": loc.State}}
		}
	}

	return CheckResult{Passed: true, Score: 0.4, Detail: map[string]interface{}{"reason": "no_state_match"}}
}

// Now is a seam for deterministic tests; production code leaves this
// as time.Now.
var Now = time.Now

func activeCheck(opp *types.Opportunity) CheckResult {
	if opp.ArchiveDate.IsZero() {
		return CheckResult{Passed: true, Score: 1.0}
	}
	if opp.IsArchived(Now()) {
		return CheckResult{Passed: false, Score: 0.0, Detail: map[string]interface{}{"archive_date": opp.ArchiveDate}}
	}
	return CheckResult{Passed: true, Score: 1.0}
}

var partneringKeywords = []string{"partner", "subcontract", "teaming", "joint venture"}

func capacityCheck(opp *types.Opportunity, company *types.CompanyProfile, cfg Config) CheckResult {
	if opp.ContractValue == nil || !company.EmployeeBucket.Known() {
		return CheckResult{Passed: true, Score: 0.8, Detail: map[string]interface{}{"reason": "unparseable"}}
	}

	value := *opp.ContractValue
	maxEmp := company.EmployeeBucket.MaxEmployees()

	if value > cfg.Capacity.LargeContractValue && maxEmp <= cfg.Capacity.SmallCompanyMaxEmp {
		if containsAny(opp.Description, partneringKeywords) {
			return CheckResult{Passed: true, Score: 0.6, Detail: map[string]interface{}{"reason": "partnering_keyword_override"}}
		}
		return CheckResult{Passed: false, Score: 0.0, Detail: map[string]interface{}{"reason": "value_exceeds_capacity"}}
	}

	if value < cfg.Capacity.SmallContractValue && maxEmp > cfg.Capacity.LargeCompanyMinEmp {
		return CheckResult{Passed: true, Score: 0.6, Detail: map[string]interface{}{"reason": "value_below_scale"}}
	}

	return CheckResult{Passed: true, Score: 0.8}
}

func containsAny(text string, tokens []string) bool {
	lower := strings.ToLower(text)
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
