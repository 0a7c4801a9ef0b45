package types

import "time"

// Config enumerates the configuration surface of spec.md §6.5. It is
// loaded by internal/config and threaded explicitly through
// constructors rather than read from globals.
type Config struct {
	EmbeddingDimension int `yaml:"embedding_dimension"`

	CacheTTL            time.Duration `yaml:"cache_ttl_seconds"`
	MatchResultTTL      time.Duration `yaml:"match_result_ttl_seconds"`

	DefaultWeights Weights `yaml:"default_weights"`

	ScorerSoftBudget   time.Duration `yaml:"scorer_soft_budget_ms"`
	ScorerHardTimeout  time.Duration `yaml:"scorer_hard_timeout_ms"`
	OrchestratorBudget time.Duration `yaml:"orchestrator_budget_ms"`

	BatchSizeDefault        int `yaml:"batch_size_default"`
	BatchConcurrencyDefault int `yaml:"batch_concurrency_default"`
	BatchSizeMin            int `yaml:"batch_size_min"`
	BatchSizeMax            int `yaml:"batch_size_max"`
	ConcurrencyMin          int `yaml:"concurrency_min"`
	ConcurrencyMax          int `yaml:"concurrency_max"`

	ConfidenceThresholds ConfidenceThresholds `yaml:"confidence_thresholds"`

	// CapacityThresholds surfaces the $10M/$100k/employee-bracket
	// cutoffs as configuration rather than constants (spec.md §9 open
	// question).
	CapacityThresholds CapacityThresholds `yaml:"capacity_thresholds"`

	// QuickFilterPassThreshold is spec.md §6.5's
	// quick_filter_pass_threshold: how many of the 5 quick-filter
	// checks must pass for is_potential_match to be true. Zero means
	// the documented default, "all mandatory checks pass".
	QuickFilterPassThreshold int `yaml:"quick_filter_pass_threshold"`
}

// CapacityThresholds configures the value/employee-count cutoffs used
// by the capacity_fit scorer and the quick filter's value/capacity
// sanity check (spec.md §4.2 check 5, §4.3 capacity_fit).
type CapacityThresholds struct {
	LargeContractValue float64 `yaml:"large_contract_value"` // default 10_000_000
	SmallCompanyMaxEmp int     `yaml:"small_company_max_employees"` // default 20
	SmallContractValue float64 `yaml:"small_contract_value"` // default 100_000
	LargeCompanyMinEmp int     `yaml:"large_company_min_employees"` // default 100
}

// DefaultConfig returns the spec.md §6.5 defaults.
func DefaultConfig() Config {
	return Config{
		EmbeddingDimension:      1024,
		CacheTTL:                24 * time.Hour,
		MatchResultTTL:          MatchResultTTL,
		DefaultWeights:          DefaultWeights(),
		ScorerSoftBudget:        500 * time.Millisecond,
		ScorerHardTimeout:       2 * time.Second,
		OrchestratorBudget:      5 * time.Second,
		BatchSizeDefault:        100,
		BatchConcurrencyDefault: 8,
		BatchSizeMin:            10,
		BatchSizeMax:            500,
		ConcurrencyMin:          2,
		ConcurrencyMax:          64,
		ConfidenceThresholds:    DefaultConfidenceThresholds(),
		QuickFilterPassThreshold: 5,
		CapacityThresholds: CapacityThresholds{
			LargeContractValue: 10_000_000,
			SmallCompanyMaxEmp: 20,
			SmallContractValue: 100_000,
			LargeCompanyMinEmp: 100,
		},
	}
}
