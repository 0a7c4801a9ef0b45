// Package config loads the match engine's configuration surface
// (spec.md §6.5) from YAML with environment variable overrides, the
// way the teacher's policy loader reads YAML policy files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/govbizai/matchcore/pkg/types"
)

// fileConfig mirrors types.Config but with millisecond/second integer
// fields, matching how the durations are documented in spec.md §6.5
// ("..._ms", "..._seconds").
type fileConfig struct {
	EmbeddingDimension      int                `yaml:"embedding_dimension"`
	CacheTTLSeconds         int                `yaml:"cache_ttl_seconds"`
	MatchResultTTLSeconds   int                `yaml:"match_result_ttl_seconds"`
	DefaultWeights          map[string]float64 `yaml:"default_weights"`
	ScorerSoftBudgetMs      int                `yaml:"scorer_soft_budget_ms"`
	ScorerHardTimeoutMs     int                `yaml:"scorer_hard_timeout_ms"`
	OrchestratorBudgetMs    int                `yaml:"orchestrator_budget_ms"`
	BatchSizeDefault        int                `yaml:"batch_size_default"`
	BatchConcurrencyDefault int                `yaml:"batch_concurrency_default"`
	BatchSizeMin            int                `yaml:"batch_size_min"`
	BatchSizeMax            int                `yaml:"batch_size_max"`
	ConcurrencyMin          int                `yaml:"concurrency_min"`
	ConcurrencyMax          int                `yaml:"concurrency_max"`
	ConfidenceHigh          float64            `yaml:"confidence_high"`
	ConfidenceMedium        float64            `yaml:"confidence_medium"`
	QuickFilterPassThreshold int               `yaml:"quick_filter_pass_threshold"`
	CapacityThresholds      struct {
		LargeContractValue float64 `yaml:"large_contract_value"`
		SmallCompanyMaxEmp int     `yaml:"small_company_max_employees"`
		SmallContractValue float64 `yaml:"small_contract_value"`
		LargeCompanyMinEmp int     `yaml:"large_company_min_employees"`
	} `yaml:"capacity_thresholds"`
}

// Load reads a YAML config file, falling back to spec.md §6.5 defaults
// for anything unset, then applies MATCHCORE_* environment overrides.
// An empty path returns defaults with only env overrides applied.
func Load(path string, logger *zap.Logger) (types.Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := types.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				logger.Warn("config file not found, using defaults", zap.String("path", path))
			} else {
				return cfg, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return cfg, fmt.Errorf("failed to parse config file: %w", err)
			}
			applyFileConfig(&cfg, fc)
		}
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func applyFileConfig(cfg *types.Config, fc fileConfig) {
	if fc.EmbeddingDimension > 0 {
		cfg.EmbeddingDimension = fc.EmbeddingDimension
	}
	if fc.CacheTTLSeconds > 0 {
		cfg.CacheTTL = time.Duration(fc.CacheTTLSeconds) * time.Second
	}
	if fc.MatchResultTTLSeconds > 0 {
		cfg.MatchResultTTL = time.Duration(fc.MatchResultTTLSeconds) * time.Second
	}
	if len(fc.DefaultWeights) > 0 {
		cfg.DefaultWeights = types.Weights(fc.DefaultWeights).Normalize()
	}
	if fc.ScorerSoftBudgetMs > 0 {
		cfg.ScorerSoftBudget = time.Duration(fc.ScorerSoftBudgetMs) * time.Millisecond
	}
	if fc.ScorerHardTimeoutMs > 0 {
		cfg.ScorerHardTimeout = time.Duration(fc.ScorerHardTimeoutMs) * time.Millisecond
	}
	if fc.OrchestratorBudgetMs > 0 {
		cfg.OrchestratorBudget = time.Duration(fc.OrchestratorBudgetMs) * time.Millisecond
	}
	if fc.BatchSizeDefault > 0 {
		cfg.BatchSizeDefault = fc.BatchSizeDefault
	}
	if fc.BatchConcurrencyDefault > 0 {
		cfg.BatchConcurrencyDefault = fc.BatchConcurrencyDefault
	}
	if fc.BatchSizeMin > 0 {
		cfg.BatchSizeMin = fc.BatchSizeMin
	}
	if fc.BatchSizeMax > 0 {
		cfg.BatchSizeMax = fc.BatchSizeMax
	}
	if fc.ConcurrencyMin > 0 {
		cfg.ConcurrencyMin = fc.ConcurrencyMin
	}
	if fc.ConcurrencyMax > 0 {
		cfg.ConcurrencyMax = fc.ConcurrencyMax
	}
	if fc.ConfidenceHigh > 0 {
		cfg.ConfidenceThresholds.High = fc.ConfidenceHigh
	}
	if fc.ConfidenceMedium > 0 {
		cfg.ConfidenceThresholds.Medium = fc.ConfidenceMedium
	}
	if fc.QuickFilterPassThreshold > 0 {
		cfg.QuickFilterPassThreshold = fc.QuickFilterPassThreshold
	}
	if fc.CapacityThresholds.LargeContractValue > 0 {
		cfg.CapacityThresholds.LargeContractValue = fc.CapacityThresholds.LargeContractValue
	}
	if fc.CapacityThresholds.SmallCompanyMaxEmp > 0 {
		cfg.CapacityThresholds.SmallCompanyMaxEmp = fc.CapacityThresholds.SmallCompanyMaxEmp
	}
	if fc.CapacityThresholds.SmallContractValue > 0 {
		cfg.CapacityThresholds.SmallContractValue = fc.CapacityThresholds.SmallContractValue
	}
	if fc.CapacityThresholds.LargeCompanyMinEmp > 0 {
		cfg.CapacityThresholds.LargeCompanyMinEmp = fc.CapacityThresholds.LargeCompanyMinEmp
	}
}

// applyEnvOverrides lists the environment variables that may override a
// loaded config, kept small and explicit rather than reflecting over
// struct tags.
func applyEnvOverrides(cfg *types.Config) {
	if v, ok := intEnv("MATCHCORE_EMBEDDING_DIMENSION"); ok {
		cfg.EmbeddingDimension = v
	}
	if v, ok := intEnv("MATCHCORE_BATCH_SIZE_DEFAULT"); ok {
		cfg.BatchSizeDefault = v
	}
	if v, ok := intEnv("MATCHCORE_BATCH_CONCURRENCY_DEFAULT"); ok {
		cfg.BatchConcurrencyDefault = v
	}
}

func intEnv(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
