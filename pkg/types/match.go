package types

import "time"

// ConfidenceLevel is a pure function of total_score (spec.md §3).
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// ConfidenceThresholds configures the HIGH/MEDIUM cutoffs (spec.md §6.5).
type ConfidenceThresholds struct {
	High   float64
	Medium float64
}

// DefaultConfidenceThresholds matches spec.md §4.4/§6.5.
func DefaultConfidenceThresholds() ConfidenceThresholds {
	return ConfidenceThresholds{High: 0.75, Medium: 0.50}
}

// Level maps a total score to its confidence tier.
func (t ConfidenceThresholds) Level(totalScore float64) ConfidenceLevel {
	switch {
	case totalScore >= t.High:
		return ConfidenceHigh
	case totalScore >= t.Medium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ComponentResult is the per-scorer output (spec.md §4.3).
type ComponentResult struct {
	Score            float64                `json:"score"`
	Detail           map[string]interface{} `json:"detail,omitempty"`
	Status           string                 `json:"status"` // ok, degraded:<reason>, missing_embedding, timeout, error:<class>
	ProcessingTimeMs float64                `json:"processing_time_ms"`
}

// MatchResult is the keyed output of the Match Orchestrator (spec.md §3).
type MatchResult struct {
	CompanyID       string                     `json:"company_id"`
	OpportunityID   string                     `json:"opportunity_id"`
	TotalScore      float64                    `json:"total_score"`
	ConfidenceLevel ConfidenceLevel            `json:"confidence_level"`
	ComponentScores map[string]float64         `json:"component_scores"`
	ComponentDetail map[string]ComponentResult `json:"component_detail,omitempty"`
	MatchReasons    []string                   `json:"match_reasons"`
	Recommendations []string                   `json:"recommendations"`
	ActionItems     []string                   `json:"action_items"`
	ProcessingTimeMs float64                   `json:"processing_time_ms"`
	Cached          bool                       `json:"cached"`
	Status          string                     `json:"status,omitempty"` // "", "degraded", "partial"
	CreatedAt       time.Time                  `json:"created_at"`
	ExpiresAt       time.Time                  `json:"expires_at"`
}

// MatchResultTTL is the default retention for a MatchResult (90 days,
// spec.md §3).
const MatchResultTTL = 90 * 24 * time.Hour

// MatchRequest is the synchronous match request (spec.md §6.1).
type MatchRequest struct {
	Opportunity     Opportunity        `json:"opportunity"`
	CompanyProfile  CompanyProfile     `json:"company_profile"`
	UseCache        bool               `json:"use_cache"`
	WeightsOverride map[string]float64 `json:"weights_override,omitempty"`
	ForceRefresh    bool               `json:"force_refresh,omitempty"`
}

// ErrorKind enumerates the user-visible error taxonomy (spec.md §7).
type ErrorKind string

const (
	ErrInvalidInput        ErrorKind = "INVALID_INPUT"
	ErrUpstreamUnavailable ErrorKind = "UPSTREAM_UNAVAILABLE"
)

// MatchError carries an error kind code alongside a message, per spec.md §7.
type MatchError struct {
	Kind    ErrorKind
	Message string
}

func (e *MatchError) Error() string { return string(e.Kind) + ": " + e.Message }
