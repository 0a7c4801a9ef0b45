// Package orchestrator implements the Match Orchestrator (spec.md
// §4.4): the serial pipeline that produces one MatchResult by
// consulting the cache, running the quick filter, fanning the 8
// scorers out to a bounded worker pool, aggregating a weighted total,
// and building an explanation.
//
// The overall shape -- cache check, resolve, evaluate, build response,
// cache put -- follows the teacher's internal/engine.Engine.Check,
// with policy evaluation replaced by quick-filter-then-scorer-fan-out.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/govbizai/matchcore/internal/filter"
	"github.com/govbizai/matchcore/internal/fingerprint"
	"github.com/govbizai/matchcore/internal/matchcache"
	"github.com/govbizai/matchcore/internal/metrics"
	"github.com/govbizai/matchcore/internal/scoring"
	"github.com/govbizai/matchcore/pkg/types"
	"go.uber.org/zap"
)

// EmbeddingLookup resolves the vectors a semantic_similarity pass
// needs for one opportunity/company pair. It is the orchestrator's
// seam into the vector store + embedding cache (internal/vector,
// internal/embedding); a lookup failure degrades the scorer to
// status="missing_embedding" rather than failing the match.
type EmbeddingLookup func(ctx context.Context, opp *types.Opportunity, company *types.CompanyProfile) (scoring.EmbeddingInputs, error)

// Orchestrator is the Match Orchestrator (C4).
type Orchestrator struct {
	cache        *matchcache.Cache
	filterConfig filter.Config
	scorerCtx    func() *scoring.Context
	embeddings   EmbeddingLookup
	metrics      metrics.Metrics
	logger       *zap.Logger
	cfg          types.Config
	poolSize     int
}

// Option configures an Orchestrator at construction.
type Option func(*Orchestrator)

// WithFilterConfig overrides the quick filter's vocabulary/adjacency
// tables (default: filter.DefaultConfig()).
func WithFilterConfig(cfg filter.Config) Option {
	return func(o *Orchestrator) { o.filterConfig = cfg }
}

// WithEmbeddingLookup wires the semantic scorer's vector lookup.
func WithEmbeddingLookup(fn EmbeddingLookup) Option {
	return func(o *Orchestrator) { o.embeddings = fn }
}

// WithMetrics wires an observability sink (default: NoOpMetrics).
func WithMetrics(m metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger wires structured logging (default: zap.NewNop()).
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithScorerPoolSize overrides the bounded fan-out concurrency
// (spec.md §5 default 4).
func WithScorerPoolSize(n int) Option {
	return func(o *Orchestrator) { o.poolSize = n }
}

// New builds an Orchestrator backed by cache, using cfg for budgets,
// capacity thresholds and confidence thresholds.
func New(cache *matchcache.Cache, cfg types.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cache:        cache,
		filterConfig: filter.DefaultConfig(),
		metrics:      metrics.NewNoOpMetrics(),
		logger:       zap.NewNop(),
		cfg:          cfg,
		poolSize:     DefaultScorerPoolSize,
	}
	o.filterConfig.Capacity = cfg.CapacityThresholds
	if cfg.QuickFilterPassThreshold > 0 {
		o.filterConfig.MinChecksPassed = cfg.QuickFilterPassThreshold
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Match runs the full pipeline for one (opportunity, company) pair
// (spec.md §4.4).
func (o *Orchestrator) Match(ctx context.Context, req *types.MatchRequest, weights types.Weights) (*types.MatchResult, error) {
	if req.Opportunity.NoticeID == "" || req.CompanyProfile.CompanyID == "" {
		return nil, &types.MatchError{Kind: types.ErrInvalidInput, Message: "opportunity.notice_id and company_profile.company_id are required"}
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.cfg.OrchestratorBudget)
	defer cancel()

	resolved := weights.Normalize()

	fp, err := fingerprint.Compute(&req.Opportunity, &req.CompanyProfile, resolved)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: compute fingerprint: %w", err)
	}

	useCache := req.UseCache && !req.ForceRefresh
	if useCache {
		if cached, ok := o.cache.Get(fp); ok {
			cached.Cached = true
			o.metrics.RecordCacheHit()
			return cached, nil
		}
		o.metrics.RecordCacheMiss()
	}

	filterResult := filter.Run(&req.Opportunity, &req.CompanyProfile, o.filterConfig)
	if !filterResult.IsPotentialMatch {
		result := o.buildFilteredOutResult(req, fp, filterResult, start)
		o.cache.Put(fp, result)
		o.metrics.RecordMatch(string(result.ConfidenceLevel), time.Since(start))
		return result, nil
	}

	scorerCtx := o.buildScorerContext(ctx, &req.Opportunity, &req.CompanyProfile)
	componentResults, status := o.runScorers(ctx, &req.Opportunity, &req.CompanyProfile, scorerCtx)

	result := o.aggregate(req, fp, componentResults, resolved, status, start)
	o.cache.Put(fp, result)
	o.metrics.RecordMatch(string(result.ConfidenceLevel), time.Since(start))
	return result, nil
}

func (o *Orchestrator) buildScorerContext(ctx context.Context, opp *types.Opportunity, company *types.CompanyProfile) *scoring.Context {
	sc := scoring.DefaultContext()
	sc.Capacity = o.cfg.CapacityThresholds

	if o.embeddings != nil {
		if inputs, err := o.embeddings(ctx, opp, company); err == nil {
			sc.Embeddings = inputs
		} else {
			o.logger.Debug("orchestrator: embedding lookup failed, scorer will degrade",
				zap.String("opportunity_id", opp.NoticeID), zap.Error(err))
		}
	}
	return sc
}

func (o *Orchestrator) buildFilteredOutResult(req *types.MatchRequest, fp string, fr filter.Result, start time.Time) *types.MatchResult {
	now := time.Now()
	return &types.MatchResult{
		CompanyID:        req.CompanyProfile.CompanyID,
		OpportunityID:    req.Opportunity.NoticeID,
		TotalScore:       0.0,
		ConfidenceLevel:  types.ConfidenceLow,
		ComponentScores:  map[string]float64{},
		MatchReasons:      fr.FailReasons,
		Recommendations:  []string{"Review quick-filter fail reasons before investing further scoring effort"},
		ActionItems:      []string{"Address eligibility gap (certification, geography, or set-aside) before resubmission"},
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Cached:           false,
		CreatedAt:        now,
		ExpiresAt:        now.Add(o.cfg.MatchResultTTL),
	}
}

// runScorers fans the 8 scorers out to a bounded pool, enforcing each
// scorer's hard timeout individually (spec.md §5). It returns once
// every scorer has either completed or hit its hard timeout, or the
// orchestrator's own context deadline fires first (partial result).
func (o *Orchestrator) runScorers(ctx context.Context, opp *types.Opportunity, company *types.CompanyProfile, sc *scoring.Context) (map[string]types.ComponentResult, string) {
	scorers := scoring.Registry()
	p := newPool(o.poolSize)
	defer p.stop()

	type out struct {
		name   string
		result types.ComponentResult
	}
	results := make(chan out, len(scorers))

	for _, s := range scorers {
		s := s
		p.submit(func() {
			results <- out{name: s.Name(), result: o.runOneScorer(s, opp, company, sc)}
		})
	}

	componentResults := make(map[string]types.ComponentResult, len(scorers))
	status := ""
	remaining := len(scorers)

	for remaining > 0 {
		select {
		case r := <-results:
			componentResults[r.name] = r.result
			remaining--
		case <-ctx.Done():
			status = "partial"
			remaining = 0
		}
	}

	return componentResults, status
}

// runOneScorer invokes s with a hard timeout; on timeout it returns a
// zero-score ComponentResult with status="timeout" rather than
// blocking the orchestrator on a misbehaving scorer (spec.md §5).
func (o *Orchestrator) runOneScorer(s scoring.Scorer, opp *types.Opportunity, company *types.CompanyProfile, sc *scoring.Context) types.ComponentResult {
	done := make(chan types.ComponentResult, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- types.ComponentResult{Score: 0, Status: fmt.Sprintf("error:%v", r)}
			}
		}()
		res := s.Score(opp, company, sc)
		res.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
		done <- res
	}()

	timeout := o.cfg.ScorerHardTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	select {
	case res := <-done:
		return res
	case <-time.After(timeout):
		return types.ComponentResult{Score: 0, Status: "timeout", ProcessingTimeMs: float64(timeout.Milliseconds())}
	}
}

// aggregate computes the weighted total, confidence tier, and
// explanation from the per-component results (spec.md §4.4 steps 5-6).
func (o *Orchestrator) aggregate(req *types.MatchRequest, fp string, componentResults map[string]types.ComponentResult, weights types.Weights, status string, start time.Time) *types.MatchResult {
	componentScores := make(map[string]float64, len(componentResults))
	var total float64
	degraded := status == "partial"

	for name, r := range componentResults {
		componentScores[name] = r.Score
		total += weights[name] * r.Score
		if r.Status != "" && r.Status != "ok" {
			degraded = true
		}
	}
	if total > 1 {
		total = 1
	}
	if total < 0 {
		total = 0
	}

	thresholds := o.cfg.ConfidenceThresholds
	confidence := thresholds.Level(total)

	if degraded && status == "" {
		status = "degraded"
	}

	now := time.Now()
	result := &types.MatchResult{
		CompanyID:        req.CompanyProfile.CompanyID,
		OpportunityID:    req.Opportunity.NoticeID,
		TotalScore:       total,
		ConfidenceLevel:  confidence,
		ComponentScores:  componentScores,
		ComponentDetail:  componentResults,
		MatchReasons:     topReasons(componentResults, weights),
		Recommendations:  recommendations(confidence, componentResults),
		ActionItems:      actionItems(confidence),
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Cached:           false,
		Status:           status,
		CreatedAt:        now,
		ExpiresAt:        now.Add(o.cfg.MatchResultTTL),
	}
	return result
}

type weightedComponent struct {
	name         string
	contribution float64
}

// topReasons returns the top-3 components by weight*score as short
// phrases, tie-broken by component name ascending (spec.md §4.4
// Determinism: "stable order by component name ascending").
func topReasons(componentResults map[string]types.ComponentResult, weights types.Weights) []string {
	names := make([]string, 0, len(componentResults))
	for name := range componentResults {
		names = append(names, name)
	}
	sort.Strings(names)

	weighted := make([]weightedComponent, 0, len(names))
	for _, name := range names {
		weighted = append(weighted, weightedComponent{name: name, contribution: weights[name] * componentResults[name].Score})
	}
	sort.SliceStable(weighted, func(i, j int) bool { return weighted[i].contribution > weighted[j].contribution })

	var reasons []string
	for i, w := range weighted {
		if i >= 3 || w.contribution <= 0 {
			break
		}
		reasons = append(reasons, reasonPhrase(w.name))
	}
	return reasons
}

var reasonPhrases = map[string]string{
	"semantic_similarity":  "Strong semantic alignment with capability statement",
	"keyword_matching":     "Significant keyword overlap with solicitation text",
	"naics_alignment":      "Exact NAICS alignment",
	"past_performance":     "Strong past performance",
	"certification_bonus":  "Certification matches set-aside advantage",
	"geographic_match":     "Geography compatible with place of performance",
	"capacity_fit":         "Contract value fits company capacity",
	"recency_factor":       "Recent past performance on record",
}

func reasonPhrase(name string) string {
	if p, ok := reasonPhrases[name]; ok {
		return p
	}
	return name
}

// recommendations derives heuristic guidance from the confidence tier
// and any missing-data signals surfaced by the scorers (spec.md §4.4
// step 6).
func recommendations(confidence types.ConfidenceLevel, componentResults map[string]types.ComponentResult) []string {
	var recs []string
	if sem, ok := componentResults["semantic_similarity"]; ok && sem.Status == "missing_embedding" {
		recs = append(recs, "Generate an embedding for this opportunity/company pair to enable semantic scoring")
	}
	if cert, ok := componentResults["certification_bonus"]; ok && cert.Score == 0 {
		recs = append(recs, "Add certifications to profile to unlock set-aside eligibility")
	}
	switch confidence {
	case types.ConfidenceLow:
		recs = append(recs, "Consider this a stretch opportunity; verify eligibility before investing in a proposal")
	case types.ConfidenceMedium:
		recs = append(recs, "Review gaps in NAICS, geography, or certification alignment")
	case types.ConfidenceHigh:
		recs = append(recs, "Strong candidate; prioritize for proposal development")
	}
	return recs
}

// actionItems returns the fixed short list tied to a confidence tier
// (spec.md §4.4 step 6).
func actionItems(confidence types.ConfidenceLevel) []string {
	switch confidence {
	case types.ConfidenceHigh:
		return []string{"Review full solicitation", "Assemble capture team", "Confirm teaming requirements"}
	case types.ConfidenceMedium:
		return []string{"Review full solicitation", "Assess gaps before bid/no-bid decision"}
	default:
		return []string{"Review full solicitation"}
	}
}
