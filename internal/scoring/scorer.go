// Package scoring implements the 8 weighted scoring components of the
// Match Orchestrator (spec.md §4.3). Each scorer is a pure function of
// its inputs; they report partial failures through ComponentResult's
// Status field rather than raising, so the orchestrator can still
// aggregate a best-effort total.
package scoring

import (
	"time"

	"github.com/govbizai/matchcore/pkg/types"
)

// EmbeddingInputs bundles the vectors a semantic_similarity pass needs.
// All fields are optional; a nil slice means "not available" and the
// scorer degrades to status="missing_embedding".
type EmbeddingInputs struct {
	OpportunityFull       []float32
	OpportunityChunks     [][]float32 // up to K=16, pre-chunked by the caller
	TitleEmbedding        []float32
	DescriptionEmbedding  []float32
	CompanyFull           []float32
}

// MaxChunks is the K bound on best-chunk similarity (spec.md §4.3).
const MaxChunks = 16

// Context carries the shared, request-scoped inputs every scorer may
// need: embeddings, the reference clock, and the configurable
// vocabulary/adjacency tables (spec.md §9 open questions: these aren't
// hardcoded constants).
type Context struct {
	Embeddings   EmbeddingInputs
	Now          time.Time
	Stopwords    map[string]bool
	GeoAdjacency map[string][]string
	Capacity     types.CapacityThresholds
}

// DefaultContext returns a Context with the default stopword list,
// adjacency table, capacity thresholds, and current time, and no
// embeddings (callers fill those in once they're available).
func DefaultContext() *Context {
	return &Context{
		Now:          time.Now(),
		Stopwords:    DefaultStopwords(),
		GeoAdjacency: DefaultGeoAdjacency(),
		Capacity:     types.DefaultConfig().CapacityThresholds,
	}
}

// Scorer computes one weighted component of a match score.
type Scorer interface {
	Name() string
	Score(opp *types.Opportunity, company *types.CompanyProfile, ctx *Context) types.ComponentResult
}

// Registry returns the 8 scorers in the stable name-ascending order
// used for tie-breaking (spec.md §4.4, types.ScorerNames).
func Registry() []Scorer {
	return []Scorer{
		capacityFitScorer{},
		certificationBonusScorer{},
		geographicMatchScorer{},
		keywordMatchingScorer{},
		naicsAlignmentScorer{},
		pastPerformanceScorer{},
		recencyFactorScorer{},
		semanticSimilarityScorer{},
	}
}

// RunAll invokes every registered scorer concurrently and returns a map
// keyed by component name. Each scorer is pure and independent, so
// fan-out order has no effect on the result (spec.md §4.4 step 4,
// determinism guarantee in step "Determinism").
func RunAll(opp *types.Opportunity, company *types.CompanyProfile, ctx *Context) map[string]types.ComponentResult {
	scorers := Registry()
	results := make(map[string]types.ComponentResult, len(scorers))

	type out struct {
		name   string
		result types.ComponentResult
	}
	ch := make(chan out, len(scorers))

	for _, s := range scorers {
		s := s
		go func() {
			start := time.Now()
			res := s.Score(opp, company, ctx)
			res.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
			ch <- out{name: s.Name(), result: res}
		}()
	}

	for range scorers {
		o := <-ch
		results[o.name] = o.result
	}

	return results
}

// clamp01 caps a score to [0,1], per spec.md §4.3: "All scorers must
// cap their output to [0,1]".
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
