package scoring

import (
	vectoradapter "github.com/govbizai/matchcore/internal/vector"
	"github.com/govbizai/matchcore/pkg/types"
)

type semanticSimilarityScorer struct{}

func (semanticSimilarityScorer) Name() string { return "semantic_similarity" }

// cosineSimilarity defers to internal/vector's adapter so the nearest-
// neighbor index and this scorer always agree on what "similar" means.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return float64(vectoradapter.CosineSimilarity(a, b))
}

// Score computes cosine similarity over normalized embeddings in three
// flavors and blends them (spec.md §4.3 semantic_similarity):
// full-document, best-chunk, and section (title/description).
func (semanticSimilarityScorer) Score(opp *types.Opportunity, company *types.CompanyProfile, ctx *Context) types.ComponentResult {
	emb := ctx.Embeddings

	if len(emb.OpportunityFull) == 0 || len(emb.CompanyFull) == 0 {
		return types.ComponentResult{
			Score:  0.0,
			Status: "missing_embedding",
		}
	}

	full := cosineSimilarity(emb.OpportunityFull, emb.CompanyFull)

	bestChunk := full
	chunks := emb.OpportunityChunks
	if len(chunks) > MaxChunks {
		chunks = chunks[:MaxChunks]
	}
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		sim := cosineSimilarity(chunk, emb.CompanyFull)
		if sim > bestChunk {
			bestChunk = sim
		}
	}

	var sectionSims []float64
	if len(emb.TitleEmbedding) > 0 {
		sectionSims = append(sectionSims, cosineSimilarity(emb.TitleEmbedding, emb.CompanyFull))
	}
	if len(emb.DescriptionEmbedding) > 0 {
		sectionSims = append(sectionSims, cosineSimilarity(emb.DescriptionEmbedding, emb.CompanyFull))
	}

	var meanSection float64
	if len(sectionSims) > 0 {
		var sum float64
		for _, s := range sectionSims {
			sum += s
		}
		meanSection = sum / float64(len(sectionSims))
	} else {
		meanSection = full
	}

	score := 0.4*full + 0.4*bestChunk + 0.2*meanSection

	return types.ComponentResult{
		Score:  clamp01(score),
		Status: "ok",
		Detail: map[string]interface{}{
			"full_similarity":       full,
			"best_chunk_similarity": bestChunk,
			"section_similarity":    meanSection,
		},
	}
}
