// Package embedlookup wires the Match Orchestrator's
// orchestrator.EmbeddingLookup seam to the external vector store
// (pkg/vector, internal/vector) and embedding service
// (internal/embedding): it resolves whatever vectors are already on
// file for an opportunity/company pair by their vector_uri references,
// without ever generating an embedding itself -- per spec.md §1,
// embedding generation is an external collaborator.
package embedlookup

import (
	"context"

	"github.com/govbizai/matchcore/internal/embedding"
	"github.com/govbizai/matchcore/internal/scoring"
	"github.com/govbizai/matchcore/pkg/types"
	"github.com/govbizai/matchcore/pkg/vector"
	"go.uber.org/zap"
)

// Lookup resolves embeddings for one opportunity/company pair from a
// VectorStore.
type Lookup struct {
	store  vector.VectorStore
	logger *zap.Logger
}

// New builds a Lookup over store.
func New(store vector.VectorStore, logger *zap.Logger) *Lookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lookup{store: store, logger: logger}
}

// Resolve implements orchestrator.EmbeddingLookup: it fetches the
// opportunity's and company's full-document vectors by their
// vector_uri, plus the opportunity's title, description and chunk
// vectors stored alongside it (no section or chunk vectors are fetched
// for the company). A
// missing full-document vector on either side is not an error -- it
// leaves scoring.EmbeddingInputs empty for that side so the semantic
// scorer degrades to status="missing_embedding" (spec.md §4.3) rather
// than failing the whole match.
func (l *Lookup) Resolve(ctx context.Context, opp *types.Opportunity, company *types.CompanyProfile) (scoring.EmbeddingInputs, error) {
	var inputs scoring.EmbeddingInputs

	if opp.VectorURI != "" {
		if v, err := l.store.Get(ctx, opp.VectorURI); err == nil {
			inputs.OpportunityFull = v.Vector
		} else {
			l.logger.Debug("embedlookup: opportunity vector miss", zap.String("vector_uri", opp.VectorURI), zap.Error(err))
		}
		if v, err := l.store.Get(ctx, embedding.TitleKey(opp.VectorURI)); err == nil {
			inputs.TitleEmbedding = v.Vector
		}
		if v, err := l.store.Get(ctx, embedding.DescriptionKey(opp.VectorURI)); err == nil {
			inputs.DescriptionEmbedding = v.Vector
		}
		inputs.OpportunityChunks = l.chunks(ctx, opp.VectorURI)
	}

	if company.VectorURI != "" {
		if v, err := l.store.Get(ctx, company.VectorURI); err == nil {
			inputs.CompanyFull = v.Vector
		} else {
			l.logger.Debug("embedlookup: company vector miss", zap.String("vector_uri", company.VectorURI), zap.Error(err))
		}
	}

	return inputs, nil
}

// chunks fetches up to scoring.MaxChunks chunk vectors for uri,
// stopping at the first miss (chunk indices are written contiguously
// by the ingestion pipeline).
func (l *Lookup) chunks(ctx context.Context, uri string) [][]float32 {
	var out [][]float32
	for i := 0; i < scoring.MaxChunks; i++ {
		v, err := l.store.Get(ctx, embedding.ChunkKey(uri, i))
		if err != nil {
			break
		}
		out = append(out, v.Vector)
	}
	return out
}
