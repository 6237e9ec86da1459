package retrieval

import (
	"context"

	"github.com/google/uuid"
	"github.com/slrhub/litrag/model"
)

// ChunkSearcher is the chunk store surface the engine retrieves from.
type ChunkSearcher interface {
	SelectChunksBySimilarity(embedding []float32, projectRID uuid.UUID, limit int, threshold float64, includeAll bool, workRIDs []uuid.UUID) ([]*model.Chunk, error)
	SelectChunksHybrid(embedding []float32, query string, projectRID uuid.UUID, limit int, rrfK int, includeAll bool, workRIDs []uuid.UUID) ([]*model.Chunk, error)
}

// Engine provides vector and hybrid retrieval over the chunk store
type Engine struct {
	chunks ChunkSearcher
}

// NewEngine creates a new retrieval engine
func NewEngine(chunks ChunkSearcher) *Engine {
	return &Engine{chunks: chunks}
}

// VectorRetrieve performs pure cosine similarity search. The similarity
// threshold is applied in the store before the limit.
func (e *Engine) VectorRetrieve(ctx context.Context, embedding []float32, query *model.SearchQuery) ([]*model.Chunk, error) {
	threshold := 0.0
	if query.MinSimilarity != nil {
		threshold = *query.MinSimilarity
	}

	return e.chunks.SelectChunksBySimilarity(embedding, query.ProjectRID, query.TopK, threshold, query.IncludeAll, query.WorkRIDs)
}

// HybridRetrieve performs hybrid search fusing cosine similarity and
// fulltext ranking. The similarity threshold is applied by the caller after
// fusion, ranks are fused over the unfiltered candidate set.
func (e *Engine) HybridRetrieve(ctx context.Context, embedding []float32, query *model.SearchQuery) ([]*model.Chunk, error) {
	return e.chunks.SelectChunksHybrid(embedding, query.Text, query.ProjectRID, query.TopK, query.RRFK, query.IncludeAll, query.WorkRIDs)
}
