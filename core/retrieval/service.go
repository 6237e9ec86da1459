package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/slrhub/litrag/core/pipeline"
	"github.com/slrhub/litrag/helper"
	"github.com/slrhub/litrag/model"
)

// Service answers search queries against the chunk store.
type Service struct {
	engine   *Engine
	embedder pipeline.Embedder
	logger   *slog.Logger
}

// NewService creates a retrieval service
func NewService(engine *Engine, embedder pipeline.Embedder, logger *slog.Logger) *Service {
	return &Service{
		engine:   engine,
		embedder: embedder,
		logger:   logger,
	}
}

// Search embeds the query text, retrieves chunks with the requested
// strategy and maps them to search results. Unset query fields get
// defaults, results below the similarity threshold are dropped.
func (s *Service) Search(ctx context.Context, query *model.SearchQuery) ([]*model.SearchResult, error) {
	if query == nil {
		return nil, helper.NewError("validate query", fmt.Errorf("query is nil"))
	}
	if strings.TrimSpace(query.Text) == "" {
		return nil, helper.NewError("validate query", fmt.Errorf("query text is empty"))
	}
	if query.ProjectRID == uuid.Nil {
		return nil, helper.NewError("validate query", fmt.Errorf("project RID is not set"))
	}

	normalized := *query
	if normalized.Strategy == "" {
		normalized.Strategy = model.StrategyHybrid
	}
	if normalized.TopK <= 0 {
		normalized.TopK = model.DefaultTopK
	}
	if normalized.RRFK <= 0 {
		normalized.RRFK = model.DefaultRRFK
	}
	if normalized.MinSimilarity == nil {
		threshold := model.DefaultMinSimilarity
		normalized.MinSimilarity = &threshold
	}

	strategy, err := ForQuery(s.engine, normalized.Strategy)
	if err != nil {
		return nil, helper.NewError("select strategy", err)
	}

	embedding, err := s.embedder.Embed(ctx, normalized.Text)
	if err != nil {
		return nil, helper.NewError("embed query", err)
	}

	chunks, err := strategy.Retrieve(ctx, embedding, &normalized)
	if err != nil {
		return nil, helper.NewError("retrieve", err)
	}

	results := make([]*model.SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Similarity < *normalized.MinSimilarity {
			continue
		}
		results = append(results, s.toResult(chunk, &normalized))
	}

	s.logger.Info("Search finished",
		slog.String("strategy", string(normalized.Strategy)),
		slog.Int("results", len(results)))

	return results, nil
}

func (s *Service) toResult(chunk *model.Chunk, query *model.SearchQuery) *model.SearchResult {
	score := chunk.Score
	if chunk.RetrievalMethod == model.RetrievalMethodVector {
		score = chunk.Similarity
	}

	result := &model.SearchResult{
		Content: chunk.Content,
		Score:   score,
		WorkRID: chunk.WorkRID,
		Method:  chunk.RetrievalMethod,
	}

	if query.WithMetadata {
		result.Metadata = &model.ResultMetadata{
			Title:       chunk.Metadata.GetString(model.MetaTitle),
			DOI:         chunk.Metadata.GetString(model.MetaDOI),
			ChunkIndex:  chunk.ChunkIndex,
			TotalChunks: chunk.TotalChunks,
			Page:        chunk.Metadata.GetInt(model.MetaPage),
		}
	}

	return result
}
