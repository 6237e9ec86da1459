package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/slrhub/litrag/model"
)

// ErrStrategyNotImplemented is returned for strategies that are declared
// but not available yet.
var ErrStrategyNotImplemented = errors.New("strategy not implemented")

// Strategy defines a retrieval strategy
type Strategy interface {
	Retrieve(ctx context.Context, embedding []float32, query *model.SearchQuery) ([]*model.Chunk, error)
}

// VectorStrategy performs pure vector similarity search
type VectorStrategy struct {
	engine *Engine
}

// NewVectorStrategy creates a new vector-only strategy
func NewVectorStrategy(engine *Engine) *VectorStrategy {
	return &VectorStrategy{engine: engine}
}

// Retrieve performs vector-only retrieval
func (s *VectorStrategy) Retrieve(ctx context.Context, embedding []float32, query *model.SearchQuery) ([]*model.Chunk, error) {
	return s.engine.VectorRetrieve(ctx, embedding, query)
}

// HybridStrategy fuses vector and fulltext search with reciprocal rank
// fusion
type HybridStrategy struct {
	engine *Engine
}

// NewHybridStrategy creates a new hybrid strategy
func NewHybridStrategy(engine *Engine) *HybridStrategy {
	return &HybridStrategy{engine: engine}
}

// Retrieve performs hybrid retrieval
func (s *HybridStrategy) Retrieve(ctx context.Context, embedding []float32, query *model.SearchQuery) ([]*model.Chunk, error) {
	return s.engine.HybridRetrieve(ctx, embedding, query)
}

// RerankedStrategy is reserved for cross-encoder reranking on top of hybrid
// retrieval. Selecting it returns ErrStrategyNotImplemented.
type RerankedStrategy struct{}

// Retrieve always returns ErrStrategyNotImplemented
func (s *RerankedStrategy) Retrieve(ctx context.Context, embedding []float32, query *model.SearchQuery) ([]*model.Chunk, error) {
	return nil, ErrStrategyNotImplemented
}

// ForQuery returns the strategy implementation for the requested search
// strategy.
func ForQuery(engine *Engine, strategy model.SearchStrategy) (Strategy, error) {
	switch strategy {
	case model.StrategyVector:
		return NewVectorStrategy(engine), nil
	case model.StrategyHybrid:
		return NewHybridStrategy(engine), nil
	case model.StrategyReranked:
		return &RerankedStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown search strategy: %s", strategy)
	}
}
