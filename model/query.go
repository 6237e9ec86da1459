package model

import "github.com/google/uuid"

// SearchStrategy selects how chunks are ranked for a query.
type SearchStrategy string

const (
	StrategyVector   SearchStrategy = "vector"
	StrategyHybrid   SearchStrategy = "hybrid"
	StrategyReranked SearchStrategy = "reranked"
)

const (
	DefaultTopK          = 5
	DefaultMinSimilarity = 0.25
	DefaultRRFK          = 60
)

// SearchQuery is one retrieval request scoped to a project.
//
// Results are restricted to works with status "included" unless IncludeAll
// is set; retrieval grounds answers in studies the review accepted.
// MinSimilarity is a pointer so callers can distinguish "use the default"
// (nil) from an explicit zero threshold.
type SearchQuery struct {
	Text       string         `json:"text"`
	ProjectRID uuid.UUID      `json:"project_rid"`
	Strategy   SearchStrategy `json:"strategy,omitempty"`

	TopK          int         `json:"top_k,omitempty"`
	MinSimilarity *float64    `json:"min_similarity,omitempty"`
	WorkRIDs      []uuid.UUID `json:"work_rids,omitempty"`
	IncludeAll    bool        `json:"include_all"`
	WithMetadata  bool        `json:"with_metadata"`

	// RRFK dampens the rank influence in hybrid fusion (0 = default 60).
	RRFK int `json:"rrf_k,omitempty"`
}
