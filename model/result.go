package model

import "github.com/google/uuid"

// SearchResult is one retrieved chunk mapped into the public result shape.
type SearchResult struct {
	Content  string          `json:"content"`
	Score    float64         `json:"score"`
	WorkRID  uuid.UUID       `json:"work_rid"`
	Method   RetrievalMethod `json:"retrieval_method"`
	Metadata *ResultMetadata `json:"metadata,omitempty"`
}

// ResultMetadata carries the citation back-reference for one result.
type ResultMetadata struct {
	Title       string `json:"title,omitempty"`
	DOI         string `json:"doi,omitempty"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	Page        int    `json:"page,omitempty"`
}
