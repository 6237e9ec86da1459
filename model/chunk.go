package model

import (
	"time"

	"github.com/google/uuid"
)

type RetrievalMethod string

const (
	RetrievalMethodVector RetrievalMethod = "vector"
	RetrievalMethodHybrid RetrievalMethod = "hybrid"
)

// Chunk represents one embedded slice of a work's extracted text.
// Chunk ordinals are contiguous [0, TotalChunks) per (project, work) as of
// the last successful ingestion; all chunks of a work are replaced together.
type Chunk struct {
	ID          int       `json:"id"`
	ProjectRID  uuid.UUID `json:"project_rid"`
	WorkRID     uuid.UUID `json:"work_rid"`
	Content     string    `json:"content"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	Embedding   []float32 `json:"embedding,omitempty"`
	StartPos    *int      `json:"start_pos,omitempty"`
	EndPos      *int      `json:"end_pos,omitempty"`
	Metadata    Metadata  `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	// Results
	Similarity      float64         `json:"similarity,omitempty"`
	Score           float64         `json:"score,omitempty"`
	RetrievalMethod RetrievalMethod `json:"retrieval_method,omitempty"`
}
