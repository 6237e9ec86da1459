package model

import "fmt"

// ChunkingStrategy names the segmentation algorithm.
type ChunkingStrategy string

const (
	// ChunkingWindow scans fixed-size windows and prefers natural
	// boundaries (newline, then space) at the right edge.
	ChunkingWindow ChunkingStrategy = "window"
)

// ChunkingConfig controls how extracted text is split before embedding.
type ChunkingConfig struct {
	// ChunkSize is the window width in characters.
	ChunkSize int `json:"chunk_size"`
	// Overlap is how many characters neighboring chunks share.
	Overlap int `json:"overlap"`
	// Strategy selects the segmentation algorithm.
	Strategy ChunkingStrategy `json:"strategy,omitempty"`
}

// DefaultChunkingConfig returns the configuration used by ingestion when
// the caller does not provide one.
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		ChunkSize: 1000,
		Overlap:   200,
		Strategy:  ChunkingWindow,
	}
}

// Validate checks the window invariants. Overlap must stay strictly below
// ChunkSize so every window makes forward progress.
func (c ChunkingConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		return fmt.Errorf("overlap must be in [0, chunk size), got %d", c.Overlap)
	}
	return nil
}
