package ingest

import (
	"time"

	"github.com/slrhub/litrag/model"
)

// Config holds the ingestion settings.
type Config struct {
	// Chunking configures how extracted text is split.
	Chunking model.ChunkingConfig
	// BatchSize is the number of chunks embedded and stored per batch.
	BatchSize int
	// MaxAttempts is the number of embedding attempts per batch.
	MaxAttempts int
	// BaseDelay is the first backoff delay after a rate limit, doubling
	// per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the rate limit backoff.
	MaxDelay time.Duration
	// LinearDelay is the per-attempt delay after other transient errors.
	LinearDelay time.Duration
	// BatchPause is the pause between consecutive batches.
	BatchPause time.Duration
}

// ApplyDefaults fills unset fields with defaults
func (c *Config) ApplyDefaults() {
	if c.Chunking.ChunkSize == 0 && c.Chunking.Overlap == 0 {
		c.Chunking = model.DefaultChunkingConfig()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 8 * time.Second
	}
	if c.LinearDelay <= 0 {
		c.LinearDelay = 250 * time.Millisecond
	}
	if c.BatchPause <= 0 {
		c.BatchPause = 200 * time.Millisecond
	}
}
