package pipeline

import "context"

// TextChunk represents one chunk of extracted text with its byte offsets
// into the source text.
type TextChunk struct {
	Content string
	Index   int
	Start   int
	End     int
}

// ChunkFunc is a function that splits text into ordered chunks
type ChunkFunc func(text string) ([]TextChunk, error)

// Embedder generates embedding vectors for text.
// All texts embedded by one Embedder have the same dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
