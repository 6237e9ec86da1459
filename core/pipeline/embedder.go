package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RateLimitError is returned when the embedding API rejects a request with
// status 429. RetryAfter is zero if the API did not send a Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("embedding API rate limited, retry after %v", e.RetryAfter)
	}
	return "embedding API rate limited"
}

// IsRateLimit reports whether err is a rate limit error.
func IsRateLimit(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// NormalizeText collapses all line breaks into single spaces and trims
// surrounding whitespace. Embedding quality degrades on text with hard
// line breaks from PDF extraction.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.TrimSpace(text)
}

// APIEmbedder generates embeddings via an OpenAI compatible embeddings API.
type APIEmbedder struct {
	baseURL    string
	apiKey     string
	modelName  string
	dimension  int
	httpClient *http.Client
}

// NewAPIEmbedder creates an embedder talking to an OpenAI compatible
// embeddings endpoint at baseURL (without the /v1/embeddings suffix).
func NewAPIEmbedder(baseURL string, apiKey string, modelName string, dimension int) (*APIEmbedder, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("base URL must not be empty")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive")
	}

	return &APIEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		modelName:  modelName,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Dimension returns the embedding dimension
func (e *APIEmbedder) Dimension() int {
	return e.dimension
}

// Embed generates an embedding for a single text
func (e *APIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch generates embeddings for all texts in one API call.
// Texts are normalized before embedding, a text that is empty after
// normalization is an error. The returned embeddings are in input order.
func (e *APIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	normalized := make([]string, len(texts))
	for i, text := range texts {
		normalized[i] = NormalizeText(text)
		if normalized[i] == "" {
			return nil, fmt.Errorf("text %d is empty after normalization", i)
		}
	}

	body, err := json.Marshal(embeddingRequest{
		Model:      e.modelName,
		Input:      normalized,
		Dimensions: e.dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("embedding API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d embeddings for %d texts", len(parsed.Data), len(texts))
	}

	// The API is not required to preserve input order.
	sort.Slice(parsed.Data, func(i, j int) bool {
		return parsed.Data[i].Index < parsed.Data[j].Index
	})

	embeddings := make([][]float32, len(parsed.Data))
	for i, data := range parsed.Data {
		if len(data.Embedding) != e.dimension {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(data.Embedding), e.dimension)
		}
		embeddings[i] = data.Embedding
	}

	return embeddings, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
