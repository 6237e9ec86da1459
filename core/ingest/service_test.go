package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/slrhub/litrag/core/fetcher"
	"github.com/slrhub/litrag/core/pipeline"
	"github.com/slrhub/litrag/helper"
	"github.com/slrhub/litrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorks struct {
	projectWork *model.ProjectWork
	work        *model.Work
	pdfKeys     []string
}

func (f *fakeWorks) SelectProjectWork(rid uuid.UUID) (*model.ProjectWork, error) {
	if f.projectWork == nil || f.projectWork.RID != rid {
		return nil, fmt.Errorf("project work %s not found", rid)
	}
	return f.projectWork, nil
}

func (f *fakeWorks) SelectWork(rid uuid.UUID) (*model.Work, error) {
	if f.work == nil || f.work.RID != rid {
		return nil, fmt.Errorf("work %s not found", rid)
	}
	return f.work, nil
}

func (f *fakeWorks) UpdateProjectWorkPDFKey(rid uuid.UUID, pdfKey string) (*model.ProjectWork, error) {
	f.pdfKeys = append(f.pdfKeys, pdfKey)
	key := pdfKey
	f.projectWork.PDFKey = &key
	return f.projectWork, nil
}

type fakeChunks struct {
	batches [][]*model.Chunk
	deletes int
}

func (f *fakeChunks) InsertChunkBatch(ctx context.Context, chunks []*model.Chunk) error {
	batch := make([]*model.Chunk, len(chunks))
	copy(batch, chunks)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeChunks) DeleteChunksByWork(projectRID uuid.UUID, workRID uuid.UUID) (int, error) {
	f.deletes++
	deleted := 0
	for _, batch := range f.batches {
		deleted += len(batch)
	}
	f.batches = nil
	return deleted, nil
}

func (f *fakeChunks) stored() []*model.Chunk {
	var all []*model.Chunk
	for _, batch := range f.batches {
		all = append(all, batch...)
	}
	return all
}

type fakePDFs struct {
	pdf *fetcher.PDF
	err error
}

func (f *fakePDFs) Fetch(ctx context.Context, projectWork *model.ProjectWork, work *model.Work) (*fetcher.PDF, error) {
	return f.pdf, f.err
}

type fakeExtractor struct {
	extraction *pipeline.Extraction
}

func (f *fakeExtractor) Extract(data []byte, fallbackTitle string) (*pipeline.Extraction, error) {
	if f.extraction != nil {
		return f.extraction, nil
	}
	return &pipeline.Extraction{Title: fallbackTitle}, nil
}

type fakeEmbedder struct {
	errs  []error
	calls int
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}

	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{1, 0, 0, 0}
	}
	return embeddings, nil
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (f *fakeEmbedder) Dimension() int {
	return 4
}

type serviceFixture struct {
	service  *Service
	works    *fakeWorks
	chunks   *fakeChunks
	pdfs     *fakePDFs
	embedder *fakeEmbedder
	delays   *[]time.Duration
}

func newFixture(t *testing.T, config Config, pdfs *fakePDFs, extraction *pipeline.Extraction, embedder *fakeEmbedder) *serviceFixture {
	t.Helper()

	work := &model.Work{
		RID:   uuid.New(),
		Title: "A Study of Retrieval",
		DOI:   "10.1000/retrieval.2024",
		URL:   "https://example.org/paper.pdf",
	}
	projectWork := &model.ProjectWork{
		RID:        uuid.New(),
		ProjectRID: uuid.New(),
		WorkRID:    work.RID,
	}

	works := &fakeWorks{projectWork: projectWork, work: work}
	chunks := &fakeChunks{}
	logger := slog.New(helper.NewPrettyHandler(io.Discard, helper.PrettyHandlerOptions{}))

	service := NewService(works, chunks, pdfs, &fakeExtractor{extraction: extraction}, embedder, config, logger)

	var delays []time.Duration
	service.sleep = func(d time.Duration) {
		delays = append(delays, d)
	}

	return &serviceFixture{
		service:  service,
		works:    works,
		chunks:   chunks,
		pdfs:     pdfs,
		embedder: embedder,
		delays:   &delays,
	}
}

func pdfFor(projectWork *model.ProjectWork) *fetcher.PDF {
	return &fetcher.PDF{
		Data: []byte("%PDF-1.4 data"),
		Key:  fetcher.CacheKey(projectWork.ProjectRID, projectWork.WorkRID),
	}
}

func TestServiceIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("Full pipeline ingests work", func(t *testing.T) {
		extraction := &pipeline.Extraction{
			Text:      strings.Repeat("relevant sentence about retrieval methods ", 40),
			Title:     "A Study of Retrieval",
			PageCount: 4,
		}
		config := Config{
			Chunking:  model.ChunkingConfig{ChunkSize: 200, Overlap: 40, Strategy: model.ChunkingWindow},
			BatchSize: 3,
		}

		fixture := newFixture(t, config, &fakePDFs{}, extraction, &fakeEmbedder{})
		fixture.pdfs.pdf = pdfFor(fixture.works.projectWork)

		result, err := fixture.service.Ingest(ctx, fixture.works.projectWork.RID)
		assert.NoError(t, err, "Expected Ingest to not return an error")
		require.NotNil(t, result, "Expected a result")
		assert.Equal(t, StatusDone, result.Status, "Expected ingestion to be done")

		stored := fixture.chunks.stored()
		require.NotEmpty(t, stored, "Expected chunks to be stored")
		assert.Equal(t, result.ChunkCount, len(stored), "Expected chunk count to match stored chunks")

		for i, chunk := range stored {
			assert.Equal(t, i, chunk.ChunkIndex, "Expected sequential chunk indices")
			assert.Equal(t, len(stored), chunk.TotalChunks, "Expected total chunks on every chunk")
			assert.Equal(t, fixture.works.projectWork.ProjectRID, chunk.ProjectRID, "Expected project RID on chunk")
			assert.NotEmpty(t, chunk.Embedding, "Expected chunk to carry an embedding")
			assert.Equal(t, "A Study of Retrieval", chunk.Metadata[model.MetaTitle], "Expected title in metadata")
			assert.Equal(t, "10.1000/retrieval.2024", chunk.Metadata[model.MetaDOI], "Expected DOI in metadata")
			assert.NotNil(t, chunk.Metadata[model.MetaPage], "Expected page estimate in metadata")
		}

		// Embedding runs in batches of the configured size, storage in a
		// single transaction.
		expectedBatches := (len(stored) + config.BatchSize - 1) / config.BatchSize
		assert.Equal(t, expectedBatches, fixture.embedder.calls, "Expected one embedding call per batch")
		assert.Len(t, fixture.chunks.batches, 1, "Expected all chunks stored in one insert")

		// The cache key of the fetched PDF is persisted.
		require.Len(t, fixture.works.pdfKeys, 1, "Expected PDF key to be persisted once")
		assert.Equal(t, fixture.pdfs.pdf.Key, fixture.works.pdfKeys[0], "Expected the fetched PDF key")

		// Consecutive batches are paced.
		if expectedBatches > 1 {
			assert.Len(t, *fixture.delays, expectedBatches-1, "Expected a pause between batches")
		}
	})

	t.Run("Work without PDF is skipped", func(t *testing.T) {
		fixture := newFixture(t, Config{}, &fakePDFs{pdf: nil}, nil, &fakeEmbedder{})

		result, err := fixture.service.Ingest(ctx, fixture.works.projectWork.RID)
		assert.NoError(t, err, "Expected skip to not return an error")
		require.NotNil(t, result, "Expected a result")
		assert.Equal(t, StatusSkipped, result.Status, "Expected skipped status")
		assert.Equal(t, ReasonNoPDF, result.Reason, "Expected no PDF reason")
		assert.Empty(t, fixture.chunks.stored(), "Expected nothing to be stored")
		assert.Zero(t, fixture.embedder.calls, "Expected no embedding calls")
	})

	t.Run("Work without extractable text is skipped", func(t *testing.T) {
		extraction := &pipeline.Extraction{Text: "   \n  ", Title: "Scanned Paper"}
		fixture := newFixture(t, Config{}, &fakePDFs{}, extraction, &fakeEmbedder{})
		fixture.pdfs.pdf = pdfFor(fixture.works.projectWork)

		result, err := fixture.service.Ingest(ctx, fixture.works.projectWork.RID)
		assert.NoError(t, err, "Expected skip to not return an error")
		assert.Equal(t, StatusSkipped, result.Status, "Expected skipped status")
		assert.Equal(t, ReasonNoText, result.Reason, "Expected no text reason")
		assert.Empty(t, fixture.chunks.stored(), "Expected nothing to be stored")
	})

	t.Run("Fetch failure fails the run", func(t *testing.T) {
		fixture := newFixture(t, Config{}, &fakePDFs{err: fmt.Errorf("connection reset")}, nil, &fakeEmbedder{})

		result, err := fixture.service.Ingest(ctx, fixture.works.projectWork.RID)
		assert.Error(t, err, "Expected fetch failure to return an error")
		require.NotNil(t, result, "Expected a result")
		assert.Equal(t, StatusFailed, result.Status, "Expected failed status")
		assert.Contains(t, result.Reason, "connection reset", "Expected cause in reason")
	})

	t.Run("Unknown project work fails the run", func(t *testing.T) {
		fixture := newFixture(t, Config{}, &fakePDFs{}, nil, &fakeEmbedder{})

		result, err := fixture.service.Ingest(ctx, uuid.New())
		assert.Error(t, err, "Expected unknown project work to return an error")
		assert.Equal(t, StatusFailed, result.Status, "Expected failed status")
	})

	t.Run("Re-ingestion replaces existing chunks", func(t *testing.T) {
		extraction := &pipeline.Extraction{
			Text:  strings.Repeat("stable text for idempotent ingestion ", 30),
			Title: "Stable Paper",
		}
		fixture := newFixture(t, Config{}, &fakePDFs{}, extraction, &fakeEmbedder{})
		fixture.pdfs.pdf = pdfFor(fixture.works.projectWork)

		first, err := fixture.service.Ingest(ctx, fixture.works.projectWork.RID)
		require.NoError(t, err, "Expected first ingestion to succeed")

		second, err := fixture.service.Ingest(ctx, fixture.works.projectWork.RID)
		assert.NoError(t, err, "Expected second ingestion to succeed")
		assert.Equal(t, first.ChunkCount, second.ChunkCount, "Expected identical chunk count on re-ingestion")
		assert.Equal(t, first.ChunkCount, len(fixture.chunks.stored()), "Expected old chunks to be replaced, not appended")
		assert.Equal(t, 2, fixture.chunks.deletes, "Expected delete before every insert")
	})
}

func TestServiceRetries(t *testing.T) {
	ctx := context.Background()

	extraction := &pipeline.Extraction{
		Text:  "short text producing a single chunk",
		Title: "Retry Paper",
	}

	t.Run("Rate limits retried with jittered exponential backoff", func(t *testing.T) {
		embedder := &fakeEmbedder{errs: []error{&pipeline.RateLimitError{}, &pipeline.RateLimitError{}, nil}}
		config := Config{BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
		fixture := newFixture(t, config, &fakePDFs{}, extraction, embedder)
		fixture.pdfs.pdf = pdfFor(fixture.works.projectWork)

		result, err := fixture.service.Ingest(ctx, fixture.works.projectWork.RID)
		assert.NoError(t, err, "Expected ingestion to succeed after retries")
		assert.Equal(t, StatusDone, result.Status, "Expected done status")
		assert.Equal(t, 3, embedder.calls, "Expected three embedding attempts")

		delays := *fixture.delays
		require.Len(t, delays, 2, "Expected two backoff delays")
		// Jitter moves each delay by up to half in either direction.
		assert.GreaterOrEqual(t, delays[0], 250*time.Millisecond, "Expected first delay near the base delay")
		assert.Less(t, delays[0], 750*time.Millisecond, "Expected first delay near the base delay")
		assert.GreaterOrEqual(t, delays[1], 500*time.Millisecond, "Expected second delay to grow")
		assert.Less(t, delays[1], 1500*time.Millisecond, "Expected second delay to stay within bounds")
	})

	t.Run("Rate limit backoff is capped", func(t *testing.T) {
		embedder := &fakeEmbedder{errs: []error{&pipeline.RateLimitError{}, nil}}
		config := Config{BaseDelay: 500 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
		fixture := newFixture(t, config, &fakePDFs{}, extraction, embedder)
		fixture.pdfs.pdf = pdfFor(fixture.works.projectWork)

		_, err := fixture.service.Ingest(ctx, fixture.works.projectWork.RID)
		assert.NoError(t, err, "Expected ingestion to succeed after retry")

		delays := *fixture.delays
		require.Len(t, delays, 1, "Expected one backoff delay")
		assert.Less(t, delays[0], 450*time.Millisecond, "Expected delay capped by max delay plus jitter")
	})

	t.Run("Other transient errors retried with linear backoff", func(t *testing.T) {
		embedder := &fakeEmbedder{errs: []error{fmt.Errorf("temporary failure"), fmt.Errorf("temporary failure"), nil}}
		config := Config{LinearDelay: 250 * time.Millisecond}
		fixture := newFixture(t, config, &fakePDFs{}, extraction, embedder)
		fixture.pdfs.pdf = pdfFor(fixture.works.projectWork)

		result, err := fixture.service.Ingest(ctx, fixture.works.projectWork.RID)
		assert.NoError(t, err, "Expected ingestion to succeed after retries")
		assert.Equal(t, StatusDone, result.Status, "Expected done status")

		delays := *fixture.delays
		require.Len(t, delays, 2, "Expected two backoff delays")
		assert.Equal(t, 250*time.Millisecond, delays[0], "Expected first linear delay")
		assert.Equal(t, 500*time.Millisecond, delays[1], "Expected second linear delay")
	})

	t.Run("Exhausted attempts fail the run", func(t *testing.T) {
		embedder := &fakeEmbedder{errs: []error{
			&pipeline.RateLimitError{},
			&pipeline.RateLimitError{},
			&pipeline.RateLimitError{},
		}}
		fixture := newFixture(t, Config{MaxAttempts: 3}, &fakePDFs{}, extraction, embedder)
		fixture.pdfs.pdf = pdfFor(fixture.works.projectWork)

		result, err := fixture.service.Ingest(ctx, fixture.works.projectWork.RID)
		assert.Error(t, err, "Expected exhausted retries to return an error")
		assert.Equal(t, StatusFailed, result.Status, "Expected failed status")
		assert.Contains(t, result.Reason, "after 3 attempts", "Expected attempt count in reason")
		assert.Equal(t, 3, embedder.calls, "Expected exactly max attempts embedding calls")
		assert.Empty(t, fixture.chunks.stored(), "Expected failed batch to store nothing")
	})

	t.Run("Failed later batch stores nothing", func(t *testing.T) {
		longExtraction := &pipeline.Extraction{
			Text:  strings.Repeat("text that fills several batches of chunks ", 40),
			Title: "Long Paper",
		}
		// First batch succeeds, every attempt of the second batch fails.
		embedder := &fakeEmbedder{errs: []error{
			nil,
			fmt.Errorf("hard failure"),
			fmt.Errorf("hard failure"),
			fmt.Errorf("hard failure"),
		}}
		config := Config{
			Chunking:  model.ChunkingConfig{ChunkSize: 120, Overlap: 20, Strategy: model.ChunkingWindow},
			BatchSize: 3,
		}
		fixture := newFixture(t, config, &fakePDFs{}, longExtraction, embedder)
		fixture.pdfs.pdf = pdfFor(fixture.works.projectWork)

		result, err := fixture.service.Ingest(ctx, fixture.works.projectWork.RID)
		assert.Error(t, err, "Expected failed batch to return an error")
		assert.Equal(t, StatusFailed, result.Status, "Expected failed status")
		assert.Empty(t, fixture.chunks.stored(), "Expected no partial chunks after a failed run")
		assert.Equal(t, 1, fixture.chunks.deletes, "Expected old chunks cleared before embedding")
		assert.Equal(t, 4, embedder.calls, "Expected the first batch plus every attempt of the second")
	})
}
