package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/slrhub/litrag/core/fetcher"
	"github.com/slrhub/litrag/core/pipeline"
	"github.com/slrhub/litrag/helper"
	"github.com/slrhub/litrag/model"
)

// WorkSource provides works and their project state.
type WorkSource interface {
	SelectProjectWork(rid uuid.UUID) (*model.ProjectWork, error)
	SelectWork(rid uuid.UUID) (*model.Work, error)
	UpdateProjectWorkPDFKey(rid uuid.UUID, pdfKey string) (*model.ProjectWork, error)
}

// ChunkSink stores chunk batches.
type ChunkSink interface {
	InsertChunkBatch(ctx context.Context, chunks []*model.Chunk) error
	DeleteChunksByWork(projectRID uuid.UUID, workRID uuid.UUID) (int, error)
}

// PDFSource fetches the PDF of a work.
type PDFSource interface {
	Fetch(ctx context.Context, projectWork *model.ProjectWork, work *model.Work) (*fetcher.PDF, error)
}

// TextExtractor extracts text from PDF data.
type TextExtractor interface {
	Extract(data []byte, fallbackTitle string) (*pipeline.Extraction, error)
}

// Service runs the ingestion of works into the chunk store.
//
// Ingestion is idempotent per (project, work): every run deletes the work's
// existing chunks before inserting the new ones. Two concurrent ingestions
// of the same work can interleave their delete and insert steps, callers
// must not ingest one work concurrently.
type Service struct {
	works     WorkSource
	chunks    ChunkSink
	pdfs      PDFSource
	extractor TextExtractor
	chunker   pipeline.ChunkFunc
	embedder  pipeline.Embedder
	config    Config
	logger    *slog.Logger

	sleep func(time.Duration)
}

// NewService creates an ingestion service
func NewService(
	works WorkSource,
	chunks ChunkSink,
	pdfs PDFSource,
	extractor TextExtractor,
	embedder pipeline.Embedder,
	config Config,
	logger *slog.Logger,
) *Service {
	config.ApplyDefaults()

	return &Service{
		works:     works,
		chunks:    chunks,
		pdfs:      pdfs,
		extractor: extractor,
		chunker:   pipeline.WindowChunker(config.Chunking),
		embedder:  embedder,
		config:    config,
		logger:    logger,
		sleep:     time.Sleep,
	}
}

// Ingest runs the full pipeline for one project work: fetch the PDF,
// extract its text, chunk, embed and store. Works without a PDF or without
// usable text are skipped, not failed. The returned result always carries
// the outcome, the error is non-nil only for failed runs.
func (s *Service) Ingest(ctx context.Context, projectWorkRID uuid.UUID) (*Result, error) {
	start := time.Now()

	projectWork, err := s.works.SelectProjectWork(projectWorkRID)
	if err != nil {
		return s.failed(start, err)
	}

	work, err := s.works.SelectWork(projectWork.WorkRID)
	if err != nil {
		return s.failed(start, err)
	}

	pdf, err := s.pdfs.Fetch(ctx, projectWork, work)
	if err != nil {
		return s.failed(start, helper.NewError("fetch pdf", err))
	}
	if pdf == nil {
		s.logger.Info("Skipping work without PDF", slog.String("work", work.RID.String()))
		return s.skipped(start, ReasonNoPDF), nil
	}

	if projectWork.PDFKey == nil || *projectWork.PDFKey != pdf.Key {
		if _, err := s.works.UpdateProjectWorkPDFKey(projectWork.RID, pdf.Key); err != nil {
			return s.failed(start, helper.NewError("update pdf key", err))
		}
	}

	extraction, err := s.extractor.Extract(pdf.Data, work.Title)
	if err != nil {
		return s.failed(start, helper.NewError("extract text", err))
	}
	if strings.TrimSpace(extraction.Text) == "" {
		s.logger.Info("Skipping work without extractable text", slog.String("work", work.RID.String()))
		return s.skipped(start, ReasonNoText), nil
	}

	// Idempotent re-ingestion: replace whatever a previous run stored.
	deleted, err := s.chunks.DeleteChunksByWork(projectWork.ProjectRID, projectWork.WorkRID)
	if err != nil {
		return s.failed(start, helper.NewError("delete existing chunks", err))
	}
	if deleted > 0 {
		s.logger.Info("Replaced existing chunks",
			slog.String("work", work.RID.String()),
			slog.Int("deleted", deleted))
	}

	textChunks, err := s.chunker(extraction.Text)
	if err != nil {
		return s.failed(start, helper.NewError("chunk text", err))
	}
	if len(textChunks) == 0 {
		return s.skipped(start, ReasonNoChunks), nil
	}

	chunks := s.buildChunks(projectWork, work, extraction, textChunks)

	if err := s.embedAndStore(ctx, chunks); err != nil {
		return s.failed(start, err)
	}

	s.logger.Info("Ingested work",
		slog.String("work", work.RID.String()),
		slog.Int("chunks", len(chunks)),
		slog.Duration("elapsed", time.Since(start)))

	return &Result{
		Status:     StatusDone,
		ChunkCount: len(chunks),
		Elapsed:    time.Since(start),
	}, nil
}

func (s *Service) buildChunks(projectWork *model.ProjectWork, work *model.Work, extraction *pipeline.Extraction, textChunks []pipeline.TextChunk) []*model.Chunk {
	chunks := make([]*model.Chunk, 0, len(textChunks))
	for _, textChunk := range textChunks {
		startPos := textChunk.Start
		endPos := textChunk.End

		metadata := model.Metadata{
			model.MetaTitle: extraction.Title,
		}
		if work.DOI != "" {
			metadata[model.MetaDOI] = work.DOI
		}
		if page := pipeline.EstimatePage(textChunk.Start, len(extraction.Text), extraction.PageCount); page > 0 {
			metadata[model.MetaPage] = page
		}

		chunks = append(chunks, &model.Chunk{
			ProjectRID:  projectWork.ProjectRID,
			WorkRID:     projectWork.WorkRID,
			Content:     textChunk.Content,
			ChunkIndex:  textChunk.Index,
			TotalChunks: len(textChunks),
			StartPos:    &startPos,
			EndPos:      &endPos,
			Metadata:    metadata,
		})
	}
	return chunks
}

// embedAndStore embeds the chunks in sequential batches and stores the
// complete set in one transaction. A failed batch aborts the run before
// anything is inserted, leaving the work without chunks until the next
// successful ingestion.
func (s *Service) embedAndStore(ctx context.Context, chunks []*model.Chunk) error {
	for batchStart := 0; batchStart < len(chunks); batchStart += s.config.BatchSize {
		batchEnd := batchStart + s.config.BatchSize
		if batchEnd > len(chunks) {
			batchEnd = len(chunks)
		}
		batch := chunks[batchStart:batchEnd]

		if batchStart > 0 {
			s.sleep(s.config.BatchPause)
		}

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		embeddings, err := s.embedBatchWithRetry(ctx, texts)
		if err != nil {
			return helper.NewError("embed batch", err)
		}

		for i, chunk := range batch {
			chunk.Embedding = embeddings[i]
		}
	}

	if err := s.chunks.InsertChunkBatch(ctx, chunks); err != nil {
		return helper.NewError("store chunks", err)
	}

	return nil
}

// embedBatchWithRetry retries rate limited batches with jittered exponential
// backoff and other transient failures with linear backoff.
func (s *Service) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		embeddings, err := s.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			return embeddings, nil
		}
		lastErr = err

		if attempt == s.config.MaxAttempts {
			break
		}

		var delay time.Duration
		if pipeline.IsRateLimit(err) {
			delay = s.rateLimitDelay(attempt)
		} else {
			delay = time.Duration(attempt) * s.config.LinearDelay
		}

		s.logger.Warn("Embedding batch failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))
		s.sleep(delay)
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", s.config.MaxAttempts, lastErr)
}

// rateLimitDelay returns the capped exponential delay for the given attempt
// with up to 50% random jitter in either direction.
func (s *Service) rateLimitDelay(attempt int) time.Duration {
	delay := s.config.BaseDelay << (attempt - 1)
	if delay > s.config.MaxDelay {
		delay = s.config.MaxDelay
	}

	jitter := time.Duration(rand.Int63n(int64(delay))) - delay/2
	return delay + jitter
}

func (s *Service) skipped(start time.Time, reason string) *Result {
	return &Result{
		Status:  StatusSkipped,
		Reason:  reason,
		Elapsed: time.Since(start),
	}
}

func (s *Service) failed(start time.Time, err error) (*Result, error) {
	return &Result{
		Status:  StatusFailed,
		Reason:  err.Error(),
		Elapsed: time.Since(start),
	}, err
}
