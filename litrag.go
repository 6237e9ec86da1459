package litrag

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/slrhub/litrag/core/fetcher"
	"github.com/slrhub/litrag/core/ingest"
	"github.com/slrhub/litrag/core/objectstore"
	"github.com/slrhub/litrag/core/pipeline"
	"github.com/slrhub/litrag/core/retrieval"
	"github.com/slrhub/litrag/database"
	"github.com/slrhub/litrag/helper"
	"github.com/slrhub/litrag/model"
	loadSql "github.com/slrhub/litrag/sql"
)

// LitRAG provides a unified interface to the work registry, the chunk store
// and the ingestion and retrieval services
type LitRAG struct {
	DB        *helper.Database
	Works     *database.WorksDBHandler
	Chunks    *database.ChunksDBHandler
	Store     objectstore.Store
	Fetcher   *fetcher.Fetcher
	Ingestor  *ingest.Service
	Engine    *retrieval.Engine
	Retrieval *retrieval.Service
	Embedder  pipeline.Embedder
	// Logging
	log *slog.Logger
}

// NewLitRAG creates a new LitRAG instance with all handlers and services
// initialized. The embedder decides the dimension of the chunk table, the
// store holds cached PDFs.
func NewLitRAG(config *helper.DatabaseConfiguration, embedder pipeline.Embedder, store objectstore.Store) (*LitRAG, error) {
	if embedder == nil {
		return nil, helper.NewError("create litrag", fmt.Errorf("embedder must not be nil"))
	}
	if store == nil {
		return nil, helper.NewError("create litrag", fmt.Errorf("object store must not be nil"))
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("litrag", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in the correct order (works first, then chunks)
	// force=false to not reload if functions already exist
	works, err := database.NewWorksDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create works handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embedder.Dimension(), false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	// Fetcher, ingestion and retrieval services
	pdfFetcher := fetcher.NewFetcher(store, fetcher.Config{}, logger)
	ingestor := ingest.NewService(works, chunks, pdfFetcher, pipeline.NewPDFExtractor(), embedder, ingest.Config{}, logger)
	engine := retrieval.NewEngine(chunks)
	retrievalService := retrieval.NewService(engine, embedder, logger)

	return &LitRAG{
		DB:        db,
		Works:     works,
		Chunks:    chunks,
		Store:     store,
		Fetcher:   pdfFetcher,
		Ingestor:  ingestor,
		Engine:    engine,
		Retrieval: retrievalService,
		Embedder:  embedder,
		log:       logger,
	}, nil
}

// Close closes the database connection
func (l *LitRAG) Close() error {
	if l.DB != nil && l.DB.Instance != nil {
		return l.DB.Instance.Close()
	}
	return nil
}

// SetIngestConfig replaces the ingestion service with one using the given
// configuration. Chunking, batching and retry settings take effect for all
// following ingestions.
func (l *LitRAG) SetIngestConfig(config ingest.Config) {
	l.Ingestor = ingest.NewService(l.Works, l.Chunks, l.Fetcher, pipeline.NewPDFExtractor(), l.Embedder, config, l.log)
}

// AddWork inserts a work into the registry and assigns it to the project.
// The returned project work starts in status undecided.
func (l *LitRAG) AddWork(projectRID uuid.UUID, work *model.Work) (*model.ProjectWork, error) {
	err := l.Works.InsertWork(work)
	if err != nil {
		return nil, helper.NewError("insert work", err)
	}

	projectWork, err := l.Works.InsertProjectWork(projectRID, work.RID)
	if err != nil {
		return nil, helper.NewError("insert project work", err)
	}

	l.log.Info("Added work to project", slog.String("work_id", work.RID.String()), slog.String("project_id", projectRID.String()), slog.String("title", work.Title))

	return projectWork, nil
}

// SetWorkStatus updates the screening status of a project work
func (l *LitRAG) SetWorkStatus(projectWorkRID uuid.UUID, status model.WorkStatus) (*model.ProjectWork, error) {
	return l.Works.UpdateProjectWorkStatus(projectWorkRID, status)
}

// IngestWork runs the full ingestion pipeline for one project work: fetch
// the PDF, extract its text, chunk, embed and store. Ingestion is idempotent,
// re-running it replaces the work's chunks.
func (l *LitRAG) IngestWork(ctx context.Context, projectWorkRID uuid.UUID) (*ingest.Result, error) {
	return l.Ingestor.Ingest(ctx, projectWorkRID)
}

// IngestProject ingests all included works of a project sequentially.
// Failed works do not stop the run, their results carry the failure reason.
// The returned map is keyed by project work RID.
func (l *LitRAG) IngestProject(ctx context.Context, projectRID uuid.UUID) (map[uuid.UUID]*ingest.Result, error) {
	projectWorks, err := l.Works.SelectProjectWorksByProject(projectRID, model.StatusIncluded)
	if err != nil {
		return nil, helper.NewError("select project works", err)
	}

	results := make(map[uuid.UUID]*ingest.Result, len(projectWorks))
	for _, projectWork := range projectWorks {
		result, err := l.Ingestor.Ingest(ctx, projectWork.RID)
		if err != nil {
			l.log.Error("Ingestion failed", slog.String("project_work_id", projectWork.RID.String()), slog.String("error", err.Error()))
		}
		results[projectWork.RID] = result
	}

	return results, nil
}

// Search embeds the query text and retrieves the best matching chunks of
// the project using the query's strategy (hybrid by default)
func (l *LitRAG) Search(ctx context.Context, query *model.SearchQuery) ([]*model.SearchResult, error) {
	return l.Retrieval.Search(ctx, query)
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (l *LitRAG) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return l.Chunks.ChangeIndexType(ctx, indexType, params)
}
