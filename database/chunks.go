package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/slrhub/litrag/helper"
	"github.com/slrhub/litrag/model"
	loadSql "github.com/slrhub/litrag/sql"
)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunkBatch(ctx context.Context, chunks []*model.Chunk) error
	DeleteChunksByWork(projectRID uuid.UUID, workRID uuid.UUID) (int, error)
	SelectChunksByWork(projectRID uuid.UUID, workRID uuid.UUID) ([]*model.Chunk, error)
	SelectChunksBySimilarity(embedding []float32, projectRID uuid.UUID, limit int, threshold float64, includeAll bool, workRIDs []uuid.UUID) ([]*model.Chunk, error)
	SelectChunksHybrid(embedding []float32, query string, projectRID uuid.UUID, limit int, rrfK int, includeAll bool, workRIDs []uuid.UUID) ([]*model.Chunk, error)
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db *helper.Database
}

// NewChunksDBHandler creates a new chunks database handler.
// It initializes the database connection and loads chunk-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	chunksDbHandler := &ChunksDBHandler{
		db: db,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'chunks' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary extensions and indexes.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing chunks table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// InsertChunkBatch inserts all given chunks in a single transaction.
// Either every chunk of the batch is stored or none is. The inserted rows
// are written back into the given chunks (id, metadata, created_at).
func (h *ChunksDBHandler) InsertChunkBatch(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	for _, chunk := range chunks {
		row := tx.QueryRowContext(
			ctx,
			`SELECT * FROM insert_chunk($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			chunk.ProjectRID,
			chunk.WorkRID,
			chunk.Content,
			chunk.ChunkIndex,
			chunk.TotalChunks,
			pq.Array(chunk.Embedding),
			chunk.StartPos,
			chunk.EndPos,
			chunk.Metadata,
		)

		err := row.Scan(
			&chunk.ID,
			&chunk.ProjectRID,
			&chunk.WorkRID,
			&chunk.Content,
			&chunk.ChunkIndex,
			&chunk.TotalChunks,
			pq.Array(&chunk.Embedding),
			&chunk.StartPos,
			&chunk.EndPos,
			&chunk.Metadata,
			&chunk.CreatedAt,
		)
		if err != nil {
			return helper.NewError("scan", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit transaction", err)
	}

	return nil
}

// DeleteChunksByWork deletes all chunks of a work within a project and
// returns the number of deleted rows. Deleting a work without chunks
// returns 0 without error.
func (h *ChunksDBHandler) DeleteChunksByWork(projectRID uuid.UUID, workRID uuid.UUID) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRow(
		`SELECT delete_chunks_by_work($1, $2)`,
		projectRID,
		workRID,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

// SelectChunksByWork retrieves all chunks of a work in chunk order
func (h *ChunksDBHandler) SelectChunksByWork(projectRID uuid.UUID, workRID uuid.UUID) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_work($1, $2)`,
		projectRID,
		workRID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		err := rows.Scan(
			&chunk.ID,
			&chunk.ProjectRID,
			&chunk.WorkRID,
			&chunk.Content,
			&chunk.ChunkIndex,
			&chunk.TotalChunks,
			pq.Array(&chunk.Embedding),
			&chunk.StartPos,
			&chunk.EndPos,
			&chunk.Metadata,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// SelectChunksBySimilarity performs cosine similarity search over the chunks
// of a project. Only chunks of works with screening status included are
// considered unless includeAll is true. If workRIDs is nil or empty the
// search covers all works of the project.
func (h *ChunksDBHandler) SelectChunksBySimilarity(embedding []float32, projectRID uuid.UUID, limit int, threshold float64, includeAll bool, workRIDs []uuid.UUID) ([]*model.Chunk, error) {
	embeddingVector := pgvector.NewVector(embedding)

	var workRIDsParam interface{}
	if len(workRIDs) > 0 {
		workRIDsParam = pq.Array(workRIDs)
	} else {
		workRIDsParam = nil
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_similarity($1, $2, $3, $4, $5, $6)`,
		embeddingVector,
		projectRID,
		limit,
		threshold,
		includeAll,
		workRIDsParam,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		err := rows.Scan(
			&chunk.ID,
			&chunk.ProjectRID,
			&chunk.WorkRID,
			&chunk.Content,
			&chunk.ChunkIndex,
			&chunk.TotalChunks,
			&chunk.StartPos,
			&chunk.EndPos,
			&chunk.Metadata,
			&chunk.CreatedAt,
			&chunk.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunk.RetrievalMethod = model.RetrievalMethodVector
		results = append(results, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// SelectChunksHybrid performs hybrid search fusing cosine similarity and
// fulltext ranking with reciprocal rank fusion. Fusion covers the full
// candidate set before the limit is applied, ties are broken by chunk id.
func (h *ChunksDBHandler) SelectChunksHybrid(embedding []float32, query string, projectRID uuid.UUID, limit int, rrfK int, includeAll bool, workRIDs []uuid.UUID) ([]*model.Chunk, error) {
	embeddingVector := pgvector.NewVector(embedding)

	var workRIDsParam interface{}
	if len(workRIDs) > 0 {
		workRIDsParam = pq.Array(workRIDs)
	} else {
		workRIDsParam = nil
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_hybrid($1, $2, $3, $4, $5, $6, $7)`,
		embeddingVector,
		query,
		projectRID,
		limit,
		rrfK,
		includeAll,
		workRIDsParam,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		err := rows.Scan(
			&chunk.ID,
			&chunk.ProjectRID,
			&chunk.WorkRID,
			&chunk.Content,
			&chunk.ChunkIndex,
			&chunk.TotalChunks,
			&chunk.StartPos,
			&chunk.EndPos,
			&chunk.Metadata,
			&chunk.CreatedAt,
			&chunk.Similarity,
			&chunk.Score,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunk.RetrievalMethod = model.RetrievalMethodHybrid
		results = append(results, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}
