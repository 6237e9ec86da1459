package main

import (
	"context"
	"fmt"
	"log"

	"github.com/slrhub/litrag"
	"github.com/slrhub/litrag/core/objectstore"
	"github.com/slrhub/litrag/core/pipeline"
	"github.com/slrhub/litrag/helper"
	"github.com/slrhub/litrag/model"

	"github.com/google/uuid"
)

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Name:     "litrag_test",
		User:     "litrag",
		Password: "litrag",
		SSLMode:  "disable",
	}

	// Local embedding model (all-MiniLM-L6-v2, 384 dimensions), downloaded
	// to ./models on first run
	embedder, err := pipeline.NewLocalEmbedder()
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}
	defer embedder.Close()

	// In-memory PDF cache; use objectstore.NewS3Store for a persistent one
	store := objectstore.NewMemoryStore()

	l, err := litrag.NewLitRAG(dbConfig, embedder, store)
	if err != nil {
		log.Fatalf("Failed to create litrag: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	projectRID := uuid.New()

	// Register a work with an open access PDF and include it in the review
	year := 2017
	work := &model.Work{
		Title:   "Attention Is All You Need",
		Authors: "Vaswani et al.",
		Year:    &year,
		DOI:     "10.48550/arXiv.1706.03762",
		URL:     "https://arxiv.org/pdf/1706.03762",
	}

	projectWork, err := l.AddWork(projectRID, work)
	if err != nil {
		log.Fatalf("Failed to add work: %v", err)
	}

	projectWork, err = l.SetWorkStatus(projectWork.RID, model.StatusIncluded)
	if err != nil {
		log.Fatalf("Failed to include work: %v", err)
	}

	// Fetch, extract, chunk, embed and store
	fmt.Println("Ingesting work...")
	result, err := l.IngestWork(ctx, projectWork.RID)
	if err != nil {
		log.Fatalf("Failed to ingest work: %v", err)
	}
	fmt.Printf("Ingestion %s: %d chunks in %s\n", result.Status, result.ChunkCount, result.Elapsed)

	// Hybrid search over the project's included works
	queryText := "How does multi-head attention work?"
	fmt.Printf("\nQuerying: %s\n", queryText)

	results, err := l.Search(ctx, &model.SearchQuery{
		Text:         queryText,
		ProjectRID:   projectRID,
		TopK:         5,
		WithMetadata: true,
	})
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}

	// Display results
	fmt.Printf("\nFound %d results:\n", len(results))
	for i, result := range results {
		fmt.Printf("\n--- Result %d ---\n", i+1)
		fmt.Printf("Score: %.4f\n", result.Score)
		fmt.Printf("Content: %s\n", result.Content)
		if result.Metadata != nil {
			fmt.Printf("Source: %s (page %d, chunk %d/%d)\n", result.Metadata.Title, result.Metadata.Page, result.Metadata.ChunkIndex+1, result.Metadata.TotalChunks)
		}
		fmt.Printf("Method: %s\n", result.Method)
	}

	fmt.Println("\nBasic example completed successfully!")
}
