package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/slrhub/litrag"
	"github.com/slrhub/litrag/core/ingest"
	"github.com/slrhub/litrag/core/objectstore"
	"github.com/slrhub/litrag/core/pipeline"
	"github.com/slrhub/litrag/helper"
	"github.com/slrhub/litrag/model"
)

type paper struct {
	title   string
	authors string
	year    int
	doi     string
	url     string
}

var papers = []paper{
	{
		title:   "Attention Is All You Need",
		authors: "Vaswani et al.",
		year:    2017,
		doi:     "10.48550/arXiv.1706.03762",
		url:     "https://arxiv.org/pdf/1706.03762",
	},
	{
		title:   "BERT: Pre-training of Deep Bidirectional Transformers for Language Understanding",
		authors: "Devlin et al.",
		year:    2018,
		doi:     "10.48550/arXiv.1810.04805",
		url:     "https://arxiv.org/pdf/1810.04805",
	},
	{
		title:   "Retrieval-Augmented Generation for Knowledge-Intensive NLP Tasks",
		authors: "Lewis et al.",
		year:    2020,
		doi:     "10.48550/arXiv.2005.11401",
		url:     "https://arxiv.org/pdf/2005.11401",
	},
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Name:     "litrag_test",
		User:     "litrag",
		Password: "litrag",
		SSLMode:  "disable",
	}

	embedder, err := pipeline.NewLocalEmbedder()
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}
	defer embedder.Close()

	l, err := litrag.NewLitRAG(dbConfig, embedder, objectstore.NewMemoryStore())
	if err != nil {
		log.Fatalf("Failed to create litrag: %v", err)
	}
	defer l.Close()

	// Larger chunks with more overlap for long papers
	l.SetIngestConfig(ingest.Config{
		Chunking: model.ChunkingConfig{
			ChunkSize: 1500,
			Overlap:   300,
			Strategy:  model.ChunkingWindow,
		},
	})

	ctx := context.Background()
	projectRID := uuid.New()

	// Register the papers and include them in the review
	var projectWorks []*model.ProjectWork
	for _, p := range papers {
		year := p.year
		projectWork, err := l.AddWork(projectRID, &model.Work{
			Title:   p.title,
			Authors: p.authors,
			Year:    &year,
			DOI:     p.doi,
			URL:     p.url,
		})
		if err != nil {
			log.Fatalf("Failed to add work: %v", err)
		}

		projectWork, err = l.SetWorkStatus(projectWork.RID, model.StatusIncluded)
		if err != nil {
			log.Fatalf("Failed to include work: %v", err)
		}
		projectWorks = append(projectWorks, projectWork)
	}

	// Ingest all included works of the project
	fmt.Println("Ingesting project...")
	results, err := l.IngestProject(ctx, projectRID)
	if err != nil {
		log.Fatalf("Failed to ingest project: %v", err)
	}
	for rid, result := range results {
		fmt.Printf("  %s: %s (%d chunks)\n", rid, result.Status, result.ChunkCount)
	}

	queryText := "How is attention used to augment retrieval?"
	fmt.Printf("\nQuerying: %s\n", queryText)

	// Pure vector search
	vectorResults, err := l.Search(ctx, &model.SearchQuery{
		Text:       queryText,
		ProjectRID: projectRID,
		Strategy:   model.StrategyVector,
		TopK:       3,
	})
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}
	printResults("Vector search", vectorResults)

	// Hybrid search fusing vector and fulltext rankings
	hybridResults, err := l.Search(ctx, &model.SearchQuery{
		Text:         queryText,
		ProjectRID:   projectRID,
		Strategy:     model.StrategyHybrid,
		TopK:         3,
		WithMetadata: true,
	})
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}
	printResults("Hybrid search", hybridResults)

	// Search scoped to a single work for per-paper Q&A
	scopedResults, err := l.Search(ctx, &model.SearchQuery{
		Text:       queryText,
		ProjectRID: projectRID,
		WorkRIDs:   []uuid.UUID{projectWorks[0].WorkRID},
		TopK:       3,
	})
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}
	printResults("Scoped to first paper", scopedResults)

	// Excluding a work removes it from all following searches
	if _, err := l.SetWorkStatus(projectWorks[2].RID, model.StatusExcluded); err != nil {
		log.Fatalf("Failed to exclude work: %v", err)
	}

	afterExclusion, err := l.Search(ctx, &model.SearchQuery{
		Text:       queryText,
		ProjectRID: projectRID,
		TopK:       3,
	})
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}
	printResults("After excluding the third paper", afterExclusion)

	fmt.Println("\nAdvanced example completed successfully!")
}

func printResults(label string, results []*model.SearchResult) {
	fmt.Printf("\n%s, %d results:\n", label, len(results))
	for i, result := range results {
		content := result.Content
		if len(content) > 120 {
			content = content[:120] + "..."
		}
		fmt.Printf("  %d. [%.4f] %s\n", i+1, result.Score, content)
		if result.Metadata != nil {
			fmt.Printf("     %s, page %d\n", result.Metadata.Title, result.Metadata.Page)
		}
	}
}
