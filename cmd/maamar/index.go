package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"maamar-search/internal/indexer"
	"maamar-search/internal/llm"
	"maamar-search/internal/storage"
	"maamar-search/internal/vectorstore"
)

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:   "index",
		Usage:  "Embed corpus records and store their vectors in Qdrant",
		Action: runIndex,
		Flags: []cli.Flag{
			corpusFlag(true),
			&cli.StringFlag{
				Name:     "qdrant-url",
				Usage:    "Qdrant URL (REST port; gRPC is the next port)",
				EnvVars:  []string{"QDRANT_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "collection",
				Usage:   "Qdrant collection name",
				Value:   "maamarim",
				EnvVars: []string{"QDRANT_COLLECTION"},
			},
			&cli.IntFlag{
				Name:     "vector-size",
				Usage:    "Embedding vector size",
				EnvVars:  []string{"QDRANT_VECTOR_SIZE"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service base URL",
				Value:   "https://api.openai.com/v1",
				EnvVars: []string{"EMBEDDING_BASE_URL"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "text-embedding-3-small",
				EnvVars: []string{"EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "embedding-key",
				Usage:   "Embedding service API key",
				EnvVars: []string{"EMBEDDING_API_KEY", "OPENAI_API_KEY"},
			},
			&cli.DurationFlag{
				Name:    "embedding-timeout",
				Value:   10 * time.Second,
				EnvVars: []string{"EMBEDDING_TIMEOUT"},
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of records in each embedding request",
				Value: 16,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of concurrent batches (0 = half the CPUs)",
			},
			&cli.BoolFlag{
				Name:  "reembed",
				Usage: "Embed records even when they carry an inline embedding",
			},
		},
	}
}

func runIndex(c *cli.Context) error {
	ctx := c.Context

	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	vectorSize := c.Int("vector-size")
	if vectorSize <= 0 {
		return fmt.Errorf("vector-size must be greater than 0")
	}

	corp, err := storage.OpenCorpus(ctx, c.String("corpus"))
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	store, err := vectorstore.NewQdrantStore(c.String("qdrant-url"))
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	model := c.String("embedding-model")
	embedder := llm.NewEmbeddingsClient(c.String("embedding-host"), c.String("embedding-key"), model, vectorSize, c.Duration("embedding-timeout"))

	pipeline, err := indexer.NewPipeline(embedder, store, c.String("collection"), vectorSize,
		indexer.WithBatchSize(c.Int("batch-size")),
		indexer.WithPoolSize(c.Int("workers")),
		indexer.WithReembed(c.Bool("reembed")),
		indexer.WithModelName(model),
		indexer.WithLogger(slog.Default()),
	)
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}

	stats, indexErr := pipeline.IndexAll(ctx, corp)
	if stats != nil {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			return err
		}
	}
	return indexErr
}
