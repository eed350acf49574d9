package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maamar-search/internal/config"
	"maamar-search/internal/delivery"
	"maamar-search/internal/handlers"
	"maamar-search/internal/http"
	"maamar-search/internal/keywords"
	"maamar-search/internal/llm"
	"maamar-search/internal/search"
	"maamar-search/internal/service"
	"maamar-search/internal/storage"
	"maamar-search/internal/vectorstore"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API ranks maamarim from a fixed corpus by title, year and free-text question.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Maamar Search API
//   description: |
//     Title, year and keyword search over a Hebrew maamar corpus, with optional
//     semantic reranking and delivery of the top result to a Humains conversation.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load the corpus once; it is read-only afterwards.
	c, err := storage.OpenCorpus(ctx, cfg.CorpusPath)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	slog.Info("Corpus loaded", "path", cfg.CorpusPath, "records", c.Len(), "abbreviations", c.Expander().Len())

	// Keyword extraction; without credentials every question uses the fallback.
	var chat keywords.Chatter
	if cfg.LLMAPIKey != "" {
		chat = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.LLMTimeout)
	} else {
		slog.Warn("No LLM API key configured, keyword extraction will use the fallback")
	}
	extractor := keywords.NewExtractor(chat,
		keywords.WithEnabled(cfg.KeywordExtractionEnabled),
		keywords.WithTimeout(cfg.LLMTimeout),
	)
	searchOpts := []search.Option{search.WithExtractor(extractor), search.WithLogger(logger)}

	// Optional Qdrant store for record vectors
	var collections handlers.CollectionChecker
	var vectors search.VectorSource
	if cfg.QdrantEnabled() {
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		defer func() {
			_ = store.Close()
		}()
		collections = store
		vectors = vectorstore.NewRecordVectors(store, cfg.QdrantCollection)
		slog.Info("Qdrant vector store configured", "url", cfg.QdrantURL, "collection", cfg.QdrantCollection)
	}

	if cfg.SemanticSearchEnabled {
		embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize, cfg.EmbeddingTimeout)
		searchOpts = append(searchOpts, search.WithSemantic(embedder, vectors))
		slog.Info("Semantic search enabled", "model", cfg.EmbeddingModelName, "stored_vectors", vectors != nil)
	}

	searcher := search.NewSearcher(c, searchOpts...)

	// Humains delivery is optional.
	var deliverer service.Deliverer
	humains := delivery.NewClient(cfg.HumainsLoginURL, cfg.HumainsInjectURL, cfg.HumainsUsername, cfg.HumainsPassword, delivery.DefaultTimeout)
	if humains.Configured() {
		deliverer = humains
		slog.Info("Humains delivery enabled")
	}

	// Create router with dependencies
	deps := &http.Deps{
		SearchService:  service.NewSearchService(searcher, deliverer),
		Records:        c.Len(),
		Vectors:        collections,
		CollectionName: cfg.QdrantCollection,
	}
	server := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           http.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}()

	// Start API server
	slog.Info("Starting API server", "addr", server.Addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName, "keywords_enabled", cfg.KeywordExtractionEnabled)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Fatalf("API server failed to start: %v", err)
	}
	slog.Info("API server stopped")
}
