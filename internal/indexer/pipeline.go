// Package indexer embeds corpus records and stores their vectors for the
// semantic blend.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"maamar-search/internal/contextutil"
	"maamar-search/internal/corpus"
	"maamar-search/internal/markup"
	"maamar-search/internal/vectorstore"
)

const (
	defaultBatchSize = 16
	// maxDocumentRunes keeps a record within the context of small embedding models.
	maxDocumentRunes = 6000
)

var (
	ErrEmbedderRequired = errors.New("indexer: embedder is required")
	ErrStoreRequired    = errors.New("indexer: vector store is required")
)

// Embedder embeds a batch of texts, one vector per text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline embeds records in batches on a worker pool and upserts them.
type Pipeline struct {
	embedder   Embedder
	store      vectorstore.VectorStore
	collection string
	vectorSize int
	model      string
	batchSize  int
	poolSize   int
	reembed    bool
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatchSize sets how many records go into one embedding request.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithPoolSize sets the number of concurrent batches.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.poolSize = n
		}
	}
}

// WithReembed embeds records even when they carry an inline embedding.
func WithReembed(reembed bool) Option {
	return func(p *Pipeline) {
		p.reembed = reembed
	}
}

// WithModelName records the embedding model in the index version.
func WithModelName(model string) Option {
	return func(p *Pipeline) {
		p.model = model
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates an indexing pipeline writing to collection.
func NewPipeline(embedder Embedder, store vectorstore.VectorStore, collection string, vectorSize int, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("indexer: vector size must be positive, got %d", vectorSize)
	}

	p := &Pipeline{
		embedder:   embedder,
		store:      store,
		collection: collection,
		vectorSize: vectorSize,
		batchSize:  defaultBatchSize,
		poolSize:   max(runtime.NumCPU()/2, 1),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Pipeline) getLogger(ctx context.Context) *slog.Logger {
	if ctx.Value(contextutil.LoggerKey()) != nil {
		return contextutil.LoggerFromContext(ctx)
	}
	return p.logger
}

// DocumentText is the text embedded for a record: its name, then the plain
// text of its body, cut to a bounded length.
func DocumentText(rec corpus.Record) string {
	parts := make([]string, 0, 2)
	if name := strings.TrimSpace(rec.Name); name != "" {
		parts = append(parts, name)
	}
	if body := markup.PlainText(rec.Text); body != "" {
		parts = append(parts, body)
	}
	return markup.Truncate(strings.Join(parts, "\n"), maxDocumentRunes)
}

// job is one record queued for the store. vec is set when the record
// carries a usable inline embedding.
type job struct {
	key  string
	text string
	vec  []float32
}

// IndexAll makes sure the collection exists and stores a vector for every
// record of c. Batch failures are logged and reported together; the other
// batches still complete.
func (p *Pipeline) IndexAll(ctx context.Context, c *corpus.Corpus) (*Stats, error) {
	logger := p.getLogger(ctx)

	if err := p.store.EnsureCollection(ctx, p.collection, p.vectorSize); err != nil {
		return nil, fmt.Errorf("failed to prepare collection: %w", err)
	}

	stats := newStats(p.model)
	var jobs []job
	for _, rec := range c.Records() {
		stats.RecordsSeen++
		if !p.reembed && len(rec.Embedding) == p.vectorSize {
			jobs = append(jobs, job{key: rec.Key, vec: rec.Embedding})
			continue
		}
		text := DocumentText(rec)
		if text == "" {
			stats.RecordsSkipped++
			continue
		}
		stats.observe(text)
		jobs = append(jobs, job{key: rec.Key, text: text})
	}
	logger.InfoContext(ctx, "starting indexing", "records", stats.RecordsSeen, "queued", len(jobs), "collection", p.collection)

	pool, err := ants.NewPool(p.poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	report := func(batch []job, err error) {
		mu.Lock()
		defer mu.Unlock()
		stats.Batches++
		if err != nil {
			stats.RecordsFailed += len(batch)
			errs = append(errs, err)
			logger.ErrorContext(ctx, "failed to index batch", "first_key", batch[0].key, "size", len(batch), "error", err)
			return
		}
		stats.RecordsIndexed += len(batch)
	}

	for start := 0; start < len(jobs); start += p.batchSize {
		batch := jobs[start:min(start+p.batchSize, len(jobs))]
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			report(batch, p.indexBatch(ctx, batch))
		}); err != nil {
			wg.Done()
			report(batch, fmt.Errorf("failed to submit batch: %w", err))
		}
	}
	wg.Wait()

	stats.finish()
	logger.InfoContext(ctx, "indexing completed",
		"indexed", stats.RecordsIndexed,
		"skipped", stats.RecordsSkipped,
		"failed", stats.RecordsFailed,
		"index_version", stats.IndexVersion,
	)

	if len(errs) > 0 {
		return stats, fmt.Errorf("indexing completed with %d failed batches: %w", len(errs), errors.Join(errs...))
	}
	return stats, nil
}

// indexBatch embeds the jobs lacking a vector and upserts the whole batch.
func (p *Pipeline) indexBatch(ctx context.Context, batch []job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		texts []string
		slots []int
	)
	for i, j := range batch {
		if j.vec == nil {
			texts = append(texts, j.text)
			slots = append(slots, i)
		}
	}

	vecs := make([][]float32, len(batch))
	for i, j := range batch {
		vecs[i] = j.vec
	}
	if len(texts) > 0 {
		embedded, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed records: %w", err)
		}
		if len(embedded) != len(texts) {
			return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(embedded))
		}
		for n, i := range slots {
			vecs[i] = embedded[n]
		}
	}

	points := make([]vectorstore.Point, len(batch))
	for i, j := range batch {
		if len(vecs[i]) != p.vectorSize {
			return fmt.Errorf("record %q: vector size %d, want %d", j.key, len(vecs[i]), p.vectorSize)
		}
		points[i] = vectorstore.RecordPoint(j.key, vecs[i])
	}

	if err := p.store.Upsert(ctx, p.collection, points); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}
	return nil
}
