package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"maamar-search/internal/contextutil"
)

const semanticWeight = 0.3

// Embedder turns a text into a vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// VectorSource supplies stored vectors for records that carry none inline.
type VectorSource interface {
	Vectors(ctx context.Context, keys []string) (map[string][]float32, error)
}

// blendSemantic mixes cosine similarity between the question and each
// record vector into the score (70/30). Candidates without a vector keep
// their score; all candidates are re-sorted together. Any failure leaves
// the candidates untouched.
func (s *Searcher) blendSemantic(ctx context.Context, question string, cands []*candidate) {
	if s.embedder == nil || question == "" || len(cands) == 0 {
		return
	}
	logger := contextutil.LoggerFromContext(ctx)

	vectors := s.candidateVectors(ctx, cands)
	if len(vectors) == 0 {
		return
	}

	qv, err := s.embedder.EmbedText(ctx, question)
	if err != nil {
		logger.WarnContext(ctx, "skipping semantic blend", "error", fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err))
		return
	}

	blended := 0
	for _, c := range cands {
		vec, ok := vectors[c.entry.Record.Key]
		if !ok {
			continue
		}
		sim, ok := cosine(qv, vec)
		if !ok {
			continue
		}
		c.semanticScore = clamp(int(math.Round(sim * 100)))
		c.score = clamp(int(math.Round(float64(c.score)*(1-semanticWeight) + float64(c.semanticScore)*semanticWeight)))
		blended++
	}
	logger.DebugContext(ctx, "semantic blend applied", "blended", blended, "candidates", len(cands))

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})
}

// candidateVectors collects inline embeddings and asks the vector source
// for the rest.
func (s *Searcher) candidateVectors(ctx context.Context, cands []*candidate) map[string][]float32 {
	vectors := make(map[string][]float32)
	var missing []string
	for _, c := range cands {
		rec := c.entry.Record
		if len(rec.Embedding) > 0 {
			vectors[rec.Key] = rec.Embedding
		} else {
			missing = append(missing, rec.Key)
		}
	}

	if s.vectors != nil && len(missing) > 0 {
		stored, err := s.vectors.Vectors(ctx, missing)
		if err != nil {
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to fetch stored vectors", "error", err)
		}
		for k, v := range stored {
			if len(v) > 0 {
				vectors[k] = v
			}
		}
	}
	return vectors
}

// cosine returns the cosine similarity of a and b; ok is false when the
// vectors differ in length or either is zero.
func cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}
