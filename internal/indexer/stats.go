package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"
)

const (
	// DocumentVersion identifies how DocumentText builds the embedded text.
	// Update this when that changes.
	DocumentVersion = "v1"
	// TokensPerRune is an approximation for token counting (4 chars per token).
	TokensPerRune = 4.0
)

// Stats summarizes one IndexAll run.
type Stats struct {
	RecordsSeen    int `json:"records_seen"`
	RecordsIndexed int `json:"records_indexed"`
	// RecordsSkipped have neither a name nor a body.
	RecordsSkipped int `json:"records_skipped"`
	RecordsFailed  int `json:"records_failed"`
	Batches        int `json:"batches"`

	// DocumentTokens describes the texts sent for embedding.
	DocumentTokens TokenStats `json:"document_tokens"`
	// IndexVersion is a hash of the document version, embedding model and limits.
	IndexVersion string `json:"index_version"`

	tokenCounts []int
}

// TokenStats contains statistics about estimated token counts.
type TokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

func newStats(model string) *Stats {
	return &Stats{IndexVersion: IndexVersion(model)}
}

// observe records the estimated token count of one embedded text.
func (s *Stats) observe(text string) {
	tokens := int(math.Round(float64(utf8.RuneCountInString(text)) / TokensPerRune))
	s.tokenCounts = append(s.tokenCounts, max(tokens, 1))
}

func (s *Stats) finish() {
	s.DocumentTokens = computeTokenStats(s.tokenCounts)
}

// IndexVersion hashes everything that changes the stored vectors, so a
// collection built with other settings can be told apart.
func IndexVersion(model string) string {
	input := fmt.Sprintf("%s|%s|maxDocumentRunes=%d", DocumentVersion, model, maxDocumentRunes)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(counts []int) TokenStats {
	if len(counts) == 0 {
		return TokenStats{}
	}

	sorted := append([]int(nil), counts...)
	sort.Ints(sorted)

	sum := 0
	for _, c := range sorted {
		sum += c
	}
	mean := float64(sum) / float64(len(sorted))

	p95 := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	p95 = min(max(p95, 0), len(sorted)-1)

	return TokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95],
	}
}
