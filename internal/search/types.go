package search

import (
	"errors"

	"maamar-search/internal/corpus"
)

var (
	// ErrCorpusRequired is returned when the searcher has no corpus to scan.
	ErrCorpusRequired = errors.New("corpus is not loaded")

	// ErrEmbeddingUnavailable marks a failed question embedding. It is logged,
	// never returned from Search.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
)

// Query is one search request.
type Query struct {
	// Title is the raw title fragment; it may carry a year, digits or a
	// "מאמר" qualifier. Wrapping it in quotes asks for exact matching.
	Title string
	// Year restricts results to one Hebrew year. Derived from Title when empty.
	Year string
	// Question is free text used for keyword reranking.
	Question string
	// Limit caps the result count; non-positive means no cap.
	Limit int
	// MinScore drops results scoring below it; 0 means no floor.
	MinScore int
	// UseSemantic allows the semantic blend when the searcher has it enabled.
	UseSemantic bool
	// Exact forces exact title matching without reranking.
	Exact bool
	// StrictKeywords turns a keyword extraction failure into an error.
	StrictKeywords bool
}

// Result is the public view of a ranked record.
type Result struct {
	Key      string
	Name     string
	Year     string
	Filename string
	Text     string

	Score         int
	FuzzyScore    int
	KeywordScore  int
	SemanticScore int

	WordsFound int
	TotalWords int

	MatchedKeywords      []string
	MatchedKeywordCounts map[string]int
}

// candidate is the per-query scoring state of one record. It never outlives
// a single Search call.
type candidate struct {
	entry *corpus.Entry

	score         int
	fuzzyScore    int
	keywordScore  int
	semanticScore int

	wordsFound int
	totalWords int

	matched []string
	counts  map[string]int

	minCount int
	sumCount int

	hasAllKeywords bool
	mentionTotal   int
}

func newCandidate(e *corpus.Entry, score int) *candidate {
	return &candidate{entry: e, score: score}
}

func (c *candidate) nameLen() int {
	return len([]rune(c.entry.Record.Name))
}

func (c *candidate) result() Result {
	rec := c.entry.Record
	filename := rec.Filename
	if filename == "" {
		filename = rec.Key
	}
	r := Result{
		Key:           rec.Key,
		Name:          rec.Name,
		Year:          c.entry.Year,
		Filename:      filename,
		Text:          rec.Text,
		Score:         c.score,
		FuzzyScore:    c.fuzzyScore,
		KeywordScore:  c.keywordScore,
		SemanticScore: c.semanticScore,
		WordsFound:    c.wordsFound,
		TotalWords:    c.totalWords,
	}
	if len(c.matched) > 0 {
		r.MatchedKeywords = append([]string(nil), c.matched...)
	}
	if len(c.counts) > 0 {
		r.MatchedKeywordCounts = make(map[string]int, len(c.counts))
		for k, v := range c.counts {
			r.MatchedKeywordCounts[k] = v
		}
	}
	return r
}

func results(cands []*candidate) []Result {
	out := make([]Result, len(cands))
	for i, c := range cands {
		out[i] = c.result()
	}
	return out
}

func clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

func truncate(cands []*candidate, limit int) []*candidate {
	if limit > 0 && len(cands) > limit {
		return cands[:limit]
	}
	return cands
}

func filterMinScore(cands []*candidate, min int) []*candidate {
	if min <= 0 {
		return cands
	}
	out := cands[:0:0]
	for _, c := range cands {
		if c.score >= min {
			out = append(out, c)
		}
	}
	return out
}
