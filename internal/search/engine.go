// Package search ranks maamarim against a title fragment and/or a question.
package search

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks maamar-search/internal/search Engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"maamar-search/internal/contextutil"
	"maamar-search/internal/corpus"
	"maamar-search/internal/keywords"
	"maamar-search/internal/normalize"
)

// Engine answers search queries.
type Engine interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}

// KeywordExtractor returns the keywords of a question. Errors wrapping
// keywords.ErrUnavailable mean the service could not be used.
type KeywordExtractor interface {
	Extract(ctx context.Context, question string) ([]string, error)
}

// Searcher is the Engine over an in-memory corpus. It holds no per-query
// state and is safe for concurrent use.
type Searcher struct {
	corpus    *corpus.Corpus
	extractor KeywordExtractor
	embedder  Embedder
	vectors   VectorSource
	semantic  bool
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithExtractor sets the keyword extraction service.
func WithExtractor(e KeywordExtractor) Option {
	return func(s *Searcher) {
		s.extractor = e
	}
}

// WithSemantic enables the semantic blend using embedder. vectors may be nil
// when every record carries its embedding inline.
func WithSemantic(embedder Embedder, vectors VectorSource) Option {
	return func(s *Searcher) {
		s.semantic = embedder != nil
		s.embedder = embedder
		s.vectors = vectors
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		s.logger = logger
	}
}

// NewSearcher creates a Searcher over c.
func NewSearcher(c *corpus.Corpus, opts ...Option) *Searcher {
	s := &Searcher{corpus: c}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// shape is the kind of request, decided once per query.
type shape int

const (
	shapeEmpty shape = iota
	shapeExactQuote
	shapeYearOnly
	shapeTitle
	shapeQuestionOnly
)

func (s shape) String() string {
	switch s {
	case shapeExactQuote:
		return "exact"
	case shapeYearOnly:
		return "year"
	case shapeTitle:
		return "title"
	case shapeQuestionOnly:
		return "question"
	}
	return "empty"
}

// plan is a classified query.
type plan struct {
	shape    shape
	title    string
	year     string
	question string
}

func classify(q Query) plan {
	p := plan{
		title:    strings.TrimSpace(q.Title),
		year:     normalize.Year(q.Year),
		question: strings.TrimSpace(q.Question),
	}

	if unquoted, ok := unquote(p.title); ok || q.Exact {
		if ok {
			p.title = unquoted
		}
		if p.title != "" {
			p.shape = shapeExactQuote
			return p
		}
	}

	p.title = CleanTitle(p.title)
	if p.title != "" && p.year == "" {
		if y := normalize.FindYear(p.title); y != "" {
			p.title = normalize.RemoveYear(p.title)
			p.year = normalize.Year(y)
		}
	}

	switch {
	case p.title != "":
		p.shape = shapeTitle
	case p.year != "":
		p.shape = shapeYearOnly
	case p.question != "":
		p.shape = shapeQuestionOnly
	default:
		p.shape = shapeEmpty
	}
	return p
}

// unquote strips one pair of surrounding double quotes.
func unquote(s string) (string, bool) {
	for _, q := range []string{`"`, "״"} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return strings.TrimSpace(s[len(q) : len(s)-len(q)]), true
		}
	}
	return s, false
}

// Search runs q through the branch its shape selects.
func (s *Searcher) Search(ctx context.Context, q Query) ([]Result, error) {
	if s == nil || s.corpus == nil {
		return nil, ErrCorpusRequired
	}

	p := classify(q)
	logger := s.loggerFrom(ctx).With("shape", p.shape.String())
	ctx = contextutil.WithLogger(ctx, logger)
	logger.DebugContext(ctx, "search started", "title", p.title, "year", p.year, "question", p.question)

	var (
		cands []*candidate
		err   error
	)
	switch p.shape {
	case shapeExactQuote:
		cands = s.searchExact(p, q)
	case shapeYearOnly:
		cands, err = s.searchYear(ctx, p, q)
	case shapeTitle:
		cands, err = s.searchTitle(ctx, p, q)
	case shapeQuestionOnly:
		cands, err = s.searchQuestion(ctx, p, q)
	default:
		return []Result{}, nil
	}
	if err != nil {
		return nil, err
	}

	cands = filterMinScore(cands, q.MinScore)
	logger.InfoContext(ctx, "search completed", "results", len(cands))
	return results(cands), nil
}

func (s *Searcher) loggerFrom(ctx context.Context) *slog.Logger {
	if s.logger != nil && ctx.Value(contextutil.LoggerKey()) == nil {
		return s.logger
	}
	return contextutil.LoggerFromContext(ctx)
}

func (s *Searcher) searchExact(p plan, q Query) []*candidate {
	cands := exactMatch(s.corpus, p.title)
	if p.year != "" {
		cands = filterYear(cands, p.year)
	}
	return truncate(cands, q.Limit)
}

func (s *Searcher) searchYear(ctx context.Context, p plan, q Query) ([]*candidate, error) {
	var cands []*candidate
	for _, e := range s.corpus.Entries() {
		if e.YearKey != "" && e.YearKey == p.year {
			cands = append(cands, newCandidate(e, 100))
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].entry.Record.Name < cands[j].entry.Record.Name
	})

	if p.question != "" && len(cands) > 0 {
		if err := s.rerank(ctx, p.question, q, cands, false); err != nil {
			return nil, err
		}
	}
	return truncate(cands, q.Limit), nil
}

func (s *Searcher) searchQuestion(ctx context.Context, p plan, q Query) ([]*candidate, error) {
	entries := s.corpus.Entries()
	cands := make([]*candidate, 0, len(entries))
	for _, e := range entries {
		cands = append(cands, newCandidate(e, 50))
	}
	if err := s.rerank(ctx, p.question, q, cands, true); err != nil {
		return nil, err
	}
	return truncate(cands, q.Limit), nil
}

// rerank runs keyword scoring, the optional semantic blend and tie-breaking.
func (s *Searcher) rerank(ctx context.Context, question string, q Query, cands []*candidate, general bool) error {
	ks, err := s.keywordsFor(ctx, question, q.StrictKeywords)
	if err != nil {
		return err
	}
	rerankKeywords(cands, ks, s.corpus.Aliases(), general)
	if s.semantic && q.UseSemantic {
		s.blendSemantic(ctx, question, cands)
	}
	breakTies(cands, tieBreakTokens(ks))
	return nil
}

func (s *Searcher) searchTitle(ctx context.Context, p plan, q Query) ([]*candidate, error) {
	cands := marehMakomMatch(s.corpus, TitleOnly(p.title))
	if p.year != "" {
		cands = filterYear(cands, p.year)
	}
	if len(cands) == 0 {
		return nil, nil
	}

	total := cands[0].totalWords
	maxFound := 0
	for _, c := range cands {
		if c.wordsFound > maxFound {
			maxFound = c.wordsFound
		}
	}
	perfect := total > 0 && maxFound >= total

	if p.question != "" {
		ks, err := s.keywordsFor(ctx, p.question, q.StrictKeywords)
		if err != nil {
			return nil, err
		}
		rankByMentions(cands, ks, s.corpus.Aliases())
	}

	if perfect {
		var best []*candidate
		for _, c := range cands {
			if c.wordsFound >= total {
				best = append(best, c)
			}
		}
		return truncate(best, q.Limit), nil
	}
	return truncate(cands, max(q.Limit, 3)), nil
}

// rankByMentions orders title matches by word coverage, then by whether
// the body mentions every keyword, then by total mentions.
func rankByMentions(cands []*candidate, ks keywordSet, aliases corpus.AliasTable) {
	if ks.empty() {
		return
	}
	for _, c := range cands {
		c.counts = make(map[string]int, len(ks.terms))
		c.matched = c.matched[:0]
		c.mentionTotal = 0
		for _, kw := range ks.terms {
			n := countPhraseMentions(c.entry.Text, kw, aliases)
			c.counts[kw] = n
			c.mentionTotal += n
			if n > 0 {
				c.matched = append(c.matched, kw)
			}
		}
		c.hasAllKeywords = len(c.matched) == len(ks.terms)
		c.keywordScore = percent(len(c.matched), len(ks.terms))
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		pa, pb := coverage(a), coverage(b)
		if pa != pb {
			return pa > pb
		}
		if a.hasAllKeywords != b.hasAllKeywords {
			return a.hasAllKeywords
		}
		return a.mentionTotal > b.mentionTotal
	})
}

// coverage is the percentage of title words found.
func coverage(c *candidate) float64 {
	if c.totalWords == 0 {
		if c.wordsFound == 0 {
			return 0
		}
		return 100
	}
	return float64(c.wordsFound) / float64(c.totalWords) * 100
}

func filterYear(cands []*candidate, year string) []*candidate {
	out := cands[:0:0]
	for _, c := range cands {
		if c.entry.YearKey != "" && c.entry.YearKey == year {
			out = append(out, c)
		}
	}
	return out
}

// keywordsFor extracts the question's keywords, falling back to local stop
// word filtering unless strict is set.
func (s *Searcher) keywordsFor(ctx context.Context, question string, strict bool) (keywordSet, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var err error
	if s.extractor == nil {
		err = keywords.ErrUnavailable
	} else {
		var kws []string
		kws, err = s.extractor.Extract(ctx, question)
		if err == nil && len(kws) > 0 {
			return keywordSet{terms: kws, extracted: true}, nil
		}
		if err == nil && strict {
			return keywordSet{}, fmt.Errorf("strict keyword mode: %w: no keywords extracted", keywords.ErrUnavailable)
		}
	}

	if err != nil {
		if strict {
			return keywordSet{}, fmt.Errorf("strict keyword mode: %w", err)
		}
		if !errors.Is(err, keywords.ErrUnavailable) {
			logger.WarnContext(ctx, "unexpected keyword extraction error", "error", err)
		}
	}

	ks := fallbackSet(question)
	logger.DebugContext(ctx, "using fallback keywords", "keywords", ks.terms)
	return ks, nil
}

// MatchExact runs only exact title matching.
func (s *Searcher) MatchExact(title string, limit int) []Result {
	if s == nil || s.corpus == nil {
		return nil
	}
	return results(truncate(exactMatch(s.corpus, title), limit))
}

// MatchMarehMakom runs only word-set title matching.
func (s *Searcher) MatchMarehMakom(title string, limit int) []Result {
	if s == nil || s.corpus == nil {
		return nil
	}
	return results(truncate(marehMakomMatch(s.corpus, title), limit))
}

// MatchFuzzy runs only positional fuzzy title matching.
func (s *Searcher) MatchFuzzy(title string, limit int) []Result {
	if s == nil || s.corpus == nil {
		return nil
	}
	return results(truncate(fuzzyMatch(s.corpus, title), limit))
}
