package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maamar-search/internal/corpus"
	"maamar-search/internal/keywords"
)

func TestSearch_NoCorpus(t *testing.T) {
	_, err := NewSearcher(nil).Search(context.Background(), Query{Title: "זקן"})
	assert.ErrorIs(t, err, ErrCorpusRequired)
}

func TestSearch_EmptyQuery(t *testing.T) {
	s := NewSearcher(titleCorpus(t))
	got, err := s.Search(context.Background(), Query{Title: "  ", Question: " "})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearch_Title(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{
			name:  "perfect match returns only perfect records",
			query: Query{Title: "ואברהם זקן", Limit: 5},
			want:  []string{"k1"},
		},
		{
			name:  "year inside title filters",
			query: Query{Title: "מאמר ואברהם זקן תשל״ו"},
			want:  []string{"k1"},
		},
		{
			name:  "year mismatch",
			query: Query{Title: "ואברהם זקן", Year: "תשי״א"},
			want:  []string{},
		},
		{
			name:  "partial match keeps at least three",
			query: Query{Title: "זקן מאד", Limit: 1},
			want:  []string{"k4", "k1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSearcher(titleCorpus(t)).Search(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keysOf(got))
		})
	}
}

func TestSearch_PerfectTitleScore(t *testing.T) {
	got, err := NewSearcher(titleCorpus(t)).Search(context.Background(), Query{Title: "ואברהם זקן"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 100, got[0].Score)
	assert.Equal(t, 2, got[0].WordsFound)
	assert.Equal(t, 2, got[0].TotalWords)
	assert.Equal(t, "תשל״ו", got[0].Year)
	assert.Equal(t, "k1", got[0].Filename)
}

func TestSearch_TitleWithQuestion(t *testing.T) {
	s := NewSearcher(titleCorpus(t))
	got, err := s.Search(context.Background(), Query{Title: "זקן", Question: "ברך אברהם"})
	require.NoError(t, err)

	require.Equal(t, []string{"k1", "k4"}, keysOf(got))
	assert.Equal(t, map[string]int{"ברך": 1, "אברם": 2}, got[0].MatchedKeywordCounts)
	assert.Equal(t, 100, got[0].KeywordScore)
	assert.Empty(t, got[1].MatchedKeywords)
}

func TestSearch_YearOnly(t *testing.T) {
	got, err := NewSearcher(titleCorpus(t)).Search(context.Background(), Query{Year: "תשל״ו"})
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k5"}, keysOf(got))
	for _, r := range got {
		assert.Equal(t, 100, r.Score)
	}
}

func TestSearch_ExactQuote(t *testing.T) {
	ext := &fakeExtractor{keywords: []string{"אחותי"}}
	s := NewSearcher(titleCorpus(t), WithExtractor(ext))

	got, err := s.Search(context.Background(), Query{Title: `"באתי לגני"`, Question: "אחותי כלה"})
	require.NoError(t, err)
	assert.Equal(t, []string{"k3"}, keysOf(got))
	assert.Equal(t, 100, got[0].Score)
	assert.Zero(t, ext.calls)

	got, err = s.Search(context.Background(), Query{Title: "באתי לגני", Exact: true, Year: "תשל״ו"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_QuestionOnly(t *testing.T) {
	tests := []struct {
		name      string
		extractor KeywordExtractor
	}{
		{name: "fallback keywords", extractor: nil},
		{name: "extracted keywords", extractor: &fakeExtractor{keywords: []string{"שכינה"}}},
		{name: "extraction unavailable", extractor: &fakeExtractor{err: keywords.ErrUnavailable}},
		{name: "extraction returned nothing", extractor: &fakeExtractor{keywords: []string{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.extractor != nil {
				opts = append(opts, WithExtractor(tt.extractor))
			}
			got, err := NewSearcher(shechinaCorpus(t), opts...).Search(context.Background(), Query{Question: "מה זה שכינה"})
			require.NoError(t, err)

			require.Len(t, got, 3)
			assert.Equal(t, "q3", got[2].Key)
			assert.ElementsMatch(t, []string{"q1", "q2"}, keysOf(got[:2]))
			for _, r := range got[:2] {
				assert.Equal(t, 100, r.KeywordScore)
				assert.Equal(t, 100, r.Score)
			}
			assert.Zero(t, got[2].Score)
		})
	}
}

func TestSearch_AcronymKeyword(t *testing.T) {
	c := newTestCorpus(t, corpus.Meta{},
		corpus.Record{Key: "a", Name: `אדמו"ר הזקן`, KeywordsAll: []string{`אדמו"ר`}, Text: `וכמו שאמר אדמו"ר הזקן`},
		corpus.Record{Key: "b", Name: "אחר", KeywordsAll: []string{"אהבה"}, Text: "אהבה רבה"},
	)
	s := NewSearcher(c, WithExtractor(&fakeExtractor{keywords: []string{"אדמור"}}))

	got, err := s.Search(context.Background(), Query{Question: "מה אמר אדמור"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, keysOf(got))
	assert.Equal(t, 100, got[0].KeywordScore)
	assert.Equal(t, 100, got[0].Score)
	assert.Equal(t, map[string]int{"אדמור": 1}, got[0].MatchedKeywordCounts)

	for _, title := range []string{"אדמור הזקן", `אדמו"ר הזקן`} {
		got, err = s.Search(context.Background(), Query{Title: title})
		require.NoError(t, err)
		require.Equal(t, []string{"a"}, keysOf(got), title)
		assert.Equal(t, 100, got[0].Score, title)
	}
}

func TestSearch_MinScore(t *testing.T) {
	got, err := NewSearcher(shechinaCorpus(t)).Search(context.Background(), Query{Question: "שכינה", MinScore: 50, Limit: 10})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"q1", "q2"}, keysOf(got))
}

func TestSearch_StrictKeywords(t *testing.T) {
	tests := []struct {
		name      string
		extractor KeywordExtractor
		query     Query
	}{
		{
			name:      "question only",
			extractor: &fakeExtractor{err: keywords.ErrUnavailable},
			query:     Query{Question: "שכינה", StrictKeywords: true},
		},
		{
			name:  "no extractor",
			query: Query{Question: "שכינה", StrictKeywords: true},
		},
		{
			name:      "extraction returned nothing",
			extractor: &fakeExtractor{keywords: []string{}},
			query:     Query{Question: "שכינה", StrictKeywords: true},
		},
		{
			name:      "title branch",
			extractor: &fakeExtractor{err: errors.Join(keywords.ErrUnavailable, errors.New("timeout"))},
			query:     Query{Title: "ראשון", Question: "שכינה", StrictKeywords: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.extractor != nil {
				opts = append(opts, WithExtractor(tt.extractor))
			}
			got, err := NewSearcher(shechinaCorpus(t), opts...).Search(context.Background(), tt.query)
			assert.ErrorIs(t, err, keywords.ErrUnavailable)
			assert.Nil(t, got)
		})
	}
}

func TestSearch_SemanticRequiresOptIn(t *testing.T) {
	c := semanticCorpus(t)
	s := NewSearcher(c, WithSemantic(&fakeEmbedder{vec: []float32{1, 0}}, fakeVectors{"s3": {1, 0}}))

	got, err := s.Search(context.Background(), Query{Question: "שאלה"})
	require.NoError(t, err)
	for _, r := range got {
		assert.Zero(t, r.SemanticScore)
	}

	got, err = s.Search(context.Background(), Query{Question: "שאלה", UseSemantic: true})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"s1", "s3"}, keysOf(got[:2]))
	assert.Equal(t, 100, got[0].SemanticScore)
	assert.Equal(t, 30, got[0].Score)
}

func TestSearch_Deterministic(t *testing.T) {
	s := NewSearcher(titleCorpus(t))
	q := Query{Title: "זקן", Question: "אברהם"}
	first, err := s.Search(context.Background(), q)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := s.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  plan
	}{
		{name: "empty", query: Query{}, want: plan{shape: shapeEmpty}},
		{name: "quoted", query: Query{Title: `״ויהי בימי״`}, want: plan{shape: shapeExactQuote, title: "ויהי בימי"}},
		{name: "year in title", query: Query{Title: "באתי לגני תשי״א"}, want: plan{shape: shapeTitle, title: "באתי לגני", year: "תשיא"}},
		{name: "explicit year wins", query: Query{Title: "באתי לגני", Year: "ה'תשל\"ו"}, want: plan{shape: shapeTitle, title: "באתי לגני", year: "תשלו"}},
		{name: "year only", query: Query{Title: "מאמר 12", Year: "תשל״ו"}, want: plan{shape: shapeYearOnly, year: "תשלו"}},
		{name: "question", query: Query{Question: " שכינה "}, want: plan{shape: shapeQuestionOnly, question: "שכינה"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.query))
		})
	}
}
