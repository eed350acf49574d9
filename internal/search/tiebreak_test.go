package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maamar-search/internal/corpus"
)

func TestTieBreakTokens(t *testing.T) {
	tests := []struct {
		name string
		ks   keywordSet
		want []string
	}{
		{
			name: "fallback words",
			ks:   fallbackSet("מה זה שכינה"),
			want: []string{"שכנה"},
		},
		{
			name: "fallback word with leading vav",
			ks:   fallbackSet("ומשה"),
			want: []string{"ומשה", "משה"},
		},
		{
			name: "short vav word kept whole",
			ks:   keywordSet{terms: []string{"וד"}},
			want: []string{"וד"},
		},
		{
			name: "extracted phrases split into normalized words",
			ks:   keywordSet{terms: []string{"אהבת ישראל", "ישראל"}, extracted: true},
			want: []string{"אבת", "ישראל"},
		},
		{
			name: "empty",
			ks:   keywordSet{},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tieBreakTokens(tt.ks))
		})
	}
}

func TestBreakTies(t *testing.T) {
	tests := []struct {
		name string
		recs []corpus.Record
		ks   keywordSet
		want []string
	}{
		{
			name: "fallback mentions order equal scores",
			recs: []corpus.Record{
				{Key: "a1", Text: "שכינה בעולם"},
				{Key: "a2", Text: "שכינה שכינה ועוד שכינה"},
			},
			ks:   fallbackSet("מה זה שכינה"),
			want: []string{"a2", "a1"},
		},
		{
			name: "extracted mentions order equal scores",
			recs: []corpus.Record{
				{Key: "a1", Text: "אהבת ישראל"},
				{Key: "a2", Text: "אהבת ישראל ישראל ישראל"},
			},
			ks:   keywordSet{terms: []string{"אהבת ישראל"}, extracted: true},
			want: []string{"a2", "a1"},
		},
		{
			name: "word without leading vav counts",
			recs: []corpus.Record{
				{Key: "a1", Text: "ומשה"},
				{Key: "a2", Text: "משה ומשה משה"},
			},
			ks:   fallbackSet("ומשה"),
			want: []string{"a2", "a1"},
		},
		{
			name: "no mentions keep input order",
			recs: []corpus.Record{
				{Key: "a1", Text: "אחד"},
				{Key: "a2", Text: "שנים"},
			},
			ks:   fallbackSet("שכינה"),
			want: []string{"a1", "a2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands := allCandidates(newTestCorpus(t, corpus.Meta{}, tt.recs...), 100)
			breakTies(cands, tieBreakTokens(tt.ks))
			assert.Equal(t, tt.want, candidateKeys(cands))
		})
	}
}

func TestBreakTies_ScoreFirst(t *testing.T) {
	c := newTestCorpus(t, corpus.Meta{},
		corpus.Record{Key: "low", Text: "שכינה שכינה שכינה"},
		corpus.Record{Key: "high", Text: "שכינה"},
	)
	cands := allCandidates(c, 50)
	cands[1].score = 80

	breakTies(cands, tieBreakTokens(fallbackSet("שכינה")))
	assert.Equal(t, []string{"high", "low"}, candidateKeys(cands))
}

func TestSearch_TiedScoresOrderedByMentions(t *testing.T) {
	c := newTestCorpus(t, corpus.Meta{},
		corpus.Record{Key: "a1", Name: "ראשון", KeywordsAll: []string{"שכינה"}, Text: "שכינה בעולם"},
		corpus.Record{Key: "a2", Name: "שני", KeywordsAll: []string{"שכינה"}, Text: "שכינה שכינה ועוד שכינה"},
	)

	got, err := NewSearcher(c).Search(context.Background(), Query{Question: "מה זה שכינה"})
	require.NoError(t, err)
	require.Equal(t, []string{"a2", "a1"}, keysOf(got))
	assert.Equal(t, got[0].Score, got[1].Score)
}
