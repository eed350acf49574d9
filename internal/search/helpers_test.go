package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"maamar-search/internal/corpus"
)

func newTestCorpus(t *testing.T, meta corpus.Meta, recs ...corpus.Record) *corpus.Corpus {
	t.Helper()
	c, err := corpus.New(recs, meta)
	require.NoError(t, err)
	return c
}

type fakeExtractor struct {
	keywords []string
	err      error
	calls    int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]string(nil), f.keywords...), nil
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedText(_ context.Context, _ string) ([]float32, error) {
	return f.vec, f.err
}

type fakeVectors map[string][]float32

func (f fakeVectors) Vectors(_ context.Context, keys []string) (map[string][]float32, error) {
	out := map[string][]float32{}
	for _, k := range keys {
		if v, ok := f[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func keysOf(results []Result) []string {
	keys := make([]string, len(results))
	for i, r := range results {
		keys[i] = r.Key
	}
	return keys
}

func candidateKeys(cands []*candidate) []string {
	keys := make([]string, len(cands))
	for i, c := range cands {
		keys[i] = c.entry.Record.Key
	}
	return keys
}

// titleCorpus holds a handful of real-looking titles.
func titleCorpus(t *testing.T) *corpus.Corpus {
	return newTestCorpus(t, corpus.Meta{},
		corpus.Record{Key: "k1", Name: "ואברהם זקן תשל״ו", Text: "ואברהם זקן בא בימים והשם ברך את אברהם בכל"},
		corpus.Record{Key: "k2", Name: "ויהי אברהם תשל״ח", Text: "ויהי בימי"},
		corpus.Record{Key: "k3", Name: "באתי לגני תשי״א", Text: "באתי לגני אחותי כלה"},
		corpus.Record{Key: "k4", Name: "זקן ונשוא פנים", Text: "זקן ונשוא פנים הוא הראש"},
		corpus.Record{Key: "k5", Name: "ויהי בימי", Year: "ה'תשל\"ו", Text: "ויהי בימי אחשורוש"},
		corpus.Record{Key: "k6", Text: "record without a name"},
	)
}
