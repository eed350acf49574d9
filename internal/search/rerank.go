package search

import (
	"math"
	"sort"
	"strings"

	"maamar-search/internal/corpus"
	"maamar-search/internal/keywords"
	"maamar-search/internal/normalize"
)

// fuzzyKeywordThreshold is the minimum similarity ratio for a question
// keyword to count as one of a record's curated keywords.
const fuzzyKeywordThreshold = 85

// keywordSet is the keyword list of one question.
type keywordSet struct {
	// terms are extracted keywords as written, or fallback words already at normalize.Heh.
	terms []string
	// extracted is true when terms came from the extraction service.
	extracted bool
}

func (k keywordSet) empty() bool {
	return len(k.terms) == 0
}

// fallbackSet builds a keywordSet from the question alone.
func fallbackSet(question string) keywordSet {
	return keywordSet{terms: keywords.Fallback(question)}
}

// rerankKeywords scores candidates by keyword coverage. With general set,
// the candidates carry no title signal and keywordScore replaces score;
// otherwise a matching record earns up to 20 bonus points.
func rerankKeywords(cands []*candidate, ks keywordSet, aliases corpus.AliasTable, general bool) {
	if ks.empty() || len(cands) == 0 {
		return
	}

	for _, c := range cands {
		if ks.extracted {
			scoreExtracted(c, ks.terms, aliases)
		} else {
			scoreFallback(c, ks.terms, aliases)
		}

		switch {
		case general:
			c.score = c.keywordScore
		case len(c.matched) > 0:
			c.score = clamp(c.score + int(math.Round(float64(c.keywordScore)*0.2)))
		}
	}

	if ks.extracted {
		sort.SliceStable(cands, func(i, j int) bool {
			a, b := cands[i], cands[j]
			if a.score != b.score {
				return a.score > b.score
			}
			if a.minCount != b.minCount {
				return a.minCount > b.minCount
			}
			return a.sumCount > b.sumCount
		})
		return
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})
}

// scoreExtracted resolves each extracted keyword against the record's
// curated list (literal, normalized, then fuzzy) and counts mentions of the
// resolved form in the body. A keyword is found if it resolved or was mentioned.
func scoreExtracted(c *candidate, terms []string, aliases corpus.AliasTable) {
	found := make(map[string]bool, len(terms))
	c.counts = make(map[string]int, len(terms))
	c.minCount, c.sumCount = 0, 0

	for i, kw := range terms {
		phrase := kw
		if curated, ok := resolveKeyword(c.entry, kw); ok {
			found[kw] = true
			phrase = curated
		}

		n := countPhraseMentions(c.entry.Text, phrase, aliases)
		c.counts[kw] = n
		if n > 0 {
			found[kw] = true
		}

		if i == 0 || n < c.minCount {
			c.minCount = n
		}
		c.sumCount += n
	}

	c.matched = c.matched[:0]
	for _, kw := range terms {
		if found[kw] {
			c.matched = append(c.matched, kw)
		}
	}
	c.keywordScore = percent(len(c.matched), len(terms))
	if len(c.matched) == 0 {
		c.counts = nil
	}
}

// resolveKeyword maps a question keyword to one of the record's curated keywords.
func resolveKeyword(e *corpus.Entry, kw string) (string, bool) {
	curated := e.Record.KeywordsAll
	for _, k := range curated {
		if k == kw {
			return k, true
		}
	}

	qn := normalize.Normalize(kw, normalize.Heh)
	if qn == "" {
		return "", false
	}
	for i, norm := range e.Keywords {
		if curated[i] != "" && norm == qn {
			return curated[i], true
		}
	}

	best, bestIdx := 0.0, -1
	for i, norm := range e.Keywords {
		if norm == "" {
			continue
		}
		if r := ratio(qn, norm); r > best {
			best, bestIdx = r, i
			if best >= 100 {
				break
			}
		}
	}
	if bestIdx >= 0 && best >= fuzzyKeywordThreshold && curated[bestIdx] != "" {
		return curated[bestIdx], true
	}
	return "", false
}

// scoreFallback intersects the fallback words with the words of the
// record's normalized keyword list.
func scoreFallback(c *candidate, terms []string, aliases corpus.AliasTable) {
	c.matched = c.matched[:0]
	for _, w := range terms {
		if _, ok := c.entry.KeywordTokens[w]; ok {
			c.matched = append(c.matched, w)
		}
	}
	c.keywordScore = percent(len(c.matched), len(terms))

	c.counts = nil
	if len(c.matched) > 0 {
		c.counts = make(map[string]int, len(c.matched))
		for _, w := range c.matched {
			c.counts[w] = countPhraseMentions(c.entry.Text, w, aliases)
		}
	}
}

// countPhraseMentions counts non-overlapping occurrences of every alias of
// phrase in text, which must already be at normalize.Heh.
func countPhraseMentions(text, phrase string, aliases corpus.AliasTable) int {
	phrase = strings.TrimSpace(phrase)
	if text == "" || phrase == "" {
		return 0
	}
	total := 0
	for _, alias := range aliases.Aliases(phrase) {
		a := normalize.Normalize(alias, normalize.Heh)
		if a == "" {
			continue
		}
		total += strings.Count(text, a)
	}
	return total
}

// ratio is the normalized indel similarity of a and b in [0,100]:
// 200*LCS/(len(a)+len(b)) over runes.
func ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 100
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			switch {
			case ra[i-1] == rb[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return 200 * float64(prev[len(rb)]) / float64(len(ra)+len(rb))
}
