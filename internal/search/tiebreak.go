package search

import (
	"sort"
	"strings"

	"maamar-search/internal/keywords"
	"maamar-search/internal/normalize"
)

// tieBreakTokens lists the single words whose mentions order equal scores:
// the words of the extracted keywords, or the fallback words plus their
// forms without a leading vav.
func tieBreakTokens(ks keywordSet) []string {
	var tokens []string
	seen := map[string]struct{}{}
	add := func(t string) {
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}

	for _, term := range ks.terms {
		if ks.extracted {
			for _, w := range normalize.Words(term, normalize.Heh) {
				add(w)
			}
			continue
		}
		add(term)
		add(keywords.WithoutConjunction(term))
	}
	return tokens
}

// breakTies stable-sorts by score, then by how often the tokens occur as
// whole words in the record body.
func breakTies(cands []*candidate, tokens []string) {
	if len(cands) < 2 || len(tokens) == 0 {
		return
	}
	want := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		want[t] = struct{}{}
	}

	mentions := make(map[*candidate]int, len(cands))
	for _, c := range cands {
		n := 0
		for _, w := range strings.Fields(c.entry.Text) {
			if _, ok := want[w]; ok {
				n++
			}
		}
		mentions[c] = n
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score > b.score
		}
		return mentions[a] > mentions[b]
	})
}
