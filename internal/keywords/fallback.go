package keywords

import (
	"strings"
	"unicode/utf8"

	"maamar-search/internal/normalize"
)

var stopWordList = []string{
	"מה", "מי", "איך", "למה", "האם", "איפה", "מתי", "כמה",
	"של", "על", "את", "עם", "לפי", "אל", "מן", "ב", "ל", "כ", "מ",
	"הרב", "רב", "דעת", "אומר", "מסביר", "מדבר", "אומרים",
	"זה", "זו", "זאת", "אלה", "אלו",
	"כל", "כולם", "כולן", "הכל",
	"יש", "אין", "יהיה", "היה",
	"או", "וגם", "אבל", "רק", "גם", "אף", "כי", "אם", "ש",
}

// stopWords holds the list at normalize.Heh so it compares against
// normalized question words.
var stopWords = func() map[string]struct{} {
	m := make(map[string]struct{}, len(stopWordList))
	for _, w := range stopWordList {
		m[normalize.Normalize(w, normalize.Heh)] = struct{}{}
	}
	return m
}()

// IsStopWord reports whether a normalize.Heh word is a stop word.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Fallback derives keywords locally when extraction is unavailable: the
// question's normalized words minus stop words and single letters, in
// order of first appearance.
func Fallback(question string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, w := range normalize.Words(question, normalize.Heh) {
		if IsStopWord(w) || utf8.RuneCountInString(w) <= 1 {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// WithoutConjunction returns word minus a leading vav when at least two
// letters remain, or "".
func WithoutConjunction(word string) string {
	if strings.HasPrefix(word, "ו") && utf8.RuneCountInString(word) > 2 {
		return strings.TrimPrefix(word, "ו")
	}
	return ""
}
