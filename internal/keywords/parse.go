package keywords

import (
	"sort"
	"strings"
	"unicode/utf8"

	"maamar-search/internal/normalize"
)

// noneAnswer is what the model replies when the question has no keywords.
const noneAnswer = "אין"

// ParseResponse turns a raw model answer into the final keyword list:
// split on commas (or lines), split "X וY" pairs, drop a leading vav,
// strip number words, sort, drop short non-acronyms and deduplicate by
// normal form keeping the first spelling.
func ParseResponse(answer string) []string {
	answer = strings.TrimSpace(answer)
	if answer == "" || answer == noneAnswer {
		return []string{}
	}

	raw := splitNonEmpty(answer, ",")
	if len(raw) == 0 {
		raw = splitNonEmpty(answer, "\n")
	}

	var keywords []string
	for _, kw := range raw {
		switch {
		case kw == noneAnswer:
		case strings.Contains(kw, " ו"):
			keywords = append(keywords, splitNonEmpty(kw, " ו")...)
		case strings.HasPrefix(kw, "ו") && utf8.RuneCountInString(kw) > 1:
			keywords = append(keywords, strings.TrimSpace(strings.TrimPrefix(kw, "ו")))
		default:
			keywords = append(keywords, kw)
		}
	}

	for i, kw := range keywords {
		keywords[i] = RemoveNumbers(kw)
	}
	sort.Strings(keywords)

	out := []string{}
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if utf8.RuneCountInString(strings.TrimSpace(normalize.StripQuotes(kw))) < 3 && !normalize.HasQuote(kw) {
			continue
		}
		norm := normalize.Normalize(kw, normalize.Heh)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, kw)
	}
	return out
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
