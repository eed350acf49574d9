package search

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"maamar-search/internal/corpus"
	"maamar-search/internal/normalize"
)

var (
	maamarWord     = regexp.MustCompile(`\S*מאמר\s*`)
	digits         = regexp.MustCompile(`\d+`)
	diburHamatchil = regexp.MustCompile(`\|?ד["'״׳` + "`" + `′″‴]ה\|?\s*`)

	// Looser than the normalize year pattern: any run of letters and quote glyphs after "תש".
	inputYear  = regexp.MustCompile(`תש[א-ת"'״׳` + "`" + `′″‴]+`)
	yearPrefix = regexp.MustCompile(`\s*(?:משנת|מ?שנת|בשנת)\s*$`)
)

// CleanTitle drops any word ending in "מאמר" and every digit, then collapses spaces.
func CleanTitle(title string) string {
	title = maamarWord.ReplaceAllString(strings.TrimSpace(title), "")
	title = digits.ReplaceAllString(title, "")
	return strings.Join(strings.Fields(title), " ")
}

// stripDiburHamatchil removes the ד"ה marker, with optional pipes.
func stripDiburHamatchil(title string) string {
	return strings.TrimSpace(diburHamatchil.ReplaceAllString(title, ""))
}

// TitleOnly keeps the words of title up to the first token marked with a
// Hebrew gershayim or geresh, which usually starts a source reference. ASCII
// quotes do not end the title. Year tokens are skipped, not treated as the
// end. Falls back to title when nothing is left.
func TitleOnly(title string) string {
	stripped := stripDiburHamatchil(title)
	var words []string
	for _, w := range strings.Fields(stripped) {
		if normalize.HasQuote(w) && strings.HasPrefix(w, "תש") {
			continue
		}
		if strings.ContainsAny(w, "״׳") {
			break
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return title
	}
	return strings.Join(words, " ")
}

// ParsedInput is a free-form request split into its parts.
type ParsedInput struct {
	Title    string
	Year     string
	Question string
}

// ParseInput splits "[title] [משנת] [year] [question]" free text. Without a
// year the whole text is the title.
func ParseInput(text string) ParsedInput {
	text = CleanTitle(text)
	loc := inputYear.FindStringIndex(text)
	if loc == nil {
		return ParsedInput{Title: strings.TrimSpace(text)}
	}

	before := strings.TrimSpace(text[:loc[0]])
	before = strings.TrimSpace(yearPrefix.ReplaceAllString(before, ""))
	return ParsedInput{
		Title:    before,
		Year:     text[loc[0]:loc[1]],
		Question: strings.TrimSpace(text[loc[1]:]),
	}
}

// exactMatch scores every record whose base-normalized name contains the
// base-normalized title as whole words. Shorter names come first.
func exactMatch(c *corpus.Corpus, title string) []*candidate {
	query := normalize.Normalize(title, normalize.Base)
	if query == "" {
		return nil
	}

	var out []*candidate
	for _, e := range c.Entries() {
		if !e.HasName() || !containsWord(e.NameBase, query) {
			continue
		}
		cand := newCandidate(e, 100)
		cand.fuzzyScore = 100
		out = append(out, cand)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].nameLen() < out[j].nameLen()
	})
	return out
}

// containsWord reports whether needle occurs in s with no word character
// directly before or after it. regexp's \b only knows ASCII.
func containsWord(s, needle string) bool {
	for from := 0; from <= len(s)-len(needle); {
		i := strings.Index(s[from:], needle)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(needle)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		from = start + size
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// marehMakomMatch scores records by how many of the title's words appear in
// the record name, ignoring order. Both sides are abbreviation-expanded and
// normalized at normalize.Heh.
func marehMakomMatch(c *corpus.Corpus, title string) []*candidate {
	title = stripDiburHamatchil(title)
	query := normalize.Words(c.Expander().Expand(title), normalize.Heh)
	if len(query) == 0 {
		return nil
	}

	var out []*candidate
	for _, e := range c.Entries() {
		if !e.HasName() {
			continue
		}
		found := 0
		for _, w := range query {
			if _, ok := e.NameWords[w]; ok {
				found++
			}
		}
		if found == 0 {
			continue
		}
		cand := newCandidate(e, percent(found, len(query)))
		cand.fuzzyScore = cand.score
		cand.wordsFound = found
		cand.totalWords = len(query)
		out = append(out, cand)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.wordsFound != b.wordsFound {
			return a.wordsFound > b.wordsFound
		}
		if a.score != b.score {
			return a.score > b.score
		}
		return a.nameLen() < b.nameLen()
	})
	return out
}

const (
	vavPenalty = 5
	yodPenalty = 10
)

// fuzzyMatch aligns title words against name words position by position,
// trying normalize.Base, then Vav, then Yod. Hits at looser levels cost a
// penalty; words at their own position and a matching first word earn bonuses.
func fuzzyMatch(c *corpus.Corpus, title string) []*candidate {
	expanded := c.Expander().Expand(title)
	var query [3][]string
	for l := normalize.Base; l <= normalize.Yod; l++ {
		query[l] = normalize.Words(expanded, l)
	}
	n := len(query[normalize.Base])
	if n == 0 {
		return nil
	}

	var out []*candidate
	for _, e := range c.Entries() {
		name := e.NameLevels
		if len(name[normalize.Base]) == 0 {
			continue
		}

		found, inOrder, penalty := 0, 0, 0
		for i := 0; i < n; i++ {
			for l, cost := range [3]int{0, vavPenalty, yodPenalty} {
				w := query[normalize.Base][i]
				if i < len(query[l]) {
					w = query[l][i]
				}
				j := indexOf(name[l], w)
				if j < 0 {
					continue
				}
				found++
				if j == i {
					inOrder++
				}
				penalty += cost
				break
			}
		}
		if found == 0 {
			continue
		}

		score := percent(found, n) + int(math.Round(10*float64(inOrder)/float64(n))) - penalty
		if query[normalize.Base][0] == name[normalize.Base][0] {
			score += 10
		}

		cand := newCandidate(e, clamp(score))
		cand.fuzzyScore = cand.score
		cand.wordsFound = found
		cand.totalWords = n
		out = append(out, cand)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}

func indexOf(words []string, w string) int {
	for i, x := range words {
		if x == w {
			return i
		}
	}
	return -1
}

// percent returns round(part/whole*100).
func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
