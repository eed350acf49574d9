// Package normalize canonicalizes Hebrew text for comparison.
//
// Four additive levels are supported. Base strips cantillation and vowel
// points, deletes quote glyphs so acronyms match their unquoted spelling,
// turns punctuation into spaces and collapses whitespace. Vav, Yod and Heh additionally elide that
// letter when it sits between two Hebrew letters.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Level selects how aggressively text is canonicalized.
type Level int

const (
	Base Level = iota
	Vav
	Yod
	Heh
)

// QuoteGlyphs lists every quote-like code point seen in titles and years.
const QuoteGlyphs = "״\"׳'`′″‴"

var (
	// U+0591..U+05C7: cantillation marks, niqqud, maqaf and friends.
	marks = &unicode.RangeTable{
		R16: []unicode.Range16{{Lo: 0x0591, Hi: 0x05C7, Stride: 1}},
	}

	elisions = []*regexp.Regexp{
		Vav: regexp.MustCompile(`([א-ת])ו([א-ת])`),
		Yod: regexp.MustCompile(`([א-ת])י([א-ת])`),
		Heh: regexp.MustCompile(`([א-ת])ה([א-ת])`),
	}
)

// foldRune drops quote glyphs and maps punctuation onto a space.
func foldRune(r rune) rune {
	if strings.ContainsRune(QuoteGlyphs, r) {
		return -1
	}
	switch r {
	case ',', '.', '-', ':', ';', '!', '?', '(', ')', '[', ']', '{', '}':
		return ' '
	}
	return r
}

// Normalize canonicalizes text at the given level. It is idempotent:
// Normalize(Normalize(s, l), l) == Normalize(s, l).
func Normalize(text string, level Level) string {
	if text == "" {
		return ""
	}
	// transform.Chain keeps state, so one is built per call.
	t := transform.Chain(runes.Remove(runes.In(marks)), runes.Map(foldRune))
	out, _, err := transform.String(t, text)
	if err != nil {
		out = text
	}

	for l := Vav; l <= level && l <= Heh; l++ {
		out = elide(out, elisions[l])
	}

	return strings.Join(strings.Fields(out), " ")
}

// elide applies re until the text stops changing. A single pass leaves
// runs such as "אווב" half-collapsed.
func elide(s string, re *regexp.Regexp) string {
	for {
		next := re.ReplaceAllString(s, "${1}${2}")
		if next == s {
			return s
		}
		s = next
	}
}

// Words normalizes text and splits it on whitespace.
func Words(text string, level Level) []string {
	return strings.Fields(Normalize(text, level))
}

// HasQuote reports whether s contains any quote glyph.
func HasQuote(s string) bool {
	return strings.ContainsAny(s, QuoteGlyphs)
}

// StripQuotes removes every quote glyph from s.
func StripQuotes(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(QuoteGlyphs, r) {
			return -1
		}
		return r
	}, s)
}
