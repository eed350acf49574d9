package normalize

import (
	"regexp"
	"strings"
)

var (
	// A Hebrew year of the 5700s: "תש" plus one or two letters, optionally
	// followed by a gershayim/geresh and a final letter.
	yearPattern = regexp.MustCompile(`תש[א-ת]{1,2}(?:["'״׳][א-ת]|[א-ת])?`)

	leadingHeh = regexp.MustCompile(`^ה['׳]?`)
)

// FindYear returns the first year token in text, or "".
func FindYear(text string) string {
	return yearPattern.FindString(text)
}

// RemoveYear deletes the first year token from text and trims the result.
func RemoveYear(text string) string {
	loc := yearPattern.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text)
	}
	return strings.Join(strings.Fields(text[:loc[0]]+" "+text[loc[1]:]), " ")
}

// Year canonicalizes a Hebrew year: a leading "ה" is dropped along with
// every quote glyph and slash, so "ה'תשל"ו" and "תשל״ו" compare equal.
// Malformed input is returned cleaned rather than rejected.
func Year(year string) string {
	y := strings.TrimSpace(year)
	y = leadingHeh.ReplaceAllString(y, "")
	y = StripQuotes(y)
	y = strings.ReplaceAll(y, "/", "")
	return strings.TrimSpace(y)
}
