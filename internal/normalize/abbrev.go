package normalize

import (
	"sort"
	"strings"
)

// Expander replaces known abbreviations with their full form.
// The zero value and a nil *Expander leave text unchanged.
type Expander struct {
	entries []abbreviation
}

type abbreviation struct {
	short, long string
	variants    []string
}

// NewExpander builds an Expander from an abbreviation → expansion table.
// Entries are tried longest abbreviation first so "ש"פ" wins over "ש".
func NewExpander(table map[string]string) *Expander {
	e := &Expander{}
	for short, long := range table {
		if short == "" || long == "" {
			continue
		}
		e.entries = append(e.entries, abbreviation{
			short:    short,
			long:     long,
			variants: quoteVariants(short),
		})
	}
	sort.Slice(e.entries, func(i, j int) bool {
		a, b := e.entries[i].short, e.entries[j].short
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return e
}

// quoteVariants spells the abbreviation with each quote glyph in turn.
func quoteVariants(short string) []string {
	if !HasQuote(short) {
		return nil
	}
	var out []string
	for _, q := range QuoteGlyphs {
		v := strings.Map(func(r rune) rune {
			if strings.ContainsRune(QuoteGlyphs, r) {
				return q
			}
			return r
		}, short)
		if v != short {
			out = append(out, v)
		}
	}
	return out
}

// Expand operates on raw text; no normalization is applied first.
func (e *Expander) Expand(text string) string {
	if e == nil || text == "" {
		return text
	}
	for _, a := range e.entries {
		if strings.Contains(text, a.short) {
			text = strings.ReplaceAll(text, a.short, a.long)
			continue
		}
		for _, v := range a.variants {
			if strings.Contains(text, v) {
				text = strings.ReplaceAll(text, v, a.long)
				break
			}
		}
	}
	return text
}

// Len returns the number of known abbreviations.
func (e *Expander) Len() int {
	if e == nil {
		return 0
	}
	return len(e.entries)
}

// Table returns a copy of the abbreviation → expansion table.
func (e *Expander) Table() map[string]string {
	if e == nil {
		return nil
	}
	out := make(map[string]string, len(e.entries))
	for _, a := range e.entries {
		out[a.short] = a.long
	}
	return out
}
