// Package corpus holds the read-only maamar collection searched per query.
package corpus

import (
	"fmt"
	"sort"
	"strings"

	"maamar-search/internal/normalize"
)

// Entry is a Record together with the normal forms every query needs.
// Entries are built once by New and never modified afterwards.
type Entry struct {
	Record *Record

	// NameBase is the name at normalize.Base, used by exact matching.
	NameBase string
	// NameWords is the abbreviation-expanded name at normalize.Heh as a set.
	NameWords map[string]struct{}
	// NameLevels holds the expanded name words at Base, Vav and Yod.
	NameLevels [3][]string

	// Keywords is KeywordsAll at normalize.Heh, parallel to Record.KeywordsAll.
	Keywords []string
	// KeywordTokens maps each word of Keywords to the first curated keyword containing it.
	KeywordTokens map[string]string

	// Text is the body at normalize.Heh.
	Text string

	// Year is the record year, or the year token found in the name.
	Year string
	// YearKey is Year passed through normalize.Year.
	YearKey string
}

// HasName reports whether the entry takes part in title matching.
func (e *Entry) HasName() bool {
	return strings.TrimSpace(e.Record.Name) != ""
}

// Corpus is an ordered, immutable set of entries plus lookup tables.
type Corpus struct {
	entries  []*Entry
	byKey    map[string]*Entry
	aliases  AliasTable
	expander *normalize.Expander
}

// New indexes records. Records are ordered by key so iteration is
// deterministic regardless of the source format.
func New(records []Record, meta Meta) (*Corpus, error) {
	c := &Corpus{
		byKey:    make(map[string]*Entry, len(records)),
		aliases:  AliasTable(meta.KeywordAliases),
		expander: normalize.NewExpander(meta.Abbreviations),
	}
	if c.aliases == nil {
		c.aliases = AliasTable{}
	}

	for i := range records {
		r := records[i]
		if r.Key == "" {
			return nil, fmt.Errorf("%w: record %d has no key", ErrInvalidCorpus, i)
		}
		if _, dup := c.byKey[r.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidCorpus, r.Key)
		}
		e := c.index(&r)
		c.entries = append(c.entries, e)
		c.byKey[r.Key] = e
	}

	sort.Slice(c.entries, func(i, j int) bool {
		return c.entries[i].Record.Key < c.entries[j].Record.Key
	})
	return c, nil
}

func (c *Corpus) index(r *Record) *Entry {
	e := &Entry{
		Record:        r,
		NameWords:     map[string]struct{}{},
		KeywordTokens: map[string]string{},
	}

	if r.Name != "" {
		e.NameBase = normalize.Normalize(r.Name, normalize.Base)
		expanded := c.expander.Expand(r.Name)
		for _, w := range normalize.Words(expanded, normalize.Heh) {
			e.NameWords[w] = struct{}{}
		}
		for l := normalize.Base; l <= normalize.Yod; l++ {
			e.NameLevels[l] = normalize.Words(expanded, l)
		}
	}

	// Precomputed forms are trusted only when they line up with the originals.
	precomputed := len(r.KeywordsAllNormalized) == len(r.KeywordsAll)
	e.Keywords = make([]string, len(r.KeywordsAll))
	for i, kw := range r.KeywordsAll {
		if precomputed {
			e.Keywords[i] = strings.TrimSpace(r.KeywordsAllNormalized[i])
		} else {
			e.Keywords[i] = normalize.Normalize(kw, normalize.Heh)
		}
		for _, tok := range strings.Fields(e.Keywords[i]) {
			if _, ok := e.KeywordTokens[tok]; !ok {
				e.KeywordTokens[tok] = kw
			}
		}
	}

	e.Text = normalize.Normalize(r.Text, normalize.Heh)

	e.Year = r.Year
	if e.Year == "" {
		e.Year = normalize.FindYear(r.Name)
	}
	e.YearKey = normalize.Year(e.Year)
	return e
}

// Entries returns every entry in key order. Callers must not modify them.
func (c *Corpus) Entries() []*Entry {
	return c.entries
}

// Get looks an entry up by record key.
func (c *Corpus) Get(key string) (*Entry, bool) {
	e, ok := c.byKey[key]
	return e, ok
}

// Len returns the number of records.
func (c *Corpus) Len() int {
	return len(c.entries)
}

// Aliases returns the keyword alias table.
func (c *Corpus) Aliases() AliasTable {
	return c.aliases
}

// Expander returns the abbreviation expander built from the corpus meta.
func (c *Corpus) Expander() *normalize.Expander {
	return c.expander
}

// Records returns copies of the records in key order.
func (c *Corpus) Records() []Record {
	out := make([]Record, len(c.entries))
	for i, e := range c.entries {
		out[i] = *e.Record
	}
	return out
}

// Meta returns the lookup tables the corpus was built with.
func (c *Corpus) Meta() Meta {
	return Meta{
		Abbreviations:  c.expander.Table(),
		KeywordAliases: c.aliases,
	}
}
