package corpus

import "errors"

// ErrInvalidCorpus is returned when corpus data cannot be interpreted.
var ErrInvalidCorpus = errors.New("invalid corpus")

// Record is one maamar as produced by the corpus build.
type Record struct {
	Key                   string    `json:"key,omitempty"`
	Name                  string    `json:"name"`
	Year                  string    `json:"year,omitempty"`
	Filename              string    `json:"filename,omitempty"`
	Text                  string    `json:"text"`
	KeywordsAll           []string  `json:"keywords_all,omitempty"`
	KeywordsAllNormalized []string  `json:"keywords_all_normalized,omitempty"`
	Embedding             []float32 `json:"embedding,omitempty"`
}

// Meta carries the corpus-wide lookup tables.
type Meta struct {
	Abbreviations  map[string]string   `json:"abbreviations,omitempty"`
	KeywordAliases map[string][]string `json:"keyword_aliases,omitempty"`
}

// AliasTable maps a canonical keyword to all of its written forms.
type AliasTable map[string][]string

// Aliases returns the alias set for keyword. A keyword without an entry is
// its own only alias.
func (t AliasTable) Aliases(keyword string) []string {
	if aliases := t[keyword]; len(aliases) > 0 {
		return aliases
	}
	return []string{keyword}
}
