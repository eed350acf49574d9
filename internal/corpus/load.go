package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const metaKey = "__meta__"

// LoadFile reads a corpus from a .json or .json.gz file.
func LoadFile(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer func() {
			_ = gz.Close()
		}()
		r = gz
	}

	return Decode(r)
}

// Decode reads the corpus JSON document: an object mapping record key to
// record, with corpus-wide tables under "__meta__".
func Decode(r io.Reader) (*Corpus, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCorpus, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: document is null", ErrInvalidCorpus)
	}

	var meta Meta
	if m, ok := raw[metaKey]; ok {
		if err := json.Unmarshal(m, &meta); err != nil {
			return nil, fmt.Errorf("%w: bad %s: %v", ErrInvalidCorpus, metaKey, err)
		}
		delete(raw, metaKey)
	}

	records := make([]Record, 0, len(raw))
	for key, body := range raw {
		var rec Record
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("%w: record %q: %v", ErrInvalidCorpus, key, err)
		}
		rec.Key = key
		records = append(records, rec)
	}

	return New(records, meta)
}

// Encode writes c in the format Decode reads.
func Encode(w io.Writer, c *Corpus) error {
	doc := make(map[string]any, c.Len()+1)
	for _, rec := range c.Records() {
		key := rec.Key
		rec.Key = ""
		doc[key] = rec
	}
	doc[metaKey] = c.Meta()
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}
