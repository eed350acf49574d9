package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"maamar-search/internal/corpus"
)

// ErrEmpty is returned by Load when the database holds no records.
var ErrEmpty = errors.New("corpus database is empty")

// RecordRepo persists a corpus snapshot in SQLite.
type RecordRepo struct {
	db *sql.DB
}

// NewRecordRepo creates a new RecordRepo.
func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// Save replaces the stored corpus with c in a single transaction.
func (r *RecordRepo) Save(ctx context.Context, c *corpus.Corpus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{"records", "abbreviations", "keyword_aliases"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, rec := range c.Records() {
		keywords, err := json.Marshal(nonNil(rec.KeywordsAll))
		if err != nil {
			return fmt.Errorf("failed to encode keywords for %q: %w", rec.Key, err)
		}
		normalized, err := json.Marshal(nonNil(rec.KeywordsAllNormalized))
		if err != nil {
			return fmt.Errorf("failed to encode normalized keywords for %q: %w", rec.Key, err)
		}
		var embedding sql.NullString
		if len(rec.Embedding) > 0 {
			b, err := json.Marshal(rec.Embedding)
			if err != nil {
				return fmt.Errorf("failed to encode embedding for %q: %w", rec.Key, err)
			}
			embedding = sql.NullString{String: string(b), Valid: true}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO records (key, name, year, filename, text, keywords_all, keywords_all_normalized, embedding)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.Key, rec.Name, rec.Year, rec.Filename, rec.Text, string(keywords), string(normalized), embedding,
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %q: %w", rec.Key, err)
		}
	}

	meta := c.Meta()
	for abbr, expansion := range meta.Abbreviations {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO abbreviations (abbreviation, expansion) VALUES (?, ?)", abbr, expansion,
		); err != nil {
			return fmt.Errorf("failed to insert abbreviation: %w", err)
		}
	}
	for keyword, aliases := range meta.KeywordAliases {
		for i, alias := range aliases {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO keyword_aliases (keyword, position, alias) VALUES (?, ?, ?)", keyword, i, alias,
			); err != nil {
				return fmt.Errorf("failed to insert keyword alias: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit corpus: %w", err)
	}
	return nil
}

// Load reads the stored corpus. Returns ErrEmpty if no records are stored.
func (r *RecordRepo) Load(ctx context.Context) (*corpus.Corpus, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, name, year, filename, text, keywords_all, keywords_all_normalized, embedding
		 FROM records ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []corpus.Record
	for rows.Next() {
		var rec corpus.Record
		var keywords, normalized string
		var embedding sql.NullString
		if err := rows.Scan(&rec.Key, &rec.Name, &rec.Year, &rec.Filename, &rec.Text, &keywords, &normalized, &embedding); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if err := json.Unmarshal([]byte(keywords), &rec.KeywordsAll); err != nil {
			return nil, fmt.Errorf("%w: keywords of %q: %v", corpus.ErrInvalidCorpus, rec.Key, err)
		}
		if err := json.Unmarshal([]byte(normalized), &rec.KeywordsAllNormalized); err != nil {
			return nil, fmt.Errorf("%w: normalized keywords of %q: %v", corpus.ErrInvalidCorpus, rec.Key, err)
		}
		if embedding.Valid && embedding.String != "" {
			if err := json.Unmarshal([]byte(embedding.String), &rec.Embedding); err != nil {
				return nil, fmt.Errorf("%w: embedding of %q: %v", corpus.ErrInvalidCorpus, rec.Key, err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	meta, err := r.loadMeta(ctx)
	if err != nil {
		return nil, err
	}
	return corpus.New(records, meta)
}

func (r *RecordRepo) loadMeta(ctx context.Context) (corpus.Meta, error) {
	meta := corpus.Meta{
		Abbreviations:  map[string]string{},
		KeywordAliases: map[string][]string{},
	}

	rows, err := r.db.QueryContext(ctx, "SELECT abbreviation, expansion FROM abbreviations")
	if err != nil {
		return meta, fmt.Errorf("failed to query abbreviations: %w", err)
	}
	for rows.Next() {
		var abbr, expansion string
		if err := rows.Scan(&abbr, &expansion); err != nil {
			_ = rows.Close()
			return meta, fmt.Errorf("failed to scan abbreviation: %w", err)
		}
		meta.Abbreviations[abbr] = expansion
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return meta, fmt.Errorf("failed to iterate abbreviations: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, "SELECT keyword, alias FROM keyword_aliases ORDER BY keyword, position")
	if err != nil {
		return meta, fmt.Errorf("failed to query keyword aliases: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var keyword, alias string
		if err := rows.Scan(&keyword, &alias); err != nil {
			return meta, fmt.Errorf("failed to scan keyword alias: %w", err)
		}
		meta.KeywordAliases[keyword] = append(meta.KeywordAliases[keyword], alias)
	}
	return meta, rows.Err()
}

// Count returns the number of stored records.
func (r *RecordRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
