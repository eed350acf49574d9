package storage

import (
	"context"
	"fmt"
	"strings"

	"maamar-search/internal/corpus"
)

// OpenCorpus loads a corpus from a SQLite .db file or a .json / .json.gz file.
func OpenCorpus(ctx context.Context, path string) (*corpus.Corpus, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".db") {
		return corpus.LoadFile(path)
	}

	db, err := New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return NewRecordRepo(db).Load(ctx)
}

// ImportCorpus replaces the contents of the SQLite database at path with c.
func ImportCorpus(ctx context.Context, path string, c *corpus.Corpus) error {
	db, err := New(path)
	if err != nil {
		return fmt.Errorf("failed to open corpus database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return NewRecordRepo(db).Save(ctx, c)
}
