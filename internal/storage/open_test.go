package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"maamar-search/internal/corpus"
)

func TestImportOpenCorpus(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "corpus.db")

	if err := ImportCorpus(ctx, path, testCorpus(t)); err != nil {
		t.Fatalf("ImportCorpus() error = %v", err)
	}

	c, err := OpenCorpus(ctx, path)
	if err != nil {
		t.Fatalf("OpenCorpus() error = %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("OpenCorpus() records = %d, want 2", c.Len())
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("OpenCorpus() lost record b")
	}
}

func TestOpenCorpus_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := corpus.Encode(f, testCorpus(t)); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	_ = f.Close()

	c, err := OpenCorpus(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenCorpus() error = %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("OpenCorpus() records = %d, want 2", c.Len())
	}
}

func TestOpenCorpus_EmptyDatabase(t *testing.T) {
	_, err := OpenCorpus(context.Background(), filepath.Join(t.TempDir(), "empty.db"))
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("OpenCorpus() error = %v, want ErrEmpty", err)
	}
}
