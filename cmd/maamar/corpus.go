package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"maamar-search/internal/corpus"
	"maamar-search/internal/storage"
)

func importCommand() *cli.Command {
	return &cli.Command{
		Name:   "import",
		Usage:  "Store a JSON corpus in a SQLite database, replacing its contents",
		Action: runImport,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "Source .json or .json.gz corpus", Required: true},
			&cli.StringFlag{Name: "db", Aliases: []string{"d"}, Usage: "Target SQLite database", Required: true},
		},
	}
}

func runImport(c *cli.Context) error {
	corp, err := corpus.LoadFile(c.String("from"))
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	if err := storage.ImportCorpus(c.Context, c.String("db"), corp); err != nil {
		return fmt.Errorf("failed to import corpus: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Imported %d records into %s\n", corp.Len(), c.String("db"))
	return nil
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:   "export",
		Usage:  "Write a stored corpus back out as JSON",
		Action: runExport,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Aliases: []string{"d"}, Usage: "Source SQLite database", Required: true},
			&cli.StringFlag{Name: "to", Usage: "Target JSON file; stdout when empty"},
		},
	}
}

func runExport(c *cli.Context) error {
	corp, err := storage.OpenCorpus(c.Context, c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	path := c.String("to")
	if path == "" {
		return corpus.Encode(c.App.Writer, corp)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := corpus.Encode(f, corp); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write corpus: %w", err)
	}
	return f.Close()
}
