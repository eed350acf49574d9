package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"maamar-search/internal/config"
)

func main() {
	config.LoadDotEnv()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "maamar",
		Usage: "Search, import and index a maamar corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			searchCommand(),
			importCommand(),
			exportCommand(),
			indexCommand(),
		},
	}
}

func corpusFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "corpus",
		Aliases:  []string{"c"},
		Usage:    "Corpus file (.json, .json.gz or .db)",
		EnvVars:  []string{"CORPUS_PATH"},
		Required: required,
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
