package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"maamar-search/internal/keywords"
	"maamar-search/internal/llm"
	"maamar-search/internal/search"
	"maamar-search/internal/service"
	"maamar-search/internal/storage"
)

const (
	modeAuto       = "auto"
	modeExact      = "exact"
	modeMarehMakom = "marehmakom"
	modeFuzzy      = "fuzzy"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Rank corpus records for a title, year and question",
		ArgsUsage: "[title words...]",
		Action:    runSearch,
		Flags: []cli.Flag{
			corpusFlag(true),
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Title matching mode (auto, exact, marehmakom, fuzzy)",
				Value: modeAuto,
			},
			&cli.StringFlag{Name: "raw", Usage: `Free text "[title] [משנת] [year] [question]"`},
			&cli.StringFlag{Name: "year", Aliases: []string{"y"}, Usage: "Hebrew year filter"},
			&cli.StringFlag{Name: "question", Aliases: []string{"q"}, Usage: "Question for keyword reranking"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of results", Value: 5},
			&cli.IntFlag{Name: "min-score", Usage: "Drop results scoring below this"},
			&cli.BoolFlag{Name: "strict", Usage: "Fail when keyword extraction is unavailable"},
			&cli.BoolFlag{
				Name:    "keywords",
				Usage:   "Use the LLM for keyword extraction",
				Value:   true,
				EnvVars: []string{"KEYWORD_EXTRACTION_ENABLED"},
			},
			&cli.StringFlag{Name: "llm-url", Value: "https://api.groq.com/openai/v1", EnvVars: []string{"LLM_BASE_URL"}},
			&cli.StringFlag{Name: "llm-key", EnvVars: []string{"GROQ_API_KEY", "LLM_API_KEY"}},
			&cli.StringFlag{Name: "llm-model", Value: "moonshotai/kimi-k2-instruct-0905", EnvVars: []string{"LLM_MODEL"}},
			&cli.BoolFlag{Name: "json", Usage: "Print results as JSON"},
		},
	}
}

func runSearch(c *cli.Context) error {
	ctx := c.Context

	mode := strings.ToLower(c.String("mode"))
	switch mode {
	case modeAuto, modeExact, modeMarehMakom, modeFuzzy:
	default:
		return fmt.Errorf("invalid mode %q: must be one of auto, exact, marehmakom, fuzzy", mode)
	}

	corp, err := storage.OpenCorpus(ctx, c.String("corpus"))
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	var chat keywords.Chatter
	if key := c.String("llm-key"); key != "" {
		chat = llm.NewClient(c.String("llm-url"), key, c.String("llm-model"), keywords.DefaultTimeout)
	}
	searcher := search.NewSearcher(corp, search.WithExtractor(
		keywords.NewExtractor(chat, keywords.WithEnabled(c.Bool("keywords"))),
	))

	title := strings.Join(c.Args().Slice(), " ")
	var results []search.Result
	if mode == modeAuto {
		req := service.SearchRequest{
			Title:    title,
			Question: c.String("question"),
			Year:     c.String("year"),
			Raw:      c.String("raw"),
			TopN:     c.Int("limit"),
			MinScore: c.Int("min-score"),
			Strict:   c.Bool("strict"),
		}
		resp, err := service.NewSearchService(searcher, nil).Search(ctx, req, service.Conversation{})
		if err != nil {
			return err
		}
		return printResults(c.App.Writer, resp, c.Bool("json"))
	}

	if raw := c.String("raw"); raw != "" && title == "" {
		title = search.ParseInput(raw).Title
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("mode %s needs a title", mode)
	}
	switch mode {
	case modeExact:
		results = searcher.MatchExact(title, c.Int("limit"))
	case modeMarehMakom:
		results = searcher.MatchMarehMakom(title, c.Int("limit"))
	case modeFuzzy:
		results = searcher.MatchFuzzy(title, c.Int("limit"))
	}
	return printResults(c.App.Writer, service.NewResponse(results), c.Bool("json"))
}

func printResults(w io.Writer, resp service.SearchResponse, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if resp.Count == 0 {
		_, err := fmt.Fprintln(w, service.NoResultsMessage)
		return err
	}
	for i, item := range resp.Results {
		if _, err := fmt.Fprintf(w, "%d. [%d] %s", i+1, item.Score, item.Name); err != nil {
			return err
		}
		if item.Year != "" {
			fmt.Fprintf(w, " (%s)", item.Year)
		}
		if len(item.MatchedKeywords) > 0 {
			fmt.Fprintf(w, " keywords: %s", strings.Join(item.MatchedKeywords, ", "))
		}
		fmt.Fprintln(w)
		if item.TextPreview != "" {
			fmt.Fprintf(w, "   %s\n", item.TextPreview)
		}
	}
	return nil
}
