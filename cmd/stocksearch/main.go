package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"stockprompt/internal/extract"
	"stockprompt/internal/infra"
	"stockprompt/internal/stock"
)

func main() {
	var (
		pageFlag    int
		aiOnlyFlag  bool
		rawFlag     bool
		verboseFlag bool
	)
	flag.IntVar(&pageFlag, "page", 1, "result page to fetch")
	flag.BoolVar(&aiOnlyFlag, "ai-only", false, "prefer AI-generated assets")
	flag.BoolVar(&rawFlag, "raw", false, "dump the first raw image object and the top-level keys")
	flag.BoolVar(&verboseFlag, "v", false, "debug logging on stderr")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: stocksearch [--page N] [--ai-only] [--raw] query\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		flag.Usage()
		os.Exit(2)
	}
	if pageFlag < 1 {
		exitWithError(errors.New("--page must be at least 1"))
	}

	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewCLILogger(verboseFlag).With().Str("cmd", "stocksearch").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := stock.NewClient(stock.ClientOptions{
		BaseURL:   cfg.StockBaseURL,
		Cookies:   cfg.StockCookies,
		UserAgent: cfg.StockUserAgent,
		RSCToken:  cfg.StockRSCToken,
	})
	searcher := stock.NewSearcher(client, cfg.ExtractConfig(), &logger)
	q := stock.Query{Text: query, Page: pageFlag, AIOnly: aiOnlyFlag}

	fmt.Printf("Searching for: %s (Page %d)...\n", query, pageFlag)
	if rawFlag {
		doc, err := searcher.Document(ctx, q)
		switch {
		case errors.Is(err, extract.ErrNotFound), errors.Is(err, extract.ErrMalformed):
			fmt.Println("Could not find image data in the response.")
			os.Exit(1)
		case err != nil:
			exitWithError(err)
		}
		if err := writeRaw(os.Stdout, doc); err != nil {
			exitWithError(err)
		}
		return
	}

	res, err := searcher.Search(ctx, q)
	if err != nil {
		exitWithError(err)
	}
	if len(res.Assets) == 0 {
		fmt.Println("No results.")
		return
	}
	writeResult(os.Stdout, res)
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "stocksearch: %v\n", err)
	os.Exit(1)
}
