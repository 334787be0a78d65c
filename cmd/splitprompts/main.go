package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stockprompt/internal/infra"
	"stockprompt/internal/storage"
	"stockprompt/pkg/zip"
)

func main() {
	var (
		outFlag    string
		prefixFlag string
		zipFlag    bool
	)
	flag.StringVar(&outFlag, "out", "", "output directory (created if missing)")
	flag.StringVar(&prefixFlag, "prefix", "valentines", "file name prefix, files are <prefix>-prompt-<NN>.json")
	flag.BoolVar(&zipFlag, "zip", false, "write a single <prefix>-prompts.zip instead of loose files")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: splitprompts -out DIR [-prefix NAME] [-zip] source.json\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	source := flag.Arg(0)
	outDir := strings.TrimSpace(outFlag)
	if outDir == "" {
		exitWithError(errors.New("-out is required"))
	}

	logger := infra.NewCLILogger(false).With().Str("cmd", "splitprompts").Logger()

	data, err := os.ReadFile(source)
	if err != nil {
		exitWithError(fmt.Errorf("read source: %w", err))
	}
	store, err := storage.NewFileStore(outDir)
	if err != nil {
		exitWithError(err)
	}
	ctx := context.Background()

	if zipFlag {
		files, skipped, err := storage.PromptFiles(prefixFlag, data)
		if err != nil {
			exitWithError(err)
		}
		warnSkipped(logger, skipped)
		entries := make([]zip.Entry, 0, len(files))
		for _, f := range files {
			entries = append(entries, zip.Entry{Name: f.Name, Data: f.Data})
		}
		archive, err := zip.Archive(entries, time.Now())
		if err != nil {
			exitWithError(err)
		}
		key, err := store.Write(ctx, strings.TrimSpace(prefixFlag)+"-prompts.zip", archive)
		if err != nil {
			exitWithError(err)
		}
		fmt.Printf("Wrote %d prompts to %s\n", len(entries), filepath.Join(store.BasePath(), key))
		return
	}

	res, err := storage.SplitPrompts(ctx, store, prefixFlag, data)
	if err != nil {
		exitWithError(err)
	}
	warnSkipped(logger, res.Skipped)
	fmt.Printf("Wrote %d files to %s\n", len(res.Keys), store.BasePath())
}

func warnSkipped(logger zerolog.Logger, skipped []int) {
	for _, idx := range skipped {
		logger.Warn().Int("index", idx).Msg("skipping non-object element")
	}
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "splitprompts: %v\n", err)
	os.Exit(1)
}
