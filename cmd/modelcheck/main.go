// Command modelcheck sends a one-line request to every configured candidate
// model and reports which ones answer, so fallback lists can be tuned
// before the API is started.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"stockprompt/internal/infra"
	"stockprompt/internal/pipeline"
	"stockprompt/internal/providers/genai"
)

func main() {
	var (
		providerFlag string
		timeoutFlag  time.Duration
	)
	flag.StringVar(&providerFlag, "provider", "", "override GENAI_PROVIDER (gemini or openai)")
	flag.DurationVar(&timeoutFlag, "timeout", 30*time.Second, "per-model request timeout")
	flag.Parse()

	_ = godotenv.Load()
	if p := strings.TrimSpace(providerFlag); p != "" {
		_ = os.Setenv("GENAI_PROVIDER", p)
	}
	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	if err := cfg.RequireGenAI(); err != nil {
		exitWithError(err)
	}
	logger := infra.NewCLILogger(false).With().Str("cmd", "modelcheck").Str("provider", cfg.GenAIProvider).Logger()

	httpClient := &http.Client{Timeout: timeoutFlag}
	var gen genai.Generator
	switch cfg.GenAIProvider {
	case infra.ProviderOpenAI:
		gen, err = genai.NewOpenAIClient(genai.OpenAIOptions{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, Organization: cfg.OpenAIOrg, HTTPClient: httpClient, Logger: &logger})
	default:
		gen, err = genai.NewGeminiClient(genai.GeminiOptions{APIKey: cfg.GeminiAPIKey, BaseURL: cfg.GeminiBaseURL, HTTPClient: httpClient, Logger: &logger})
	}
	if err != nil {
		exitWithError(err)
	}

	models := mergeModels(cfg.TextModels, cfg.VisionModels)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tSTATUS\tLATENCY\tDETAIL")
	failed := 0
	for _, model := range models {
		ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
		start := time.Now()
		_, err := gen.Generate(ctx, model, genai.Request{Parts: []genai.Part{genai.TextPart("Reply with the single word: ok")}, Temperature: 0})
		cancel()
		status, detail := classify(err)
		if err != nil {
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", model, status, time.Since(start).Round(time.Millisecond), detail)
	}
	_ = tw.Flush()
	if failed == len(models) {
		os.Exit(1)
	}
}

// classify labels a probe result the way the invoker would treat it.
func classify(err error) (string, string) {
	var coded genai.StatusCoder
	switch {
	case err == nil:
		return "ok", ""
	case pipeline.IsRetryable(err):
		return "transient", err.Error()
	case errors.As(err, &coded):
		return fmt.Sprintf("http %d", coded.HTTPStatus()), err.Error()
	default:
		return "failed", err.Error()
	}
}

func mergeModels(lists ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, list := range lists {
		for _, m := range list {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "modelcheck: %v\n", err)
	os.Exit(1)
}
