package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"stockprompt/internal/http/handlers"
	httpapi "stockprompt/internal/http/httpapi"
	"stockprompt/internal/infra"
	"stockprompt/internal/pipeline"
	"stockprompt/internal/providers/genai"
	"stockprompt/internal/stock"
	"stockprompt/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if err := cfg.RequireGenAI(); err != nil {
		logger.Fatal().Err(err).Msg("generation provider not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, err := newGenerator(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create generation client")
	}
	textInvoker := pipeline.NewInvokerFromList(gen, cfg.TextModels, pipeline.WithInvokerLogger(logger.With().Str("invoker", "text").Logger()))
	visionInvoker := pipeline.NewInvokerFromList(gen, cfg.VisionModels, pipeline.WithInvokerLogger(logger.With().Str("invoker", "vision").Logger()))

	stockClient := stock.NewClient(stock.ClientOptions{
		BaseURL:   cfg.StockBaseURL,
		Cookies:   cfg.StockCookies,
		UserAgent: cfg.StockUserAgent,
		RSCToken:  cfg.StockRSCToken,
	})
	directives, err := pipeline.LoadDirectives(cfg.StyleDirectivesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load style directives")
	}

	history, closeHistory, err := newHistory(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open history store")
	}
	defer closeHistory()

	cloneOpts := pipeline.ClonerOptions{
		MaxAttempts: cfg.CloneMaxAttempts,
		RetryDelay:  cfg.CloneRetryDelay,
		ItemDelay:   cfg.CloneItemDelay,
		Logger:      &logger,
	}
	app := &handlers.App{
		Searcher: stock.NewSearcher(stockClient, cfg.ExtractConfig(), &logger),
		Analyst:  pipeline.NewAnalyst(textInvoker, &logger),
		Synthesizer: pipeline.NewSynthesizer(textInvoker, pipeline.SynthesizerOptions{
			AvoidWindow:    cfg.SynthAvoidWindow,
			FingerprintLen: cfg.SynthFingerprintLen,
			Temperature:    float32(cfg.SynthTemperature),
			Logger:         &logger,
		}),
		Cloner:     pipeline.NewCloner(stock.NewHTTPImageFetcher(nil), visionInvoker, cloneOpts),
		History:    history,
		Directives: directives,
		BatchCount: cfg.SynthBatchCount,
		Logger:     logger,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Logger:          logger,
	})
	server := infra.NewHTTPServer(cfg, router, logger)

	logger.Info().
		Str("provider", cfg.GenAIProvider).
		Strs("text_models", textInvoker.Candidates()).
		Strs("vision_models", visionInvoker.Candidates()).
		Int("directives", len(directives)).
		Msg("api starting")
	if err := server.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}

func newGenerator(cfg *infra.Config, logger *zerolog.Logger) (genai.Generator, error) {
	httpClient := &http.Client{Timeout: 2 * time.Minute}
	if cfg.GenAIProvider == infra.ProviderOpenAI {
		return genai.NewOpenAIClient(genai.OpenAIOptions{
			APIKey:       cfg.OpenAIAPIKey,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
			HTTPClient:   httpClient,
			Logger:       logger,
		})
	}
	return genai.NewGeminiClient(genai.GeminiOptions{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		HTTPClient: httpClient,
		Logger:     logger,
	})
}

// newHistory uses Postgres when DATABASE_URL is set and the file store
// otherwise.
func newHistory(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (storage.HistoryStore, func(), error) {
	if cfg.DatabaseURL == "" {
		store, err := storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("path", store.BasePath()).Msg("history: file store")
		return storage.NewFileHistory(store), func() {}, nil
	}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	history := storage.NewPGHistory(infra.NewSQLRunner(pool, logger.With().Str("component", "sql").Logger()))
	if err := history.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info().Msg("history: postgres store")
	return history, pool.Close, nil
}
