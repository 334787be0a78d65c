package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"stockprompt/internal/extract"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var defaultModels = map[string][]string{
	ProviderGemini: {"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-flash"},
	ProviderOpenAI: {"gpt-4o-mini", "gpt-4o"},
}

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	LogLevel         string
	Port             string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string

	StockBaseURL   string
	StockCookies   string
	StockUserAgent string
	StockRSCToken  string

	ExtractMarkers     []string
	ExtractPushMarker  string
	ExtractSignals     []string
	ExtractFallbackKey string

	GenAIProvider string
	GeminiAPIKey  string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIOrg     string
	TextModels    []string
	VisionModels  []string

	SynthBatchCount     int
	SynthAvoidWindow    int
	SynthFingerprintLen int
	SynthTemperature    float64
	StyleDirectivesPath string

	CloneMaxAttempts int
	CloneRetryDelay  time.Duration
	CloneItemDelay   time.Duration

	StoragePath string
	DatabaseURL string
	DBMaxConns  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	provider := strings.ToLower(getEnv("GENAI_PROVIDER", ProviderGemini))
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		Port:             getEnv("PORT", "8080"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:      getEnvList("CORS_ALLOWED_ORIGINS", ",", []string{"*"}),

		StockBaseURL:   getEnv("STOCK_BASE_URL", "https://trackadobestock.com"),
		StockCookies:   os.Getenv("STOCK_COOKIES"),
		StockUserAgent: os.Getenv("STOCK_USER_AGENT"),
		StockRSCToken:  os.Getenv("STOCK_RSC_TOKEN"),

		ExtractMarkers:     getEnvList("EXTRACT_MARKERS", "|", []string{extract.DefaultMarker}),
		ExtractPushMarker:  getEnv("EXTRACT_PUSH_MARKER", extract.DefaultPushMarker),
		ExtractSignals:     getEnvList("EXTRACT_SIGNALS", "|", []string{`"images"`, `"query"`}),
		ExtractFallbackKey: getEnv("EXTRACT_FALLBACK_KEY", extract.DefaultFallbackKey),

		GenAIProvider: provider,
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:     os.Getenv("OPENAI_ORG"),
		TextModels:    getEnvList("TEXT_MODELS", ",", defaultModels[provider]),
		VisionModels:  getEnvList("VISION_MODELS", ",", defaultModels[provider]),

		SynthBatchCount:     getEnvInt("SYNTH_BATCH_COUNT", 5),
		SynthAvoidWindow:    getEnvInt("SYNTH_AVOID_WINDOW", 40),
		SynthFingerprintLen: getEnvInt("SYNTH_FINGERPRINT_LEN", 20),
		SynthTemperature:    getEnvFloat("SYNTH_TEMPERATURE", 0.9),
		StyleDirectivesPath: os.Getenv("STYLE_DIRECTIVES_PATH"),

		CloneMaxAttempts: getEnvInt("CLONE_MAX_ATTEMPTS", 3),
		CloneRetryDelay:  time.Millisecond * time.Duration(getEnvInt("CLONE_RETRY_DELAY_MS", 1500)),
		CloneItemDelay:   time.Millisecond * time.Duration(getEnvInt("CLONE_ITEM_DELAY_MS", 500)),

		StoragePath: getEnv("STORAGE_PATH", "./data"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 5),
	}

	if _, ok := defaultModels[cfg.GenAIProvider]; !ok {
		return nil, fmt.Errorf("GENAI_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, cfg.GenAIProvider)
	}
	if cfg.CloneMaxAttempts < 1 {
		return nil, fmt.Errorf("CLONE_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.CloneRetryDelay < 0 || cfg.CloneItemDelay < 0 {
		return nil, fmt.Errorf("clone delays must not be negative")
	}
	if cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be at least 1")
	}
	if cfg.SynthBatchCount < 1 {
		return nil, fmt.Errorf("SYNTH_BATCH_COUNT must be at least 1")
	}

	return cfg, nil
}

// GenAIAPIKey returns the key for the configured provider.
func (c *Config) GenAIAPIKey() string {
	if c.GenAIProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// RequireGenAI fails when the selected provider has no API key.
func (c *Config) RequireGenAI() error {
	if strings.TrimSpace(c.GenAIAPIKey()) == "" {
		return fmt.Errorf("%s_API_KEY is required when GENAI_PROVIDER=%s", strings.ToUpper(c.GenAIProvider), c.GenAIProvider)
	}
	if len(c.TextModels) == 0 || len(c.VisionModels) == 0 {
		return fmt.Errorf("TEXT_MODELS and VISION_MODELS must not be empty")
	}
	return nil
}

// ExtractConfig returns the payload marker settings.
func (c *Config) ExtractConfig() extract.Config {
	return extract.Config{
		Markers:     c.ExtractMarkers,
		PushMarker:  c.ExtractPushMarker,
		Signals:     c.ExtractSignals,
		FallbackKey: c.ExtractFallbackKey,
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvList splits a variable on sep, trimming entries and dropping blanks.
func getEnvList(key, sep string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(v, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
