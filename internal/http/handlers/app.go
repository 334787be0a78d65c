package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"stockprompt/internal/domain"
	"stockprompt/internal/pipeline"
	"stockprompt/internal/stock"
	"stockprompt/internal/storage"
)

const maxBodyBytes = 4 << 20

// Searcher runs a marketplace search.
type Searcher interface {
	Search(ctx context.Context, q stock.Query) (domain.SearchResult, error)
}

// Analyst expands keywords and summarizes a result set.
type Analyst interface {
	ExpandKeywords(ctx context.Context, seed string, n int) ([]string, error)
	AnalyzeMarket(ctx context.Context, query string, assets []domain.Asset) (domain.MarketAnalysis, error)
}

// Synthesizer produces deduplicated prompts in batches.
type Synthesizer interface {
	Synthesize(ctx context.Context, req pipeline.SynthesisRequest) ([]domain.ImagePrompt, error)
}

// Cloner reverse-engineers prompts from source images.
type Cloner interface {
	Clone(ctx context.Context, sources []domain.AssetRef) domain.CloningSummary
}

type App struct {
	Searcher    Searcher
	Analyst     Analyst
	Synthesizer Synthesizer
	Cloner      Cloner
	History     storage.HistoryStore
	Directives  []pipeline.Directive
	BatchCount  int
	Logger      zerolog.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

// log prefers the request-scoped logger installed by middleware.RequestID.
func (a *App) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

// fail maps pipeline and upstream errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		genErr    *pipeline.GenerationError
		statusErr *stock.StatusError
	)
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, context.Canceled):
		a.log(r).Info().Msg("request cancelled by client")
		a.error(w, http.StatusServiceUnavailable, "cancelled", "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		a.error(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	case errors.As(err, &genErr):
		a.log(r).Warn().Err(err).Str("kind", string(genErr.Kind)).Int("attempts", len(genErr.Attempts)).Msg("generation failed")
		a.error(w, http.StatusBadGateway, "generation_failed", err.Error())
	case errors.Is(err, stock.ErrPayloadTooLarge):
		a.log(r).Warn().Err(err).Msg("stock upstream payload too large")
		a.error(w, http.StatusBadGateway, "upstream_error", "stock search response too large")
	case errors.As(err, &statusErr):
		a.log(r).Warn().Err(err).Msg("stock upstream failed")
		a.error(w, http.StatusBadGateway, "upstream_error", fmt.Sprintf("stock search returned status %d", statusErr.StatusCode))
	default:
		a.log(r).Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// record saves a generation result. A history failure is logged and never
// fails the request that produced the result.
func (a *App) record(r *http.Request, kind, query string, count int, payload any) string {
	if a.History == nil {
		return ""
	}
	rec, err := storage.NewRecord(kind, query, count, payload)
	if err == nil {
		rec, err = a.History.Save(r.Context(), rec)
	}
	if err != nil {
		a.log(r).Warn().Err(err).Str("kind", kind).Msg("history save failed")
		return ""
	}
	return rec.ID
}
