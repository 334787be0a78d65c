package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"stockprompt/internal/http/handlers"
	"stockprompt/internal/middleware"
)

// Options configures cross-cutting middleware.
type Options struct {
	AllowedOrigins  []string
	RateLimitPerMin int
	Logger          zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, middleware.RequestID(opts.Logger), middleware.Logger(opts.Logger), chimw.Recoverer)
	r.Use(middleware.CORS(opts.AllowedOrigins))

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/search", app.Search)

	// Generation routes call paid model APIs.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		r.Post("/v1/keywords/expand", app.ExpandKeywords)
		r.Post("/v1/market/analyze", app.AnalyzeMarket)
		r.Post("/v1/prompts/synthesize", app.Synthesize)
		r.Post("/v1/prompts/clone", app.Clone)
	})

	r.Route("/v1/history", func(r chi.Router) {
		r.Get("/", app.ListHistory)
		r.Get("/{id}", app.GetHistory)
		r.Get("/{id}/export", app.ExportHistory)
	})

	return r
}
