package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"stockprompt/internal/domain"
	"stockprompt/internal/pipeline"
	"stockprompt/internal/stock"
	"stockprompt/internal/storage"
)

const (
	maxKeywordCount  = 100
	maxBatchCount    = 20
	maxPerBatch      = 20
	maxCloneItems    = 50
	defaultCloneSize = 10
)

type expandRequest struct {
	Seed  string `json:"seed"`
	Count int    `json:"count"`
}

type expandResponse struct {
	Seed      string   `json:"seed"`
	Keywords  []string `json:"keywords"`
	HistoryID string   `json:"history_id,omitempty"`
}

func (a *App) ExpandKeywords(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if !a.decode(w, r, &req) {
		return
	}
	req.Seed = strings.TrimSpace(req.Seed)
	if req.Seed == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "seed is required")
		return
	}
	if req.Count > maxKeywordCount {
		req.Count = maxKeywordCount
	}
	keywords, err := a.Analyst.ExpandKeywords(r.Context(), req.Seed, req.Count)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	id := a.record(r, storage.KindKeywords, req.Seed, len(keywords), keywords)
	a.json(w, http.StatusOK, expandResponse{Seed: req.Seed, Keywords: keywords, HistoryID: id})
}

type analyzeRequest struct {
	Query  string         `json:"query"`
	Assets []domain.Asset `json:"assets"`
	Page   int            `json:"page"`
	AIOnly bool           `json:"ai_only"`
}

type analyzeResponse struct {
	Query      string                `json:"query"`
	AssetCount int                   `json:"asset_count"`
	Analysis   domain.MarketAnalysis `json:"analysis"`
	HistoryID  string                `json:"history_id,omitempty"`
}

// AnalyzeMarket summarizes the supplied assets, or searches for query when
// none are supplied.
func (a *App) AnalyzeMarket(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !a.decode(w, r, &req) {
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" && len(req.Assets) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "query or assets is required")
		return
	}
	assets := req.Assets
	if len(assets) == 0 {
		res, err := a.Searcher.Search(r.Context(), stock.Query{Text: req.Query, Page: req.Page, AIOnly: req.AIOnly})
		if err != nil {
			a.fail(w, r, err)
			return
		}
		if len(res.Assets) == 0 {
			a.error(w, http.StatusNotFound, "not_found", "search returned no assets")
			return
		}
		assets = res.Assets
	}
	analysis, err := a.Analyst.AnalyzeMarket(r.Context(), req.Query, assets)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	id := a.record(r, storage.KindAnalysis, req.Query, len(assets), analysis)
	a.json(w, http.StatusOK, analyzeResponse{Query: req.Query, AssetCount: len(assets), Analysis: analysis, HistoryID: id})
}

type synthesizeRequest struct {
	Context    string   `json:"context"`
	Query      string   `json:"query"`
	Styles     []string `json:"styles"`
	BatchCount int      `json:"batch_count"`
	PerBatch   int      `json:"per_batch"`
}

type synthesizeResponse struct {
	Prompts   []domain.ImagePrompt `json:"prompts"`
	Count     int                  `json:"count"`
	HistoryID string               `json:"history_id,omitempty"`
}

func (a *App) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	if !a.decode(w, r, &req) {
		return
	}
	market := strings.TrimSpace(req.Context)
	if market == "" {
		market = strings.TrimSpace(req.Query)
	}
	if market == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "context or query is required")
		return
	}
	directives, err := a.directiveTexts(req.Styles)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	batches := req.BatchCount
	if batches <= 0 {
		batches = a.BatchCount
	}
	batches = min(batches, maxBatchCount)

	prompts, err := a.Synthesizer.Synthesize(r.Context(), pipeline.SynthesisRequest{
		Context:    market,
		Directives: directives,
		BatchCount: batches,
		PerBatch:   min(req.PerBatch, maxPerBatch),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	label := strings.TrimSpace(req.Query)
	if label == "" {
		label = market
	}
	id := a.record(r, storage.KindSynthesis, label, len(prompts), prompts)
	a.json(w, http.StatusOK, synthesizeResponse{Prompts: prompts, Count: len(prompts), HistoryID: id})
}

// directiveTexts resolves style names against the loaded directives. No
// names selects all of them.
func (a *App) directiveTexts(names []string) ([]string, error) {
	if len(names) == 0 {
		return pipeline.DirectiveTexts(a.Directives), nil
	}
	byName := make(map[string]string, len(a.Directives))
	for _, d := range a.Directives {
		byName[strings.ToLower(d.Name)] = d.Text
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		text, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown style %q", domain.ErrInvalidRequest, name)
		}
		out = append(out, text)
	}
	return out, nil
}

type cloneRequest struct {
	Items  []domain.AssetRef `json:"items"`
	Query  string            `json:"query"`
	Limit  int               `json:"limit"`
	AIOnly bool              `json:"ai_only"`
}

type cloneResponse struct {
	domain.CloningSummary
	HistoryID string `json:"history_id,omitempty"`
}

// Clone always answers 200 with a summary once work has started; per-item
// failures are reported inside it.
func (a *App) Clone(w http.ResponseWriter, r *http.Request) {
	var req cloneRequest
	if !a.decode(w, r, &req) {
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	items := req.Items
	if len(items) == 0 {
		if req.Query == "" {
			a.error(w, http.StatusBadRequest, "bad_request", "items or query is required")
			return
		}
		res, err := a.Searcher.Search(r.Context(), stock.Query{Text: req.Query, AIOnly: req.AIOnly})
		if err != nil {
			a.fail(w, r, err)
			return
		}
		limit := req.Limit
		if limit <= 0 {
			limit = defaultCloneSize
		}
		for _, asset := range res.Assets {
			if len(items) == limit {
				break
			}
			if asset.ThumbnailURL != "" {
				items = append(items, asset.Ref())
			}
		}
		if len(items) == 0 {
			a.error(w, http.StatusNotFound, "not_found", "search returned no images to clone")
			return
		}
	}
	if len(items) > maxCloneItems {
		a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("at most %d items per request", maxCloneItems))
		return
	}

	summary := a.Cloner.Clone(r.Context(), items)
	a.log(r).Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Bool("cancelled", summary.Cancelled).
		Msg("clone run finished")

	label := req.Query
	if label == "" {
		label = items[0].Title
	}
	id := ""
	if summary.Succeeded > 0 {
		id = a.record(r, storage.KindClone, label, summary.Succeeded, summary)
	}
	a.json(w, http.StatusOK, cloneResponse{CloningSummary: summary, HistoryID: id})
}
