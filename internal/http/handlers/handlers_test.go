package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"stockprompt/internal/domain"
	"stockprompt/internal/pipeline"
	"stockprompt/internal/stock"
	"stockprompt/internal/storage"
)

type stubSearcher struct {
	result domain.SearchResult
	err    error
	got    []stock.Query
}

func (s *stubSearcher) Search(ctx context.Context, q stock.Query) (domain.SearchResult, error) {
	s.got = append(s.got, q)
	return s.result, s.err
}

type stubAnalyst struct {
	keywords []string
	analysis domain.MarketAnalysis
	err      error
	assets   []domain.Asset
}

func (s *stubAnalyst) ExpandKeywords(ctx context.Context, seed string, n int) ([]string, error) {
	return s.keywords, s.err
}

func (s *stubAnalyst) AnalyzeMarket(ctx context.Context, query string, assets []domain.Asset) (domain.MarketAnalysis, error) {
	s.assets = assets
	return s.analysis, s.err
}

type stubSynthesizer struct {
	prompts []domain.ImagePrompt
	err     error
	req     pipeline.SynthesisRequest
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, req pipeline.SynthesisRequest) ([]domain.ImagePrompt, error) {
	s.req = req
	return s.prompts, s.err
}

type stubCloner struct {
	sources []domain.AssetRef
}

func (s *stubCloner) Clone(ctx context.Context, sources []domain.AssetRef) domain.CloningSummary {
	s.sources = sources
	summary := domain.CloningSummary{TotalRequested: len(sources), Prompts: []domain.ImagePrompt{}, FailedIDs: []string{}}
	for i, src := range sources {
		if i == 0 {
			summary.Failed++
			summary.FailedIDs = append(summary.FailedIDs, src.ID)
			summary.Results = append(summary.Results, domain.CloningResult{SourceID: src.ID, Failed: true, Attempts: 3})
			continue
		}
		p := domain.ImagePrompt{Scene: "clone of " + src.Title}
		summary.Succeeded++
		summary.Prompts = append(summary.Prompts, p)
		summary.Results = append(summary.Results, domain.CloningResult{SourceID: src.ID, Prompt: &p, Attempts: 1})
	}
	return summary
}

type memHistory struct {
	saved []storage.Record
}

func (m *memHistory) Save(ctx context.Context, rec storage.Record) (storage.Record, error) {
	rec.ID = "rec-" + rec.Kind
	m.saved = append(m.saved, rec)
	return rec, nil
}

func (m *memHistory) Get(ctx context.Context, id string) (storage.Record, error) {
	for _, rec := range m.saved {
		if rec.ID == id {
			return rec, nil
		}
	}
	return storage.Record{}, domain.ErrNotFound
}

func (m *memHistory) List(ctx context.Context, opts storage.ListOptions) ([]storage.Record, error) {
	return m.saved, nil
}

type fixture struct {
	app      *App
	searcher *stubSearcher
	analyst  *stubAnalyst
	synth    *stubSynthesizer
	cloner   *stubCloner
	history  *memHistory
	router   http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		searcher: &stubSearcher{},
		analyst:  &stubAnalyst{},
		synth:    &stubSynthesizer{},
		cloner:   &stubCloner{},
		history:  &memHistory{},
	}
	f.app = &App{
		Searcher:    f.searcher,
		Analyst:     f.analyst,
		Synthesizer: f.synth,
		Cloner:      f.cloner,
		History:     f.history,
		Directives:  pipeline.DefaultDirectives(),
		BatchCount:  3,
		Logger:      zerolog.Nop(),
	}
	r := chi.NewRouter()
	r.Get("/v1/search", f.app.Search)
	r.Post("/v1/keywords/expand", f.app.ExpandKeywords)
	r.Post("/v1/market/analyze", f.app.AnalyzeMarket)
	r.Post("/v1/prompts/synthesize", f.app.Synthesize)
	r.Post("/v1/prompts/clone", f.app.Clone)
	r.Get("/v1/history", f.app.ListHistory)
	r.Get("/v1/history/{id}", f.app.GetHistory)
	r.Get("/v1/history/{id}/export", f.app.ExportHistory)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, out
}

func TestSearchHandler(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.searcher.result = domain.SearchResult{Query: "cats", Page: 2, Assets: []domain.Asset{{ID: "1"}}}

	rec, body := f.do(t, http.MethodGet, "/v1/search?q=cats&page=2&ai_only=true&order=relevance", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["query"] != "cats" {
		t.Fatalf("unexpected body %v", body)
	}
	got := f.searcher.got[0]
	if got.Text != "cats" || got.Page != 2 || !got.AIOnly || got.Order != "relevance" {
		t.Fatalf("unexpected query %#v", got)
	}
}

func TestSearchHandlerValidation(t *testing.T) {
	t.Parallel()
	for _, target := range []string{"/v1/search", "/v1/search?q=%20", "/v1/search?q=cats&page=0", "/v1/search?q=cats&page=x"} {
		f := newFixture()
		rec, body := f.do(t, http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest || body["error"] != "bad_request" {
			t.Errorf("%s: status = %d body = %v", target, rec.Code, body)
		}
	}
}

func TestSearchHandlerUpstreamError(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.searcher.err = &stock.StatusError{StatusCode: http.StatusForbidden}
	rec, body := f.do(t, http.MethodGet, "/v1/search?q=cats", "")
	if rec.Code != http.StatusBadGateway || body["error"] != "upstream_error" {
		t.Fatalf("status = %d body = %v", rec.Code, body)
	}
}

func TestSearchHandlerOversizedPayload(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.searcher.err = fmt.Errorf("%w: exceeds 10 bytes", stock.ErrPayloadTooLarge)
	rec, body := f.do(t, http.MethodGet, "/v1/search?q=cats", "")
	if rec.Code != http.StatusBadGateway || body["error"] != "upstream_error" {
		t.Fatalf("status = %d body = %v", rec.Code, body)
	}
}

func TestExpandKeywordsHandler(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.analyst.keywords = []string{"cats", "kittens"}

	rec, body := f.do(t, http.MethodPost, "/v1/keywords/expand", `{"seed":" cats "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["seed"] != "cats" || body["history_id"] != "rec-keywords" {
		t.Fatalf("unexpected body %v", body)
	}
	if len(f.history.saved) != 1 || f.history.saved[0].ItemCount != 2 {
		t.Fatalf("unexpected history %#v", f.history.saved)
	}
}

func TestGenerationFailureMapsToBadGateway(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.analyst.err = &pipeline.GenerationError{Kind: pipeline.KindExhausted, Model: "m2", Cause: errors.New("503")}

	rec, body := f.do(t, http.MethodPost, "/v1/keywords/expand", `{"seed":"cats"}`)
	if rec.Code != http.StatusBadGateway || body["error"] != "generation_failed" {
		t.Fatalf("status = %d body = %v", rec.Code, body)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "m2") {
		t.Fatalf("message should name the last model, got %q", msg)
	}
	if len(f.history.saved) != 0 {
		t.Fatal("failed generations must not be recorded")
	}
}

func TestAnalyzeMarketSearchesWhenNoAssets(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.searcher.result = domain.SearchResult{Assets: []domain.Asset{{ID: "1"}, {ID: "2"}}}
	f.analyst.analysis = domain.MarketAnalysis{Summary: "busy niche"}

	rec, body := f.do(t, http.MethodPost, "/v1/market/analyze", `{"query":"cats","ai_only":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %v", rec.Code, body)
	}
	if body["asset_count"] != float64(2) || len(f.analyst.assets) != 2 || !f.searcher.got[0].AIOnly {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestAnalyzeMarketValidation(t *testing.T) {
	t.Parallel()
	f := newFixture()
	rec, _ := f.do(t, http.MethodPost, "/v1/market/analyze", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	rec, _ = f.do(t, http.MethodPost, "/v1/market/analyze", `{"query":"cats"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty search should be 404, got %d", rec.Code)
	}
	rec, _ = f.do(t, http.MethodPost, "/v1/market/analyze", `{"query":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json should be 400, got %d", rec.Code)
	}
}

func TestSynthesizeHandler(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.synth.prompts = []domain.ImagePrompt{{Scene: "a"}, {Scene: "b"}}

	rec, body := f.do(t, http.MethodPost, "/v1/prompts/synthesize", `{"query":"valentines","styles":["Minimal","flatlay"],"per_batch":99}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %v", rec.Code, body)
	}
	if body["count"] != float64(2) || body["history_id"] != "rec-synthesis" {
		t.Fatalf("unexpected body %v", body)
	}
	req := f.synth.req
	if req.Context != "valentines" || req.BatchCount != 3 || req.PerBatch != maxPerBatch || len(req.Directives) != 2 {
		t.Fatalf("unexpected synthesis request %#v", req)
	}
}

func TestSynthesizeUnknownStyle(t *testing.T) {
	t.Parallel()
	f := newFixture()
	rec, body := f.do(t, http.MethodPost, "/v1/prompts/synthesize", `{"context":"x","styles":["baroque"]}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(body["message"].(string), "baroque") {
		t.Fatalf("status = %d body = %v", rec.Code, body)
	}
}

func TestCloneHandlerReportsPartialFailure(t *testing.T) {
	t.Parallel()
	f := newFixture()
	rec, body := f.do(t, http.MethodPost, "/v1/prompts/clone", `{"items":[{"id":"a","image_url":"http://x/a.jpg"},{"id":"b","title":"Cat","image_url":"http://x/b.jpg"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["succeeded"] != float64(1) || body["failed"] != float64(1) || body["total_requested"] != float64(2) {
		t.Fatalf("unexpected summary %v", body)
	}
	if ids := body["failed_ids"].([]any); len(ids) != 1 || ids[0] != "a" {
		t.Fatalf("failed_ids = %v", ids)
	}
	if body["history_id"] != "rec-clone" {
		t.Fatalf("history_id = %v", body["history_id"])
	}
}

func TestCloneHandlerFromSearch(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.searcher.result = domain.SearchResult{Assets: []domain.Asset{
		{ID: "1", ThumbnailURL: "http://x/1.jpg"},
		{ID: "2"},
		{ID: "3", ThumbnailURL: "http://x/3.jpg"},
		{ID: "4", ThumbnailURL: "http://x/4.jpg"},
	}}
	rec, _ := f.do(t, http.MethodPost, "/v1/prompts/clone", `{"query":"cats","limit":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(f.cloner.sources) != 2 || f.cloner.sources[0].ID != "1" || f.cloner.sources[1].ID != "3" {
		t.Fatalf("unexpected sources %#v", f.cloner.sources)
	}
}

func TestCloneHandlerValidation(t *testing.T) {
	t.Parallel()
	f := newFixture()
	rec, _ := f.do(t, http.MethodPost, "/v1/prompts/clone", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	items := make([]string, maxCloneItems+1)
	for i := range items {
		items[i] = `{"id":"x","image_url":"http://x"}`
	}
	rec, _ = f.do(t, http.MethodPost, "/v1/prompts/clone", `{"items":[`+strings.Join(items, ",")+`]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized request status = %d", rec.Code)
	}
}

func TestHistoryHandlers(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.history.saved = []storage.Record{{ID: "rec-1", Kind: storage.KindClone, Query: "cats"}}

	rec, body := f.do(t, http.MethodGet, "/v1/history?limit=5", "")
	if rec.Code != http.StatusOK || len(body["items"].([]any)) != 1 {
		t.Fatalf("list status = %d body = %v", rec.Code, body)
	}
	rec, body = f.do(t, http.MethodGet, "/v1/history/rec-1", "")
	if rec.Code != http.StatusOK || body["query"] != "cats" {
		t.Fatalf("get status = %d body = %v", rec.Code, body)
	}
	rec, body = f.do(t, http.MethodGet, "/v1/history/missing", "")
	if rec.Code != http.StatusNotFound || body["error"] != "not_found" {
		t.Fatalf("missing status = %d body = %v", rec.Code, body)
	}
	rec, _ = f.do(t, http.MethodGet, "/v1/history?limit=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rec.Code)
	}
}

func TestExportHistory(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.history.saved = []storage.Record{
		{ID: "0123456789ab", Kind: storage.KindSynthesis, Payload: []byte(`[{"scene":"a","metadata":{"scene_number":"1"}},{"scene":"b","metadata":{"scene_number":"1"}}]`)},
		{ID: "clone-1", Kind: storage.KindClone, Payload: []byte(`{"prompts":[{"scene":"c"}],"succeeded":1}`)},
		{ID: "kw-1", Kind: storage.KindKeywords, Payload: []byte(`["a"]`)},
	}

	names := func(target string) []string {
		t.Helper()
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/zip" {
			t.Fatalf("%s: status = %d", target, rec.Code)
		}
		zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
		if err != nil {
			t.Fatalf("open archive: %v", err)
		}
		out := make([]string, 0, len(zr.File))
		for _, file := range zr.File {
			out = append(out, file.Name)
		}
		return out
	}

	got := names("/v1/history/0123456789ab/export")
	if len(got) != 2 || got[0] != "synthesis-01234567-prompt-01.json" || got[1] != "synthesis-01234567-prompt-01-2.json" {
		t.Fatalf("synthesis entries = %v", got)
	}
	got = names("/v1/history/clone-1/export")
	if len(got) != 1 || got[0] != "clone-clone-1-prompt-01.json" {
		t.Fatalf("clone entries = %v", got)
	}

	rec, _ := f.do(t, http.MethodGet, "/v1/history/kw-1/export", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("keywords export status = %d", rec.Code)
	}
}
