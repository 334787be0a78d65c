package stock

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"stockprompt/internal/domain"
	"stockprompt/internal/extract"
)

// PayloadFetcher supplies raw search response text.
type PayloadFetcher interface {
	Search(ctx context.Context, q Query) (string, error)
}

// Searcher runs fetch, extraction and normalization for a query.
type Searcher struct {
	fetcher PayloadFetcher
	markers extract.Config
	logger  zerolog.Logger
}

func NewSearcher(fetcher PayloadFetcher, markers extract.Config, logger *zerolog.Logger) *Searcher {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Searcher{fetcher: fetcher, markers: markers, logger: l}
}

// Document fetches q and returns the extracted object. Not-found and
// malformed payloads are reported through the extract sentinels.
func (s *Searcher) Document(ctx context.Context, q Query) (extract.Document, error) {
	raw, err := s.fetcher.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	doc, err := extract.Auto(raw, s.markers)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Search returns normalized assets for q. Missing or malformed payloads
// degrade to an empty result; only transport failures are returned.
func (s *Searcher) Search(ctx context.Context, q Query) (domain.SearchResult, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	result := domain.SearchResult{Query: q.Text, Page: page, Assets: []domain.Asset{}}

	doc, err := s.Document(ctx, q)
	switch {
	case errors.Is(err, extract.ErrNotFound):
		s.logger.Debug().Str("query", q.Text).Int("page", page).Msg("stock: no search payload in response")
		return result, nil
	case errors.Is(err, extract.ErrMalformed):
		s.logger.Warn().Err(err).Str("query", q.Text).Int("page", page).Msg("stock: malformed search payload; returning empty result")
		return result, nil
	case err != nil:
		return result, err
	}

	assets := Normalize(doc)
	if q.AIOnly {
		assets = FilterAIOnly(assets)
		result.Filtered = allAI(assets)
	}
	result.Assets = assets
	result.Usage = UsageOf(doc)

	s.logger.Debug().
		Str("query", q.Text).
		Int("page", page).
		Int("assets", len(assets)).
		Msg("stock: search completed")
	return result, nil
}

func allAI(assets []domain.Asset) bool {
	if len(assets) == 0 {
		return false
	}
	for _, a := range assets {
		if !a.IsAI {
			return false
		}
	}
	return true
}

var _ PayloadFetcher = (*Client)(nil)
