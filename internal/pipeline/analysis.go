package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"stockprompt/internal/domain"
	"stockprompt/internal/providers/genai"
)

const (
	keywordSystemPrompt  = `You are a stock media keyword researcher. Respond only with JSON of the form {"keywords":string[]} listing search phrases buyers use for the given topic, most commercially valuable first.`
	analysisSystemPrompt = `You are a stock media market analyst. Respond only with JSON of the form {"summary":string,"trends":string[],"gaps":string[],"keywords":string[]}. Trends describe what sells, gaps describe under-supplied concepts worth producing.`

	defaultKeywordCount = 20
	maxAnalysisAssets   = 40
	maxAssetKeywords    = 10
)

// Analyst runs the single-call research stages that precede synthesis.
type Analyst struct {
	invoker ModelInvoker
	logger  zerolog.Logger
}

func NewAnalyst(invoker ModelInvoker, logger *zerolog.Logger) *Analyst {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Analyst{invoker: invoker, logger: l}
}

// ExpandKeywords asks for up to n related search phrases for seed. The
// result is deduplicated case-insensitively and never contains seed twice.
func (a *Analyst) ExpandKeywords(ctx context.Context, seed string, n int) ([]string, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil, fmt.Errorf("%w: seed keyword is required", domain.ErrInvalidRequest)
	}
	if n <= 0 {
		n = defaultKeywordCount
	}
	resp, err := a.invoker.Invoke(ctx, genai.Request{
		System: keywordSystemPrompt,
		Parts:  []genai.Part{genai.TextPart(fmt.Sprintf("Topic: %s\nReturn %d keywords.", seed, n))},
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}

	var raw []any
	if obj, ok := FirstObject(resp.Text); ok {
		raw, _ = obj["keywords"].([]any)
	}
	if raw == nil {
		var list []any
		if err := json.Unmarshal([]byte(extractJSONFragment(resp.Text)), &list); err == nil {
			raw = list
		}
	}
	keywords := uniqueKeywords(append([]any{seed}, raw...), n+1)
	a.logger.Debug().Str("seed", seed).Int("keywords", len(keywords)).Msg("pipeline: keywords expanded")
	return keywords, nil
}

// AnalyzeMarket summarizes a result set for query.
func (a *Analyst) AnalyzeMarket(ctx context.Context, query string, assets []domain.Asset) (domain.MarketAnalysis, error) {
	if len(assets) == 0 {
		return domain.MarketAnalysis{}, fmt.Errorf("%w: no assets to analyze", domain.ErrInvalidRequest)
	}
	resp, err := a.invoker.Invoke(ctx, genai.Request{
		System: analysisSystemPrompt,
		Parts:  []genai.Part{genai.TextPart(analysisInput(query, assets))},
		JSON:   true,
	})
	if err != nil {
		return domain.MarketAnalysis{}, err
	}
	raw, _ := FirstObject(resp.Text)
	analysis := domain.MarketAnalysis{
		Summary:  strings.TrimSpace(domain.Stringify(raw["summary"])),
		Trends:   uniqueKeywords(anyList(raw["trends"]), 0),
		Gaps:     uniqueKeywords(anyList(raw["gaps"]), 0),
		Keywords: uniqueKeywords(anyList(raw["keywords"]), 0),
	}
	a.logger.Debug().
		Str("query", query).
		Int("assets", len(assets)).
		Int("trends", len(analysis.Trends)).
		Int("gaps", len(analysis.Gaps)).
		Msg("pipeline: market analyzed")
	return analysis, nil
}

type analysisAsset struct {
	Title     string   `json:"title"`
	Downloads any      `json:"downloads"`
	Premium   any      `json:"premium"`
	Category  string   `json:"category,omitempty"`
	MediaType string   `json:"media_type,omitempty"`
	IsAI      bool     `json:"is_ai"`
	Keywords  []string `json:"keywords"`
}

func analysisInput(query string, assets []domain.Asset) string {
	if len(assets) > maxAnalysisAssets {
		assets = assets[:maxAnalysisAssets]
	}
	rows := make([]analysisAsset, 0, len(assets))
	for _, asset := range assets {
		kws := asset.Keywords
		if len(kws) > maxAssetKeywords {
			kws = kws[:maxAssetKeywords]
		}
		rows = append(rows, analysisAsset{
			Title:     asset.Title,
			Downloads: asset.Downloads,
			Premium:   asset.Premium,
			Category:  asset.Category,
			MediaType: asset.MediaType,
			IsAI:      asset.IsAI,
			Keywords:  kws,
		})
	}
	data, _ := json.Marshal(rows)
	return fmt.Sprintf("Search query: %s\nTop results:\n%s", query, data)
}

func anyList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case string:
		return []any{t}
	}
	return nil
}

// uniqueKeywords trims, drops blanks and case-insensitive repeats, keeping
// the first spelling. limit <= 0 keeps everything.
func uniqueKeywords(values []any, limit int) []string {
	fold := cases.Fold()
	seen := make(map[string]struct{}, len(values))
	out := []string{}
	for _, v := range values {
		kw := strings.TrimSpace(domain.Stringify(v))
		if kw == "" {
			continue
		}
		key := fold.String(kw)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
