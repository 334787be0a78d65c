package stock

import (
	"strings"

	"stockprompt/internal/domain"
	"stockprompt/internal/extract"
)

// Normalize maps the images array of an extracted document onto canonical
// assets. It never fails: missing or mistyped fields take their zero value
// and non-object elements are skipped.
func Normalize(doc extract.Document) []domain.Asset {
	assets := []domain.Asset{}
	items, _ := doc["images"].([]any)
	for _, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			continue
		}
		assets = append(assets, normalizeAsset(raw))
	}
	return assets
}

func normalizeAsset(raw map[string]any) domain.Asset {
	isAI, _ := raw["isAI"].(bool)
	return domain.Asset{
		ID:           domain.Stringify(raw["id"]),
		Title:        domain.Stringify(raw["title"]),
		Downloads:    passthrough(raw["downloads"]),
		Premium:      passthrough(raw["premium"]),
		Creator:      domain.Stringify(raw["creator"]),
		CreatorID:    domain.Stringify(raw["creatorId"]),
		MediaType:    domain.Stringify(raw["mediaType"]),
		Category:     domain.Stringify(raw["category"]),
		ContentType:  domain.Stringify(raw["contentType"]),
		Dimensions:   domain.Stringify(raw["dimensions"]),
		UploadDate:   domain.Stringify(raw["creationDate"]),
		Keywords:     NormalizeKeywords(raw["keywords"]),
		ThumbnailURL: domain.Stringify(raw["thumbnailUrl"]),
		IsAI:         isAI,
	}
}

// passthrough keeps scalar values as given and turns null or absent into "".
func passthrough(v any) any {
	if v == nil {
		return ""
	}
	return v
}

// NormalizeKeywords accepts either a comma separated string or a list. Any
// other shape yields an empty, non-nil list.
func NormalizeKeywords(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			if kw := strings.TrimSpace(part); kw != "" {
				out = append(out, kw)
			}
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, t...)
	}
	return out
}

// FilterAIOnly keeps AI-generated assets. When nothing matches it returns the
// input unchanged, so the flag acts as a preference rather than a guarantee.
func FilterAIOnly(assets []domain.Asset) []domain.Asset {
	filtered := make([]domain.Asset, 0, len(assets))
	for _, a := range assets {
		if a.IsAI {
			filtered = append(filtered, a)
		}
	}
	if len(filtered) == 0 {
		return assets
	}
	return filtered
}

// UsageOf reads the account usage block that accompanies search results.
func UsageOf(doc extract.Document) domain.Usage {
	raw, _ := doc["usageData"].(map[string]any)
	return domain.Usage{
		Plan:          domain.Stringify(raw["plan"]),
		SearchesUsed:  passthrough(raw["searchesUsed"]),
		SearchesLimit: passthrough(raw["searchesLimit"]),
	}
}
