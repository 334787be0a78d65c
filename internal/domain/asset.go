package domain

// Asset is the canonical marketplace search result. Every field carries a
// zero value instead of being absent, so consumers never branch on presence.
type Asset struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Downloads    any      `json:"downloads"`
	Premium      any      `json:"premium"`
	Creator      string   `json:"creator"`
	CreatorID    string   `json:"creatorId"`
	MediaType    string   `json:"mediaType"`
	Category     string   `json:"category"`
	ContentType  string   `json:"contentType"`
	Dimensions   string   `json:"dimensions"`
	UploadDate   string   `json:"uploadDate"`
	Keywords     []string `json:"keywords"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	IsAI         bool     `json:"isAI"`
}

// AssetRef points at a source asset for vision cloning.
type AssetRef struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
}

// Ref builds the cloning reference for an asset using its thumbnail.
func (a Asset) Ref() AssetRef {
	return AssetRef{ID: a.ID, Title: a.Title, ImageURL: a.ThumbnailURL}
}

// Usage reports the scraped account quota that accompanies search results.
type Usage struct {
	Plan          string `json:"plan"`
	SearchesUsed  any    `json:"searchesUsed"`
	SearchesLimit any    `json:"searchesLimit"`
}

// SearchResult is what a search returns after extraction and normalization.
type SearchResult struct {
	Query    string  `json:"query"`
	Page     int     `json:"page"`
	Assets   []Asset `json:"assets"`
	Usage    Usage   `json:"usage"`
	Filtered bool    `json:"filtered"`
}

// MarketAnalysis is the normalized output of a market analysis call.
type MarketAnalysis struct {
	Summary  string   `json:"summary"`
	Trends   []string `json:"trends"`
	Gaps     []string `json:"gaps"`
	Keywords []string `json:"keywords"`
}
