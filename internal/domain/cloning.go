package domain

// CloningResult is the outcome for one source asset. Results are kept for
// every input, including failures.
type CloningResult struct {
	SourceID string       `json:"source_id"`
	Prompt   *ImagePrompt `json:"prompt,omitempty"`
	Failed   bool         `json:"failed"`
	Attempts int          `json:"attempts"`
	Err      string       `json:"error,omitempty"`
}

// CloningSummary aggregates a cloning run for callers and observability.
type CloningSummary struct {
	Prompts        []ImagePrompt   `json:"prompts"`
	Results        []CloningResult `json:"results"`
	Succeeded      int             `json:"succeeded"`
	Failed         int             `json:"failed"`
	TotalRequested int             `json:"total_requested"`
	FailedIDs      []string        `json:"failed_ids"`
	Cancelled      bool            `json:"cancelled"`
}
