package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	geminiProvider       = "gemini"
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultTimeout = 90 * time.Second
)

// GeminiOptions controls how the Gemini client is configured.
type GeminiOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// GeminiClient calls the generateContent REST endpoint.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float32 `json:"temperature,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiGenerateContentRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewGeminiClient constructs a client. A nil HTTP client is replaced with one
// that has a generous timeout, since vision calls can be slow.
func NewGeminiClient(opts GeminiOptions) (*GeminiClient, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &GeminiClient{apiKey: key, baseURL: baseURL, httpClient: client, logger: logger}, nil
}

// Generate implements Generator.
func (c *GeminiClient) Generate(ctx context.Context, model string, req Request) (Response, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return Response{}, errors.New("gemini: model is required")
	}
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: geminiParts(req.Parts)}},
	}
	if sys := strings.TrimSpace(req.System); sys != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: sys}}}
	}
	if req.Temperature > 0 || req.JSON {
		cfg := &geminiGenerationConfig{Temperature: req.Temperature}
		if req.JSON {
			cfg.ResponseMimeType = "application/json"
		}
		payload.GenerationConfig = cfg
	}

	var out geminiGenerateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model))
	if err := c.invoke(ctx, path, payload, &out); err != nil {
		return Response{}, err
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return Response{}, fmt.Errorf("gemini: prompt blocked: %s", out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return Response{}, errors.New("gemini: response has no candidates")
	}
	var sb strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return Response{}, fmt.Errorf("gemini: empty response (finish reason %s)", out.Candidates[0].FinishReason)
	}
	c.logger.Debug().Str("model", model).Int("chars", len(text)).Msg("gemini: generation completed")
	return Response{Text: text, Model: model}, nil
}

func geminiParts(parts []Part) []geminiPart {
	out := make([]geminiPart, 0, len(parts))
	for _, p := range parts {
		if p.inline() {
			out = append(out, geminiPart{InlineData: &geminiInlineData{
				MimeType: p.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
			continue
		}
		if p.Text != "" {
			out = append(out, geminiPart{Text: p.Text})
		}
	}
	return out
}

func (c *GeminiClient) invoke(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("gemini: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gemini: invoke: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{Provider: geminiProvider, StatusCode: resp.StatusCode}
		var decoded geminiErrorResponse
		if err := json.Unmarshal(data, &decoded); err == nil && decoded.Error.Message != "" {
			apiErr.Status = decoded.Error.Status
			apiErr.Message = decoded.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gemini: decode response: %w", err)
	}
	return nil
}

var _ Generator = (*GeminiClient)(nil)
