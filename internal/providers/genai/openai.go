package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const (
	openAIProvider       = "openai"
	openAIDefaultTimeout = 90 * time.Second
)

// OpenAIOptions configures an OpenAI-compatible chat completions client.
type OpenAIOptions struct {
	APIKey       string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	Logger       *zerolog.Logger
}

// OpenAIClient serves text and vision requests through chat completions.
type OpenAIClient struct {
	client *openai.Client
	logger zerolog.Logger
}

func NewOpenAIClient(opts OpenAIOptions) (*OpenAIClient, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("openai api key is required")
	}
	cfg := openai.DefaultConfig(key)
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		cfg.BaseURL = base
	}
	if org := strings.TrimSpace(opts.Organization); org != "" {
		cfg.OrgID = org
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: openAIDefaultTimeout}
	}
	cfg.HTTPClient = httpClient

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), logger: logger}, nil
}

// Generate implements Generator.
func (c *OpenAIClient) Generate(ctx context.Context, model string, req Request) (Response, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return Response{}, errors.New("openai: model is required")
	}
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if sys := strings.TrimSpace(req.System); sys != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: sys})
	}
	messages = append(messages, userMessage(req.Parts))

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return Response{}, translateOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.New("openai: response has no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Response{}, fmt.Errorf("openai: empty response (finish reason %s)", resp.Choices[0].FinishReason)
	}
	c.logger.Debug().Str("model", model).Int("chars", len(text)).Msg("openai: generation completed")
	return Response{Text: text, Model: model}, nil
}

// userMessage uses plain content for text-only requests and multi-part
// content once an image is attached.
func userMessage(parts []Part) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	hasInline := false
	for _, p := range parts {
		if p.inline() {
			hasInline = true
			break
		}
	}
	if !hasInline {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		msg.Content = strings.Join(texts, "\n\n")
		return msg
	}
	for _, p := range parts {
		switch {
		case p.inline():
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    fmt.Sprintf("data:%s;base64,%s", p.MIMEType, base64.StdEncoding.EncodeToString(p.Data)),
					Detail: openai.ImageURLDetailAuto,
				},
			})
		case p.Text != "":
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		}
	}
	return msg
}

func translateOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   openAIProvider,
			StatusCode: apiErr.HTTPStatusCode,
			Status:     apiErr.Type,
			Message:    apiErr.Message,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &APIError{Provider: openAIProvider, StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}
	return fmt.Errorf("openai: %w", err)
}

var _ Generator = (*OpenAIClient)(nil)
