package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stockprompt/internal/domain"
	"stockprompt/internal/providers/genai"
	"stockprompt/internal/stock"
)

const cloneSystemPrompt = `You reverse-engineer stock images into prompts for a text-to-image model. Study the attached image and respond only with one JSON object of this shape: {"scene":string,"style":string,"constraints":string[],"shot":{"composition":string,"resolution":string,"lens":string},"lighting":{"primary":string,"secondary":string,"accents":string},"color_palette":{"background":string,"ink_primary":string,"ink_secondary":string,"text_primary":string},"visual_rules":{"prohibited_elements":string[],"grain":string,"sharpen":string},"metadata":{"series":string,"task":string,"scene_number":string,"tags":string[]}}. Describe the subject, composition and style precisely enough to recreate a similar, original image.`

var (
	errEmptyPrompt = errors.New("response has neither scene nor style")
	errNoObject    = errors.New("response contains no JSON object")
)

// ClonerOptions controls per-item retry and pacing. Zero delays are valid
// and disable the corresponding sleep.
type ClonerOptions struct {
	MaxAttempts int
	RetryDelay  time.Duration
	ItemDelay   time.Duration
	Temperature float32
	Logger      *zerolog.Logger
}

// DefaultClonerOptions returns three attempts, 1.5s between attempts and
// 500ms between items.
func DefaultClonerOptions() ClonerOptions {
	return ClonerOptions{
		MaxAttempts: 3,
		RetryDelay:  1500 * time.Millisecond,
		ItemDelay:   500 * time.Millisecond,
	}
}

// Cloner turns source images into prompts one item at a time. A failing item
// is recorded and skipped; it never aborts the run.
type Cloner struct {
	fetcher     stock.ImageFetcher
	invoker     ModelInvoker
	maxAttempts int
	retryDelay  time.Duration
	itemDelay   time.Duration
	temperature float32
	logger      zerolog.Logger
}

func NewCloner(fetcher stock.ImageFetcher, invoker ModelInvoker, opts ClonerOptions) *Cloner {
	c := &Cloner{
		fetcher:     fetcher,
		invoker:     invoker,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		itemDelay:   opts.ItemDelay,
		temperature: opts.Temperature,
		logger:      zerolog.Nop(),
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 1
	}
	if opts.Logger != nil {
		c.logger = *opts.Logger
	}
	return c
}

// Clone processes sources in order. Cancellation stops the loop between
// items or during a sleep; everything finished so far is returned with
// Cancelled set.
func (c *Cloner) Clone(ctx context.Context, sources []domain.AssetRef) domain.CloningSummary {
	summary := domain.CloningSummary{
		Prompts:        []domain.ImagePrompt{},
		Results:        make([]domain.CloningResult, 0, len(sources)),
		TotalRequested: len(sources),
		FailedIDs:      []string{},
	}

	for i, src := range sources {
		if i > 0 {
			if err := sleepContext(ctx, c.itemDelay); err != nil {
				summary.Cancelled = true
				break
			}
		}
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}

		result := c.cloneOne(ctx, src, i)
		summary.Results = append(summary.Results, result)
		if result.Failed {
			summary.Failed++
			summary.FailedIDs = append(summary.FailedIDs, src.ID)
		} else {
			summary.Succeeded++
			summary.Prompts = append(summary.Prompts, *result.Prompt)
		}
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
	}

	c.logger.Info().
		Int("requested", summary.TotalRequested).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Bool("cancelled", summary.Cancelled).
		Msg("pipeline: cloning finished")
	return summary
}

func (c *Cloner) cloneOne(ctx context.Context, src domain.AssetRef, index int) domain.CloningResult {
	result := domain.CloningResult{SourceID: src.ID}
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, c.retryDelay); err != nil {
				lastErr = err
				break
			}
		}
		result.Attempts = attempt
		prompt, err := c.attempt(ctx, src, index)
		if err == nil {
			result.Prompt = &prompt
			return result
		}
		lastErr = err
		c.logger.Warn().
			Err(err).
			Str("source_id", src.ID).
			Int("attempt", attempt).
			Int("max_attempts", c.maxAttempts).
			Msg("pipeline: clone attempt failed")
		if ctx.Err() != nil {
			break
		}
	}
	result.Failed = true
	if lastErr != nil {
		result.Err = lastErr.Error()
	}
	return result
}

func (c *Cloner) attempt(ctx context.Context, src domain.AssetRef, index int) (domain.ImagePrompt, error) {
	img, err := c.fetcher.Fetch(ctx, src.ImageURL)
	if err != nil {
		return domain.ImagePrompt{}, err
	}
	resp, err := c.invoker.Invoke(ctx, c.visionRequest(src, img))
	if err != nil {
		return domain.ImagePrompt{}, err
	}
	raw, ok := FirstObject(resp.Text)
	if !ok {
		return domain.ImagePrompt{}, errNoObject
	}
	prompt := domain.NormalizePrompt(raw)
	if prompt.Empty() {
		return domain.ImagePrompt{}, errEmptyPrompt
	}
	if strings.TrimSpace(prompt.Metadata.Task) == "" {
		prompt.Metadata.Task = "clone"
	}
	if strings.TrimSpace(prompt.Metadata.SceneNumber) == "" {
		prompt.Metadata.SceneNumber = domain.SceneNumber(index + 1)
	}
	return prompt, nil
}

func (c *Cloner) visionRequest(src domain.AssetRef, img stock.Image) genai.Request {
	text := "Create a prompt that recreates the style of this image."
	if title := strings.TrimSpace(src.Title); title != "" {
		text = fmt.Sprintf("%s\nOriginal title: %s", text, title)
	}
	return genai.Request{
		System:      cloneSystemPrompt,
		Parts:       []genai.Part{genai.TextPart(text), genai.InlinePart(img.Data, img.MIMEType)},
		Temperature: c.temperature,
		JSON:        true,
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
