// Package pipeline drives model calls for prompt synthesis, vision cloning
// and market research on top of a single fallback policy.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"stockprompt/internal/domain"
	"stockprompt/internal/providers/genai"
)

// Kind classifies why an invocation gave up.
type Kind string

const (
	KindExhausted    Kind = "exhausted"
	KindNonRetryable Kind = "non_retryable"
	KindCancelled    Kind = "cancelled"
)

// Attempt records one failed candidate call.
type Attempt struct {
	Model string
	Err   error
}

// GenerationError is returned by Invoke whenever no candidate produced a
// response. It matches domain.ErrGenerationExhausted regardless of Kind.
type GenerationError struct {
	Kind     Kind
	Model    string
	Attempts []Attempt
	Cause    error
}

func (e *GenerationError) Error() string {
	switch e.Kind {
	case KindNonRetryable:
		return fmt.Sprintf("pipeline: model %s failed: %v", e.Model, e.Cause)
	case KindCancelled:
		return fmt.Sprintf("pipeline: generation cancelled after %d attempt(s): %v", len(e.Attempts), e.Cause)
	default:
		return fmt.Sprintf("pipeline: all %d candidate model(s) failed, last %s: %v", len(e.Attempts), e.Model, e.Cause)
	}
}

func (e *GenerationError) Unwrap() error { return e.Cause }

func (e *GenerationError) Is(target error) bool { return target == domain.ErrGenerationExhausted }

// ModelInvoker is what the synthesis and cloning stages depend on.
type ModelInvoker interface {
	Invoke(ctx context.Context, req genai.Request) (genai.Response, error)
}

// Invoker tries an ordered list of candidate models, moving to the next one
// immediately when a failure looks transient.
type Invoker struct {
	gen        genai.Generator
	candidates []string
	retryable  func(error) bool
	logger     zerolog.Logger
}

type InvokerOption func(*Invoker)

// WithRetryable replaces the default failure classifier.
func WithRetryable(fn func(error) bool) InvokerOption {
	return func(i *Invoker) {
		if fn != nil {
			i.retryable = fn
		}
	}
}

func WithInvokerLogger(logger zerolog.Logger) InvokerOption {
	return func(i *Invoker) { i.logger = logger }
}

// NewInvoker builds an invoker over primary followed by fallbacks. Blank and
// repeated model names are dropped.
func NewInvoker(gen genai.Generator, primary string, fallbacks []string, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		gen:        gen,
		candidates: candidateList(primary, fallbacks),
		retryable:  IsRetryable,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// NewInvokerFromList treats the first model as primary.
func NewInvokerFromList(gen genai.Generator, models []string, opts ...InvokerOption) *Invoker {
	if len(models) == 0 {
		return NewInvoker(gen, "", nil, opts...)
	}
	return NewInvoker(gen, models[0], models[1:], opts...)
}

func candidateList(primary string, fallbacks []string) []string {
	seen := make(map[string]struct{}, len(fallbacks)+1)
	out := make([]string, 0, len(fallbacks)+1)
	for _, m := range append([]string{primary}, fallbacks...) {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Candidates returns the models in the order they are tried.
func (i *Invoker) Candidates() []string {
	return append([]string(nil), i.candidates...)
}

// Invoke calls each candidate at most once, in order.
func (i *Invoker) Invoke(ctx context.Context, req genai.Request) (genai.Response, error) {
	if len(i.candidates) == 0 {
		return genai.Response{}, &GenerationError{Kind: KindExhausted, Cause: errors.New("no candidate models configured")}
	}
	var attempts []Attempt
	for idx, model := range i.candidates {
		if err := ctx.Err(); err != nil {
			return genai.Response{}, &GenerationError{Kind: KindCancelled, Model: model, Attempts: attempts, Cause: err}
		}
		resp, err := i.gen.Generate(ctx, model, req)
		if err == nil {
			if resp.Model == "" {
				resp.Model = model
			}
			if idx > 0 {
				i.logger.Info().Str("model", model).Int("attempt", idx+1).Msg("pipeline: fallback model succeeded")
			}
			return resp, nil
		}
		attempts = append(attempts, Attempt{Model: model, Err: err})

		if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.Canceled) {
			return genai.Response{}, &GenerationError{Kind: KindCancelled, Model: model, Attempts: attempts, Cause: err}
		}
		if !i.retryable(err) {
			i.logger.Warn().Err(err).Str("model", model).Msg("pipeline: non-retryable model error")
			return genai.Response{}, &GenerationError{Kind: KindNonRetryable, Model: model, Attempts: attempts, Cause: err}
		}
		if idx+1 < len(i.candidates) {
			i.logger.Warn().
				Err(err).
				Str("model", model).
				Str("next_model", i.candidates[idx+1]).
				Msg("pipeline: retryable model error, falling back")
		}
	}
	last := attempts[len(attempts)-1]
	return genai.Response{}, &GenerationError{Kind: KindExhausted, Model: last.Model, Attempts: attempts, Cause: last.Err}
}

var retryableStatus = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// retryableCodes matches status codes quoted in plain error text. Digits
// inside longer numbers such as token counts do not match.
var retryableCodes = regexp.MustCompile(`\b(429|500|502|503|504)\b`)

var retryableMarkers = []string{
	"rate limit",
	"quota",
	"resource_exhausted",
	"resource exhausted",
	"overloaded",
	"unavailable",
	"internal",
	"try again",
	"deadline exceeded",
}

// IsRetryable reports whether another model might succeed where this one
// failed. Caller cancellation is never retryable, and neither is a 4xx
// status other than 429, whatever its message says.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var sc genai.StatusCoder
	if errors.As(err, &sc) {
		status := sc.HTTPStatus()
		if _, ok := retryableStatus[status]; ok || status >= http.StatusInternalServerError {
			return true
		}
		if status >= http.StatusBadRequest {
			return false
		}
	}
	msg := strings.ToLower(err.Error())
	if retryableCodes.MatchString(msg) {
		return true
	}
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

var _ ModelInvoker = (*Invoker)(nil)
