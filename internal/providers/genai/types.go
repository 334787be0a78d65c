// Package genai adapts hosted text and vision models to a single Generator
// contract so callers can fall back across models without caring which
// provider serves them.
package genai

import (
	"context"
	"fmt"
	"strings"
)

// Part is one piece of user content. A part carries either text or inline
// binary data, never both.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// TextPart returns a text-only part.
func TextPart(s string) Part { return Part{Text: s} }

// InlinePart returns a part carrying raw bytes such as an image.
func InlinePart(data []byte, mimeType string) Part {
	return Part{Data: data, MIMEType: mimeType}
}

func (p Part) inline() bool { return len(p.Data) > 0 }

// Request is a single-turn generation request.
type Request struct {
	System string
	Parts  []Part
	// Temperature of zero leaves the provider default in place.
	Temperature float32
	// JSON asks the provider for a JSON-only response.
	JSON bool
}

// Response is the concatenated text output of the first candidate.
type Response struct {
	Text  string
	Model string
}

// Generator produces text for a request using the named model.
type Generator interface {
	Generate(ctx context.Context, model string, req Request) (Response, error)
}

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// APIError is a non-success response from a model provider.
type APIError struct {
	Provider   string
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s status %d", e.Provider, e.StatusCode)
	if e.Status != "" {
		sb.WriteString(" " + e.Status)
	}
	if e.Message != "" {
		sb.WriteString(": " + e.Message)
	}
	return sb.String()
}

func (e *APIError) HTTPStatus() int { return e.StatusCode }

var _ StatusCoder = (*APIError)(nil)
