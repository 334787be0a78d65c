// Package extract recovers embedded JSON objects from server-rendered
// responses that carry no published schema.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"stockprompt/internal/domain"
)

// Document is one recovered JSON object.
type Document map[string]any

var (
	// ErrNotFound means no marker occurred. Callers treat it as "no results".
	ErrNotFound = domain.ErrExtractionNotFound
	// ErrMalformed matches every *MalformedError.
	ErrMalformed = domain.ErrExtractionMalformed
)

// MalformedError is returned when a marker was found but the text after it
// did not yield a parseable object.
type MalformedError struct {
	Offset int
	Err    error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("extract: malformed object at offset %d: %v", e.Offset, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

var errUnterminated = errors.New("object not terminated")

const (
	DefaultMarker      = `{"query":"`
	DefaultPushMarker  = `self.__next_f.push([1,"`
	DefaultFallbackKey = `"images":[`
)

// Config carries the marker strings for both extraction modes.
type Config struct {
	Markers     []string
	PushMarker  string
	Signals     []string
	FallbackKey string
}

// DefaultConfig returns markers for the marketplace search page.
func DefaultConfig() Config {
	return Config{
		Markers:     []string{DefaultMarker},
		PushMarker:  DefaultPushMarker,
		Signals:     []string{`"images"`, `"query"`},
		FallbackKey: DefaultFallbackKey,
	}
}

// withDefaults fills empty fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if len(c.Markers) == 0 {
		c.Markers = def.Markers
	}
	if c.PushMarker == "" {
		c.PushMarker = def.PushMarker
	}
	if c.FallbackKey == "" {
		c.FallbackKey = def.FallbackKey
	}
	return c
}

// Extract locates the earliest occurrence of any marker in raw and parses the
// brace-balanced object that starts there.
func Extract(raw string, markers []string) (Document, error) {
	start := earliestMarker(raw, markers)
	if start < 0 {
		return nil, ErrNotFound
	}
	return objectAt(raw, start)
}

// ExtractChunks handles pages that stream their data through escaped push
// chunks. Decoded chunks containing a signal are concatenated and searched
// with the markers, then with the fallback key.
func ExtractChunks(raw string, cfg Config) (Document, error) {
	cfg = cfg.withDefaults()
	text := JoinChunks(DecodeChunks(raw, cfg.PushMarker), cfg.Signals)
	if text == "" {
		return nil, ErrNotFound
	}
	doc, err := Extract(text, cfg.Markers)
	if !errors.Is(err, ErrNotFound) {
		return doc, err
	}
	idx := strings.Index(text, cfg.FallbackKey)
	if idx < 0 {
		return nil, ErrNotFound
	}
	open := OpenBraceBefore(text, idx)
	if open < 0 {
		return nil, ErrNotFound
	}
	return objectAt(text, open)
}

// Auto tries the direct marker mode first and falls back to chunk mode.
func Auto(raw string, cfg Config) (Document, error) {
	cfg = cfg.withDefaults()
	doc, err := Extract(raw, cfg.Markers)
	if !errors.Is(err, ErrNotFound) {
		return doc, err
	}
	return ExtractChunks(raw, cfg)
}

// DecodeChunks returns the unescaped body of every push chunk in raw. Chunks
// without a closing quote end the scan; chunks that fail to decode are
// skipped.
func DecodeChunks(raw, pushMarker string) []string {
	if pushMarker == "" {
		return nil
	}
	var chunks []string
	pos := 0
	for {
		idx := strings.Index(raw[pos:], pushMarker)
		if idx < 0 {
			break
		}
		start := pos + idx + len(pushMarker)
		end, ok := ScanQuoted(raw, start)
		if !ok {
			break
		}
		var decoded string
		if err := json.Unmarshal([]byte(`"`+raw[start:end]+`"`), &decoded); err == nil {
			chunks = append(chunks, decoded)
		}
		pos = end + 1
	}
	return chunks
}

// JoinChunks concatenates the chunks that contain any signal. With no
// signals every chunk is kept.
func JoinChunks(chunks []string, signals []string) string {
	var sb strings.Builder
	for _, chunk := range chunks {
		if len(signals) == 0 || containsAny(chunk, signals) {
			sb.WriteString(chunk)
		}
	}
	return sb.String()
}

func objectAt(text string, start int) (Document, error) {
	end, ok := ScanObject(text, start)
	if !ok {
		return nil, &MalformedError{Offset: start, Err: errUnterminated}
	}
	doc, err := decodeObject(text[start:end])
	if err != nil {
		return nil, &MalformedError{Offset: start, Err: err}
	}
	return doc, nil
}

// decodeObject parses one JSON object, keeping numbers as json.Number so
// counts survive exactly as the upstream sent them.
func decodeObject(s string) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after object")
	}
	if doc == nil {
		return nil, errors.New("null object")
	}
	return doc, nil
}

func earliestMarker(raw string, markers []string) int {
	best := -1
	for _, m := range markers {
		if m == "" {
			continue
		}
		if idx := strings.Index(raw, m); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
