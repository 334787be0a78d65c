package pipeline

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ParseObjects reads candidate objects from model output. It accepts a bare
// array, an object wrapping a "prompts" array, or a single object, with or
// without a Markdown code fence. Anything else yields nil.
func ParseObjects(text string) []map[string]any {
	fragment := extractJSONFragment(text)
	if fragment == "" {
		return nil
	}
	var decoded any
	dec := json.NewDecoder(bytes.NewReader([]byte(fragment)))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return nil
	}
	switch v := decoded.(type) {
	case []any:
		return objectsOf(v)
	case map[string]any:
		if list, ok := v["prompts"].([]any); ok {
			return objectsOf(list)
		}
		return []map[string]any{v}
	}
	return nil
}

// FirstObject returns the first candidate object in text.
func FirstObject(text string) (map[string]any, bool) {
	objs := ParseObjects(text)
	if len(objs) == 0 {
		return nil, false
	}
	return objs[0], true
}

func objectsOf(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func extractJSONFragment(raw string) string {
	text := trimCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return ""
	}
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 && !strings.ContainsAny(trimmed[:nl], "{[") {
		trimmed = trimmed[nl+1:]
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
