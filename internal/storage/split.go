package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"stockprompt/internal/domain"
)

// SplitResult reports what SplitPrompts wrote.
type SplitResult struct {
	Keys    []string
	Skipped []int
}

// PromptFile is one prompt object rendered as its own document.
type PromptFile struct {
	Name string
	Data []byte
}

// PromptFiles renders each object of a JSON array as a file named
// <prefix>-prompt-<scene>.json, where scene is metadata.scene_number padded
// to two characters or, when absent, the 1-based position. A repeated name
// gets a -2, -3... suffix. Objects are kept as given, re-indented; the
// indexes of non-object elements are returned.
func PromptFiles(prefix string, data []byte) ([]PromptFile, []int, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil, fmt.Errorf("%w: file prefix is required", domain.ErrInvalidRequest)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, nil, fmt.Errorf("%w: source must be a JSON array of prompt objects", domain.ErrInvalidRequest)
	}

	files := []PromptFile{}
	skipped := []int{}
	used := make(map[string]int, len(items))
	for i, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			skipped = append(skipped, i)
			continue
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, item, "", "  "); err != nil {
			return nil, nil, fmt.Errorf("storage: indent item %d: %w", i, err)
		}
		pretty.WriteByte('\n')
		name := fmt.Sprintf("%s-prompt-%s", prefix, sceneLabel(obj, i))
		if used[name]++; used[name] > 1 {
			name = fmt.Sprintf("%s-%d", name, used[name])
		}
		files = append(files, PromptFile{Name: name + ".json", Data: pretty.Bytes()})
	}
	return files, skipped, nil
}

// SplitPrompts writes the PromptFiles of data into store.
func SplitPrompts(ctx context.Context, store *FileStore, prefix string, data []byte) (SplitResult, error) {
	files, skipped, err := PromptFiles(prefix, data)
	if err != nil {
		return SplitResult{}, err
	}
	res := SplitResult{Keys: []string{}, Skipped: skipped}
	for _, f := range files {
		written, err := store.Write(ctx, f.Name, f.Data)
		if err != nil {
			return res, err
		}
		res.Keys = append(res.Keys, written)
	}
	return res, nil
}

func sceneLabel(obj map[string]json.RawMessage, index int) string {
	var meta map[string]any
	if raw, ok := obj["metadata"]; ok {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&meta); err != nil {
			meta = nil
		}
	}
	v, ok := meta["scene_number"]
	if !ok || v == nil {
		return domain.SceneNumber(index + 1)
	}
	label := domain.Stringify(v)
	if label == "" {
		if b, err := json.Marshal(v); err == nil {
			label = string(b)
		}
	}
	return zeroPad(strings.NewReplacer("/", "_", "\\", "_").Replace(label), 2)
}

func zeroPad(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return strings.Repeat("0", width-n) + s
	}
	return s
}
