package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"stockprompt/internal/domain"
)

func TestSplitPrompts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	src := []byte(`[
  {"scene":"Roses","metadata":{"scene_number":"3"}},
  "not an object",
  {"scene":"Hearts","metadata":{"scene_number":12}},
  {"scene":"Café","metadata":{}}
]`)

	res, err := SplitPrompts(ctx, store, "valentines", src)
	if err != nil {
		t.Fatalf("SplitPrompts: %v", err)
	}
	wantKeys := []string{"valentines-prompt-03.json", "valentines-prompt-12.json", "valentines-prompt-04.json"}
	if !reflect.DeepEqual(res.Keys, wantKeys) {
		t.Fatalf("keys = %v, want %v", res.Keys, wantKeys)
	}
	if !reflect.DeepEqual(res.Skipped, []int{1}) {
		t.Fatalf("skipped = %v", res.Skipped)
	}

	data, err := store.Read(ctx, "valentines-prompt-04.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := "{\n  \"scene\": \"Café\",\n  \"metadata\": {}\n}\n"
	if string(data) != want {
		t.Fatalf("file content = %q, want %q", data, want)
	}
}

func TestSplitPromptsRejectsNonArray(t *testing.T) {
	t.Parallel()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := SplitPrompts(context.Background(), store, "x", []byte(`{"scene":"a"}`)); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := SplitPrompts(context.Background(), store, " ", []byte(`[]`)); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for blank prefix, got %v", err)
	}
}

func TestPromptFilesSuffixesRepeatedScenes(t *testing.T) {
	t.Parallel()
	files, skipped, err := PromptFiles("x", []byte(`[{"metadata":{"scene_number":"1"}},{"metadata":{"scene_number":1}},{"metadata":{"scene_number":"01"}}]`))
	if err != nil {
		t.Fatalf("PromptFiles: %v", err)
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	want := []string{"x-prompt-01.json", "x-prompt-01-2.json", "x-prompt-01-3.json"}
	if !reflect.DeepEqual(names, want) || len(skipped) != 0 {
		t.Fatalf("names = %v, skipped = %v", names, skipped)
	}
}

func TestZeroPad(t *testing.T) {
	t.Parallel()
	cases := map[string]string{"": "00", "7": "07", "42": "42", "123": "123"}
	for in, want := range cases {
		if got := zeroPad(in, 2); got != want {
			t.Errorf("zeroPad(%q) = %q, want %q", in, got, want)
		}
	}
}
