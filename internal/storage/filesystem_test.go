package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSanitizeKey(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "history/a.json", want: "history/a.json"},
		{in: "/abs/path.json", want: "abs/path.json"},
		{in: `win\style\key.json`, want: "win/style/key.json"},
		{in: "./x/../y.json", want: "y.json"},
		{in: "../escape.json", wantErr: true},
		{in: "a/../../escape", wantErr: true},
		{in: "..", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("sanitizeKey(%q) = %q, want error", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("sanitizeKey(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	key, err := store.Write(ctx, "/docs/b.json", []byte(`{"b":1}`))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "docs/b.json" {
		t.Fatalf("key = %q", key)
	}
	if _, err := store.Write(ctx, "docs/a.json", []byte(`{}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := store.Read(ctx, "docs/b.json")
	if err != nil || string(data) != `{"b":1}` {
		t.Fatalf("Read = %q, %v", data, err)
	}
	if _, err := store.Read(ctx, "docs/missing.json"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	keys, err := store.List(ctx, "docs")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if want := []string{"docs/a.json", "docs/b.json"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("List = %v, want %v", keys, want)
	}
	if keys, err := store.List(ctx, "nothing-here"); err != nil || len(keys) != 0 {
		t.Fatalf("List(missing) = %v, %v", keys, err)
	}

	entries, err := os.ReadDir(filepath.Join(store.BasePath(), "docs"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestFileStoreRespectsContext(t *testing.T) {
	t.Parallel()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Write(ctx, "a.json", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := NewFileStore(" "); err == nil {
		t.Fatal("expected error for empty base path")
	}
}
