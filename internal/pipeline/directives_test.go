package pipeline

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadDirectivesDefaults(t *testing.T) {
	t.Parallel()
	got, err := LoadDirectives("")
	if err != nil {
		t.Fatalf("LoadDirectives: %v", err)
	}
	if !reflect.DeepEqual(got, DefaultDirectives()) {
		t.Fatalf("expected defaults, got %#v", got)
	}
}

func TestLoadDirectivesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "directives.yaml")
	content := `directives:
  - name: noir
    text: "  High contrast black and white.  "
  - text: Pastel spring palette.
  - name: blank
    text: ""
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadDirectives(path)
	if err != nil {
		t.Fatalf("LoadDirectives: %v", err)
	}
	want := []Directive{
		{Name: "noir", Text: "High contrast black and white."},
		{Name: "directive-2", Text: "Pastel spring palette."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("LoadDirectives = %#v, want %#v", got, want)
	}
	if texts := DirectiveTexts(got); len(texts) != 2 || texts[1] != "Pastel spring palette." {
		t.Fatalf("DirectiveTexts = %q", texts)
	}
}

func TestLoadDirectivesErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if _, err := LoadDirectives(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("directives: []\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadDirectives(empty); err == nil {
		t.Fatal("expected error for file without directives")
	}
}
