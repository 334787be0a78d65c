package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func pushChunk(t *testing.T, body string) string {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal chunk: %v", err)
	}
	return `<script>self.__next_f.push([1,` + string(encoded) + `])</script>`
}

func parseDirect(t *testing.T, s string) Document {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		t.Fatalf("direct parse: %v", err)
	}
	return doc
}

func TestExtractWithoutMarkerReturnsNotFound(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"",
		"<html><body>nothing here</body></html>",
		`{"other":"value"}`,
		`0:["$","div",null,{"children":"x"}]`,
	}
	for _, in := range inputs {
		doc, err := Extract(in, []string{DefaultMarker})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Extract(%q) error = %v, want ErrNotFound", in, err)
		}
		if doc != nil {
			t.Fatalf("Extract(%q) doc = %#v, want nil", in, doc)
		}
	}
}

func TestExtractNestedObject(t *testing.T) {
	t.Parallel()
	object := `{"query":"x","meta":{"a":1}}`
	raw := `1:I["abc"]` + "\n" + `2:` + object + `}]trailing{`

	doc, err := Extract(raw, []string{DefaultMarker})
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if want := parseDirect(t, object); !reflect.DeepEqual(doc, want) {
		t.Fatalf("Extract = %#v, want %#v", doc, want)
	}
	meta, ok := doc["meta"].(map[string]any)
	if !ok || meta["a"] != json.Number("1") {
		t.Fatalf("meta = %#v", doc["meta"])
	}
}

func TestExtractUsesEarliestMarker(t *testing.T) {
	t.Parallel()
	raw := `xx{"results":{"n":2}} yy {"query":"late"}`
	doc, err := Extract(raw, []string{DefaultMarker, `{"results":`})
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if _, ok := doc["results"]; !ok {
		t.Fatalf("expected the earliest marker to win, got %#v", doc)
	}
}

func TestExtractMalformed(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"invalid json": `a{"query":"x", bad}b`,
		"unterminated": `a{"query":"x","images":[{"id":1}`,
	}
	for name, raw := range cases {
		raw := raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Extract(raw, []string{DefaultMarker})
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("error = %v, want ErrMalformed", err)
			}
			var malformed *MalformedError
			if !errors.As(err, &malformed) {
				t.Fatalf("error %T is not *MalformedError", err)
			}
			if malformed.Offset != 1 {
				t.Fatalf("Offset = %d, want 1", malformed.Offset)
			}
			if errors.Is(err, ErrNotFound) {
				t.Fatal("malformed payload must not match ErrNotFound")
			}
		})
	}
}

func TestDecodeChunksHonoursEscapes(t *testing.T) {
	t.Parallel()
	raw := `self.__next_f.push([1,"a\"b"])` +
		`self.__next_f.push([1,"c\\"])` +
		`self.__next_f.push([1,"d\\\"e"])`

	got := DecodeChunks(raw, DefaultPushMarker)
	want := []string{`a"b`, `c\`, `d\"e`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DecodeChunks = %#v, want %#v", got, want)
	}
}

func TestDecodeChunksSkipsUndecodableAndStopsOnUnterminated(t *testing.T) {
	t.Parallel()
	raw := `self.__next_f.push([1,"bad \x escape"])` +
		`self.__next_f.push([1,"ok"])` +
		`self.__next_f.push([1,"never closed`

	got := DecodeChunks(raw, DefaultPushMarker)
	if !reflect.DeepEqual(got, []string{"ok"}) {
		t.Fatalf("DecodeChunks = %#v", got)
	}
}

func TestExtractChunksFindsMarkerInSignalChunks(t *testing.T) {
	t.Parallel()
	var page bytes.Buffer
	page.WriteString("<html><body>")
	page.WriteString(pushChunk(t, `0:["$","html",null,{"lang":"en"}]`+"\n"))
	page.WriteString(pushChunk(t, `1:{"query":"cats","images":[{"id":"1","title":"Cat \"tabby\""}],"usageData":{"plan":"pro"}}`+"\n"))
	page.WriteString("</body></html>")

	doc, err := ExtractChunks(page.String(), DefaultConfig())
	if err != nil {
		t.Fatalf("ExtractChunks error: %v", err)
	}
	if doc["query"] != "cats" {
		t.Fatalf("query = %#v", doc["query"])
	}
	images, ok := doc["images"].([]any)
	if !ok || len(images) != 1 {
		t.Fatalf("images = %#v", doc["images"])
	}
	if title := images[0].(map[string]any)["title"]; title != `Cat "tabby"` {
		t.Fatalf("title = %#v", title)
	}
}

func TestExtractChunksFallsBackToImagesKey(t *testing.T) {
	t.Parallel()
	page := pushChunk(t, `2:{"results":{"total":3,"meta":{"x":1},"images":[{"id":"9"}]}}`)

	doc, err := ExtractChunks(page, DefaultConfig())
	if err != nil {
		t.Fatalf("ExtractChunks error: %v", err)
	}
	if doc["total"] != json.Number("3") {
		t.Fatalf("expected the object enclosing images, got %#v", doc)
	}
	if _, ok := doc["images"]; !ok {
		t.Fatalf("images missing: %#v", doc)
	}
}

func TestExtractChunksFallbackIgnoresBracesInStrings(t *testing.T) {
	t.Parallel()
	page := pushChunk(t, `{"meta":{"note":"a}"},"images":[{"id":"1"}]}`)

	doc, err := ExtractChunks(page, DefaultConfig())
	if err != nil {
		t.Fatalf("ExtractChunks error: %v", err)
	}
	meta, ok := doc["meta"].(map[string]any)
	if !ok || meta["note"] != "a}" {
		t.Fatalf("expected the outer object, got %#v", doc)
	}
}

func TestExtractChunksNotFound(t *testing.T) {
	t.Parallel()
	page := pushChunk(t, `0:["$","html",null]`) + pushChunk(t, `{"images":"not an array"}`)
	if _, err := ExtractChunks(page, DefaultConfig()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if _, err := ExtractChunks("<html></html>", DefaultConfig()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestAutoPrefersDirectMarker(t *testing.T) {
	t.Parallel()
	raw := `1:{"query":"dogs","images":[]}`
	doc, err := Auto(raw, Config{})
	if err != nil {
		t.Fatalf("Auto error: %v", err)
	}
	if doc["query"] != "dogs" {
		t.Fatalf("query = %#v", doc["query"])
	}

	page := pushChunk(t, `1:{"query":"birds","images":[]}`)
	doc, err = Auto(page, Config{})
	if err != nil {
		t.Fatalf("Auto chunk error: %v", err)
	}
	if doc["query"] != "birds" {
		t.Fatalf("query = %#v", doc["query"])
	}
}

func TestJoinChunksFiltersBySignal(t *testing.T) {
	t.Parallel()
	got := JoinChunks([]string{"a images", "b", "c query"}, []string{"images", "query"})
	if got != "a imagesc query" {
		t.Fatalf("JoinChunks = %q", got)
	}
	if got := JoinChunks([]string{"a", "b"}, nil); got != "ab" {
		t.Fatalf("JoinChunks without signals = %q", got)
	}
}
