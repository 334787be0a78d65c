package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"stockprompt/internal/domain"
	"stockprompt/internal/extract"
)

const (
	rule          = "============================================================"
	shownKeywords = 20
	stockURLBase  = "https://stock.adobe.com/"
)

func writeResult(w io.Writer, res domain.SearchResult) {
	u := res.Usage
	fmt.Fprintf(w, "Page %d: found %d results (Plan: %s, Searches: %s/%s)\n\n",
		res.Page, len(res.Assets), orNA(u.Plan), orUnknown(u.SearchesUsed), orUnknown(u.SearchesLimit))
	if res.Filtered {
		fmt.Fprintln(w, "Showing AI-generated assets only.")
		fmt.Fprintln(w)
	}
	for i, a := range res.Assets {
		writeAsset(w, i+1, a)
	}
}

func writeAsset(w io.Writer, idx int, a domain.Asset) {
	tag := ""
	if a.IsAI {
		tag = " [AI-Generated]"
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  #%d %s%s\n", idx, orNA(a.Title), tag)
	fmt.Fprintln(w, rule)

	id := orNA(a.ID)
	fmt.Fprintf(w, "  Stock ID:     %s\n", id)
	fmt.Fprintf(w, "  Downloads:    %s\n", orNA(a.Downloads))
	fmt.Fprintf(w, "  Premium:      %s\n", orNA(a.Premium))

	creator := orNA(a.Creator)
	if a.CreatorID != "" {
		creator = fmt.Sprintf("%s (ID: %s)", creator, a.CreatorID)
	}
	fmt.Fprintf(w, "  Creator:      %s\n", creator)
	fmt.Fprintf(w, "  Type:         %s (%s)\n", orNA(a.MediaType), orNA(a.ContentType))
	fmt.Fprintf(w, "  Category:     %s\n", orNA(a.Category))
	fmt.Fprintf(w, "  Dimensions:   %s\n", orNA(a.Dimensions))
	if a.UploadDate != "" {
		fmt.Fprintf(w, "  Upload Date:  %s\n", formatDate(a.UploadDate))
	}
	if len(a.Keywords) > 0 {
		shown := a.Keywords
		if len(shown) > shownKeywords {
			shown = shown[:shownKeywords]
		}
		fmt.Fprintf(w, "  Keywords:     %s\n", strings.Join(shown, ", "))
		fmt.Fprintf(w, "  KW Count:     %d\n", len(a.Keywords))
	}
	fmt.Fprintf(w, "  Thumbnail:    %s\n", orNA(a.ThumbnailURL))
	fmt.Fprintf(w, "  Stock URL:    %s%s\n", stockURLBase, id)
	fmt.Fprintln(w)
}

// writeRaw prints the first image object as given upstream, then the
// document's top-level keys.
func writeRaw(w io.Writer, doc extract.Document) error {
	images, _ := doc["images"].([]any)
	if len(images) > 0 {
		pretty, err := json.MarshalIndent(images[0], "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, rule)
		fmt.Fprintln(w, "RAW JSON - First Image (all available fields):")
		fmt.Fprintln(w, rule)
		fmt.Fprintln(w, string(pretty))
		fmt.Fprintln(w, rule)
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "\nTop-level data keys: %s\n", strings.Join(keys, ", "))
	return nil
}

// formatDate renders ISO timestamps as "02 Jan 2006" and returns anything
// unparseable unchanged.
func formatDate(s string) string {
	if s == "" {
		return "N/A"
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02 Jan 2006")
		}
	}
	return s
}

func orNA(v any) string {
	if s := fmt.Sprint(v); v != nil && s != "" {
		return s
	}
	return "N/A"
}

func orUnknown(v any) string {
	if s := fmt.Sprint(v); v != nil && s != "" {
		return s
	}
	return "?"
}
