package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"stockprompt/internal/storage"
	"stockprompt/pkg/zip"
)

func (a *App) ListHistory(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{Kind: r.URL.Query().Get("kind")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be an integer")
			return
		}
		opts.Limit = n
	}
	items, err := a.History.List(r.Context(), opts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if items == nil {
		items = []storage.Record{}
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) GetHistory(w http.ResponseWriter, r *http.Request) {
	rec, err := a.History.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, rec)
}

// ExportHistory returns the prompts of a synthesis or clone record as a zip
// of one JSON file per prompt.
func (a *App) ExportHistory(w http.ResponseWriter, r *http.Request) {
	rec, err := a.History.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	prompts := []byte(rec.Payload)
	switch rec.Kind {
	case storage.KindSynthesis:
	case storage.KindClone:
		var summary struct {
			Prompts json.RawMessage `json:"prompts"`
		}
		if err := json.Unmarshal(rec.Payload, &summary); err != nil || len(summary.Prompts) == 0 {
			a.error(w, http.StatusUnprocessableEntity, "unprocessable", "record has no prompts")
			return
		}
		prompts = summary.Prompts
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "only synthesis and clone records can be exported")
		return
	}

	prefix := rec.Kind + "-" + rec.ID[:min(8, len(rec.ID))]
	files, _, err := storage.PromptFiles(prefix, prompts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	entries := make([]zip.Entry, 0, len(files))
	for _, f := range files {
		entries = append(entries, zip.Entry{Name: f.Name, Data: f.Data})
	}
	archive, err := zip.Archive(entries, rec.CreatedAt)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.zip"`, prefix))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
