package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"stockprompt/internal/stock"
)

func (a *App) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := strings.TrimSpace(q.Get("q"))
	if text == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "q is required")
		return
	}
	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			a.error(w, http.StatusBadRequest, "bad_request", "page must be a positive integer")
			return
		}
		page = n
	}
	aiOnly, _ := strconv.ParseBool(q.Get("ai_only"))

	res, err := a.Searcher.Search(r.Context(), stock.Query{
		Text:        text,
		Page:        page,
		ContentType: q.Get("content_type"),
		Order:       q.Get("order"),
		AIOnly:      aiOnly,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, res)
}
