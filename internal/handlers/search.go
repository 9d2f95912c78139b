package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"cineindex/internal/search"
)

// SearchResponse is the payload for GET /api/search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Total   int            `json:"total"`
	Matches []search.Match `json:"matches"`
}

// Search answers fuzzy queries against the current snapshot.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	matches, err := h.engine.Search(r.Context(), query, limit)
	if errors.Is(err, search.ErrSuperseded) {
		// A newer query from the same client replaced this one.
		writeJSONError(w, "superseded by a newer query", http.StatusConflict)
		return
	}
	if err != nil {
		// Context cancellation means the client went away; nothing useful
		// to write either way.
		writeJSONError(w, "search failed", http.StatusInternalServerError)
		return
	}

	if matches == nil {
		matches = []search.Match{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, SearchResponse{
		Query:   query,
		Total:   len(matches),
		Matches: matches,
	})
}
