package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"cineindex/internal/history"
)

// History returns recent playback history, newest first.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	items, err := h.history.Recent(r.Context(), h.store, limit)
	if err != nil {
		writeJSONError(w, "failed to read history", http.StatusInternalServerError)
		return
	}

	if items == nil {
		items = []history.Item{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, items)
}

// RecordPlayback appends a playback event to the history log. Player
// hooks POST here when playback starts or ends.
func (h *Handlers) RecordPlayback(w http.ResponseWriter, r *http.Request) {
	var event history.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSONError(w, "invalid event", http.StatusBadRequest)
		return
	}
	if event.URL == "" {
		writeJSONError(w, "event url is required", http.StatusBadRequest)
		return
	}

	if err := h.history.Append(event); err != nil {
		writeJSONError(w, "failed to record event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSONStatus(w, "recorded")
}
