package handlers

import (
	"net/http"
	"time"
)

// Stats returns index statistics.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		writeJSONError(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats)
}

// PurgeResponse is the payload for POST /api/purge.
type PurgeResponse struct {
	Purged int64  `json:"purged"`
	Cutoff string `json:"cutoff"`
}

// PurgeStale deletes stale entries older than the configured purge age.
func (h *Handlers) PurgeStale(w http.ResponseWriter, r *http.Request) {
	cutoff := time.Now().Add(-h.config.StalePurgeAge)

	purged, err := h.store.PurgeStale(r.Context(), cutoff)
	if err != nil {
		writeJSONError(w, "purge failed", http.StatusInternalServerError)
		return
	}

	// Purged entries may still sit in the snapshot; refresh it.
	if purged > 0 {
		if err := h.engine.Rebuild(r.Context(), h.store); err != nil {
			writeJSONError(w, "purge succeeded but snapshot rebuild failed", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, PurgeResponse{
		Purged: purged,
		Cutoff: cutoff.UTC().Format(time.RFC3339),
	})
}
