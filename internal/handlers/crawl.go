package handlers

import (
	"net/http"
	"strconv"

	"cineindex/internal/crawler"
	"cineindex/internal/logging"
	"cineindex/internal/startup"
)

// CrawlStatusResponse is the payload for GET /api/crawl/status.
type CrawlStatusResponse struct {
	Running    bool            `json:"running"`
	Progress   *crawler.Result `json:"progress,omitempty"`
	LastResult *crawler.Result `json:"lastResult,omitempty"`
}

// TriggerCrawl starts a crawl in the background. The roots and filters
// files are re-read on every trigger so they can be edited between runs
// without a restart. ?full=true ignores stored fingerprints and
// reconciles every directory.
func (h *Handlers) TriggerCrawl(w http.ResponseWriter, r *http.Request) {
	if h.crawler.IsRunning() {
		writeJSONError(w, "crawl already in progress", http.StatusConflict)
		return
	}

	roots, err := startup.LoadRoots(h.config.RootsPath)
	if err != nil {
		logging.Error("Cannot start crawl: %v", err)
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	filters, err := startup.LoadFilters(h.config.FiltersPath)
	if err != nil {
		logging.Error("Cannot start crawl: %v", err)
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	full, _ := strconv.ParseBool(r.URL.Query().Get("full"))

	go func() {
		if _, err := h.crawler.Run(h.baseCtx, roots, filters, full); err != nil {
			logging.Error("Crawl failed: %v", err)
			return
		}
		if err := h.engine.Rebuild(h.baseCtx, h.store); err != nil {
			logging.Error("Snapshot rebuild after crawl failed: %v", err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	writeJSONStatus(w, "crawl started")
}

// CrawlStatus reports whether a crawl is running and the last result.
func (h *Handlers) CrawlStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, CrawlStatusResponse{
		Running:    h.crawler.IsRunning(),
		Progress:   h.crawler.Progress(),
		LastResult: h.crawler.LastResult(),
	})
}
