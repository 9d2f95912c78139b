package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Fetch errors by kind ---
	for _, kind := range []string{"timeout", "http_status", "parse", "connection"} {
		FetchErrorsByKind.WithLabelValues(kind)
	}

	// --- Store transactions ---
	for _, result := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(result)
	}

	// --- Store queries ---
	ops := []string{
		"upsert_entry", "mark_stale", "touch_last_seen", "purge_stale",
		"children_of", "all_entries", "all_non_stale", "get_fingerprint", "set_fingerprint",
		"entries_by_url", "stats",
	}
	for _, op := range ops {
		for _, status := range []string{"success", "error"} {
			DBQueryTotal.WithLabelValues(op, status)
		}
		DBQueryDuration.WithLabelValues(op)
	}
}
