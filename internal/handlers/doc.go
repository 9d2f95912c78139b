// Package handlers implements the JSON API: search, crawl control,
// stats, playback history, health probes and build info.
package handlers
