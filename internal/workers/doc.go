// Package workers provides worker count calculation for the crawl
// scheduler's per-root worker pools, respecting container CPU limits.
package workers
