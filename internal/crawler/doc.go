// Package crawler walks remote directory listings and reconciles them
// into the index store.
//
// Each root gets its own bounded worker pool; within a root, every
// directory fetch runs as a goroutine gated by a semaphore. Incremental
// crawls lean on per-directory listing fingerprints: an unchanged
// fingerprint means the whole subtree is skipped without a single
// request below it.
//
// Failures degrade gracefully. Transient fetch errors are retried with
// exponential backoff; a directory that stays unreachable has its
// subtree marked stale and the crawl moves on.
package crawler
