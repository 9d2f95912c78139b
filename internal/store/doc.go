// Package store persists the crawled index in a local SQLite database.
//
// Entries are keyed by absolute URL. The database runs in WAL mode so
// search queries keep reading a consistent snapshot while the crawler
// reconciles directories; each directory is reconciled inside a single
// transaction (BeginBatch/EndBatch), so readers see either the old or
// the new state of a directory, never a half-applied one.
//
// Removed entries are marked stale rather than deleted, which keeps
// them discoverable until PurgeStale retires them for good.
package store
