// Package search provides interactive fuzzy search over the index.
//
// Queries run against an immutable in-memory snapshot rebuilt after
// each crawl, so a crawl in progress never perturbs result ordering
// mid-session. Matching is subsequence-based: every query character
// must appear in order in the entry name, with consecutive runs and
// word-boundary hits ranked highest.
//
// Two properties make the engine feel instant while typing: extending a
// query rescans only the previous hits instead of the whole snapshot,
// and every new query supersedes the one before it, so slow scans for
// abandoned keystrokes stop early.
package search
