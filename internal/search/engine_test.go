package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cineindex/internal/store"
)

func newTestEngine(t *testing.T, names []string) *Engine {
	t.Helper()

	s, err := store.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	tx, err := s.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch failed: %v", err)
	}
	now := time.Now()
	for i, name := range names {
		entry := store.Entry{
			URL:       "http://s/" + name,
			Name:      name,
			ParentURL: "http://s/",
			RootTag:   "TEST",
			Size:      int64(i + 1),
			LastSeen:  now,
		}
		if err = s.UpsertEntry(tx, &entry); err != nil {
			break
		}
	}
	if endErr := s.EndBatch(tx, err); endErr != nil {
		t.Fatalf("failed to seed store: %v", endErr)
	}

	e := NewEngine()
	if err := e.Rebuild(context.Background(), s); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	return e
}

func matchNames(matches []Match) []string {
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Entry.Name
	}
	return names
}

// TestSearchBasic tests matching and top ranking.
func TestSearchBasic(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, []string{
		"x.mkv",
		"extra-material-dark.mkv",
		"The Matrix (1999).mkv",
		"documentary.mp4",
	})

	matches, err := e.Search(context.Background(), "xmk", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected matches for xmk")
	}
	if matches[0].Entry.Name != "x.mkv" {
		t.Errorf("top match = %q, want x.mkv (got order %v)", matches[0].Entry.Name, matchNames(matches))
	}

	for _, m := range matches {
		if m.Entry.Name == "documentary.mp4" {
			t.Error("documentary.mp4 does not contain the subsequence xmk")
		}
	}
}

// TestSearchEmptyQuery tests an empty query returns nothing.
func TestSearchEmptyQuery(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, []string{"x.mkv"})

	matches, err := e.Search(context.Background(), "   ", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("empty query returned %d matches, want 0", len(matches))
	}
}

// TestSearchLimit tests result truncation.
func TestSearchLimit(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, []string{"aa.mkv", "ab.mkv", "ac.mkv", "ad.mkv"})

	matches, err := e.Search(context.Background(), "a", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("got %d matches, want 2", len(matches))
	}
}

// TestSearchDeterministicOrder tests equal-score ties break toward
// shorter, then lexicographically smaller names.
func TestSearchDeterministicOrder(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, []string{"bb-a.mkv", "ba-a.mkv", "b-a.mkv"})

	first, err := e.Search(context.Background(), "b", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		again, err := e.Search(context.Background(), "b", 0)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		for j := range first {
			if again[j].Entry.URL != first[j].Entry.URL {
				t.Fatalf("ordering changed between runs: %v vs %v", matchNames(first), matchNames(again))
			}
		}
	}

	// The shortest name wins its tie group
	if first[0].Entry.Name != "b-a.mkv" {
		t.Errorf("order = %v, want b-a.mkv first", matchNames(first))
	}
}

// TestSearchIncrementalNarrowing tests extending a query gives the same
// results as a cold query, and only shrinks the result set.
func TestSearchIncrementalNarrowing(t *testing.T) {
	t.Parallel()

	names := []string{"x.mkv", "xm.mkv", "extra.mkv", "matrix.mkv", "other.avi"}
	warm := newTestEngine(t, names)
	cold := newTestEngine(t, names)

	prefix, err := warm.Search(context.Background(), "x", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	extended, err := warm.Search(context.Background(), "xmk", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(extended) > len(prefix) {
		t.Errorf("extending the query grew the result set: %d -> %d", len(prefix), len(extended))
	}

	prefixSet := make(map[string]bool)
	for _, m := range prefix {
		prefixSet[m.Entry.URL] = true
	}
	for _, m := range extended {
		if !prefixSet[m.Entry.URL] {
			t.Errorf("%s matched xmk but not its prefix x", m.Entry.URL)
		}
	}

	// Warm (incremental) and cold paths agree exactly
	coldMatches, err := cold.Search(context.Background(), "xmk", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(coldMatches) != len(extended) {
		t.Fatalf("incremental path diverged: %v vs %v", matchNames(extended), matchNames(coldMatches))
	}
	for i := range extended {
		if extended[i].Entry.URL != coldMatches[i].Entry.URL || extended[i].Score != coldMatches[i].Score {
			t.Errorf("result %d differs: %+v vs %+v", i, extended[i], coldMatches[i])
		}
	}
}

// TestSearchIncludesStale tests entries from unreachable subtrees stay
// findable, flagged stale and ranked below live ties.
func TestSearchIncludesStale(t *testing.T) {
	t.Parallel()

	s, err := store.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	defer s.Close()

	now := time.Now()
	tx, err := s.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch failed: %v", err)
	}
	live := store.Entry{URL: "http://s/A/b.mkv", Name: "b.mkv", ParentURL: "http://s/A/", RootTag: "T", LastSeen: now}
	gone := store.Entry{URL: "http://s/B/b.mkv", Name: "b.mkv", ParentURL: "http://s/B/", RootTag: "T", LastSeen: now}
	err = s.UpsertEntry(tx, &live)
	if err == nil {
		err = s.UpsertEntry(tx, &gone)
	}
	if err == nil {
		_, err = s.MarkStale(tx, gone.URL, false)
	}
	if endErr := s.EndBatch(tx, err); endErr != nil {
		t.Fatalf("seed failed: %v", endErr)
	}

	e := NewEngine()
	if err := e.Rebuild(context.Background(), s); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if e.Size() != 2 {
		t.Fatalf("Size() = %d, want 2 (stale entry in the snapshot)", e.Size())
	}

	matches, err := e.Search(context.Background(), "bmk", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2 (stale entry still searchable): %v", len(matches), matchNames(matches))
	}

	// Identical names score identically; the live entry wins the tie
	if matches[0].Entry.URL != live.URL || matches[0].Entry.Stale {
		t.Errorf("top match = %+v, want the live entry first", matches[0].Entry)
	}
	if matches[1].Entry.URL != gone.URL || !matches[1].Entry.Stale {
		t.Errorf("second match = %+v, want the stale entry flagged", matches[1].Entry)
	}
}

// TestSearchCancelledContext tests a dead context aborts the scan.
func TestSearchCancelledContext(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, []string{"x.mkv", "y.mkv"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Search(ctx, "x", 0)
	if err == nil {
		t.Error("expected an error from a cancelled context")
	}
}

// TestSearchRebuildResetsSession tests snapshot swaps invalidate the
// incremental candidate list.
func TestSearchRebuildResetsSession(t *testing.T) {
	t.Parallel()

	s, err := store.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	defer s.Close()

	seed := func(names []string) {
		tx, err := s.BeginBatch()
		if err != nil {
			t.Fatalf("BeginBatch failed: %v", err)
		}
		for _, name := range names {
			entry := store.Entry{URL: "http://s/" + name, Name: name, ParentURL: "http://s/", RootTag: "T", LastSeen: time.Now()}
			if err = s.UpsertEntry(tx, &entry); err != nil {
				break
			}
		}
		if endErr := s.EndBatch(tx, err); endErr != nil {
			t.Fatalf("seed failed: %v", endErr)
		}
	}

	seed([]string{"alpha.mkv"})
	e := NewEngine()
	if err := e.Rebuild(context.Background(), s); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	if _, err := e.Search(context.Background(), "al", 0); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	// New entry arrives; after rebuild the extended query must see it
	// even though "al" cached candidates from the old snapshot.
	seed([]string{"alpine.mkv"})
	if err := e.Rebuild(context.Background(), s); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	matches, err := e.Search(context.Background(), "alp", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	found := false
	for _, m := range matches {
		if m.Entry.Name == "alpine.mkv" {
			found = true
		}
	}
	if !found {
		t.Errorf("rebuild did not reset the session: %v", matchNames(matches))
	}
}

// TestEngineSize tests snapshot size reporting.
func TestEngineSize(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, []string{"a.mkv", "b.mkv", "c.mkv"})
	if e.Size() != 3 {
		t.Errorf("Size() = %d, want 3", e.Size())
	}

	if NewEngine().Size() != 0 {
		t.Error("empty engine should report size 0")
	}
}
