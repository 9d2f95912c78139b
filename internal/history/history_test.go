package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cineindex/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
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
	return s
}

func seedEntry(t *testing.T, s *store.Store, url, name string) {
	t.Helper()

	tx, err := s.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch failed: %v", err)
	}
	entry := store.Entry{URL: url, Name: name, ParentURL: "http://s/", RootTag: "T", LastSeen: time.Now()}
	err = s.UpsertEntry(tx, &entry)
	if endErr := s.EndBatch(tx, err); endErr != nil {
		t.Fatalf("seed failed: %v", endErr)
	}
}

// TestLogAppendAndRecent tests the append/aggregate round trip.
func TestLogAppendAndRecent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	seedEntry(t, s, "http://s/x.mkv", "x.mkv")

	l := NewLog(filepath.Join(t.TempDir(), "events.log"))

	base := time.Now().Add(-time.Hour).Unix()
	events := []Event{
		{Event: "start", URL: "http://s/x.mkv", Time: base},
		{Event: "end", URL: "http://s/x.mkv", Time: base + 100},
		{Event: "start", URL: "http://s/gone.mkv", Time: base + 200},
		{Event: "start", URL: "http://s/x.mkv", Time: base + 300},
	}
	for _, ev := range events {
		if err := l.Append(ev); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	items, err := l.Recent(context.Background(), s, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (deduplicated by URL): %+v", len(items), items)
	}

	// Newest first: x.mkv was played last
	if items[0].URL != "http://s/x.mkv" {
		t.Errorf("items[0] = %q, want x.mkv", items[0].URL)
	}
	if items[0].PlayCount != 2 {
		t.Errorf("PlayCount = %d, want 2 (end events don't count)", items[0].PlayCount)
	}
	if items[0].LastPlayed.Unix() != base+300 {
		t.Errorf("LastPlayed = %v, want the latest event time", items[0].LastPlayed)
	}
	if items[0].Entry == nil || items[0].Entry.Name != "x.mkv" {
		t.Errorf("indexed URL should join its entry: %+v", items[0].Entry)
	}

	// URLs no longer in the index still show up, without an entry
	if items[1].URL != "http://s/gone.mkv" {
		t.Errorf("items[1] = %q, want gone.mkv", items[1].URL)
	}
	if items[1].Entry != nil {
		t.Errorf("unindexed URL should have no entry: %+v", items[1].Entry)
	}
}

// TestLogRecentLimit tests truncation.
func TestLogRecentLimit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	l := NewLog(filepath.Join(t.TempDir(), "events.log"))

	base := time.Now().Unix()
	for i := 0; i < 5; i++ {
		if err := l.Append(Event{Event: "start", URL: "http://s/" + string(rune('a'+i)) + ".mkv", Time: base + int64(i)}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	items, err := l.Recent(context.Background(), s, 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("got %d items, want 3", len(items))
	}
}

// TestLogMissingFile tests a log that doesn't exist yet.
func TestLogMissingFile(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	l := NewLog(filepath.Join(t.TempDir(), "does-not-exist.log"))

	items, err := l.Recent(context.Background(), s, 0)
	if err != nil {
		t.Fatalf("Recent failed on missing file: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items from a missing log, want 0", len(items))
	}
}

// TestLogSkipsMalformedLines tests garbage lines don't break reading.
func TestLogSkipsMalformedLines(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "events.log")

	content := `{"event":"start","url":"http://s/a.mkv","time":1700000000}
this is not json
{"event":"start","url":"http://s/b.mkv","time":1700000100}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write log: %v", err)
	}

	items, err := NewLog(path).Recent(context.Background(), s, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("got %d items, want 2 (malformed line skipped)", len(items))
	}
}
