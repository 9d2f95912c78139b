package history

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"cineindex/internal/logging"
	"cineindex/internal/store"
)

// Event is one line of the playback event log.
type Event struct {
	Event string `json:"event"` // "start" or "end"
	URL   string `json:"url"`
	Time  int64  `json:"time"` // unix seconds
}

// Item is one aggregated history row: the most recent playback of a URL
// plus its index entry when it is still indexed.
type Item struct {
	URL        string       `json:"url"`
	LastPlayed time.Time    `json:"lastPlayed"`
	PlayCount  int          `json:"playCount"`
	Entry      *store.Entry `json:"entry,omitempty"`
}

// Log is an append-only JSONL playback log. External players append to
// the same file, so it is re-read on every query rather than cached.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog returns a Log backed by the given file path. The file does not
// need to exist yet.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Append writes one event to the log.
func (l *Log) Append(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Time == 0 {
		event.Time = time.Now().Unix()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode history event: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open history log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append history event: %w", err)
	}
	return nil
}

// Recent aggregates the log into per-URL items, newest first, joined
// against the index store for display metadata. URLs that have since
// left the index are still returned, just without an Entry. A missing
// log file yields an empty result.
func (l *Log) Recent(ctx context.Context, s *store.Store, limit int) ([]Item, error) {
	l.mu.Lock()
	events, err := l.readAll()
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	byURL := make(map[string]*Item)
	for _, ev := range events {
		if ev.URL == "" {
			continue
		}
		item, ok := byURL[ev.URL]
		if !ok {
			item = &Item{URL: ev.URL}
			byURL[ev.URL] = item
		}
		if ev.Event == "start" || ev.Event == "" {
			item.PlayCount++
		}
		if t := time.Unix(ev.Time, 0); t.After(item.LastPlayed) {
			item.LastPlayed = t
		}
	}

	items := make([]Item, 0, len(byURL))
	urls := make([]string, 0, len(byURL))
	for url, item := range byURL {
		items = append(items, *item)
		urls = append(urls, url)
	}

	entries, err := s.EntriesByURL(ctx, urls)
	if err != nil {
		return nil, err
	}
	entryByURL := make(map[string]store.Entry, len(entries))
	for _, e := range entries {
		entryByURL[e.URL] = e
	}
	for i := range items {
		if e, ok := entryByURL[items[i].URL]; ok {
			entry := e
			items[i].Entry = &entry
		}
	}

	sort.Slice(items, func(a, b int) bool {
		if !items[a].LastPlayed.Equal(items[b].LastPlayed) {
			return items[a].LastPlayed.After(items[b].LastPlayed)
		}
		return items[a].URL < items[b].URL
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// readAll parses the whole log, skipping lines that don't decode.
func (l *Log) readAll() ([]Event, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			logging.Debug("Skipping malformed history line %d: %v", lineNo, err)
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history log: %w", err)
	}
	return events, nil
}
