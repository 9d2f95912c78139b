package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cineindex/internal/logging"
	"cineindex/internal/metrics"
	"cineindex/internal/store"
)

// ErrSuperseded is returned when a newer query arrived while this one
// was still scanning. The caller should simply drop the result.
var ErrSuperseded = errors.New("search superseded by a newer query")

// checkInterval is how many candidates are scanned between cancellation
// checks. Small enough to make stale queries die quickly, large enough
// to stay off the hot path.
const checkInterval = 2048

// Match is one search hit.
type Match struct {
	Entry store.Entry `json:"entry"`
	Score int         `json:"score"`
}

// Engine answers fuzzy queries over an in-memory snapshot of the index.
// The snapshot is replaced wholesale by Rebuild after a crawl; searches
// running against the old snapshot stay consistent.
type Engine struct {
	mu      sync.RWMutex
	items   []store.Entry
	version int64

	// Session state for incremental narrowing: when a query extends the
	// previous one, only the previous hits need rescanning.
	sessMu         sync.Mutex
	sessVersion    int64
	lastQuery      string
	lastCandidates []int32

	searchGen atomic.Int64
}

// NewEngine returns an empty engine. Call Rebuild to load a snapshot.
func NewEngine() *Engine {
	return &Engine{}
}

// Rebuild replaces the search snapshot with every entry in the store,
// stale ones included: a subtree whose server is unreachable stays
// findable, flagged stale so clients can dim it. Typically called once
// at startup and after each crawl.
func (e *Engine) Rebuild(ctx context.Context, s *store.Store) error {
	start := time.Now()

	entries, err := s.AllEntries(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.items = entries
	e.version++
	e.mu.Unlock()

	e.sessMu.Lock()
	e.lastQuery = ""
	e.lastCandidates = nil
	e.sessMu.Unlock()

	metrics.SearchSnapshotSize.Set(float64(len(entries)))
	logging.Info("Search snapshot rebuilt: %d entries in %v", len(entries), time.Since(start).Round(time.Millisecond))
	return nil
}

// Size returns the number of entries in the current snapshot.
func (e *Engine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

// Search returns the best matches for query, ranked by score. Results
// are deterministic: ties break toward live entries over stale ones,
// then shorter names, then lexicographically, then by URL. limit <= 0
// means no limit.
//
// A Search call supersedes any still-running one; the superseded call
// returns ErrSuperseded as soon as it notices.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	gen := e.searchGen.Add(1)

	metrics.SearchQueriesTotal.Inc()
	start := time.Now()
	defer func() {
		metrics.SearchDuration.Observe(time.Since(start).Seconds())
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		e.sessMu.Lock()
		e.lastQuery = ""
		e.lastCandidates = nil
		e.sessMu.Unlock()
		return nil, nil
	}

	e.mu.RLock()
	items := e.items
	version := e.version
	e.mu.RUnlock()

	// Subsequence matching is monotonic: extending the query can only
	// shrink the result set, so the previous hits are a complete
	// candidate list for any query that has the previous one as prefix.
	queryLower := strings.ToLower(query)
	var candidates []int32
	e.sessMu.Lock()
	if e.sessVersion == version && e.lastQuery != "" && strings.HasPrefix(queryLower, e.lastQuery) {
		candidates = e.lastCandidates
	}
	e.sessMu.Unlock()

	type scored struct {
		idx   int32
		score int
	}

	scan := func(idx int32) (scored, bool) {
		score, ok := fuzzyMatch(query, items[idx].Name)
		return scored{idx: idx, score: score}, ok
	}

	var hits []scored
	checkCancelled := func(n int) error {
		if n%checkInterval != 0 {
			return nil
		}
		if e.searchGen.Load() != gen {
			return ErrSuperseded
		}
		return ctx.Err()
	}

	if candidates != nil {
		for n, idx := range candidates {
			if err := checkCancelled(n); err != nil {
				return nil, err
			}
			if s, ok := scan(idx); ok {
				hits = append(hits, s)
			}
		}
	} else {
		for i := range items {
			if err := checkCancelled(i); err != nil {
				return nil, err
			}
			if s, ok := scan(int32(i)); ok {
				hits = append(hits, s)
			}
		}
	}

	// Remember the hits for the next keystroke.
	matchedIdx := make([]int32, len(hits))
	for i, h := range hits {
		matchedIdx[i] = h.idx
	}
	e.sessMu.Lock()
	e.sessVersion = version
	e.lastQuery = queryLower
	e.lastCandidates = matchedIdx
	e.sessMu.Unlock()

	sort.SliceStable(hits, func(a, b int) bool {
		ea, eb := &items[hits[a].idx], &items[hits[b].idx]
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		if ea.Stale != eb.Stale {
			return !ea.Stale
		}
		if len(ea.Name) != len(eb.Name) {
			return len(ea.Name) < len(eb.Name)
		}
		if ea.Name != eb.Name {
			return ea.Name < eb.Name
		}
		return ea.URL < eb.URL
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	matches := make([]Match, len(hits))
	for i, h := range hits {
		matches[i] = Match{Entry: items[h.idx], Score: h.score}
	}
	return matches, nil
}
