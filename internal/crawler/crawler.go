package crawler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"cineindex/internal/listing"
	"cineindex/internal/logging"
	"cineindex/internal/metrics"
	"cineindex/internal/startup"
	"cineindex/internal/store"
)

// ErrAlreadyRunning is returned when a crawl is requested while another
// one is still in progress.
var ErrAlreadyRunning = errors.New("crawl already in progress")

// Config tunes crawl behavior.
type Config struct {
	// Workers is the maximum number of concurrent directory fetches per root.
	Workers int
	// FetchTimeout is the per-request timeout.
	FetchTimeout time.Duration
	// FetchRetries is the total number of attempts per directory.
	FetchRetries int
}

// Result summarizes a completed crawl run.
type Result struct {
	StartedAt      time.Time     `json:"startedAt"`
	Duration       time.Duration `json:"duration"`
	DirsVisited    int64         `json:"dirsVisited"`
	DirsSkipped    int64         `json:"dirsSkipped"`
	EntriesAdded   int64         `json:"entriesAdded"`
	EntriesUpdated int64         `json:"entriesUpdated"`
	EntriesStale   int64         `json:"entriesStale"`
	Errors         int64         `json:"errors"`
	Cancelled      bool          `json:"cancelled"`
}

// Crawler walks configured roots breadth-wise, reconciling each
// directory listing into the index store. One crawl runs at a time.
type Crawler struct {
	store  *store.Store
	config Config

	mu         sync.Mutex
	running    bool
	lastResult *Result
	fatalErr   error

	// Per-run counters, reset by Run
	dirsVisited    atomic.Int64
	dirsSkipped    atomic.Int64
	entriesAdded   atomic.Int64
	entriesUpdated atomic.Int64
	entriesStale   atomic.Int64
	errorsCount    atomic.Int64
}

// New creates a Crawler backed by the given store.
func New(s *store.Store, config Config) *Crawler {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.FetchRetries < 1 {
		config.FetchRetries = 1
	}
	return &Crawler{store: s, config: config}
}

// IsRunning reports whether a crawl is in progress.
func (c *Crawler) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// LastResult returns the result of the most recent completed crawl, or
// nil if none has run yet.
func (c *Crawler) LastResult() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult
}

// Progress returns a snapshot of the running crawl's counters, or nil
// when no crawl is in progress. Counters advance between calls.
func (c *Crawler) Progress() *Result {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if !running {
		return nil
	}

	return &Result{
		DirsVisited:    c.dirsVisited.Load(),
		DirsSkipped:    c.dirsSkipped.Load(),
		EntriesAdded:   c.entriesAdded.Load(),
		EntriesUpdated: c.entriesUpdated.Load(),
		EntriesStale:   c.entriesStale.Load(),
		Errors:         c.errorsCount.Load(),
	}
}

// Run crawls every root and reconciles the index. Roots are crawled
// concurrently, each with its own bounded worker pool. When full is
// set, stored fingerprints are ignored and every directory is
// reconciled. Returns ErrAlreadyRunning if a crawl is already in
// progress; cancellation via ctx stops the run cleanly after in-flight
// directories finish. A store failure aborts the traversal: work
// committed so far stays, and the error is returned alongside the
// partial result.
func (c *Crawler) Run(ctx context.Context, roots []startup.Root, filters startup.Filters, full bool) (*Result, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	c.running = true
	c.fatalErr = nil
	c.mu.Unlock()

	metrics.CrawlRunsTotal.Inc()
	metrics.CrawlIsRunning.Set(1)
	defer metrics.CrawlIsRunning.Set(0)

	c.dirsVisited.Store(0)
	c.dirsSkipped.Store(0)
	c.entriesAdded.Store(0)
	c.entriesUpdated.Store(0)
	c.entriesStale.Store(0)
	c.errorsCount.Store(0)

	start := time.Now()
	logging.Info("Starting crawl: %d roots, %d workers per root", len(roots), c.config.Workers)

	filterCfg := listing.FilterConfig{
		AllowedExtensions: filters.VideoExtensions,
		BlockedDirs:       filters.BlockedDirs,
	}

	// A fatal store error cancels runCtx so every root's traversal
	// winds down; the caller's ctx stays the cancellation signal.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	var wg sync.WaitGroup
	for _, root := range roots {
		wg.Add(1)
		go func(root startup.Root) {
			defer wg.Done()
			c.crawlRoot(runCtx, root, filterCfg, full, cancelRun)
		}(root)
	}
	wg.Wait()

	result := &Result{
		StartedAt:      start,
		Duration:       time.Since(start),
		DirsVisited:    c.dirsVisited.Load(),
		DirsSkipped:    c.dirsSkipped.Load(),
		EntriesAdded:   c.entriesAdded.Load(),
		EntriesUpdated: c.entriesUpdated.Load(),
		EntriesStale:   c.entriesStale.Load(),
		Errors:         c.errorsCount.Load(),
		Cancelled:      ctx.Err() != nil,
	}

	metrics.CrawlLastRunTimestamp.SetToCurrentTime()
	metrics.CrawlLastRunDuration.Set(result.Duration.Seconds())

	c.mu.Lock()
	c.running = false
	c.lastResult = result
	fatal := c.fatalErr
	c.mu.Unlock()

	if fatal != nil {
		logging.Error("Crawl aborted by store failure after %v: %v", result.Duration.Round(time.Millisecond), fatal)
		return result, fatal
	}

	logging.Info("Crawl complete in %v: %d visited, %d skipped, +%d ~%d -%d entries (errors: %d, cancelled: %v)",
		result.Duration.Round(time.Millisecond),
		result.DirsVisited, result.DirsSkipped,
		result.EntriesAdded, result.EntriesUpdated, result.EntriesStale,
		result.Errors, result.Cancelled)

	return result, nil
}

// fail records the first fatal store error and stops the traversal.
func (c *Crawler) fail(err error, cancel context.CancelFunc) {
	c.mu.Lock()
	if c.fatalErr == nil {
		c.fatalErr = err
	}
	c.mu.Unlock()
	cancel()
}

// crawlRoot walks one root with a bounded worker pool. Each directory
// becomes a goroutine gated by the semaphore; recursion into a subtree
// happens only when the directory's listing fingerprint changed.
func (c *Crawler) crawlRoot(ctx context.Context, root startup.Root, filterCfg listing.FilterConfig, full bool, cancelRun context.CancelFunc) {
	fetcher := listing.NewFetcher(c.config.FetchTimeout, filterCfg)
	creds := listing.Credentials{Username: root.Username, Password: root.Password}

	sem := make(chan struct{}, c.config.Workers)
	var wg sync.WaitGroup

	var visit func(dirURL string)
	visit = func(dirURL string) {
		defer wg.Done()

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-sem }()

		if ctx.Err() != nil {
			return
		}

		entries, err := c.fetchWithRetry(ctx, fetcher, dirURL, creds)
		if err != nil {
			if ctx.Err() != nil {
				// Cancellation aborted the fetch; the directory is not
				// unreachable, so its entries keep their state.
				return
			}
			c.errorsCount.Add(1)
			metrics.CrawlErrors.Inc()
			logging.Warn("Abandoning %s: %v", dirURL, err)
			if markErr := c.markSubtreeStale(dirURL); markErr != nil {
				logging.Error("Failed to mark %s stale: %v", dirURL, markErr)
				c.fail(markErr, cancelRun)
			}
			return
		}

		c.dirsVisited.Add(1)
		metrics.CrawlDirsVisited.Inc()

		fp := Fingerprint(entries)
		prev := ""
		if !full {
			if prev, err = c.store.GetFingerprint(ctx, dirURL); err != nil {
				if ctx.Err() == nil {
					logging.Error("Failed to read fingerprint for %s: %v", dirURL, err)
					c.fail(err, cancelRun)
				}
				return
			}
		}

		if prev != "" && prev == fp {
			// Unchanged listing: refresh last_seen for the whole subtree
			// and do not descend.
			c.dirsSkipped.Add(1)
			metrics.CrawlDirsSkipped.Inc()
			if err := c.touchSubtree(dirURL); err != nil {
				logging.Error("Failed to touch %s: %v", dirURL, err)
				c.fail(err, cancelRun)
			}
			logging.Debug("Unchanged: %s", dirURL)
			return
		}

		if err := c.reconcile(ctx, dirURL, root.Tag, entries, fp); err != nil {
			if ctx.Err() == nil {
				logging.Error("Failed to reconcile %s: %v", dirURL, err)
				c.fail(err, cancelRun)
			}
			return
		}

		for _, e := range entries {
			if e.IsDir {
				wg.Add(1)
				go visit(e.URL)
			}
		}
	}

	rootURL := startup.NormalizeRootURL(root.URL)
	logging.Info("Crawling root %q at %s", root.Tag, rootURL)
	wg.Add(1)
	go visit(rootURL)
	wg.Wait()
}

// fetchWithRetry fetches a directory listing, retrying transient
// failures with exponential backoff. Permanent failures (4xx,
// unparseable bodies) return immediately.
func (c *Crawler) fetchWithRetry(ctx context.Context, fetcher *listing.Fetcher, dirURL string, creds listing.Credentials) ([]listing.Entry, error) {
	var lastErr error
	delay := 500 * time.Millisecond

	for attempt := 1; attempt <= c.config.FetchRetries; attempt++ {
		entries, err := fetcher.Fetch(ctx, dirURL, creds)
		if err == nil {
			return entries, nil
		}
		lastErr = err

		var fetchErr *listing.FetchError
		if !errors.As(err, &fetchErr) || !fetchErr.Retryable() {
			return nil, err
		}

		if attempt == c.config.FetchRetries {
			break
		}

		metrics.FetchRetries.Inc()
		logging.Debug("Retrying %s after %v (attempt %d/%d): %v",
			dirURL, delay, attempt, c.config.FetchRetries, err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, lastErr
		}
		delay *= 2
	}

	return nil, lastErr
}

// reconcile applies a fresh listing to the store in one transaction:
// upserts present entries, marks vanished ones stale and records the
// new fingerprint. Readers see the directory either before or after,
// never in between.
func (c *Crawler) reconcile(ctx context.Context, dirURL, rootTag string, entries []listing.Entry, fingerprint string) error {
	prev, err := c.store.ChildrenOf(ctx, dirURL)
	if err != nil {
		return err
	}

	prevByURL := make(map[string]store.Entry, len(prev))
	for _, p := range prev {
		prevByURL[p.URL] = p
	}

	now := time.Now()
	present := make(map[string]bool, len(entries))

	tx, err := c.store.BeginBatch()
	if err != nil {
		return err
	}

	var txErr error
	for _, e := range entries {
		present[e.URL] = true

		entry := store.Entry{
			URL:       e.URL,
			Name:      e.Name,
			ParentURL: dirURL,
			RootTag:   rootTag,
			IsDir:     e.IsDir,
			Size:      e.Size,
			Modified:  e.Modified,
			LastSeen:  now,
		}
		if txErr = c.store.UpsertEntry(tx, &entry); txErr != nil {
			break
		}

		old, existed := prevByURL[e.URL]
		switch {
		case !existed:
			c.entriesAdded.Add(1)
		case old.Size != e.Size || old.Modified != e.Modified || old.Name != e.Name || old.Stale:
			c.entriesUpdated.Add(1)
		}
		metrics.CrawlEntriesDiscovered.Inc()
	}

	if txErr == nil {
		for _, p := range prev {
			if present[p.URL] || p.Stale {
				continue
			}
			var n int64
			if n, txErr = c.store.MarkStale(tx, p.URL, p.IsDir); txErr != nil {
				break
			}
			c.entriesStale.Add(n)
		}
	}

	if txErr == nil {
		txErr = c.store.SetFingerprint(tx, dirURL, fingerprint, now)
	}

	return c.store.EndBatch(tx, txErr)
}

// touchSubtree refreshes last_seen below an unchanged directory.
func (c *Crawler) touchSubtree(dirURL string) error {
	tx, err := c.store.BeginBatch()
	if err != nil {
		return err
	}
	_, txErr := c.store.TouchLastSeen(tx, dirURL, time.Now())
	return c.store.EndBatch(tx, txErr)
}

// markSubtreeStale flags a directory's subtree stale after its listing
// could not be fetched.
func (c *Crawler) markSubtreeStale(dirURL string) error {
	tx, err := c.store.BeginBatch()
	if err != nil {
		return err
	}
	n, txErr := c.store.MarkStale(tx, dirURL, true)
	if txErr == nil {
		c.entriesStale.Add(n)
	}
	return c.store.EndBatch(tx, txErr)
}
