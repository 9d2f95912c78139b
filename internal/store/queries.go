package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// likePrefix escapes a URL for use as a LIKE prefix. URLs routinely
// contain % from percent-encoding, so the wildcard characters must be
// escaped before appending our own.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// UpsertEntry inserts or updates an entry within a transaction. The
// entry comes back alive: stale is cleared and last_seen refreshed.
func (s *Store) UpsertEntry(tx *sql.Tx, e *Entry) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_entry", start, err) }()

	query := `
	INSERT INTO entries (url, name, parent_url, root_tag, is_dir, size, modified, last_seen, stale)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
	ON CONFLICT(url) DO UPDATE SET
		name = excluded.name,
		parent_url = excluded.parent_url,
		root_tag = excluded.root_tag,
		is_dir = excluded.is_dir,
		size = excluded.size,
		modified = excluded.modified,
		last_seen = excluded.last_seen,
		stale = 0
	`

	// Use background context since we're within a transaction.
	_, err = tx.ExecContext(context.Background(), query,
		e.URL,
		e.Name,
		e.ParentURL,
		e.RootTag,
		e.IsDir,
		e.Size,
		e.Modified,
		e.LastSeen.Unix(),
	)
	return err
}

// MarkStale flags an entry as stale within a transaction. For
// directories the whole subtree is flagged along with it.
func (s *Store) MarkStale(tx *sql.Tx, url string, isDir bool) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_stale", start, err) }()

	var result sql.Result
	if isDir {
		result, err = tx.ExecContext(context.Background(),
			`UPDATE entries SET stale = 1 WHERE url = ? OR url LIKE ? ESCAPE '\'`,
			url, likePrefix(url),
		)
	} else {
		result, err = tx.ExecContext(context.Background(),
			`UPDATE entries SET stale = 1 WHERE url = ?`,
			url,
		)
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// TouchLastSeen refreshes last_seen for every live entry below an
// unchanged directory, so skipped subtrees never age into the purge
// window. Stale rows keep their old timestamp; refreshing them would
// make the purge cutoff unreachable.
func (s *Store) TouchLastSeen(tx *sql.Tx, dirURL string, t time.Time) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("touch_last_seen", start, err) }()

	result, err := tx.ExecContext(context.Background(),
		`UPDATE entries SET last_seen = ? WHERE stale = 0 AND url LIKE ? ESCAPE '\'`,
		t.Unix(), likePrefix(dirURL),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SetFingerprint records a directory's listing fingerprint within a
// transaction, in the same commit as the entries it describes.
func (s *Store) SetFingerprint(tx *sql.Tx, dirURL, fingerprint string, t time.Time) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_fingerprint", start, err) }()

	_, err = tx.ExecContext(context.Background(), `
	INSERT INTO dir_state (url, fingerprint, last_crawled)
	VALUES (?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		fingerprint = excluded.fingerprint,
		last_crawled = excluded.last_crawled
	`, dirURL, fingerprint, t.Unix())
	return err
}

// GetFingerprint returns the stored fingerprint for a directory, or ""
// when the directory has never been reconciled.
func (s *Store) GetFingerprint(ctx context.Context, dirURL string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	var err error
	defer func() { recordQuery("get_fingerprint", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var fingerprint string
	err = s.db.QueryRowContext(ctx,
		`SELECT fingerprint FROM dir_state WHERE url = ?`, dirURL,
	).Scan(&fingerprint)
	if err == sql.ErrNoRows {
		err = nil
		return "", nil
	}
	return fingerprint, err
}

const entryColumns = `url, name, parent_url, root_tag, is_dir, size, modified, last_seen, stale`

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var lastSeen int64
		if err := rows.Scan(
			&e.URL, &e.Name, &e.ParentURL, &e.RootTag,
			&e.IsDir, &e.Size, &e.Modified, &lastSeen, &e.Stale,
		); err != nil {
			return nil, err
		}
		e.LastSeen = time.Unix(lastSeen, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ChildrenOf returns every entry directly under a directory, stale ones
// included. The crawler diffs this against a fresh listing during
// reconciliation.
func (s *Store) ChildrenOf(ctx context.Context, parentURL string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	var err error
	defer func() { recordQuery("children_of", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE parent_url = ? ORDER BY url`, parentURL,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	return entries, err
}

// AllEntries returns every entry in the index, stale ones included.
// This feeds the search snapshot, so it deliberately has no row limit.
func (s *Store) AllEntries(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	var err error
	defer func() { recordQuery("all_entries", start, err) }()

	// No per-query timeout: 200k+ entries can legitimately take a while
	// on slow disks.
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries ORDER BY url`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	return entries, err
}

// AllNonStale returns every live entry in the index.
func (s *Store) AllNonStale(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	var err error
	defer func() { recordQuery("all_non_stale", start, err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE stale = 0 ORDER BY url`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	return entries, err
}

// EntriesByURL returns the entries for the given URLs, in no particular
// order. Unknown URLs are simply absent from the result.
func (s *Store) EntriesByURL(ctx context.Context, urls []string) ([]Entry, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	var err error
	defer func() { recordQuery("entries_by_url", start, err) }()

	placeholders := strings.Repeat("?,", len(urls))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(urls))
	for i, u := range urls {
		args[i] = u
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE url IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	return entries, err
}

// PurgeStale deletes stale entries not seen since the cutoff, together
// with their directory state. Returns the number of entries removed.
func (s *Store) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	var err error
	defer func() { recordQuery("purge_stale", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
	DELETE FROM dir_state WHERE url IN (
		SELECT url FROM entries WHERE stale = 1 AND last_seen < ?
	)`, cutoff.Unix())
	if err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE stale = 1 AND last_seen < ?`, cutoff.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Stats computes index statistics.
func (s *Store) Stats(ctx context.Context) (IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	var err error
	defer func() { recordQuery("stats", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var stats IndexStats
	err = s.db.QueryRowContext(ctx, `
	SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN is_dir = 0 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN is_dir = 1 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN stale = 1 THEN 1 ELSE 0 END), 0)
	FROM entries`).Scan(
		&stats.TotalEntries, &stats.FileCount, &stats.DirCount, &stats.StaleCount,
	)
	if err != nil {
		return stats, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT root_tag, COUNT(*) FROM entries GROUP BY root_tag`,
	)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	stats.ByRoot = make(map[string]int)
	for rows.Next() {
		var tag string
		var count int
		if err = rows.Scan(&tag, &count); err != nil {
			return stats, err
		}
		stats.ByRoot[tag] = count
	}
	if err = rows.Err(); err != nil {
		return stats, err
	}

	var lastCrawl sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT MAX(last_crawled) FROM dir_state`,
	).Scan(&lastCrawl)
	if err != nil {
		return stats, err
	}
	if lastCrawl.Valid {
		stats.LastCrawl = time.Unix(lastCrawl.Int64, 0)
	}

	return stats, nil
}
