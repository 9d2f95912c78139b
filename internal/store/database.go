package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"cineindex/internal/logging"
	"cineindex/internal/metrics"
)

// Default timeout for store operations
const defaultTimeout = 5 * time.Second

// Store manages the persistent index of crawled entries.
type Store struct {
	db      *sql.DB
	dbPath  string
	mu      sync.RWMutex
	txStart time.Time // Track transaction start time for metrics
}

// New opens (or creates) the index store at dbPath. The parent directory
// must already exist and be writable; use startup.LoadConfig() to ensure
// proper directory validation before calling this.
func New(ctx context.Context, dbPath string) (*Store, error) {
	logging.Info("Index store path: %s", dbPath)

	if err := diagnosePermissions(dbPath); err != nil {
		logging.Warn("Index store permission diagnostics: %v", err)
	}

	// Use WAL mode so crawler writes never block search reads.
	// busy_timeout helps prevent "database is locked" errors.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close index store after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to index store: %w", err)
	}

	// Allow multiple readers during a crawl
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close index store after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize index store schema: %w", err)
	}

	logging.Info("Index store initialized successfully at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	-- Main entries table, keyed by absolute URL
	CREATE TABLE IF NOT EXISTS entries (
		url TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		parent_url TEXT NOT NULL,
		root_tag TEXT NOT NULL,
		is_dir INTEGER NOT NULL,
		size INTEGER NOT NULL DEFAULT -1,
		modified TEXT NOT NULL DEFAULT '',
		last_seen INTEGER NOT NULL,
		stale INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_entries_parent ON entries(parent_url);
	CREATE INDEX IF NOT EXISTS idx_entries_root ON entries(root_tag);
	CREATE INDEX IF NOT EXISTS idx_entries_stale ON entries(stale);
	CREATE INDEX IF NOT EXISTS idx_entries_name ON entries(name COLLATE NOCASE);

	-- Per-directory crawl state: the listing fingerprint drives the
	-- unchanged-subtree skip on incremental crawls
	CREATE TABLE IF NOT EXISTS dir_state (
		url TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		last_crawled INTEGER NOT NULL
	);

	-- Metadata table
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the index store.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginBatch starts a transaction for a directory reconciliation.
// The caller is responsible for calling EndBatch when done.
func (s *Store) BeginBatch() (*sql.Tx, error) {
	s.mu.Lock()
	txStart := time.Now()

	// Use background context - transaction lifetime is managed by EndBatch,
	// not a timeout.
	tx, err := s.db.BeginTx(context.Background(), nil)
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	s.txStart = txStart
	return tx, nil
}

// EndBatch commits or rolls back a transaction.
func (s *Store) EndBatch(tx *sql.Tx, err error) error {
	duration := time.Since(s.txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		rbErr := tx.Rollback()
		if rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// recordQuery records store query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics updates store connection metrics
func (s *Store) UpdateDBMetrics() {
	stats := s.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// diagnosePermissions checks store directory and file permissions
func diagnosePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat store directory: %w", err)
	}
	logging.Debug("Store directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("store directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	if dbInfo, err := os.Stat(dbPath); err == nil {
		logging.Debug("Store file exists: %s (mode: %v, size: %d bytes)", dbPath, dbInfo.Mode(), dbInfo.Size())
		if dbInfo.Mode().Perm()&0o200 == 0 {
			logging.Warn("Store file is read-only! Mode: %v", dbInfo.Mode())
		}
	}

	// WAL side files inherit permission problems from bad copies; fix
	// them up-front rather than failing mid-crawl.
	for _, suffix := range []string{"-wal", "-shm"} {
		sidePath := dbPath + suffix
		if info, err := os.Stat(sidePath); err == nil && info.Mode().Perm()&0o200 == 0 {
			logging.Warn("%s file is read-only! Mode: %v - this will cause write failures", suffix, info.Mode())
			if chmodErr := os.Chmod(sidePath, 0o600); chmodErr != nil {
				logging.Error("Failed to fix %s file permissions: %v", suffix, chmodErr)
			} else {
				logging.Info("Fixed %s file permissions", suffix)
			}
		}
	}

	return nil
}
